package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

type sentEmail struct {
	recipient string
	template  enums.NotificationTemplate
	payload   map[string]any
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeSender) Send(_ context.Context, recipient string, template enums.NotificationTemplate, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{recipient: recipient, template: template, payload: payload})
	return nil
}

type published struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{channel: channel, body: message})
	return nil
}

func newTestDispatcher(t *testing.T, sender Sender, pub *fakePublisher) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(
		sender,
		NewRealtime(pub, ""),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		metrics.NewNotificationMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return d
}

func snapshot(status enums.OrderStatus, orderType enums.OrderType) payloads.OrderSnapshot {
	return payloads.OrderSnapshot{
		OrderID:       uuid.New(),
		UserID:        uuid.New(),
		StationaryID:  uuid.New(),
		CustomerName:  "Asha",
		CustomerEmail: "asha@college.test",
		Status:        status,
		OrderType:     orderType,
		TotalPrice:    100,
		ItemCount:     2,
	}
}

func TestDispatchPaidEmailsCustomerAndPushesShop(t *testing.T) {
	sender := &fakeSender{}
	pub := &fakePublisher{}
	d := newTestDispatcher(t, sender, pub)
	order := snapshot(enums.OrderStatusAccepted, enums.OrderTypeTakeaway)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := d.Dispatch(context.Background(), OrderEvent{
		Type:       enums.EventOrderPaid,
		Order:      order,
		OccurredAt: at,
		Extra:      map[string]any{"amountPaid": int64(10500)},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha@college.test", sender.sent[0].recipient)
	assert.Equal(t, enums.NotificationOrderPlaced, sender.sent[0].template)
	assert.Equal(t, int64(10500), sender.sent[0].payload["amountPaid"])

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "stationary_"+order.StationaryID.String(), pub.msgs[0].channel)
	var msg RealtimeMessage
	require.NoError(t, json.Unmarshal(pub.msgs[0].body, &msg))
	assert.Equal(t, "NEW_ORDER", msg.Type)
	assert.Equal(t, RealtimeEventNewOrder, msg.Event)
	assert.Equal(t, "New order received!", msg.Message)
	assert.True(t, at.Equal(msg.Timestamp))
}

func TestDispatchStatusTemplates(t *testing.T) {
	cases := []struct {
		status    enums.OrderStatus
		orderType enums.OrderType
		want      enums.NotificationTemplate
		sends     bool
	}{
		{enums.OrderStatusInProgress, enums.OrderTypeTakeaway, "", false},
		{enums.OrderStatusCompleted, enums.OrderTypeTakeaway, enums.NotificationOrderReadyForPickup, true},
		{enums.OrderStatusCompleted, enums.OrderTypeDelivery, "", false},
		{enums.OrderStatusOutForDelivery, enums.OrderTypeDelivery, enums.NotificationOrderOutForDelivery, true},
		{enums.OrderStatusDelivered, enums.OrderTypeTakeaway, enums.NotificationOrderDelivered, true},
		{enums.OrderStatusDelivered, enums.OrderTypeDelivery, enums.NotificationOrderDelivered, true},
		{enums.OrderStatusCancelled, enums.OrderTypeDelivery, enums.NotificationOrderCancelled, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.status)+"/"+string(tc.orderType), func(t *testing.T) {
			sender := &fakeSender{}
			pub := &fakePublisher{}
			d := newTestDispatcher(t, sender, pub)

			err := d.Dispatch(context.Background(), OrderEvent{
				Type:  enums.EventOrderStatusChanged,
				Order: snapshot(tc.status, tc.orderType),
			})
			require.NoError(t, err)
			assert.Empty(t, pub.msgs, "only paid orders reach the shop channel")
			if !tc.sends {
				assert.Empty(t, sender.sent)
				return
			}
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tc.want, sender.sent[0].template)
		})
	}
}

func TestDispatchRefundEmailsCustomerOnly(t *testing.T) {
	sender := &fakeSender{}
	pub := &fakePublisher{}
	d := newTestDispatcher(t, sender, pub)

	err := d.Dispatch(context.Background(), OrderEvent{
		Type:  enums.EventPaymentRefundRequired,
		Order: snapshot(enums.OrderStatusCancelled, enums.OrderTypeDelivery),
		Extra: map[string]any{"amount": int64(10500)},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, enums.NotificationRefundPending, sender.sent[0].template)
	assert.Equal(t, "CANCELLED", sender.sent[0].payload["status"])
	assert.Empty(t, pub.msgs, "a refunded order never reaches the shop")
}

func TestDispatchAggregatesFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	pub := &fakePublisher{err: errors.New("redis down")}
	d := newTestDispatcher(t, sender, pub)

	err := d.Dispatch(context.Background(), OrderEvent{
		Type:  enums.EventOrderPaid,
		Order: snapshot(enums.OrderStatusAccepted, enums.OrderTypeTakeaway),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "redis down")
}

func TestDispatchPushesEvenWhenEmailFails(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	pub := &fakePublisher{}
	d := newTestDispatcher(t, sender, pub)

	err := d.Dispatch(context.Background(), OrderEvent{
		Type:  enums.EventOrderPaid,
		Order: snapshot(enums.OrderStatusAccepted, enums.OrderTypeDelivery),
	})
	require.Error(t, err)
	assert.Len(t, pub.msgs, 1)
}

func TestDispatchVerification(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(t, sender, &fakePublisher{})

	err := d.DispatchVerification(context.Background(), payloads.EmailOTPRequestedEvent{
		UserID: uuid.New(),
		Email:  "new@college.test",
		Name:   "New",
		Code:   "482913",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, enums.NotificationEmailVerification, sender.sent[0].template)
	assert.Equal(t, "482913", sender.sent[0].payload["code"])
}

func TestStationaryChannelPrefix(t *testing.T) {
	id := uuid.MustParse("0b9a4c1e-8c2d-4f5e-9a7b-1c2d3e4f5a6b")
	assert.Equal(t, "stationary_"+id.String(), StationaryChannel("", id))
	assert.Equal(t, "cp:stationary_"+id.String(), NewRealtime(&fakePublisher{}, "cp:").Channel(id))
}
