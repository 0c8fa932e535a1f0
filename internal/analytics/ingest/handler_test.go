package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/outbox/consumer"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

type fakeRows struct {
	rows []types.OrderEventRow
	err  error
}

func (f *fakeRows) WriteOrderEvent(_ context.Context, row types.OrderEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func newHandler(t *testing.T, rows rowWriter) *Handler {
	t.Helper()
	h, err := NewHandler(rows, logger.New(logger.Options{ServiceName: "ingest-test", Output: io.Discard}))
	require.NoError(t, err)
	return h
}

func eventFor(t *testing.T, eventType enums.OutboxEventType, payload any) consumer.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return consumer.Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Date(2026, 4, 2, 15, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		Payload:    payload,
		Data:       data,
	}
}

func snapshot(status enums.OrderStatus) payloads.OrderSnapshot {
	return payloads.OrderSnapshot{
		OrderID:      uuid.New(),
		UserID:       uuid.New(),
		StationaryID: uuid.New(),
		CollegeID:    uuid.New(),
		Status:       status,
		OrderType:    enums.OrderTypeDelivery,
		TotalPrice:   120,
		ItemCount:    3,
	}
}

func TestPaidRowCarriesMoney(t *testing.T) {
	rows := &fakeRows{}
	order := snapshot(enums.OrderStatusAccepted)
	ev := eventFor(t, enums.EventOrderPaid, &payloads.OrderPaidEvent{
		Order:            order,
		GatewayPaymentID: "pay_1",
		AmountPaid:       12500,
		CommissionFee:    6,
		NetEarnings:      8,
		Source:           "webhook",
	})

	require.NoError(t, newHandler(t, rows).Handle(context.Background(), ev))
	require.Len(t, rows.rows, 1)
	row := rows.rows[0]
	assert.Equal(t, ev.ID.String(), row.EventID)
	assert.Equal(t, "order_paid", row.EventType)
	assert.Equal(t, time.UTC, row.OccurredAt.Location())
	assert.True(t, ev.OccurredAt.Equal(row.OccurredAt))
	assert.Equal(t, order.OrderID.String(), row.OrderID)
	require.NotNil(t, row.CollegeID)
	assert.Equal(t, order.CollegeID.String(), *row.CollegeID)
	assert.Equal(t, int64(120), row.TotalPrice)
	assert.Equal(t, int64(3), row.ItemCount)
	require.NotNil(t, row.AmountPaidPaise)
	assert.Equal(t, int64(12500), *row.AmountPaidPaise)
	assert.Equal(t, int64(6), *row.CommissionFee)
	assert.Equal(t, int64(8), *row.NetEarnings)
	assert.Equal(t, "webhook", *row.Source)
	assert.JSONEq(t, string(ev.Data), row.Payload.JSONVal)
}

func TestStatusRowKeepsPreviousStatus(t *testing.T) {
	rows := &fakeRows{}
	ev := eventFor(t, enums.EventOrderStatusChanged, &payloads.OrderStatusChangedEvent{
		Order:          snapshot(enums.OrderStatusDelivered),
		PreviousStatus: enums.OrderStatusOutForDelivery,
	})

	require.NoError(t, newHandler(t, rows).Handle(context.Background(), ev))
	require.Len(t, rows.rows, 1)
	assert.Equal(t, "DELIVERED", rows.rows[0].Status)
	require.NotNil(t, rows.rows[0].PreviousStatus)
	assert.Equal(t, "OUT_FOR_DELIVERY", *rows.rows[0].PreviousStatus)
	assert.Nil(t, rows.rows[0].AmountPaidPaise)
}

func TestRowWithoutCollegeLeavesColumnNull(t *testing.T) {
	order := snapshot(enums.OrderStatusPending)
	order.CollegeID = uuid.Nil
	row, err := RowFor(eventFor(t, enums.EventOrderCreated, &payloads.OrderCreatedEvent{Order: order}))
	require.NoError(t, err)
	assert.Nil(t, row.CollegeID)

	saved, insertID, err := row.Save()
	require.NoError(t, err)
	assert.Equal(t, row.EventID, insertID)
	assert.Nil(t, saved["college_id"])
	assert.Nil(t, saved["amount_paid_paise"])
}

func TestNonOrderEventsAreSkipped(t *testing.T) {
	rows := &fakeRows{}
	ev := eventFor(t, enums.EventEmailOTPRequested, &payloads.EmailOTPRequestedEvent{Email: "x@college.test"})

	err := newHandler(t, rows).Handle(context.Background(), ev)
	assert.ErrorIs(t, err, consumer.ErrSkip)
	assert.Empty(t, rows.rows)
}

func TestWriteFailurePropagates(t *testing.T) {
	ev := eventFor(t, enums.EventOrderExpired, &payloads.OrderExpiredEvent{Order: snapshot(enums.OrderStatusCancelled)})
	err := newHandler(t, &fakeRows{err: errors.New("bq down")}).Handle(context.Background(), ev)
	require.Error(t, err)
	assert.NotErrorIs(t, err, consumer.ErrSkip)
}
