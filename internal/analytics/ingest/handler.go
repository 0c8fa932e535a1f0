// Package ingest flattens order lifecycle events into order_events rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/internal/analytics/writer"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/outbox/consumer"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

// ConsumerName keys the processed-event marks of the analytics worker.
const ConsumerName = "analytics"

type rowWriter interface {
	WriteOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

type Handler struct {
	rows rowWriter
	logg *logger.Logger
}

func NewHandler(rows rowWriter, logg *logger.Logger) (*Handler, error) {
	if rows == nil {
		return nil, errors.New("row writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Handler{rows: rows, logg: logg}, nil
}

// Handle writes one row per order event and skips everything else, such as
// OTP and refund events.
func (h *Handler) Handle(ctx context.Context, ev consumer.Event) error {
	row, err := RowFor(ev)
	if err != nil {
		return err
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		logger.FieldOrderID:      row.OrderID,
		logger.FieldStationaryID: row.StationaryID,
	})
	if err := h.rows.WriteOrderEvent(ctx, row); err != nil {
		return fmt.Errorf("write %s row: %w", ev.Type, err)
	}
	h.logg.Info(ctx, "analytics.row_written")
	return nil
}

// RowFor maps a decoded event onto the order_events schema.
func RowFor(ev consumer.Event) (types.OrderEventRow, error) {
	var row types.OrderEventRow
	switch p := ev.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		row = fromSnapshot(p.Order)
	case *payloads.OrderPaidEvent:
		row = fromSnapshot(p.Order)
		row.AmountPaidPaise = &p.AmountPaid
		row.CommissionFee = &p.CommissionFee
		row.NetEarnings = &p.NetEarnings
		row.Source = optional(p.Source)
	case *payloads.OrderStatusChangedEvent:
		row = fromSnapshot(p.Order)
		row.PreviousStatus = optional(string(p.PreviousStatus))
	case *payloads.OrderExpiredEvent:
		row = fromSnapshot(p.Order)
	default:
		return row, fmt.Errorf("%w: %s", consumer.ErrSkip, ev.Type)
	}

	payload, err := writer.EncodeJSON(ev.Data)
	if err != nil {
		return row, err
	}
	row.EventID = ev.ID.String()
	row.EventType = string(ev.Type)
	row.OccurredAt = ev.OccurredAt.UTC()
	row.Payload = payload
	return row, nil
}

func fromSnapshot(order payloads.OrderSnapshot) types.OrderEventRow {
	row := types.OrderEventRow{
		OrderID:      order.OrderID.String(),
		StationaryID: order.StationaryID.String(),
		UserID:       order.UserID.String(),
		Status:       string(order.Status),
		OrderType:    string(order.OrderType),
		TotalPrice:   order.TotalPrice,
		ItemCount:    int64(order.ItemCount),
	}
	if order.CollegeID != uuid.Nil {
		row.CollegeID = optional(order.CollegeID.String())
	}
	return row
}

func optional(value string) *string {
	if v := strings.TrimSpace(value); v != "" {
		return &v
	}
	return nil
}
