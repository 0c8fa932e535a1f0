package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. Rupee columns hold
// whole rupees; amount_paid_paise is what the gateway captured.
type OrderEventRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	OrderID         string             `bigquery:"order_id"`
	StationaryID    string             `bigquery:"stationary_id"`
	CollegeID       *string            `bigquery:"college_id"`
	UserID          string             `bigquery:"user_id"`
	Status          string             `bigquery:"status"`
	PreviousStatus  *string            `bigquery:"previous_status"`
	OrderType       string             `bigquery:"order_type"`
	TotalPrice      int64              `bigquery:"total_price"`
	ItemCount       int64              `bigquery:"item_count"`
	AmountPaidPaise *int64             `bigquery:"amount_paid_paise"`
	CommissionFee   *int64             `bigquery:"commission_fee"`
	NetEarnings     *int64             `bigquery:"net_earnings"`
	Source          *string            `bigquery:"source"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}

// Save implements bigquery.ValueSaver. The event id is the insert id, so
// streaming dedup drops a row the worker writes twice.
func (r OrderEventRow) Save() (map[string]cbigquery.Value, string, error) {
	row := map[string]cbigquery.Value{
		"event_id":          r.EventID,
		"event_type":        r.EventType,
		"occurred_at":       r.OccurredAt,
		"order_id":          r.OrderID,
		"stationary_id":     r.StationaryID,
		"college_id":        deref(r.CollegeID),
		"user_id":           r.UserID,
		"status":            r.Status,
		"previous_status":   deref(r.PreviousStatus),
		"order_type":        r.OrderType,
		"total_price":       r.TotalPrice,
		"item_count":        r.ItemCount,
		"amount_paid_paise": deref(r.AmountPaidPaise),
		"commission_fee":    deref(r.CommissionFee),
		"net_earnings":      deref(r.NetEarnings),
		"source":            deref(r.Source),
		"payload":           nil,
	}
	if r.Payload.Valid {
		row["payload"] = r.Payload.JSONVal
	}
	return row, r.EventID, nil
}

func deref[T any](v *T) cbigquery.Value {
	if v == nil {
		return nil
	}
	return *v
}
