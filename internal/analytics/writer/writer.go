// Package writer streams analytics rows into BigQuery.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
)

// Retry defaults: three attempts, 250ms doubling to at most 2s.
const (
	defaultAttempts = 3
	defaultBackoff  = 250 * time.Millisecond
	defaultCap      = 2 * time.Second
)

type inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type Config struct {
	OrdersTable string
	Attempts    int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Writer inserts one row per event.
type Writer struct {
	client  inserter
	table   string
	backoff func() retry.Backoff
}

func New(client inserter, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.OrdersTable)
	if table == "" {
		return nil, errors.New("orders table is required")
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	base, ceiling := cfg.Backoff, cfg.MaxBackoff
	if base <= 0 {
		base = defaultBackoff
	}
	if ceiling < base {
		ceiling = max(base, defaultCap)
	}
	return &Writer{
		client: client,
		table:  table,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(base)
			b = retry.WithCappedDuration(ceiling, b)
			return retry.WithMaxRetries(uint64(attempts-1), b)
		},
	}, nil
}

// WriteOrderEvent inserts row, retrying quota and availability failures.
func (w *Writer) WriteOrderEvent(ctx context.Context, row types.OrderEventRow) error {
	err := retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, w.table, []any{row})
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert into %s: %w", w.table, err)
	}
	return nil
}

// transient is true only when every underlying failure is worth retrying.
func transient(err error) bool {
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return len(multi) > 0 && all(multi, transient)
	}
	var rows cbigquery.PutMultiError
	if errors.As(err, &rows) {
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			if len(row.Errors) == 0 || !all(row.Errors, transient) {
				return false
			}
		}
		return true
	}
	var rowErr *cbigquery.Error
	if errors.As(err, &rowErr) {
		switch rowErr.Reason {
		case "backendError", "internalError", "rateLimitExceeded", "timeout":
			return true
		}
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func all(errs []error, pred func(error) bool) bool {
	for _, e := range errs {
		if !pred(e) {
			return false
		}
	}
	return true
}

// EncodeJSON fills a BigQuery JSON column. Empty and null inputs stay NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return v, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = b
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: trimmed}, nil
}
