package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 30 * time.Minute
	defaultExpireBatch     = 100
)

type orderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders orderExpirer
	TTL    time.Duration
	Batch  int
}

// NewOrderTTLJob builds the job that cancels orders left unpaid past the TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders orderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run drains expirable orders a batch at a time. A short batch means the
// backlog is empty; a batch that made no progress stops the loop so a stuck
// row cannot spin the job.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		expired, err := j.orders.ExpirePending(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			j.logResult(ctx, cutoff, total)
			return fmt.Errorf("expire pending orders: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	j.logResult(ctx, cutoff, total)
	return nil
}

func (j *orderTTLJob) logResult(ctx context.Context, cutoff time.Time, total int) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"ttl":     j.ttl.String(),
		"expired": total,
	})
	j.logg.Info(logCtx, "order expiration loop complete")
}
