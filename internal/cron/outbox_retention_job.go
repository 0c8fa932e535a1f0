package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// OutboxRetentionJobParams configure pruning of published outbox rows.
// Unpublished rows are never touched.
type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    publishedPruner
	Retention time.Duration
	// DeadLetters is optional. When set, each run reports how many events
	// were dead-lettered inside the retention window.
	DeadLetters deadLetterCounter
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	keep := params.Retention
	if keep <= 0 {
		keep = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		outbox: params.Outbox,
		dead:   params.DeadLetters,
		keep:   keep,
		now:    time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg   *logger.Logger
	outbox publishedPruner
	dead   deadLetterCounter
	keep   time.Duration
	now    func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	pruned, err := j.outbox.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune published outbox rows before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"pruned": pruned,
	}), "published outbox rows pruned")

	j.reportDeadLetters(ctx, cutoff)
	return nil
}

// reportDeadLetters never fails the run; pruning already happened.
func (j *outboxRetentionJob) reportDeadLetters(ctx context.Context, since time.Time) {
	if j.dead == nil {
		return
	}
	n, err := j.dead.CountSince(ctx, since)
	if err != nil {
		j.logg.Error(ctx, "count dead-lettered outbox events", err)
		return
	}
	fields := j.logg.WithFields(ctx, map[string]any{"since": since, "dead_lettered": n})
	if n > 0 {
		j.logg.Warn(fields, "outbox events were dead-lettered")
		return
	}
	j.logg.Info(fields, "no dead-lettered outbox events")
}
