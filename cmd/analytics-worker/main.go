package main

import (
	"context"
	"fmt"

	"github.com/campusprint/campusprint-backend/internal/analytics/ingest"
	"github.com/campusprint/campusprint-backend/internal/analytics/writer"
	"github.com/campusprint/campusprint-backend/pkg/bigquery"
	"github.com/campusprint/campusprint-backend/pkg/bootstrap"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/outbox/consumer"
	"github.com/campusprint/campusprint-backend/pkg/outbox/idempotency"
	"github.com/campusprint/campusprint-backend/pkg/pubsub"
	"github.com/campusprint/campusprint-backend/pkg/redis"
)

func main() {
	bootstrap.Main("analytics-worker", run)
}

// run wires Pub/Sub to BigQuery and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "bigquery", bqClient.Close)

	dedup, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	rows, err := writer.New(bqClient, writer.Config{OrdersTable: bqClient.OrdersTable()})
	if err != nil {
		return fmt.Errorf("order events writer: %w", err)
	}
	handler, err := ingest.NewHandler(rows, logg)
	if err != nil {
		return err
	}
	c, err := consumer.New(consumer.Params{
		Name:         ingest.ConsumerName,
		Subscription: pubsubClient.AnalyticsSubscription(),
		Handler:      handler,
		Dedup:        dedup,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "analytics worker ready")
	return c.Run(ctx)
}
