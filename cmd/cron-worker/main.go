package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusprint/campusprint-backend/internal/cron"
	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/pkg/bootstrap"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/migrate"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/redis"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

// run schedules pending-order expiry and outbox retention. Each tick takes a
// redis lock, so only one replica runs a job at a time.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "redis", redisClient.Close)

	locker, err := cron.NewRedisLocker(redisClient, cfg.App.Env)
	if err != nil {
		return err
	}

	outboxRows := outbox.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient,
		outbox.NewService(outboxRows, logg), cfg.Fees.PlatformFee)
	if err != nil {
		return err
	}
	expiry, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger: logg,
		Orders: ordersService,
		TTL:    cfg.Cron.PendingOrderTTL,
		Batch:  cfg.Cron.PendingOrderBatch,
	})
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		Outbox:      outboxRows,
		Retention:   cfg.Outbox.Retention,
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		return err
	}

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:  logg,
		Locker:  locker,
		Metrics: metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedules: []cron.Schedule{
			{Job: expiry, Every: cfg.Cron.Interval},
			{Job: retention, Every: cfg.Cron.RetentionInterval},
		},
	})
	if err != nil {
		return err
	}
	return scheduler.Run(ctx)
}
