package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/campusprint/campusprint-backend/internal/notifications"
	"github.com/campusprint/campusprint-backend/pkg/bootstrap"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/outbox/consumer"
	"github.com/campusprint/campusprint-backend/pkg/outbox/idempotency"
	"github.com/campusprint/campusprint-backend/pkg/pubsub"
	"github.com/campusprint/campusprint-backend/pkg/redis"
)

func main() {
	bootstrap.Main("worker", run)
}

// run consumes order events for owner and student notifications and serves
// the worker's own /metrics.
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

	reg := prometheus.NewRegistry()
	dispatcher, err := notifications.NewDispatcher(
		notifications.NewLogSender(cfg.Notifications.FromEmail, logg),
		notifications.NewRealtime(redisClient, cfg.Notifications.RealtimePrefix),
		logg,
		metrics.NewNotificationMetrics(reg),
	)
	if err != nil {
		return err
	}
	handler, err := notifications.NewEventHandler(dispatcher)
	if err != nil {
		return err
	}
	dedup, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	notificationConsumer, err := consumer.New(consumer.Params{
		Name:         notifications.ConsumerName,
		Subscription: pubsubClient.NotificationSubscription(),
		Handler:      handler,
		Dedup:        dedup,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	// Either half failing stops the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notificationConsumer.Run(gctx) })
	g.Go(func() error { return bootstrap.Serve(gctx, metricsServer) })
	return g.Wait()
}
