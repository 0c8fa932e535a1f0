package main

import (
	"context"
	"fmt"

	"github.com/campusprint/campusprint-backend/pkg/bootstrap"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/migrate"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/registry"
	"github.com/campusprint/campusprint-backend/pkg/outbox/relay"
	"github.com/campusprint/campusprint-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
}

// run relays outbox rows to Pub/Sub until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "pubsub", pubsubClient.Close)

	router, err := registry.NewRouter(cfg.PubSub)
	if err != nil {
		return err
	}
	r, err := relay.New(relay.Params{
		Config:      relay.ConfigFrom(cfg.Outbox),
		Logger:      logg,
		DB:          dbClient,
		Sink:        pubsubClient,
		Store:       outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Router:      router,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "outbox publisher ready")
	return r.Run(ctx)
}
