package main

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campusprint/campusprint-backend/api/controllers"
	"github.com/campusprint/campusprint-backend/api/routes"
	"github.com/campusprint/campusprint-backend/internal/analytics"
	"github.com/campusprint/campusprint-backend/internal/analytics/query"
	"github.com/campusprint/campusprint-backend/internal/auth"
	"github.com/campusprint/campusprint-backend/internal/cart"
	"github.com/campusprint/campusprint-backend/internal/catalog"
	"github.com/campusprint/campusprint-backend/internal/checkout"
	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/internal/payments"
	"github.com/campusprint/campusprint-backend/internal/users"
	razorpaywebhook "github.com/campusprint/campusprint-backend/internal/webhooks/razorpay"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/bigquery"
	"github.com/campusprint/campusprint-backend/pkg/bootstrap"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/migrate"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/idempotency"
	"github.com/campusprint/campusprint-backend/pkg/razorpay"
	"github.com/campusprint/campusprint-backend/pkg/redis"
	"github.com/campusprint/campusprint-backend/pkg/storage/gcs"
)

func main() {
	bootstrap.Main("api", run)
}

// run opens the shared clients, builds the HTTP router and serves until ctx
// ends. BigQuery is optional; without it marketplace analytics answer 502.
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

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	defer bootstrap.CloseQuietly(ctx, logg, "gcs", gcsClient.Close)

	pingers := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
		"gcs":   gcsClient,
	}

	var marketplace query.MarketplaceService
	if bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "bigquery unavailable, marketplace analytics disabled")
	} else {
		defer bootstrap.CloseQuietly(ctx, logg, "bigquery", bqClient.Close)
		pingers["bigquery"] = bqClient
		if marketplace, err = query.NewMarketplaceService(bqClient); err != nil {
			return err
		}
	}

	gateway, err := razorpay.NewClient(cfg.Razorpay)
	if err != nil {
		return fmt.Errorf("razorpay: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		StationaryRepo: catalogRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Colleges:       catalogRepo,
		Outbox:         emitter,
		OTPStore:       redisClient,
		PasswordConfig: cfg.Password,
		OTPConfig:      cfg.OTP,
	})
	if err != nil {
		return err
	}
	ownerRegisterService, err := auth.NewOwnerRegisterService(auth.OwnerRegisterServiceParams{
		DB:             dbClient,
		Colleges:       catalogRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalogRepo, userRepo, dbClient)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartRepo, dbClient, gcsClient, cfg.Uploads, logg)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TX:       dbClient,
		Carts:    cartRepo,
		Orders:   ordersRepo,
		Payments: paymentsRepo,
		Shops:    catalogRepo,
		Users:    userRepo,
		Gateway:  gateway,
		Outbox:   emitter,
		Fees:     cfg.Fees,
		Currency: cfg.Razorpay.Currency,
	})
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, emitter, cfg.Fees.PlatformFee)
	if err != nil {
		return err
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		TX:            dbClient,
		Payments:      paymentsRepo,
		Orders:        ordersRepo,
		Gateway:       gateway,
		Outbox:        emitter,
		Fees:          cfg.Fees,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Logger:        logg,
		Metrics:       metrics.NewReconcileMetrics(reg),
	})
	if err != nil {
		return err
	}
	webhookClaims, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookEventTTL)
	if err != nil {
		return err
	}
	webhookService, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		Reconciler:    reconciler,
		Claims:        webhookClaims,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Shops:       catalogRepo,
		Orders:      analytics.NewRepository(conn),
		Marketplace: marketplace,
	})
	if err != nil {
		return err
	}

	// Platforms that inject PORT win over the configured port.
	addr := ":" + cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Pingers:       pingers,
			Metrics:       reg,
			Sessions:      sessionManager,
			Auth:          authService,
			Register:      registerService,
			OwnerRegister: ownerRegisterService,
			Users:         usersService,
			Catalog:       catalogService,
			Cart:          cartService,
			Checkout:      checkoutService,
			Orders:        ordersService,
			Payments:      reconciler,
			Webhooks:      webhookService,
			Analytics:     analyticsService,
			Realtime:      controllers.RedisFeed{Client: redisClient},
		}),
	}
	logg.Info(logg.WithField(ctx, "addr", addr), "api listening")
	return bootstrap.Serve(ctx, server)
}
