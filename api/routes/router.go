package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusprint/campusprint-backend/api/controllers"
	analyticscontrollers "github.com/campusprint/campusprint-backend/api/controllers/analytics"
	cartcontrollers "github.com/campusprint/campusprint-backend/api/controllers/cart"
	ordercontrollers "github.com/campusprint/campusprint-backend/api/controllers/orders"
	webhookcontrollers "github.com/campusprint/campusprint-backend/api/controllers/webhooks"
	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/internal/analytics"
	"github.com/campusprint/campusprint-backend/internal/auth"
	"github.com/campusprint/campusprint-backend/internal/cart"
	"github.com/campusprint/campusprint-backend/internal/catalog"
	checkoutsvc "github.com/campusprint/campusprint-backend/internal/checkout"
	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/internal/payments"
	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// PaymentVerifier settles a payment from the client callback.
type PaymentVerifier interface {
	VerifyClientPayment(ctx context.Context, in payments.VerifyInput) (*payments.Result, error)
}

// Deps collects everything the HTTP surface is wired against. Redis may be nil
// in tests, which disables idempotency and throttling.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Pingers  map[string]controllers.Pinger
	Metrics  prometheus.Gatherer
	Sessions sessionManager

	Auth          auth.Service
	Register      auth.RegisterService
	OwnerRegister auth.OwnerRegisterService
	Users         users.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Payments      PaymentVerifier
	Webhooks      webhookcontrollers.RazorpayWebhookService
	Analytics     analytics.Service
	Realtime      controllers.RealtimeFeed
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	passThrough := func(next http.Handler) http.Handler { return next }
	idempotent := passThrough
	if d.Redis != nil {
		idempotent = middleware.Idempotency(d.Redis, logg)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	limits := cfg.RateLimit
	loginPolicy := middleware.ThrottlePolicy{Name: "login", Window: limits.LoginWindow, Limits: []middleware.Limit{
		{By: middleware.ByIP, Max: limits.LoginIPLimit},
		{By: middleware.ByEmail, Max: limits.LoginEmailLimit},
	}}
	registerLimits := []middleware.Limit{
		{By: middleware.ByIP, Max: limits.RegisterIPLimit},
		{By: middleware.ByEmail, Max: limits.RegisterEmailLimit},
	}
	registerPolicy := middleware.ThrottlePolicy{Name: "register", Window: limits.RegisterWindow, Limits: registerLimits}
	resendPolicy := middleware.ThrottlePolicy{Name: "resend_otp", Window: limits.RegisterWindow, Limits: registerLimits}
	checkoutPolicy := middleware.ThrottlePolicy{Name: "checkout", Window: limits.CheckoutWindow, Limits: []middleware.Limit{
		{By: middleware.ByUser, Max: limits.CheckoutUserLimit},
	}}
	throttle := func(p middleware.ThrottlePolicy) func(http.Handler) http.Handler {
		if d.Redis == nil {
			return passThrough
		}
		return middleware.Throttle(p, d.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Pingers, logg))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(idempotent)
			r.With(throttle(loginPolicy)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(throttle(registerPolicy)).Post("/register", controllers.AuthRegister(d.Register, logg))
			r.Post("/verify-email", controllers.AuthVerifyEmail(d.Register, logg))
			r.With(throttle(resendPolicy)).Post("/resend-otp", controllers.AuthResendOTP(d.Register, logg))
			r.Post("/logout", controllers.AuthLogout(d.Sessions, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Sessions, cfg.JWT, logg))
		})

		r.Get("/colleges", controllers.ListColleges(d.Catalog, logg))
		r.Post("/webhooks/razorpay", webhookcontrollers.RazorpayWebhook(d.Webhooks, logg))

		// student surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RequireRole(enums.UserRoleStudent, logg))
			r.Use(idempotent)

			r.Get("/me", controllers.ProfileGet(d.Users, logg))
			r.Patch("/me", controllers.ProfileUpdate(d.Users, logg))
			r.Post("/me/change-password", controllers.ProfileChangePassword(d.Users, logg))

			r.Get("/colleges/{collegeId}/stationaries", controllers.ListCollegeStationaries(d.Catalog, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(d.Cart, logg))
				r.Post("/items", cartcontrollers.AddItems(d.Cart, cfg.Uploads.MaxUploadBytes(), logg))
				r.Delete("/items/{itemId}", cartcontrollers.DeleteItem(d.Cart, logg))
			})

			r.With(throttle(checkoutPolicy)).Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Post("/payments/verify", controllers.PaymentVerify(d.Payments, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.CustomerList(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.CustomerDetail(d.Orders, logg))
			})
		})

		r.Route("/owner", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RequireRole(enums.UserRoleOwner, logg))
			r.Use(middleware.StationaryContext(logg))
			r.Use(idempotent)

			r.Get("/profile", controllers.OwnerProfile(d.Users, d.Catalog, logg))
			r.Patch("/profile", controllers.ProfileUpdate(d.Users, logg))
			r.Post("/change-password", controllers.ProfileChangePassword(d.Users, logg))
			r.Patch("/status", controllers.OwnerShopStatus(d.Catalog, logg))

			r.Get("/printing-rates", controllers.OwnerPrintingRates(d.Catalog, logg))
			r.Patch("/printing-rates", controllers.OwnerUpdatePrintingRates(d.Catalog, logg))

			r.Get("/orders", ordercontrollers.OwnerList(d.Orders, logg))
			r.Patch("/orders/status", ordercontrollers.OwnerUpdateStatus(d.Orders, logg))

			r.Get("/analytics", analyticscontrollers.OwnerReport(d.Analytics, logg))
			if d.Realtime != nil {
				r.Get("/realtime", controllers.OwnerRealtime(d.Realtime, cfg.Notifications.RealtimePrefix, logg))
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Use(idempotent)

			r.Get("/colleges", controllers.ListColleges(d.Catalog, logg))
			r.Post("/colleges", controllers.AdminRegisterCollege(d.Catalog, logg))
			r.Post("/stationaries", controllers.AdminRegisterStationary(d.Catalog, logg))
			r.Post("/owners", controllers.AdminRegisterOwner(d.OwnerRegister, logg))
			r.Get("/orders", ordercontrollers.AdminList(d.Orders, logg))
			r.Get("/analytics/marketplace", analyticscontrollers.Marketplace(d.Analytics, logg))
		})
	})

	return r
}
