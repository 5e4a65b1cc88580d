package app

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/analytics"
	"github.com/noah-isme/kopi-pos/internal/audit"
	"github.com/noah-isme/kopi-pos/internal/auth"
	"github.com/noah-isme/kopi-pos/internal/cart"
	"github.com/noah-isme/kopi-pos/internal/catalog"
	"github.com/noah-isme/kopi-pos/internal/checkout"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/config"
	"github.com/noah-isme/kopi-pos/internal/customer"
	"github.com/noah-isme/kopi-pos/internal/health"
	"github.com/noah-isme/kopi-pos/internal/obs"
	"github.com/noah-isme/kopi-pos/internal/order"
	"github.com/noah-isme/kopi-pos/internal/payment"
	"github.com/noah-isme/kopi-pos/internal/ratelimit"
	"github.com/noah-isme/kopi-pos/internal/security"
	"github.com/noah-isme/kopi-pos/internal/settings"
	"github.com/noah-isme/kopi-pos/internal/voucher"
)

// NewRouter builds the HTTP surface. pool may be nil in tests, readiness then
// reports the database as down.
func NewRouter(cfg *config.Config, svc *Services, pool *pgxpool.Pool, logger zerolog.Logger) (http.Handler, error) {
	authMW := auth.Middleware{Service: svc.Auth}
	idem := common.Idem{R: svc.Redis, TTL: cfg.IdempotencyTTL}

	loginStore, err := ratelimit.NewStore(svc.Redis, "rl:login:")
	if err != nil {
		return nil, fmt.Errorf("login limiter store: %w", err)
	}
	loginLimit, err := ratelimit.FixedWindow(loginStore, cfg.LoginRateLimit)
	if err != nil {
		return nil, err
	}
	sliding := ratelimit.Limiter{Client: svc.Redis, Prefix: "rl:"}
	onLimitErr := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }
	voucherLimit := ratelimit.Handler{
		Limiter: sliding,
		Config:  ratelimit.Config{Scope: "voucher", Key: ratelimit.ByClientIP, Window: cfg.VoucherRateWindow, Max: cfg.VoucherRateMax},
		OnError: onLimitErr,
	}
	webhookLimit := ratelimit.Handler{
		Limiter: sliding,
		Config:  ratelimit.Config{Scope: "webhook", Key: ratelimit.ByClientIP, Window: cfg.WebhookRateWindow, Max: cfg.WebhookRateMax},
		OnError: onLimitErr,
	}

	authHandler := &auth.Handler{Service: svc.Auth, Logger: logger}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: svc.Catalog})
	settingsHandler := &settings.Handler{Svc: svc.Settings, Logger: logger}
	customerHandler := &customer.Handler{Svc: svc.Customers, Logger: logger}
	cartHandler := &cart.Handler{Svc: svc.Carts, Logger: logger}
	voucherHandler := &voucher.Handler{Q: svc.Queries, Svc: svc.Vouchers, Logger: logger}
	checkoutHandler := &checkout.Handler{Svc: svc.Checkout, Logger: logger}
	orderHandler := &order.Handler{Svc: svc.Orders, Logger: logger}
	orderAdmin := &order.AdminHandler{Svc: svc.Orders, Logger: logger, Location: cfg.Location}
	dashboard := &analytics.Handler{Svc: svc.Analytics}
	webhook := &payment.WebhookHandler{Reconciler: svc.Reconciler, Logger: logger}
	trail := audit.HTTPRecorder{
		Service: svc.Audit,
		OnError: func(err error) { logger.Error().Err(err).Msg("record audit log") },
	}
	auditLogs := audit.Handler{Store: svc.Queries}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.MetricsEnabled {
		metrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{HSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Checker: health.Deps{DB: pool, Redis: svc.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Get("/menu", catalogHandler.Menu)
	r.Get("/categories", catalogHandler.Categories)
	r.Get("/menu/{id}", catalogHandler.Product)
	r.Get("/settings", settingsHandler.Get)

	r.Route("/auth", func(a chi.Router) {
		a.With(loginLimit).Post("/login", authHandler.Login)
		a.With(authMW.RequireRole(common.RoleAdmin, common.RoleCashier, common.RoleKitchen)).Get("/me", authHandler.Me)
	})

	r.Post("/customers/identify", customerHandler.Identify)
	r.With(authMW.RequireRole(common.RoleCustomer)).Get("/customers/me", customerHandler.Me)

	r.Route("/carts", func(c chi.Router) {
		c.Use(authMW.Authenticate)
		c.Post("/", cartHandler.Create)
		c.Get("/{id}", cartHandler.Get)
		c.Post("/{id}/items", cartHandler.AddItem)
		c.Patch("/{id}/items/{productID}", cartHandler.UpdateItem)
		c.Delete("/{id}/items/{productID}", cartHandler.RemoveItem)
		c.With(voucherLimit.Middleware).Post("/{id}/voucher", cartHandler.ApplyVoucher)
		c.Delete("/{id}/voucher", cartHandler.RemoveVoucher)
	})

	r.Group(func(p chi.Router) {
		p.Use(authMW.RequireAuth)
		p.With(idem.Middleware).Post("/checkout", checkoutHandler.Submit)
		p.Get("/orders", orderHandler.List)
		p.Get("/orders/{id}", orderHandler.Get)
		p.With(trail.Middleware).Post("/orders/{id}/cancel", orderHandler.Cancel)
		p.With(idem.Middleware).Post("/orders/{id}/pay", checkoutHandler.RetryPayment)
	})

	r.Route("/pos", func(p chi.Router) {
		p.Use(authMW.RequireRole(common.RoleCashier, common.RoleAdmin))
		p.Get("/customers", customerHandler.Lookup)
		p.Post("/vouchers/preview", voucherHandler.Preview)
	})

	r.Route("/kitchen", func(k chi.Router) {
		k.Use(authMW.RequireRole(common.RoleKitchen, common.RoleAdmin))
		k.Use(trail.Middleware)
		k.Get("/orders", orderAdmin.KitchenQueue)
		k.Patch("/orders/{id}", orderAdmin.PatchKitchenStatus)
	})

	r.Route("/admin", func(a chi.Router) {
		a.Use(authMW.RequireRole(common.RoleAdmin))
		a.Use(trail.Middleware)
		a.Get("/audit-logs", auditLogs.List)
		a.Get("/dashboard", dashboard.Dashboard)
		a.Get("/orders", orderAdmin.List)
		a.Get("/vouchers", voucherHandler.List)
		a.Post("/vouchers", voucherHandler.Create)
		a.Patch("/vouchers/{id}", voucherHandler.SetActive)
		a.Delete("/vouchers/{id}", voucherHandler.Delete)
		a.Post("/products", catalogHandler.Create)
		a.Put("/products/{id}", catalogHandler.Update)
		a.Patch("/products/{id}/availability", catalogHandler.SetAvailability)
		a.Put("/settings", settingsHandler.Update)
	})

	r.With(webhookLimit.Middleware).Post("/payments/midtrans/notification", webhook.Handle)

	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

// protectPprof requires basic auth when a user is configured.
func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
