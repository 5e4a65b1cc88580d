package app

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/analytics"
	"github.com/noah-isme/kopi-pos/internal/audit"
	"github.com/noah-isme/kopi-pos/internal/auth"
	"github.com/noah-isme/kopi-pos/internal/cache"
	"github.com/noah-isme/kopi-pos/internal/cart"
	"github.com/noah-isme/kopi-pos/internal/catalog"
	"github.com/noah-isme/kopi-pos/internal/checkout"
	"github.com/noah-isme/kopi-pos/internal/config"
	"github.com/noah-isme/kopi-pos/internal/customer"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/lock"
	"github.com/noah-isme/kopi-pos/internal/obs"
	"github.com/noah-isme/kopi-pos/internal/order"
	"github.com/noah-isme/kopi-pos/internal/payment"
	"github.com/noah-isme/kopi-pos/internal/resilience"
	"github.com/noah-isme/kopi-pos/internal/settings"
	"github.com/noah-isme/kopi-pos/internal/voucher"
)

// Infra holds the connections shared by the API and the worker.
type Infra struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Queries *db.Queries
	Tasks   *asynq.Client
}

// OpenInfra connects to Postgres and Redis. name becomes the Postgres
// application_name so both binaries are distinguishable in pg_stat_activity.
func OpenInfra(ctx context.Context, cfg *config.Config, logger zerolog.Logger, name string) (*Infra, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{Logger: &logger}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = name

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	infra := &Infra{Pool: pool, Redis: rdb, Queries: db.New(pool)}
	if opt, err := TaskRedis(cfg); err != nil {
		logger.Warn().Err(err).Msg("task queue disabled")
	} else {
		infra.Tasks = asynq.NewClient(opt)
	}
	return infra, nil
}

// TaskRedis derives the asynq connection from REDIS_URL.
func TaskRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	return opt, nil
}

// Close releases every connection. Safe on a partially built Infra.
func (i *Infra) Close(logger zerolog.Logger) {
	if i == nil {
		return
	}
	if i.Tasks != nil {
		if err := i.Tasks.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// Services bundles the domain services behind the HTTP surface.
type Services struct {
	Auth       *auth.Service
	Catalog    *catalog.Service
	Settings   *settings.Service
	Vouchers   *voucher.Service
	Carts      *cart.Service
	Customers  *customer.Service
	Checkout   *checkout.Service
	Orders     *order.Service
	Analytics  *analytics.Service
	Reconciler *payment.Reconciler
	Audit      audit.Service
	Events     *events.Bus
	Queries    *db.Queries
	Redis      *redis.Client
}

// NewServices wires the domain services on top of infra.
func NewServices(cfg *config.Config, infra *Infra, logger zerolog.Logger) (*Services, error) {
	q := infra.Queries
	rdb := infra.Redis

	settingsSvc := &settings.Service{Q: q, Cache: cache.New(rdb, cfg.SettingsCacheTTL), DefaultRate: cfg.TaxRate}
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Queries: q, Cache: cache.New(rdb, cfg.MenuCacheTTL)})
	if err != nil {
		return nil, fmt.Errorf("initialise catalog service: %w", err)
	}
	authSvc, err := auth.NewService(auth.Config{
		Queries:          q,
		Secret:           cfg.JWTSecret,
		AccessTokenTTL:   cfg.AccessTokenTTL,
		CustomerTokenTTL: cfg.CustomerTokenTTL,
		Issuer:           cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}
	vouchers := &voucher.Service{Q: q, Settings: settingsSvc}
	carts := &cart.Service{
		Store:     cart.NewStore(rdb, cfg.CartTTL),
		Catalog:   catalogSvc,
		Discounts: vouchers,
		Tax:       settingsSvc,
	}

	bus := &events.Bus{Store: q}
	if infra.Tasks != nil {
		bus.Notifiers = append(bus.Notifiers, events.TaskNotifier{Client: infra.Tasks, MaxRetry: 5})
	}

	var gateway payment.Gateway
	if cfg.PaymentsEnabled() {
		mt, err := payment.NewMidtrans(payment.MidtransConfig{
			ServerKey: cfg.MidtransServerKey,
			BaseURL:   cfg.MidtransBaseURL,
			Sandbox:   cfg.MidtransSandbox,
			FinishURL: cfg.PaymentFinishURL,
			HTTP: resilience.HTTPClient{
				Breaker:     resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRate, cfg.BreakerOpenFor),
				BaseBackoff: cfg.RetryBase,
				MaxAttempts: cfg.RetryMaxAttempts,
				Jitter:      float64(cfg.RetryJitterPercent) / 100,
				Timeout:     cfg.GatewayTimeout,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("initialise midtrans: %w", err)
		}
		gateway = mt
	} else {
		logger.Warn().Msg("MIDTRANS_SERVER_KEY not set, only cash checkout is available")
	}

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Pool:      infra.Pool,
		NewStore:  func(tx db.DBTX) checkout.OrderStore { return db.New(tx) },
		Orders:    q,
		Prices:    catalogSvc,
		Discounts: vouchers,
		Tax:       settingsSvc,
		Carts:     carts,
		Gateway:   gateway,
		Locker:    lock.Locker{R: rdb, RetryBackoff: cfg.LockRetryBackoff, Wait: cfg.CheckoutLockWait},
		LockTTL:   cfg.CheckoutLockTTL,
		Events:    bus,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise checkout service: %w", err)
	}

	return &Services{
		Auth:      authSvc,
		Catalog:   catalogSvc,
		Settings:  settingsSvc,
		Vouchers:  vouchers,
		Carts:     carts,
		Customers: &customer.Service{Q: q, Tokens: authSvc},
		Checkout:  checkoutSvc,
		Orders:    &order.Service{Q: q, Events: bus, Logger: logger},
		Analytics: &analytics.Service{
			Q:        q,
			Cache:    cache.New(rdb, cfg.DashboardCacheTTL),
			Location: cfg.Location,
			Logger:   logger,
		},
		Reconciler: &payment.Reconciler{
			ServerKey: cfg.MidtransServerKey,
			Q:         q,
			Replay:    &payment.Replay{R: rdb, TTL: cfg.WebhookReplayTTL},
			Events:    bus,
			Logger:    logger,
		},
		Audit:   audit.Service{Store: q, Enabled: cfg.AuditEnabled},
		Events:  bus,
		Queries: q,
		Redis:   rdb,
	}, nil
}

// HashPassword hashes a staff password with argon2id.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}
