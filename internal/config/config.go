package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	AutoMigrate        bool
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	JWTSecret        string
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	CustomerTokenTTL time.Duration

	MidtransServerKey string
	MidtransClientKey string
	MidtransBaseURL   string
	MidtransSandbox   bool
	PaymentFinishURL  string
	GatewayTimeout    time.Duration
	WebhookReplayTTL  time.Duration

	BreakerMinRequests int
	BreakerFailureRate float64
	BreakerOpenFor     time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent int
	CheckoutLockTTL    time.Duration
	CheckoutLockWait   time.Duration
	LockRetryBackoff   time.Duration
	IdempotencyTTL     time.Duration
	BodyLimitBytes     int64

	TaxRate  decimal.Decimal
	Location *time.Location

	CartTTL           time.Duration
	MenuCacheTTL      time.Duration
	SettingsCacheTTL  time.Duration
	DashboardCacheTTL time.Duration

	LoginRateLimit    string
	VoucherRateMax    int
	VoucherRateWindow time.Duration
	WebhookRateMax    int
	WebhookRateWindow time.Duration

	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingExporter  string
	TracingSampling  float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
	AuditEnabled     bool

	WorkerConcurrency int
	PointsUnit        int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		AutoMigrate:        parseBool(k.String("DB_AUTO_MIGRATE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		JWTSecret:        k.String("JWT_SECRET"),
		JWTIssuer:        valueOrDefault(k.String("JWT_ISSUER"), "kopi-pos"),
		AccessTokenTTL:   parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		CustomerTokenTTL: parseDuration(k.String("CUSTOMER_TOKEN_TTL"), "24h"),

		MidtransServerKey: strings.TrimSpace(k.String("MIDTRANS_SERVER_KEY")),
		MidtransClientKey: strings.TrimSpace(k.String("MIDTRANS_CLIENT_KEY")),
		MidtransBaseURL:   strings.TrimSpace(k.String("MIDTRANS_BASE_URL")),
		MidtransSandbox:   parseBoolDefault(k.String("MIDTRANS_SANDBOX"), true),
		PaymentFinishURL:  strings.TrimSpace(k.String("PAYMENT_FINISH_URL")),
		GatewayTimeout:    parseDuration(k.String("GATEWAY_TIMEOUT"), "10s"),
		WebhookReplayTTL:  parseDuration(k.String("PAYMENT_WEBHOOK_REPLAY_TTL"), "24h"),

		BreakerMinRequests: parseInt(k.String("CIRCUIT_GATEWAY_MIN_REQUESTS"), 10),
		BreakerFailureRate: parseFloat(k.String("CIRCUIT_GATEWAY_FAILURE_RATE"), 0.5),
		BreakerOpenFor:     parseDuration(k.String("CIRCUIT_GATEWAY_OPEN_FOR"), "30s"),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		CheckoutLockTTL:    parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		CheckoutLockWait:   parseDuration(k.String("CHECKOUT_LOCK_WAIT"), "3s"),
		LockRetryBackoff:   parseDuration(k.String("LOCK_RETRY_BACKOFF"), "100ms"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),

		CartTTL:           parseDuration(k.String("CART_TTL"), "6h"),
		MenuCacheTTL:      parseDuration(k.String("MENU_CACHE_TTL"), "60s"),
		SettingsCacheTTL:  parseDuration(k.String("SETTINGS_CACHE_TTL"), "30s"),
		DashboardCacheTTL: parseDuration(k.String("DASHBOARD_CACHE_TTL"), "30s"),

		LoginRateLimit:    valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "10-M"),
		VoucherRateMax:    parseInt(k.String("VOUCHER_RATE_MAX"), 20),
		VoucherRateWindow: parseDuration(k.String("VOUCHER_RATE_WINDOW"), "1m"),
		WebhookRateMax:    parseInt(k.String("WEBHOOK_RATE_MAX"), 300),
		WebhookRateWindow: parseDuration(k.String("WEBHOOK_RATE_WINDOW"), "1m"),

		MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "kopi"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF")),
		AuditEnabled:     parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		PprofUser:        k.String("SECURE_PPROF_BASIC_AUTH_USER"),
		PprofPass:        k.String("SECURE_PPROF_BASIC_AUTH_PASS"),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
		PointsUnit:        int64(parseInt(k.String("LOYALTY_POINTS_UNIT"), 10000)),
	}

	rate, err := parseTaxRate(k.String("TAX_RATE"))
	if err != nil {
		return nil, err
	}
	cfg.TaxRate = rate

	tz := valueOrDefault(k.String("STORE_TIMEZONE"), "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// PaymentsEnabled reports whether non-cash checkout can reach the gateway.
func (c *Config) PaymentsEnabled() bool {
	return c.MidtransServerKey != ""
}

func parseTaxRate(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return pricing.DefaultTaxRate, nil
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("TAX_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("TAX_RATE must be within [0, 1), got %s", value)
	}
	return rate, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests applies env overrides, loads the configuration and restores the
// previous values before returning.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
