package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Billing      BillingConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACADEMY_APP_ENV" required:"true"`
	Port         string `envconfig:"ACADEMY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ACADEMY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACADEMY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"ACADEMY_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"ACADEMY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ACADEMY_DB_DSN"`
	Driver string `envconfig:"ACADEMY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ACADEMY_DB_HOST"`
	LegacyPort     int    `envconfig:"ACADEMY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ACADEMY_DB_USER"`
	LegacyPassword string `envconfig:"ACADEMY_DB_PASSWORD"`
	LegacyName     string `envconfig:"ACADEMY_DB_NAME"`
	LegacySSLMode  string `envconfig:"ACADEMY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACADEMY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACADEMY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACADEMY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACADEMY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ACADEMY_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACADEMY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ACADEMY_REDIS_ADDR"`
	Password     string        `envconfig:"ACADEMY_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACADEMY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACADEMY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACADEMY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACADEMY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACADEMY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACADEMY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the access tokens issued by the identity provider.
type JWTConfig struct {
	Secret   string `envconfig:"ACADEMY_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"ACADEMY_JWT_ISSUER"`
	Audience string `envconfig:"ACADEMY_JWT_AUDIENCE" default:"authenticated"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACADEMY_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ACADEMY_STRIPE_API_KEY"`
	Secret string `envconfig:"ACADEMY_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"ACADEMY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ACADEMY_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ACADEMY_SENDGRID_FROM_EMAIL" default:"billing@physio-academy.local"`
	FromName    string `envconfig:"ACADEMY_SENDGRID_FROM_NAME" default:"Physio Academy"`
}

// BillingConfig carries the storefront settings used to price and redirect checkouts.
type BillingConfig struct {
	SiteURL          string        `envconfig:"ACADEMY_SITE_URL" required:"true"`
	Currency         string        `envconfig:"ACADEMY_BILLING_CURRENCY" default:"eur"`
	MonthlyPrice     int64         `envconfig:"ACADEMY_BILLING_MONTHLY_PRICE" default:"3000"`
	LifetimePrice    int64         `envconfig:"ACADEMY_BILLING_LIFETIME_PRICE" default:"19900"`
	TrialDays        int           `envconfig:"ACADEMY_BILLING_TRIAL_DAYS" default:"3"`
	Timezone         string        `envconfig:"ACADEMY_BILLING_TIMEZONE" default:"Europe/Madrid"`
	IdempotencyTTL   time.Duration `envconfig:"ACADEMY_BILLING_IDEMPOTENCY_TTL" default:"24h"`
	WebhookDedupeTTL time.Duration `envconfig:"ACADEMY_BILLING_WEBHOOK_DEDUPE_TTL" default:"720h"`
}

// Location resolves the configured timezone, falling back to UTC.
func (b BillingConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(strings.TrimSpace(b.Timezone)); err == nil {
		return loc
	}
	return time.UTC
}

// BaseURL returns the site URL without a trailing slash.
func (b BillingConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(b.SiteURL), "/")
}

func (b BillingConfig) validate() error {
	u, err := url.Parse(b.BaseURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvSiteURL)
	}
	if b.MonthlyPrice <= 0 || b.LifetimePrice <= 0 {
		return fmt.Errorf("billing prices must be positive")
	}
	if b.TrialDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvTrialDays)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ACADEMY_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"ACADEMY_CRON_LOCK_TTL" default:"10m"`
	LockKey  string        `envconfig:"ACADEMY_CRON_LOCK_KEY" default:"cron-worker"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
