package config

const (
	EnvPrefix = "ACADEMY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "ACADEMY_APP_ENV"
	EnvPort       = "ACADEMY_APP_PORT"
	EnvDBDSN      = "ACADEMY_DB_DSN"
	EnvDBHost     = "ACADEMY_DB_HOST"
	EnvDBUser     = "ACADEMY_DB_USER"
	EnvDBName     = "ACADEMY_DB_NAME"
	EnvRedisURL   = "ACADEMY_REDIS_URL"
	EnvJWTSecret  = "ACADEMY_JWT_SECRET"
	EnvSiteURL    = "ACADEMY_SITE_URL"
	EnvTrialDays  = "ACADEMY_BILLING_TRIAL_DAYS"
	EnvCurrency   = "ACADEMY_BILLING_CURRENCY"
	EnvTimezone   = "ACADEMY_BILLING_TIMEZONE"
	EnvStripeKey  = "ACADEMY_STRIPE_API_KEY"
	EnvStripeHook = "ACADEMY_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
