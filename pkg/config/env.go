package config

// EnvPrefix is handed to envconfig; every field carries its full name in the tag.
const EnvPrefix = "WITHME"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
	RateLimitBackendOff    = "off"
)

const (
	EnvAppEnv        = "WITHME_APP_ENV"
	EnvPort          = "WITHME_APP_PORT"
	EnvDBDSN         = "WITHME_DB_DSN"
	EnvDBHost        = "WITHME_DB_HOST"
	EnvDBUser        = "WITHME_DB_USER"
	EnvDBName        = "WITHME_DB_NAME"
	EnvDBPassword    = "WITHME_DB_PASSWORD"
	EnvRedisURL      = "WITHME_REDIS_URL"
	EnvJWTSecret     = "WITHME_AUTH_JWT_SECRET"
	EnvJWTIssuer     = "WITHME_AUTH_JWT_ISSUER"
	EnvRateBackend   = "WITHME_RATE_LIMIT_BACKEND"
	EnvRateLimit     = "WITHME_RATE_LIMIT_LIMIT"
	EnvRateWindow    = "WITHME_RATE_LIMIT_WINDOW"
	EnvCORSOrigins   = "WITHME_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID  = "WITHME_GCP_PROJECT_ID"
	EnvTripEventsTop = "WITHME_PUBSUB_TRIP_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
