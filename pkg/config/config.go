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
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Splitwise    SplitwiseConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.RateLimit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WITHME_APP_ENV" required:"true"`
	Port         string `envconfig:"WITHME_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WITHME_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WITHME_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"WITHME_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"WITHME_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"WITHME_DB_DSN"`

	LegacyHost     string `envconfig:"WITHME_DB_HOST"`
	LegacyPort     int    `envconfig:"WITHME_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WITHME_DB_USER"`
	LegacyPassword string `envconfig:"WITHME_DB_PASSWORD"`
	LegacyName     string `envconfig:"WITHME_DB_NAME"`
	LegacySSLMode  string `envconfig:"WITHME_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"WITHME_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WITHME_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WITHME_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WITHME_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WITHME_REDIS_URL"`
	Address      string        `envconfig:"WITHME_REDIS_ADDR"`
	Password     string        `envconfig:"WITHME_REDIS_PASSWORD"`
	DB           int           `envconfig:"WITHME_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WITHME_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WITHME_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WITHME_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WITHME_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WITHME_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// AuthConfig describes how provider-issued access tokens are verified.
type AuthConfig struct {
	JWTSecret   string `envconfig:"WITHME_AUTH_JWT_SECRET" required:"true"`
	JWTIssuer   string `envconfig:"WITHME_AUTH_JWT_ISSUER"`
	JWTAudience string `envconfig:"WITHME_AUTH_JWT_AUDIENCE" default:"authenticated"`
	CookieName  string `envconfig:"WITHME_AUTH_COOKIE_NAME" default:"sb-access-token"`
}

type RateLimitConfig struct {
	Backend       string        `envconfig:"WITHME_RATE_LIMIT_BACKEND" default:"memory"`
	Window        time.Duration `envconfig:"WITHME_RATE_LIMIT_WINDOW" default:"1m"`
	Limit         int           `envconfig:"WITHME_RATE_LIMIT_LIMIT" default:"120"`
	SweepInterval time.Duration `envconfig:"WITHME_RATE_LIMIT_SWEEP_INTERVAL" default:"5m"`
}

func (r RateLimitConfig) validate() error {
	switch r.NormalizedBackend() {
	case RateLimitBackendOff:
		return nil
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("unsupported rate limit backend %q", r.Backend)
	}
	if r.Limit < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvRateLimit, r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvRateWindow, r.Window)
	}
	return nil
}

// NormalizedBackend returns the lower-cased backend name.
func (r RateLimitConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(r.Backend))
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WITHME_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WITHME_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,https://withme.travel"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WITHME_GCP_PROJECT_ID"`
	// CredentialsFile is optional; application default credentials apply when empty.
	CredentialsFile string `envconfig:"WITHME_GCP_CREDENTIALS_FILE"`
}

type PubSubConfig struct {
	TripEventsTopic string `envconfig:"WITHME_PUBSUB_TRIP_EVENTS_TOPIC" default:"withme-trip-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WITHME_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WITHME_OUTBOX_PUBLISH_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"WITHME_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll cadence into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"WITHME_CRON_INTERVAL" default:"15m"`
	TokenRefreshWindow        time.Duration `envconfig:"WITHME_CRON_TOKEN_REFRESH_WINDOW" default:"1h"`
	NotificationRetentionDays int           `envconfig:"WITHME_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	PermissionRequestTTL      time.Duration `envconfig:"WITHME_CRON_PERMISSION_REQUEST_TTL" default:"720h"`
}

// SplitwiseConfig holds the OAuth client used to refresh stored Splitwise tokens.
type SplitwiseConfig struct {
	ClientID     string `envconfig:"WITHME_SPLITWISE_CLIENT_ID"`
	ClientSecret string `envconfig:"WITHME_SPLITWISE_CLIENT_SECRET"`
	TokenURL     string `envconfig:"WITHME_SPLITWISE_TOKEN_URL" default:"https://secure.splitwise.com/oauth/token"`
	AuthURL      string `envconfig:"WITHME_SPLITWISE_AUTH_URL" default:"https://secure.splitwise.com/oauth/authorize"`
}

// Enabled reports whether OAuth client credentials are present.
func (s SplitwiseConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
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
