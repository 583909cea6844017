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
	Workflow     WorkflowConfig
	Subscription SubscriptionConfig
	Cron         CronConfig
	Security     SecurityConfig
	Square       SquareConfig
	Webhook      WebhookConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZARIO_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZARIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZARIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZARIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZARIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZARIO_DB_DSN"`
	Driver string `envconfig:"BAZARIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZARIO_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZARIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZARIO_DB_USER"`
	LegacyPassword string `envconfig:"BAZARIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZARIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZARIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZARIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZARIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZARIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZARIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZARIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZARIO_REDIS_ADDR"`
	Password     string        `envconfig:"BAZARIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZARIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZARIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZARIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZARIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZARIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZARIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZARIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZARIO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZARIO_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZARIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZARIO_AUTO_MIGRATE" default:"false"`
}

// WorkflowConfig bounds the payment legs of the market lifecycle.
type WorkflowConfig struct {
	ChargeTimeout     time.Duration `envconfig:"BAZARIO_WORKFLOW_CHARGE_TIMEOUT" default:"20s"`
	PaymentPendingTTL time.Duration `envconfig:"BAZARIO_WORKFLOW_PAYMENT_PENDING_TTL" default:"30m"`
}

type SubscriptionConfig struct {
	MaxRenewAttempts int `envconfig:"BAZARIO_SUBSCRIPTION_MAX_RENEW_ATTEMPTS" default:"3"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BAZARIO_CRON_INTERVAL" default:"1h"`
}

type SecurityConfig struct {
	// Hex-encoded 32-byte key sealing merchant gateway credentials at rest.
	SecretsKey string `envconfig:"BAZARIO_SECRETS_KEY" required:"true"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"BAZARIO_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"BAZARIO_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"BAZARIO_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"BAZARIO_SQUARE_CURRENCY" default:"USD"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type WebhookConfig struct {
	PaymentsSecret string        `envconfig:"BAZARIO_WEBHOOK_PAYMENTS_SECRET"`
	GuardTTL       time.Duration `envconfig:"BAZARIO_WEBHOOK_GUARD_TTL" default:"24h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BAZARIO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZARIO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BAZARIO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZARIO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	WorkflowTopic            string `envconfig:"BAZARIO_PUBSUB_WORKFLOW_TOPIC" required:"true"`
	WorkflowSubscription     string `envconfig:"BAZARIO_PUBSUB_WORKFLOW_SUBSCRIPTION" required:"true"`
	BillingTopic             string `envconfig:"BAZARIO_PUBSUB_BILLING_TOPIC" required:"true"`
	BillingSubscription      string `envconfig:"BAZARIO_PUBSUB_BILLING_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"BAZARIO_PUBSUB_NOTIFICATION_TOPIC" default:"bz-notification-events"`
	NotificationSubscription string `envconfig:"BAZARIO_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZARIO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZARIO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZARIO_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
