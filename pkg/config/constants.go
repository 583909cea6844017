package config

// EnvPrefix namespaces every environment variable envconfig reads.
const EnvPrefix = "BAZARIO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared between Load, ensureDSN errors, and tests.
const (
	EnvAppEnv   = "BAZARIO_APP_ENV"
	EnvPort     = "BAZARIO_APP_PORT"
	EnvLogLevel = "BAZARIO_LOG_LEVEL"

	EnvDBDSN  = "BAZARIO_DB_DSN"
	EnvDBHost = "BAZARIO_DB_HOST"
	EnvDBUser = "BAZARIO_DB_USER"
	EnvDBName = "BAZARIO_DB_NAME"

	EnvRedisURL = "BAZARIO_REDIS_URL"

	EnvJWTSecret  = "BAZARIO_JWT_SECRET"
	EnvJWTIssuer  = "BAZARIO_JWT_ISSUER"
	EnvJWTExpMins = "BAZARIO_JWT_EXPIRATION_MINUTES"

	EnvSecretsKey = "BAZARIO_SECRETS_KEY"

	EnvGCPProjectID = "BAZARIO_GCP_PROJECT_ID"

	EnvPubSubWorkflowTopic   = "BAZARIO_PUBSUB_WORKFLOW_TOPIC"
	EnvPubSubWorkflowSub     = "BAZARIO_PUBSUB_WORKFLOW_SUBSCRIPTION"
	EnvPubSubBillingTopic    = "BAZARIO_PUBSUB_BILLING_TOPIC"
	EnvPubSubBillingSub      = "BAZARIO_PUBSUB_BILLING_SUBSCRIPTION"
	EnvPubSubNotificationSub = "BAZARIO_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
