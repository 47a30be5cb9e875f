package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "MKULIMA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	RealtimeBackendLocal = "local"
	RealtimeBackendRedis = "redis"
)

const (
	EnvAppEnv          = "MKULIMA_APP_ENV"
	EnvPort            = "MKULIMA_APP_PORT"
	EnvLogLevel        = "MKULIMA_LOG_LEVEL"
	EnvDBDSN           = "MKULIMA_DB_DSN"
	EnvDBHost          = "MKULIMA_DB_HOST"
	EnvDBUser          = "MKULIMA_DB_USER"
	EnvDBName          = "MKULIMA_DB_NAME"
	EnvDBPassword      = "MKULIMA_DB_PASSWORD"
	EnvSQLitePath      = "MKULIMA_SQLITE_PATH"
	EnvUseSQLite       = "MKULIMA_USE_SQLITE"
	EnvRedisURL        = "MKULIMA_REDIS_URL"
	EnvJWTSecret       = "MKULIMA_JWT_SECRET"
	EnvJWTIssuer       = "MKULIMA_JWT_ISSUER"
	EnvJWTExpMins      = "MKULIMA_JWT_EXPIRATION_MINUTES"
	EnvRealtimeBackend = "MKULIMA_REALTIME_BACKEND"
	EnvEscrowLockTTL   = "MKULIMA_ESCROW_LOCK_TTL"
	EnvGCPProjectID    = "MKULIMA_GCP_PROJECT_ID"
	EnvPubSubTopic     = "MKULIMA_PUBSUB_ESCROW_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
