package config

// EnvPrefix scopes every variable envconfig reads.
const EnvPrefix = "KASHVI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "KASHVI_APP_ENV"
	EnvPort       = "KASHVI_APP_PORT"
	EnvDBDSN      = "KASHVI_DB_DSN"
	EnvDBHost     = "KASHVI_DB_HOST"
	EnvDBUser     = "KASHVI_DB_USER"
	EnvDBName     = "KASHVI_DB_NAME"
	EnvRedisURL   = "KASHVI_REDIS_URL"
	EnvJWTSecret  = "KASHVI_JWT_SECRET"
	EnvJWTIssuer  = "KASHVI_JWT_ISSUER"
	EnvJWTExpMins = "KASHVI_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
