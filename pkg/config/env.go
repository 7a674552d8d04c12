package config

const EnvPrefix = "ESHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EmailDriverLog      = "log"
	EmailDriverSendgrid = "sendgrid"
)

const (
	EnvAppEnv         = "ESHOP_APP_ENV"
	EnvPort           = "ESHOP_APP_PORT"
	EnvDBDSN          = "ESHOP_DB_DSN"
	EnvDBHost         = "ESHOP_DB_HOST"
	EnvDBUser         = "ESHOP_DB_USER"
	EnvDBName         = "ESHOP_DB_NAME"
	EnvRedisURL       = "ESHOP_REDIS_URL"
	EnvJWTSecret      = "ESHOP_JWT_SECRET"
	EnvJWTIssuer      = "ESHOP_JWT_ISSUER"
	EnvJWTExpMins     = "ESHOP_JWT_EXPIRATION_MINUTES"
	EnvEmailDriver    = "ESHOP_EMAIL_DRIVER"
	EnvSendgridAPIKey = "ESHOP_SENDGRID_API_KEY"
	EnvTaxPrice       = "ESHOP_CHECKOUT_TAX_PRICE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
