package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Email        EmailConfig
	Checkout     CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Email.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ESHOP_APP_ENV" required:"true"`
	Port         string   `envconfig:"ESHOP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ESHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ESHOP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ESHOP_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ESHOP_DB_DSN"`
	Driver string `envconfig:"ESHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ESHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"ESHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ESHOP_DB_USER"`
	LegacyPassword string `envconfig:"ESHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"ESHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"ESHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ESHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ESHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ESHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ESHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ESHOP_REDIS_ADDR"`
	Password     string        `envconfig:"ESHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ESHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
	CartCacheTTL time.Duration `envconfig:"ESHOP_REDIS_CART_CACHE_TTL" default:"15m"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ESHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ESHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ESHOP_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite           bool `envconfig:"ESHOP_USE_SQLITE" default:"false"`
	AutoMigrate         bool `envconfig:"ESHOP_AUTO_MIGRATE" default:"false"`
	ClampInventoryDebit bool `envconfig:"ESHOP_CLAMP_INVENTORY_DEBIT" default:"false"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"ESHOP_STRIPE_API_KEY"`
	Secret     string `envconfig:"ESHOP_STRIPE_SECRET"`
	Env        string `envconfig:"ESHOP_STRIPE_ENV" default:"test"`
	Currency   string `envconfig:"ESHOP_STRIPE_CURRENCY" default:"egp"`
	SuccessURL string `envconfig:"ESHOP_STRIPE_SUCCESS_URL" default:"http://localhost:8080/orders"`
	CancelURL  string `envconfig:"ESHOP_STRIPE_CANCEL_URL" default:"http://localhost:8080/cart"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type EmailConfig struct {
	Driver         string        `envconfig:"ESHOP_EMAIL_DRIVER" default:"log"`
	SendgridAPIKey string        `envconfig:"ESHOP_SENDGRID_API_KEY"`
	From           string        `envconfig:"ESHOP_EMAIL_FROM" default:"no-reply@eshop.local"`
	FromName       string        `envconfig:"ESHOP_EMAIL_FROM_NAME" default:"E-shop"`
	AdminTo        string        `envconfig:"ESHOP_EMAIL_ADMIN_TO"`
	QueueSize      int           `envconfig:"ESHOP_EMAIL_QUEUE_SIZE" default:"100"`
	SendTimeout    time.Duration `envconfig:"ESHOP_EMAIL_SEND_TIMEOUT" default:"10s"`
	BreakerFails   uint32        `envconfig:"ESHOP_EMAIL_BREAKER_FAILURES" default:"5"`
	BreakerTimeout time.Duration `envconfig:"ESHOP_EMAIL_BREAKER_TIMEOUT" default:"30s"`
}

func (e EmailConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Driver)) {
	case EmailDriverLog:
		return nil
	case EmailDriverSendgrid:
		if strings.TrimSpace(e.SendgridAPIKey) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvSendgridAPIKey, EnvEmailDriver, EmailDriverSendgrid)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvEmailDriver, e.Driver)
	}
}

type CheckoutConfig struct {
	TaxPrice      decimal.Decimal `envconfig:"ESHOP_CHECKOUT_TAX_PRICE" default:"0"`
	ShippingPrice decimal.Decimal `envconfig:"ESHOP_CHECKOUT_SHIPPING_PRICE" default:"0"`
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
