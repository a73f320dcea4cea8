package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Password   PasswordConfig
	Razorpay   RazorpayConfig
	Stripe     StripeConfig
	CCAvenue   CCAvenueConfig
	SilverRate SilverRateConfig
	Loyalty    LoyaltyConfig
	Guest      GuestConfig
	Eventing   EventingConfig
	Features   FeatureFlagsConfig
	Mail       MailConfig
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
	Env          string `envconfig:"KASHVI_APP_ENV" required:"true"`
	Port         string `envconfig:"KASHVI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KASHVI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KASHVI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KASHVI_DB_DSN"`
	Driver string `envconfig:"KASHVI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KASHVI_DB_HOST"`
	LegacyPort     int    `envconfig:"KASHVI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KASHVI_DB_USER"`
	LegacyPassword string `envconfig:"KASHVI_DB_PASSWORD"`
	LegacyName     string `envconfig:"KASHVI_DB_NAME"`
	LegacySSLMode  string `envconfig:"KASHVI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KASHVI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KASHVI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KASHVI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KASHVI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KASHVI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KASHVI_REDIS_ADDR"`
	Password     string        `envconfig:"KASHVI_REDIS_PASSWORD"`
	DB           int           `envconfig:"KASHVI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KASHVI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KASHVI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KASHVI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KASHVI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KASHVI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KASHVI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KASHVI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KASHVI_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KASHVI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KASHVI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KASHVI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KASHVI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KASHVI_ARGON_KEY_LEN" default:"32"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"KASHVI_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"KASHVI_RAZORPAY_KEY_SECRET"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"KASHVI_STRIPE_API_KEY"`
	EndpointSecret string `envconfig:"KASHVI_STRIPE_ENDPOINT_SECRET"`
	Environment    string `envconfig:"KASHVI_STRIPE_ENV" default:"test"`
}

type CCAvenueConfig struct {
	MerchantID  string `envconfig:"KASHVI_CCAVENUE_MERCHANT_ID"`
	AccessCode  string `envconfig:"KASHVI_CCAVENUE_ACCESS_CODE"`
	WorkingKey  string `envconfig:"KASHVI_CCAVENUE_WORKING_KEY"`
	RedirectURL string `envconfig:"KASHVI_CCAVENUE_REDIRECT_URL"`
	SuccessURL  string `envconfig:"KASHVI_CCAVENUE_SUCCESS_URL" default:"/payment/success"`
	CancelURL   string `envconfig:"KASHVI_CCAVENUE_CANCEL_URL" default:"/payment/cancel"`
	DefaultURL  string `envconfig:"KASHVI_CCAVENUE_DEFAULT_URL" default:"/payment/status"`
}

type SilverRateConfig struct {
	SourceURL     string        `envconfig:"KASHVI_SILVER_RATE_SOURCE_URL"`
	SourceAPIKey  string        `envconfig:"KASHVI_SILVER_RATE_SOURCE_API_KEY"`
	FetchTimeout  time.Duration `envconfig:"KASHVI_SILVER_RATE_FETCH_TIMEOUT" default:"10s"`
	FetchRetries  int           `envconfig:"KASHVI_SILVER_RATE_FETCH_RETRIES" default:"2"`
	MaxAge        time.Duration `envconfig:"KASHVI_SILVER_RATE_MAX_AGE" default:"24h"`
	RefreshEvery  time.Duration `envconfig:"KASHVI_SILVER_RATE_REFRESH_EVERY" default:"24h"`
	DefaultPerGram string       `envconfig:"KASHVI_SILVER_RATE_DEFAULT_PER_GRAM" default:"80"`
}

type LoyaltyConfig struct {
	PointsPerRupee string `envconfig:"KASHVI_LOYALTY_POINTS_PER_RUPEE" default:"0.01"`
}

type GuestConfig struct {
	ConversionTokenTTL time.Duration `envconfig:"KASHVI_GUEST_CONVERSION_TOKEN_TTL" default:"168h"`
	RateLimitWindow    time.Duration `envconfig:"KASHVI_GUEST_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP     int           `envconfig:"KASHVI_GUEST_RATE_LIMIT_PER_IP" default:"20"`
	RateLimitPerEmail  int           `envconfig:"KASHVI_GUEST_RATE_LIMIT_PER_EMAIL" default:"5"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"KASHVI_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KASHVI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KASHVI_AUTO_MIGRATE" default:"false"`
}

type MailConfig struct {
	FromAddress string `envconfig:"KASHVI_MAIL_FROM"`
	Enabled     bool   `envconfig:"KASHVI_MAIL_ENABLED" default:"false"`
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
