package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "PETCARE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PETCARE_DB_DSN"
	EnvDBHost = "PETCARE_DB_HOST"
	EnvDBUser = "PETCARE_DB_USER"
	EnvDBName = "PETCARE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	PayHere      PayHereConfig
	Shipping     ShippingConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"PETCARE_APP_ENV" required:"true"`
	Port         string `envconfig:"PETCARE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PETCARE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PETCARE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PETCARE_DB_DSN"`
	Driver string `envconfig:"PETCARE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PETCARE_DB_HOST"`
	LegacyPort     int    `envconfig:"PETCARE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETCARE_DB_USER"`
	LegacyPassword string `envconfig:"PETCARE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETCARE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETCARE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PETCARE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PETCARE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PETCARE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETCARE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	// URL takes precedence; Address/Password/DB are the piecewise fallback.
	URL          string        `envconfig:"PETCARE_REDIS_URL"`
	Address      string        `envconfig:"PETCARE_REDIS_ADDR"`
	Password     string        `envconfig:"PETCARE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETCARE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETCARE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETCARE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETCARE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETCARE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PETCARE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PETCARE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PETCARE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PETCARE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PayHereConfig carries the gateway credentials and redirect URLs.
type PayHereConfig struct {
	MerchantID     string `envconfig:"PETCARE_PAYHERE_MERCHANT_ID" required:"true"`
	MerchantSecret string `envconfig:"PETCARE_PAYHERE_MERCHANT_SECRET" required:"true"`
	Mode           string `envconfig:"PETCARE_PAYHERE_MODE" default:"sandbox"`
	Currency       string `envconfig:"PETCARE_PAYHERE_CURRENCY" default:"LKR"`
	ReturnURL      string `envconfig:"PETCARE_PAYHERE_RETURN_URL" default:"http://localhost:3000/payment/success"`
	CancelURL      string `envconfig:"PETCARE_PAYHERE_CANCEL_URL" default:"http://localhost:3000/payment/cancel"`
	NotifyURL      string `envconfig:"PETCARE_PAYHERE_NOTIFY_URL" default:"http://localhost:5000/api/payments/notify"`
}

// Live reports whether the gateway should use the production checkout URL.
func (p PayHereConfig) Live() bool {
	return strings.EqualFold(strings.TrimSpace(p.Mode), "live")
}

type ShippingConfig struct {
	// FlatRateCents is added to every order total. The default is the flat
	// LKR 350.00 delivery charge.
	FlatRateCents int `envconfig:"PETCARE_SHIPPING_FLAT_RATE_CENTS" default:"35000"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PETCARE_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PETCARE_AUTO_MIGRATE" default:"false"`
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
