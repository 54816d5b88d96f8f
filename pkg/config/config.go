package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "SOUQLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SOUQLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUQLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SOUQLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUQLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SOUQLINE_DB_DSN"`

	Host     string `envconfig:"SOUQLINE_DB_HOST"`
	Port     int    `envconfig:"SOUQLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"SOUQLINE_DB_USER"`
	Password string `envconfig:"SOUQLINE_DB_PASSWORD"`
	Name     string `envconfig:"SOUQLINE_DB_NAME"`
	SSLMode  string `envconfig:"SOUQLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUQLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUQLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUQLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUQLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either SOUQLINE_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	Address      string        `envconfig:"SOUQLINE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"SOUQLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUQLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUQLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUQLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUQLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUQLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUQLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUQLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUQLINE_JWT_ISSUER" default:"souqline"`
	ExpirationMinutes int    `envconfig:"SOUQLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	// FlatShippingFee applies to every order until per-branch shipping
	// profiles exist.
	FlatShippingFee decimal.Decimal `envconfig:"SOUQLINE_CHECKOUT_FLAT_SHIPPING_FEE" default:"0"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOUQLINE_FEATURE_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"SOUQLINE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"SOUQLINE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"SOUQLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
