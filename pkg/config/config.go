package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names, exported so tests can seed them.
const (
	EnvAppEnv             = "SWIFTKART_APP_ENV"
	EnvPort               = "SWIFTKART_APP_PORT"
	EnvDBDSN              = "SWIFTKART_DB_DSN"
	EnvRedisURL           = "SWIFTKART_REDIS_URL"
	EnvJWTSecret          = "SWIFTKART_JWT_SECRET"
	EnvJWTIssuer          = "SWIFTKART_JWT_ISSUER"
	EnvJWTExpMins         = "SWIFTKART_JWT_EXPIRATION_MINUTES"
	EnvRazorpayKeyID      = "SWIFTKART_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret  = "SWIFTKART_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSec = "SWIFTKART_RAZORPAY_WEBHOOK_SECRET"
	EnvShiprocketEmail    = "SWIFTKART_SHIPROCKET_EMAIL"
	EnvShiprocketPassword = "SWIFTKART_SHIPROCKET_PASSWORD"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Shiprocket   ShiprocketConfig
	Webhook      WebhookConfig
	Fulfillment  FulfillmentConfig
	Returns      ReturnsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWIFTKART_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTKART_DB_DSN" required:"true"`
	Driver string `envconfig:"SWIFTKART_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"SWIFTKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTKART_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"SWIFTKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWIFTKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWIFTKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SWIFTKART_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"SWIFTKART_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"SWIFTKART_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"SWIFTKART_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"SWIFTKART_RAZORPAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"SWIFTKART_RAZORPAY_TIMEOUT" default:"10s"`
}

type ShiprocketConfig struct {
	BaseURL      string        `envconfig:"SWIFTKART_SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	Email        string        `envconfig:"SWIFTKART_SHIPROCKET_EMAIL"`
	Password     string        `envconfig:"SWIFTKART_SHIPROCKET_PASSWORD"`
	PickupName   string        `envconfig:"SWIFTKART_SHIPROCKET_PICKUP_LOCATION" default:"Primary"`
	ChannelID    string        `envconfig:"SWIFTKART_SHIPROCKET_CHANNEL_ID"`
	Timeout      time.Duration `envconfig:"SWIFTKART_SHIPROCKET_TIMEOUT" default:"15s"`
	TokenTTL     time.Duration `envconfig:"SWIFTKART_SHIPROCKET_TOKEN_TTL" default:"9h"`
	DocumentWait time.Duration `envconfig:"SWIFTKART_SHIPROCKET_DOCUMENT_WAIT" default:"20s"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SWIFTKART_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	AuditCap       int           `envconfig:"SWIFTKART_WEBHOOK_AUDIT_CAP" default:"5000"`
}

type FulfillmentConfig struct {
	DispatchRetries   int           `envconfig:"SWIFTKART_DISPATCH_RETRIES" default:"3"`
	DispatchBackoff   time.Duration `envconfig:"SWIFTKART_DISPATCH_BACKOFF" default:"2s"`
	DispatchDeadline  time.Duration `envconfig:"SWIFTKART_DISPATCH_DEADLINE" default:"60s"`
	AsyncDispatch     bool          `envconfig:"SWIFTKART_ASYNC_DISPATCH" default:"true"`
	CancellableStates []string      `envconfig:"SWIFTKART_CANCELLABLE_STATES" default:"pending,processing,shipped"`
}

type ReturnsConfig struct {
	WindowDays int `envconfig:"SWIFTKART_RETURN_WINDOW_DAYS" default:"7"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWIFTKART_AUTO_MIGRATE" default:"false"`
}
