package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	PaymentModeSimulated = "simulated"
	PaymentModeLive      = "live"
)

type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	DBPath                 string `env:"DB_PATH" envDefault:"voxelhub.db"`

	PaymentMode        string        `env:"PAYMENT_MODE"`
	PayoutCurrency     string        `env:"PAYOUT_CURRENCY" envDefault:"eur"`
	SimulatedStepDelay time.Duration `env:"SIMULATED_STEP_DELAY" envDefault:"3s"`
	StripeSecretKey    string        `env:"STRIPE_SECRET_KEY"`
	PayPalClientID     string        `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string        `env:"PAYPAL_CLIENT_SECRET"`
	PayPalBaseURL      string        `env:"PAYPAL_BASE_URL" envDefault:"https://api-m.sandbox.paypal.com"`

	StorageBucket     string `env:"STORAGE_BUCKET"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile   string `env:"GOOGLE_CREDENTIALS_FILE"`

	RedisURL       string   `env:"REDIS_URL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.PaymentMode = strings.ToLower(strings.TrimSpace(cfg.PaymentMode))
	cfg.PayoutCurrency = strings.ToLower(strings.TrimSpace(cfg.PayoutCurrency))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// SimulatedPayouts reports whether payouts advance on timers instead of calling providers.
// An explicit PAYMENT_MODE wins; otherwise only production talks to real providers.
func (c *Config) SimulatedPayouts() bool {
	switch c.PaymentMode {
	case PaymentModeSimulated:
		return true
	case PaymentModeLive:
		return false
	}
	return !c.IsProduction()
}

func (c *Config) Validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		return errors.New("APP_ENV must be development or production")
	}
	switch c.PaymentMode {
	case "", PaymentModeSimulated, PaymentModeLive:
	default:
		return errors.New("PAYMENT_MODE must be simulated or live")
	}
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return errors.New("DB_USER, DB_NAME and DB_HOST are required for " + c.DBDriver)
		}
	case "sqlite":
		if c.IsProduction() {
			return errors.New("sqlite is not supported in production")
		}
	default:
		return errors.New("DB_DRIVER must be mysql, postgres or sqlite")
	}
	if c.PayoutCurrency == "" {
		return errors.New("PAYOUT_CURRENCY must not be empty")
	}
	if !c.SimulatedPayouts() {
		if c.StripeSecretKey == "" {
			return errors.New("STRIPE_SECRET_KEY is required for live payouts")
		}
		if c.PayPalClientID == "" || c.PayPalClientSecret == "" {
			return errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required for live payouts")
		}
	}
	if c.IsProduction() && c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required in production")
	}
	return nil
}
