package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, "eur", cfg.PayoutCurrency)
	assert.Equal(t, 3*time.Second, cfg.SimulatedStepDelay)
	assert.True(t, cfg.SimulatedPayouts())
	assert.False(t, cfg.IsProduction())
}

func TestSimulatedPayouts(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		mode   string
		want   bool
	}{
		{"development default", EnvDevelopment, "", true},
		{"production default", EnvProduction, "", false},
		{"explicit live in development", EnvDevelopment, PaymentModeLive, false},
		{"explicit simulated in production", EnvProduction, PaymentModeSimulated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv, PaymentMode: tt.mode}
			assert.Equal(t, tt.want, cfg.SimulatedPayouts())
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AppEnv:         EnvDevelopment,
			DBDriver:       "sqlite",
			PayoutCurrency: "eur",
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid sqlite dev", func(c *Config) {}, false},
		{"unknown env", func(c *Config) { c.AppEnv = "staging" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"mysql without host", func(c *Config) { c.DBDriver = "mysql"; c.DBUser = "u"; c.DBName = "n" }, true},
		{"mysql with cloud sql instance", func(c *Config) {
			c.DBDriver = "mysql"
			c.DBUser = "u"
			c.DBName = "n"
			c.InstanceConnectionName = "proj:region:inst"
		}, false},
		{"live without stripe key", func(c *Config) { c.PaymentMode = PaymentModeLive }, true},
		{"live with credentials", func(c *Config) {
			c.PaymentMode = PaymentModeLive
			c.StripeSecretKey = "sk_test"
			c.PayPalClientID = "id"
			c.PayPalClientSecret = "secret"
		}, false},
		{"production needs firebase", func(c *Config) {
			c.AppEnv = EnvProduction
			c.DBDriver = "mysql"
			c.DBUser = "u"
			c.DBName = "n"
			c.DBHost = "db"
			c.PaymentMode = PaymentModeSimulated
		}, true},
		{"empty currency", func(c *Config) { c.PayoutCurrency = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
