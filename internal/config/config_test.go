package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-finance/internal/domain/registry"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "data/trips.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Lark.Enabled)
}

func TestLoad_PrefixedEnvOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TRIPFIN_DATABASE_PATH", "/tmp/other.db")
	path := writeConfig(t, "database:\n  path: data/trips.db\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "trips.db"},
			Storage:  StorageConfig{AttachmentDir: "att"},
			Auth:     AuthConfig{JWTSecret: "x"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "no jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "auth.jwt_secret"},
		{
			name:    "lark enabled without credentials",
			mutate:  func(c *Config) { c.Lark.Enabled = true },
			wantErr: "lark.app_id",
		},
		{
			name: "negative rate",
			mutate: func(c *Config) {
				c.Workflow.Rates = map[string]RateConfig{"usd": {PerKmRepair: "-1", PerKmTyre: "1", PerDayGIT: "1", FuelRate: "1", DriverRate: "1"}}
			},
			wantErr: "registry.rates.usd.per_km_repair",
		},
		{
			name:    "duplicate step order",
			mutate:  func(c *Config) { c.Workflow.Steps = []StepConfig{{ID: "a", Order: 1}, {ID: "b", Order: 1}} },
			wantErr: "share order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_Overrides(t *testing.T) {
	c := &Config{Workflow: RegistryConfig{
		Rates: map[string]RateConfig{
			"zar": {PerKmRepair: "3", PerKmTyre: "1", PerDayGIT: "100", FuelRate: "20", DriverRate: "250"},
		},
		ApprovalLimits:     map[string]string{"operator": "1000"},
		HighRiskCategories: []string{"Tolls"},
	}}

	reg, err := c.Registry()

	require.NoError(t, err)
	rates, ok := reg.Rates("ZAR")
	require.True(t, ok)
	assert.True(t, rates.PerKmRepair.Equal(decimal.NewFromInt(3)))
	assert.True(t, rates.Consumption().Equal(registry.DefaultFuelConsumptionPerKm))
	limit, ok := reg.ApprovalLimit("operator")
	require.True(t, ok)
	assert.True(t, limit.Equal(decimal.NewFromInt(1000)))
	assert.True(t, reg.IsHighRisk("Tolls"))
	assert.False(t, reg.IsHighRisk("Border Costs"))
	assert.Equal(t, registry.DefaultSteps()[0].ID, reg.Steps()[0].ID)
}

func TestLoad_ShippedConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("../../configs/config.yaml")

	require.NoError(t, err)
	reg, err := cfg.Registry()
	require.NoError(t, err)
	usd, ok := reg.Rates("USD")
	require.True(t, ok)
	assert.Equal(t, "16.88", usd.DriverRate.StringFixed(2))
}
