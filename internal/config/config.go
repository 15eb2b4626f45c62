package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Workflow  RegistryConfig  `mapstructure:"registry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds file storage locations
type StorageConfig struct {
	AttachmentDir string `mapstructure:"attachment_dir"`
	ReportDir     string `mapstructure:"report_dir"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LarkConfig holds Lark messaging configuration
type LarkConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AppID         string        `mapstructure:"app_id"`
	AppSecret     string        `mapstructure:"app_secret"`
	ReceiveIDType string        `mapstructure:"receive_id_type"`
	FinanceChatID string        `mapstructure:"finance_chat_id"`
	APITimeout    time.Duration `mapstructure:"api_timeout"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RemindersConfig holds the overdue invoice sweep settings
type RemindersConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MinGap   time.Duration `mapstructure:"min_gap"`
}

// RegistryConfig overrides the built-in workflow registry. Empty sections keep the defaults.
type RegistryConfig struct {
	Steps              []StepConfig          `mapstructure:"steps"`
	Rates              map[string]RateConfig `mapstructure:"rates"`
	Thresholds         ThresholdConfig       `mapstructure:"thresholds"`
	ApprovalLimits     map[string]string     `mapstructure:"approval_limits"`
	HighRiskCategories []string              `mapstructure:"high_risk_categories"`
}

// StepConfig is one configured workflow step
type StepConfig struct {
	ID         string               `mapstructure:"id"`
	Name       string               `mapstructure:"name"`
	Order      int                  `mapstructure:"order"`
	Required   bool                 `mapstructure:"required"`
	Validation []registry.Predicate `mapstructure:"validation"`
	Next       *registry.Predicate  `mapstructure:"next"`
}

// RateConfig is the system cost rate table for one currency. Amounts are decimal strings.
type RateConfig struct {
	PerKmRepair          string `mapstructure:"per_km_repair"`
	PerKmTyre            string `mapstructure:"per_km_tyre"`
	PerDayGIT            string `mapstructure:"per_day_git"`
	FuelRate             string `mapstructure:"fuel_rate"`
	DriverRate           string `mapstructure:"driver_rate"`
	FuelConsumptionPerKm string `mapstructure:"fuel_consumption_per_km"`
}

// ThresholdConfig holds the variance thresholds
type ThresholdConfig struct {
	CostVariancePercent     string `mapstructure:"cost_variance_percent"`
	TimeVarianceHours       string `mapstructure:"time_variance_hours"`
	FuelConsumptionPer100Km string `mapstructure:"fuel_consumption_per_100km"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRIPFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "data/trips.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("storage.attachment_dir", "data/attachments")
	v.SetDefault("storage.report_dir", "data/reports")
	v.SetDefault("storage.max_upload_mb", 20)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.issuer", "trip-finance")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "chat_id")
	v.SetDefault("lark.api_timeout", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("reminders.enabled", false)
	v.SetDefault("reminders.interval", 24*time.Hour)
	v.SetDefault("reminders.min_gap", 7*24*time.Hour)
}

// bindEnvVars binds the credentials that are read without the TRIPFIN prefix
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET", "TRIPFIN_AUTH_JWT_SECRET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.AttachmentDir == "" {
		return fmt.Errorf("storage.attachment_dir is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
		if c.Lark.FinanceChatID == "" {
			return fmt.Errorf("lark.finance_chat_id is required when lark is enabled")
		}
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Registry builds the domain registry from the defaults plus the configured overrides
func (c *Config) Registry() (*registry.Registry, error) {
	var opts []registry.Option
	rc := c.Workflow

	if len(rc.Steps) > 0 {
		steps := make([]registry.WorkflowStep, 0, len(rc.Steps))
		for _, s := range rc.Steps {
			steps = append(steps, registry.WorkflowStep{
				ID:         registry.StepID(s.ID),
				Name:       s.Name,
				Order:      s.Order,
				Required:   s.Required,
				Validation: s.Validation,
				Next:       s.Next,
			})
		}
		opts = append(opts, registry.WithSteps(steps))
	}

	for currency, r := range rc.Rates {
		table, err := r.toRateTable(strings.ToUpper(currency))
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithRates(table))
	}

	if rc.Thresholds != (ThresholdConfig{}) {
		t, err := rc.Thresholds.toThresholds()
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithThresholds(t))
	}

	if len(rc.ApprovalLimits) > 0 {
		limits := make(map[string]decimal.Decimal, len(rc.ApprovalLimits))
		for role, raw := range rc.ApprovalLimits {
			d, err := parseAmount("registry.approval_limits."+role, raw)
			if err != nil {
				return nil, err
			}
			limits[role] = d
		}
		opts = append(opts, registry.WithApprovalLimits(limits))
	}

	if len(rc.HighRiskCategories) > 0 {
		opts = append(opts, registry.WithHighRiskCategories(rc.HighRiskCategories...))
	}

	reg, err := registry.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return reg, nil
}

func (r RateConfig) toRateTable(currency string) (registry.RateTable, error) {
	prefix := "registry.rates." + strings.ToLower(currency) + "."
	t := registry.RateTable{Currency: currency}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"per_km_repair", r.PerKmRepair, &t.PerKmRepair},
		{"per_km_tyre", r.PerKmTyre, &t.PerKmTyre},
		{"per_day_git", r.PerDayGIT, &t.PerDayGIT},
		{"fuel_rate", r.FuelRate, &t.FuelRate},
		{"driver_rate", r.DriverRate, &t.DriverRate},
	}
	for _, f := range fields {
		d, err := parseAmount(prefix+f.name, f.raw)
		if err != nil {
			return registry.RateTable{}, err
		}
		*f.dst = d
	}
	if r.FuelConsumptionPerKm != "" {
		d, err := parseAmount(prefix+"fuel_consumption_per_km", r.FuelConsumptionPerKm)
		if err != nil {
			return registry.RateTable{}, err
		}
		t.FuelConsumptionPerKm = d
	}
	return t, nil
}

func (t ThresholdConfig) toThresholds() (registry.Thresholds, error) {
	var out registry.Thresholds
	var err error
	if out.CostVariancePercent, err = parseAmount("registry.thresholds.cost_variance_percent", t.CostVariancePercent); err != nil {
		return out, err
	}
	if out.TimeVarianceHours, err = parseAmount("registry.thresholds.time_variance_hours", t.TimeVarianceHours); err != nil {
		return out, err
	}
	if out.FuelConsumptionPer100Km, err = parseAmount("registry.thresholds.fuel_consumption_per_100km", t.FuelConsumptionPer100Km); err != nil {
		return out, err
	}
	return out, nil
}

func parseAmount(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
