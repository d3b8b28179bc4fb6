// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// TrackingConfig controls what the engine ingests and how long it keeps it
type TrackingConfig struct {
	TrackingID      string        `mapstructure:"tracking_id"`
	BaseURL         string        `mapstructure:"base_url"`
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	SampleRate      float64       `mapstructure:"sample_rate"`
	AnonymizeIP     bool          `mapstructure:"anonymize_ip"`
}

// EngineConfig tunes the analysis components: acquisition costs per channel
// and the breach thresholds that drive report recommendations
type EngineConfig struct {
	ChannelCosts        map[string]float64 `mapstructure:"channel_costs"`
	BaselineChannelCost float64            `mapstructure:"baseline_channel_cost"`
	MinPerformanceScore float64            `mapstructure:"min_performance_score"`
	MinTopKeywords      int                `mapstructure:"min_top_keywords"`
	MinConversionRate   float64            `mapstructure:"min_conversion_rate"`
	MinProfitMargin     float64            `mapstructure:"min_profit_margin"`
}

// MonitoringConfig contains observability configuration
type MonitoringConfig struct {
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	MetricsPort   int    `mapstructure:"metrics_port"`
	Namespace     string `mapstructure:"namespace"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sitepulse")
	}

	// Enable environment variable override
	v.SetEnvPrefix("SITEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "SitePulse")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Tracking defaults: keep everything, sample nothing out
	v.SetDefault("tracking.tracking_id", "")
	v.SetDefault("tracking.base_url", "")
	v.SetDefault("tracking.retention_window", "0s")
	v.SetDefault("tracking.sample_rate", 1.0)
	v.SetDefault("tracking.anonymize_ip", false)

	// Engine defaults
	v.SetDefault("engine.channel_costs", map[string]float64{
		"organic_search": 50,
		"paid_search":    250,
		"social_media":   150,
		"email":          20,
		"referral":       80,
		"display":        180,
	})
	v.SetDefault("engine.baseline_channel_cost", 100)
	v.SetDefault("engine.min_performance_score", 80)
	v.SetDefault("engine.min_top_keywords", 5)
	v.SetDefault("engine.min_conversion_rate", 2)
	v.SetDefault("engine.min_profit_margin", 20)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.namespace", "sitepulse")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Tracking.SampleRate < 0 || c.Tracking.SampleRate > 1 {
		return fmt.Errorf("tracking.sample_rate must be between 0 and 1")
	}

	if c.Tracking.RetentionWindow < 0 {
		return fmt.Errorf("tracking.retention_window must not be negative")
	}

	if c.Engine.BaselineChannelCost < 0 {
		return fmt.Errorf("engine.baseline_channel_cost must not be negative")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
