package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"glucotune/internal/estimation"
	"glucotune/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Input      InputConfig      `mapstructure:"input"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Estimation EstimationConfig `mapstructure:"estimation"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// InputConfig selects where session input bundles come from.
type InputConfig struct {
	// Source is one of "file", "postgres", "sqlite".
	Source string `mapstructure:"source"`
	// Path is the JSON bundle path (file source) or database file path
	// (sqlite source).
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the postgres
// input source.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// EstimationConfig governs the multiplier estimation pass.
type EstimationConfig struct {
	// Strategy is "general", "fasting", or "carb-absorption".
	Strategy string `mapstructure:"strategy"`
	// WindowHours is the default session window length when the input
	// source needs an explicit range and none is given on the CLI.
	WindowHours int `mapstructure:"window_hours"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GLUCOTUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "glucotune")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("input.source", "file")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("estimation.strategy", "general")
	v.SetDefault("estimation.window_hours", 24)

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Input.Source {
	case "file", "postgres", "sqlite":
		// Path and DSN are checked when a source is actually opened, so
		// commands that need no input still run.
	default:
		return fmt.Errorf("input.source must be file, postgres, or sqlite")
	}

	if _, err := estimation.ParseStrategy(c.Estimation.Strategy); err != nil {
		return err
	}
	if c.Estimation.WindowHours <= 0 {
		return fmt.Errorf("estimation.window_hours must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveStrategy parses the configured estimation strategy.
func (c *Config) ResolveStrategy() estimation.Strategy {
	s, _ := estimation.ParseStrategy(c.Estimation.Strategy)
	return s
}
