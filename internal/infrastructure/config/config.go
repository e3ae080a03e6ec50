package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Conversion ConversionConfig
	Database   DatabaseConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `validate:"oneof=debug info warn warning error fatal"`
	Format     string `validate:"oneof=json console"`
	Output     string `validate:"required"` // stdout, stderr, or file path
	TimeFormat string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing staging production"`
	Port string `validate:"required,numeric"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
	IdleTimeout    time.Duration `validate:"gt=0"`
	MaxHeaderBytes int           `validate:"gt=0"`
	MaxBodySize    int64         `validate:"gt=0"`
}

// ConversionConfig holds converter catalog settings
type ConversionConfig struct {
	MaxNestingDepth       int    `validate:"min=1,max=16"`
	NegativeCacheCapacity int    `validate:"min=1"`
	DateFormatPattern     string `validate:"required"`
	ZoneID                string `validate:"required"`
	RegisterDefaults      bool
}

// Location loads the configured time zone
func (c ConversionConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.ZoneID)
}

// DatabaseConfig holds the sqlite store used for conversion history
type DatabaseConfig struct {
	DSN              string        `validate:"required"` // file path or ":memory:"
	LogLevel         string        `validate:"oneof=silent error warn info"`
	SlowThreshold    time.Duration `validate:"gt=0"`
	HistoryRetention int           `validate:"min=1"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to export metrics and traces
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	ExportInterval    time.Duration `validate:"gt=0"`
	SamplingRatio     float64       `validate:"min=0,max=1"`
	ServiceName       string        `validate:"required"`
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CONV_ prefix (e.g., CONV_CONVERSION_MAX_NESTING_DEPTH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// values whose zero is meaningful cannot be detected as unset after reading
	v.SetDefault("conversion.register_defaults", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			TimeFormat: v.GetString("log.time_format"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
		},
		Conversion: ConversionConfig{
			MaxNestingDepth:       v.GetInt("conversion.max_nesting_depth"),
			NegativeCacheCapacity: v.GetInt("conversion.negative_cache_capacity"),
			DateFormatPattern:     v.GetString("conversion.date_format_pattern"),
			ZoneID:                v.GetString("conversion.zone_id"),
			RegisterDefaults:      v.GetBool("conversion.register_defaults"),
		},
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			LogLevel:         v.GetString("database.log_level"),
			SlowThreshold:    v.GetDuration("database.slow_threshold"),
			HistoryRetention: v.GetInt("database.history_retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "conversion-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.TimeFormat == "" {
		cfg.Log.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Conversion.MaxNestingDepth == 0 {
		cfg.Conversion.MaxNestingDepth = 3
	}
	if cfg.Conversion.NegativeCacheCapacity == 0 {
		cfg.Conversion.NegativeCacheCapacity = 128
	}
	if cfg.Conversion.DateFormatPattern == "" {
		cfg.Conversion.DateFormatPattern = time.RFC3339
	}
	if cfg.Conversion.ZoneID == "" {
		cfg.Conversion.ZoneID = "UTC"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = ":memory:"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Database.HistoryRetention == 0 {
		cfg.Database.HistoryRetention = 1000
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Conversion.Location(); err != nil {
		return fmt.Errorf("conversion.zone_id %q is not a known time zone: %w", c.Conversion.ZoneID, err)
	}

	if c.App.Env == "production" && c.Telemetry.Enabled && c.Telemetry.Insecure {
		return fmt.Errorf("telemetry.insecure cannot be true in production")
	}

	return nil
}
