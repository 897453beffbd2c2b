// Package config loads textpack configuration from a YAML file and
// TEXTPACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the full textpack configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Engine        EngineConfig        `koanf:"engine"`
	Profiles      ProfilesConfig      `koanf:"profiles"`
	History       HistoryConfig       `koanf:"history"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"`
	BodyLimit       string   `koanf:"body_limit"`

	// RateLimit is the sustained request rate per client in requests per
	// second. Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// EngineConfig mirrors the compression engine settings.
type EngineConfig struct {
	TopContexts      int     `koanf:"top_contexts"`
	ContextThreshold float64 `koanf:"context_threshold"`
	WordCodes        int     `koanf:"word_codes"`
	StatSymbols      int     `koanf:"stat_symbols"`
	BlockSize        int     `koanf:"block_size"`
	DeepAnalysis     bool    `koanf:"deep_analysis"`
	MaxInputLength   int     `koanf:"max_input_length"`
	BatchWorkers     int     `koanf:"batch_workers"`
	MaxBatchItems    int     `koanf:"max_batch_items"`
}

// ProfilesConfig locates custom domain profiles.
type ProfilesConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

// HistoryConfig locates the compression history store.
type HistoryConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxRecords int    `koanf:"max_records"`
}

// ObservabilityConfig toggles tracing and metrics export.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	Endpoint        string  `koanf:"otlp_endpoint"`
	Protocol        string  `koanf:"otlp_protocol"`
	Insecure        bool    `koanf:"otlp_insecure"`
	SampleRate      float64 `koanf:"sample_rate"`
	Prometheus      bool    `koanf:"prometheus"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			BodyLimit:       "4M",
			RateLimit:       20,
			RateBurst:       40,
		},
		Engine: EngineConfig{
			TopContexts:      20,
			ContextThreshold: 0.01,
			WordCodes:        10,
			StatSymbols:      5,
			BlockSize:        500,
			MaxInputLength:   4 << 20,
			BatchWorkers:     4,
			MaxBatchItems:    100,
		},
		History: HistoryConfig{
			MaxRecords: 1000,
		},
		Observability: ObservabilityConfig{
			ServiceName: "textpack",
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			SampleRate:  1.0,
			Prometheus:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the default config file location and
// the environment.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit cannot be negative, got %v", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1 when rate limiting is enabled"))
	}

	e := c.Engine
	for name, v := range map[string]int{
		"engine.top_contexts":      e.TopContexts,
		"engine.word_codes":        e.WordCodes,
		"engine.stat_symbols":      e.StatSymbols,
		"engine.block_size":        e.BlockSize,
		"engine.max_input_length":  e.MaxInputLength,
		"engine.batch_workers":     e.BatchWorkers,
		"engine.max_batch_items":   e.MaxBatchItems,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", name, v))
		}
	}

	if e.ContextThreshold <= 0 || e.ContextThreshold >= 1 {
		errs = append(errs, fmt.Errorf("engine.context_threshold must be in (0, 1), got %g", e.ContextThreshold))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}
	if c.History.MaxRecords < 0 {
		errs = append(errs, fmt.Errorf("history.max_records cannot be negative, got %d", c.History.MaxRecords))
	}
	if c.Profiles.Watch && c.Profiles.Dir == "" {
		errs = append(errs, errors.New("profiles.dir is required when profiles.watch is set"))
	}

	o := c.Observability
	if o.EnableTelemetry {
		if o.ServiceName == "" {
			errs = append(errs, errors.New("observability.service_name is required when telemetry is enabled"))
		}
		if o.Protocol != "grpc" && o.Protocol != "http" {
			errs = append(errs, fmt.Errorf("observability.otlp_protocol must be grpc or http, got %q", o.Protocol))
		}
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.sample_rate must be between 0 and 1, got %v", o.SampleRate))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not recognised", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
