package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/textpack/internal/archive"
	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/config"
	"github.com/fyrsmithlabs/textpack/internal/history"
	httpapi "github.com/fyrsmithlabs/textpack/internal/http"
	"github.com/fyrsmithlabs/textpack/internal/logging"
	"github.com/fyrsmithlabs/textpack/internal/profile"
	"github.com/fyrsmithlabs/textpack/internal/telemetry"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	svc    *compression.Service
}

// loadConfig reads the config file and environment, applying the
// --log-level override before validation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupApp builds an app without telemetry for one-shot commands.
func setupApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, nil)
}

// newApp builds the logger and compression service. tel may be nil.
func newApp(cfg *config.Config, tel *telemetry.Telemetry) (*app, error) {
	logCfg, err := loggingConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	lp := tel.LoggerProvider()
	logCfg.Output.OTEL = lp != nil
	logger, err := logging.NewLogger(logCfg, lp)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var opts []compression.ServiceOption
	if tel != nil {
		opts = append(opts,
			compression.WithTracer(tel.Tracer("github.com/fyrsmithlabs/textpack/internal/compression")),
			compression.WithMeter(tel.Meter("compression")),
		)
	}
	svc, err := compression.NewService(engineConfig(cfg.Engine), logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compression service: %w", err)
	}

	return &app{cfg: cfg, logger: logger, svc: svc}, nil
}

func (a *app) close() {
	_ = a.logger.Sync() // Best-effort sync on exit
}

// historyStore opens the store at override, or the configured store when
// history is enabled. It returns nil when neither applies.
func (a *app) historyStore(override string) (*history.Store, error) {
	path := override
	if path == "" {
		if !a.cfg.History.Enabled {
			return nil, nil
		}
		path = a.cfg.History.Path
	}
	return history.NewStore(path, a.cfg.History.MaxRecords, a.logger)
}

// profileRegistry loads the configured profile directory.
func (a *app) profileRegistry(ctx context.Context) *profile.Registry {
	reg := profile.NewRegistry(a.cfg.Profiles.Dir, a.logger)
	if err := reg.Load(ctx); err != nil {
		a.logger.Warn(ctx, "some profiles failed to load", zap.Error(err))
	}
	return reg
}

// resolveProfile accepts a profile file path or an id from the configured
// profile directory.
func (a *app) resolveProfile(ctx context.Context, ref string) (*profile.Profile, error) {
	if profile.Format(ref) != "" {
		if _, err := os.Stat(ref); err == nil {
			return profile.LoadFile(ref)
		}
	}
	if a.cfg.Profiles.Dir == "" {
		return nil, fmt.Errorf("profile %q: profiles.dir is not configured", ref)
	}
	return a.profileRegistry(ctx).Get(ref)
}

func engineConfig(c config.EngineConfig) compression.Config {
	return compression.Config{
		TopContexts:      c.TopContexts,
		ContextThreshold: c.ContextThreshold,
		WordCodes:        c.WordCodes,
		StatSymbols:      c.StatSymbols,
		BlockSize:        c.BlockSize,
		DeepAnalysis:     c.DeepAnalysis,
		MaxInputLength:   c.MaxInputLength,
		BatchWorkers:     c.BatchWorkers,
	}
}

func loggingConfig(c config.LoggingConfig) (*logging.Config, error) {
	lvl, err := logging.LevelFromString(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := logging.NewDefaultConfig()
	cfg.Level = lvl
	cfg.Format = c.Format
	return cfg, nil
}

func telemetryConfig(c config.ObservabilityConfig) *telemetry.Config {
	cfg := telemetry.NewDefaultConfig()
	cfg.Enabled = c.EnableTelemetry
	cfg.ServiceName = c.ServiceName
	cfg.ServiceVersion = version
	cfg.Endpoint = c.Endpoint
	cfg.Insecure = c.Insecure
	cfg.Sampling.Rate = c.SampleRate
	cfg.Protocol = telemetry.ProtocolGRPC
	if c.Protocol == "http" {
		cfg.Protocol = telemetry.ProtocolHTTP
	}
	return cfg
}

func serverConfig(s config.ServerConfig, e config.EngineConfig) *httpapi.Config {
	return &httpapi.Config{
		Host:          s.Host,
		Port:          s.Port,
		BodyLimit:     s.BodyLimit,
		ReadTimeout:   s.ReadTimeout.Duration(),
		WriteTimeout:  s.WriteTimeout.Duration(),
		MaxBatchItems: e.MaxBatchItems,
		RateLimit:     s.RateLimit,
		RateBurst:     s.RateBurst,
	}
}

// readInput reads the named file, or stdin when the name is "-" or absent.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return data, nil
}

// archiveLevel maps a level name onto an archive codec level.
func archiveLevel(name string) (int, error) {
	switch name {
	case "fastest":
		return archive.FastestLevel, nil
	case "", "default":
		return archive.DefaultLevel, nil
	case "best":
		return archive.BestLevel, nil
	default:
		return 0, fmt.Errorf("unknown archive level %q (want fastest, default or best)", name)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var now = time.Now
