// internal/logging/otel.go
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// instrumentationName is the scope name of records sent over the OTEL bridge.
const instrumentationName = "github.com/fyrsmithlabs/textpack"

// newCore tees the configured console sinks and the OTEL bridge, then
// applies sampling. The OTEL output is skipped when no provider is given.
func newCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 3)

	console := func(w zapcore.WriteSyncer) error {
		encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, w, cfg.Level))
		return nil
	}
	if cfg.Output.Stdout {
		if err := console(zapcore.Lock(os.Stdout)); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Stderr {
		if err := console(zapcore.Lock(os.Stderr)); err != nil {
			return nil, err
		}
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, &levelRangeCore{
			Core: otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(otelProvider)),
			lo:   cfg.Level,
			hi:   zapcore.FatalLevel,
		})
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one output must be enabled and available")
	}

	var core zapcore.Core
	if len(cores) == 1 {
		core = cores[0]
	} else {
		core = zapcore.NewTee(cores...)
	}

	return newSampledCore(core, cfg.Sampling), nil
}
