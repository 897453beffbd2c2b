package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/textpack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.Output.Stdout)
	assert.True(t, cfg.Output.Stderr)
	assert.False(t, cfg.Output.OTEL)
	assert.True(t, cfg.Sampling.Enabled)
	assert.Equal(t, time.Second, cfg.Sampling.Tick.Duration())
	assert.True(t, cfg.Redaction.Enabled)
	assert.Contains(t, cfg.Redaction.Fields, "text")
	assert.Contains(t, cfg.Redaction.Fields, "payload")
	assert.Equal(t, "textpack", cfg.Fields["service"])
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "invalid format", modify: func(c *Config) { c.Format = "xml" }, errMsg: "format must be"},
		{name: "no output", modify: func(c *Config) { c.Output = OutputConfig{} }, errMsg: "at least one output"},
		{name: "zero tick", modify: func(c *Config) { c.Sampling.Tick = 0 }, errMsg: "sampling tick"},
		{
			name:   "unknown sampling level",
			modify: func(c *Config) { c.Sampling.Levels["loud"] = LevelSamplingConfig{Initial: 1} },
			errMsg: "sampling level",
		},
		{
			name:   "error level sampling",
			modify: func(c *Config) { c.Sampling.Levels["error"] = LevelSamplingConfig{Initial: 1} },
			errMsg: "never sampled",
		},
		{name: "negative caller skip", modify: func(c *Config) { c.Caller.Skip = -1 }, errMsg: "caller skip"},
		{name: "bad pattern", modify: func(c *Config) { c.Redaction.Patterns = []string{"(["} }, errMsg: "invalid redaction pattern"},
		{name: "empty field value", modify: func(c *Config) { c.Fields["env"] = "" }, errMsg: "empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_SamplingDisabledSkipsTickCheck(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sampling = SamplingConfig{Enabled: false, Tick: config.Duration(0)}
	assert.NoError(t, cfg.Validate())
}

func TestNewCore(t *testing.T) {
	t.Run("stderr only", func(t *testing.T) {
		core, err := newCore(NewDefaultConfig(), nil)
		require.NoError(t, err)
		assert.NotNil(t, core)
	})

	t.Run("otel without provider", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output = OutputConfig{OTEL: true}
		_, err := newCore(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one output")
	})

	t.Run("otel with provider", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output = OutputConfig{OTEL: true}
		core, err := newCore(cfg, noop.NewLoggerProvider())
		require.NoError(t, err)
		assert.NotNil(t, core)
	})
}
