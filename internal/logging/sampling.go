// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// samplableLevels are the levels a SamplingConfig may throttle.
var samplableLevels = []zapcore.Level{TraceLevel, zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel}

// newSampledCore wraps core with per-level sampling. Each level below Error
// gets its own sampler from cfg.Levels; levels without an entry pass
// through. Error and above are never sampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	cores := []zapcore.Core{
		&levelRangeCore{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel},
	}
	for _, lvl := range samplableLevels {
		only := &levelRangeCore{Core: core, lo: lvl, hi: lvl}
		lc, ok := cfg.Levels[levelName(lvl)]
		if !ok || lc.Initial <= 0 {
			cores = append(cores, only)
			continue
		}
		cores = append(cores, zapcore.NewSamplerWithOptions(only, cfg.Tick.Duration(), lc.Initial, lc.Thereafter))
	}
	return zapcore.NewTee(cores...)
}

// levelRangeCore passes only entries with lo <= level <= hi.
type levelRangeCore struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (c *levelRangeCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.lo && lvl <= c.hi && c.Core.Enabled(lvl)
}

func (c *levelRangeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With keeps the level range on child cores.
func (c *levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelRangeCore{
		Core: c.Core.With(fields),
		lo:   c.lo,
		hi:   c.hi,
	}
}
