package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore samples each configured level independently. Levels
// without a config entry, and Error and above, are never sampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	cores := []zapcore.Core{&levelFilterCore{Core: core, only: unsampledLevels(cfg.Levels)}}
	for lvl, lc := range cfg.Levels {
		if lvl >= zapcore.ErrorLevel {
			continue
		}
		// Thereafter 0 drops everything after the initial burst.
		thereafter := max(lc.Thereafter, 0)
		single := &levelFilterCore{Core: core, only: func(l zapcore.Level) bool { return l == lvl }}
		cores = append(cores, zapcore.NewSamplerWithOptions(single, cfg.Tick, lc.Initial, thereafter))
	}
	return zapcore.NewTee(cores...)
}

func unsampledLevels(levels map[zapcore.Level]LevelSamplingConfig) func(zapcore.Level) bool {
	return func(l zapcore.Level) bool {
		if l >= zapcore.ErrorLevel {
			return true
		}
		_, sampled := levels[l]
		return !sampled
	}
}

// levelFilterCore passes only entries accepted by its filters.
type levelFilterCore struct {
	zapcore.Core
	// only selects the levels this core accepts.
	only func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	if c.only != nil && !c.only(lvl) {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), only: c.only}
}
