package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "docmind"

// newCore tees the enabled outputs and wraps the result with sampling.
// The returned closers release any file opened for the file output.
func newCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, []func() error, error) {
	var (
		cores   []zapcore.Core
		closers []func() error
	)

	encoded := func(ws zapcore.WriteSyncer) error {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(enc, ws, cfg.Level))
		return nil
	}

	if cfg.Output.Stdout {
		if err := encoded(zapcore.Lock(os.Stdout)); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Output.Stderr {
		if err := encoded(zapcore.Lock(os.Stderr)); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Output.File != "" {
		f, err := os.OpenFile(cfg.Output.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closers = append(closers, f.Close)
		if err := encoded(zapcore.Lock(f)); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
	}
	if cfg.Output.OTEL && otelProvider != nil {
		floor := cfg.Level
		cores = append(cores, &levelFilterCore{
			Core: otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(otelProvider)),
			only: func(l zapcore.Level) bool { return l >= floor },
		})
	}

	if len(cores) == 0 {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, fmt.Errorf("no log output is available")
	}

	core := zapcore.NewTee(cores...)
	return newSampledCore(core, cfg.Sampling), closers, nil
}
