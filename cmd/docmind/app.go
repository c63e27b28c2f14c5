package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/config"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/logging"
	"github.com/fyrsmithlabs/docmind/internal/services"
	"github.com/fyrsmithlabs/docmind/internal/telemetry"
)

// logOutput selects where a command's logs go.
type logOutput int

const (
	// logConfigured follows the logging section as written.
	logConfigured logOutput = iota
	// logStderr keeps stdout free for protocol or answer output.
	logStderr
	// logFileOnly is for full-screen programs; without logging.file
	// nothing is logged.
	logFileOnly
)

// app is the wiring shared by every command that needs the services.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	reg    services.Registry
}

func newApp(ctx context.Context, out logOutput, opts ...services.OpenOption) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	cfg.Telemetry.ServiceVersion = version

	logger, err := newLogger(cfg.Logging, out)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry, telemetry.WithLogger(logger.Underlying()))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	reg, err := services.Open(ctx, cfg, logger.Underlying(), opts...)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open services: %w", err)
	}

	logger.Debug(ctx, "services ready",
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("store", cfg.Store.Backend),
		zap.String("chat_model", cfg.Chat.Model))
	return &app{cfg: cfg, logger: logger, tel: tel, reg: reg}, nil
}

func newLogger(lc config.LoggingConfig, out logOutput) (*logging.Logger, error) {
	switch out {
	case logStderr:
		lc.Stderr = true
	case logFileOnly:
		if lc.File == "" {
			return logging.Nop(), nil
		}
	}
	cfg, err := lc.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	if out == logFileOnly {
		cfg.Output.Stdout = false
		cfg.Output.Stderr = false
	}
	logger, err := logging.NewLogger(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// importFiles adds each path to the library in order.
func (a *app) importFiles(ctx context.Context, paths []string) ([]*document.File, error) {
	files := make([]*document.File, 0, len(paths))
	for _, p := range paths {
		f, n, err := a.reg.Library().Import(ctx, p)
		if err != nil {
			return files, fmt.Errorf("failed to import %s: %w", p, err)
		}
		a.logger.Info(ctx, "document imported", zap.String("document", f.Name), zap.Int("chunks", n))
		files = append(files, f)
	}
	return files, nil
}

func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(
		a.reg.Close(),
		a.tel.Shutdown(ctx),
		a.logger.Sync(),
	)
}
