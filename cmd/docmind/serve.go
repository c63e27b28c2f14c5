package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/document"
	httpserver "github.com/fyrsmithlabs/docmind/internal/http"
	"github.com/fyrsmithlabs/docmind/internal/watch"
)

var (
	servePort  int
	serveWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload documents when their files change")
}

var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Serve the HTTP API",
	Long: `Start the HTTP API, importing any files given on the command line first.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/documents
  POST /api/v1/documents                   import by path or multipart upload
  POST /api/v1/documents/reload
  GET  /api/v1/documents/:name/pages/:page
  POST /api/v1/query                       JSON, or text/event-stream with "stream": true
  POST /api/v1/citations                   locate citation sentences in a document

Examples:
  docmind serve
  docmind serve --port 9000 --watch report.pdf notes.md`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logConfigured)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port = servePort
	}

	if serveWatch || a.cfg.Watch.Enabled {
		w, err := startWatcher(ctx, a)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	if _, err := a.importFiles(ctx, args); err != nil {
		return err
	}

	srv, err := httpserver.NewServer(a.reg, a.logger.Underlying(),
		&httpserver.Config{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port},
		httpserver.WithVersion(version),
		httpserver.WithMeter(a.tel.Meter("github.com/fyrsmithlabs/docmind/internal/http")),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	return srv.Start(ctx, a.cfg.Server.ShutdownTimeout.Duration())
}

// startWatcher watches every document already in the library and each one
// imported afterwards.
func startWatcher(ctx context.Context, a *app) (*watch.Watcher, error) {
	lib := a.reg.Library()
	w, err := watch.New(lib, a.cfg.Watch.Debounce.Duration(), a.logger.Underlying())
	if err != nil {
		return nil, err
	}
	lib.OnImport(func(f *document.File) {
		if err := w.Add(f.Path); err != nil {
			a.logger.Warn(ctx, "failed to watch document", zap.String("path", f.Path), zap.Error(err))
		}
	})
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
