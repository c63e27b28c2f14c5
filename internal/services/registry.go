// Package services assembles the docmind stack and gives transports one
// handle to it.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/chat"
	"github.com/fyrsmithlabs/docmind/internal/chunker"
	"github.com/fyrsmithlabs/docmind/internal/config"
	"github.com/fyrsmithlabs/docmind/internal/embeddings"
	"github.com/fyrsmithlabs/docmind/internal/extraction"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/vectorstore"
)

// Registry is what the HTTP, MCP and terminal front ends consume.
type Registry interface {
	RAG() *rag.Service
	Library() *Library
	Store() vectorstore.Store
	Close() error
}

// Options configures NewRegistry with prebuilt services.
type Options struct {
	RAG     *rag.Service
	Library *Library
	Store   vectorstore.Store
	// Closers run in reverse order on Close.
	Closers []func() error
}

type registry struct {
	rag     *rag.Service
	library *Library
	store   vectorstore.Store
	closers []func() error
}

// NewRegistry wraps already constructed services.
func NewRegistry(opts Options) Registry {
	return &registry{
		rag:     opts.RAG,
		library: opts.Library,
		store:   opts.Store,
		closers: opts.Closers,
	}
}

func (r *registry) RAG() *rag.Service        { return r.rag }
func (r *registry) Library() *Library        { return r.library }
func (r *registry) Store() vectorstore.Store { return r.store }

func (r *registry) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// OpenOption customizes Open.
type OpenOption func(*openOptions)

type openOptions struct {
	embedder  embeddings.Embedder
	observer  rag.Observer
	uploadDir string
}

// WithEmbedder skips provider construction and uses e.
func WithEmbedder(e embeddings.Embedder) OpenOption {
	return func(o *openOptions) { o.embedder = e }
}

// WithObserver forwards query state changes to obs.
func WithObserver(obs rag.Observer) OpenOption {
	return func(o *openOptions) { o.observer = obs }
}

// WithUploadDir sets where uploaded documents are written.
func WithUploadDir(dir string) OpenOption {
	return func(o *openOptions) { o.uploadDir = dir }
}

// Open builds the full stack from cfg: embedding provider, vector store,
// chunker, chat client, RAG service and document library.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...OpenOption) (_ Registry, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	embedder := o.embedder
	if embedder == nil {
		provider, err := embeddings.NewProvider(cfg.Embeddings.ProviderConfig(), logger.Named("embeddings"))
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
		closers = append(closers, provider.Close)
		embedder = provider
	}

	store, err := vectorstore.NewStore(ctx, cfg.Store, logger.Named("vectorstore"))
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	closers = append(closers, store.Close)

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	client, err := chat.NewClient(cfg.Chat.ClientConfig(), chat.WithLogger(logger.Named("chat")))
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	ragOpts := []rag.Option{rag.WithLogger(logger.Named("rag"))}
	if o.observer != nil {
		ragOpts = append(ragOpts, rag.WithObserver(o.observer))
	}
	svc, err := rag.NewService(cfg.RAG, rag.Deps{
		Chunker:  ch,
		Embedder: embedder,
		Store:    store,
		Chat:     client,
	}, ragOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating rag service: %w", err)
	}

	lib := NewLibrary(svc, extraction.NewLoader(cfg.Extraction), o.uploadDir, logger.Named("library"))

	logger.Info("docmind stack ready",
		zap.String("store", cfg.Store.Backend),
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("chat_model", cfg.Chat.Model),
		zap.Int("top_k", cfg.RAG.TopK))

	return NewRegistry(Options{
		RAG:     svc,
		Library: lib,
		Store:   store,
		Closers: closers,
	}), nil
}
