// Package rag answers questions about a loaded document.
//
// Import chunks a document, embeds each chunk and stores the vectors. Ask
// embeds the question, retrieves the closest chunks, streams an answer
// constrained to them and, when sourcing is requested, asks the model a
// second time for the verbatim sentences that support the answer and
// locates them in the document.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/chat"
	"github.com/fyrsmithlabs/docmind/internal/chunker"
	"github.com/fyrsmithlabs/docmind/internal/citation"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/embeddings"
	"github.com/fyrsmithlabs/docmind/internal/logging"
	"github.com/fyrsmithlabs/docmind/internal/vectorstore"
)

const (
	// DefaultTopK is the number of chunks placed in the context.
	DefaultTopK = 10

	// ChunkSeparator joins retrieved chunks in the context.
	ChunkSeparator = "\n\n### CHUNK ###\n\n"

	// NoInformation is the context used when retrieval finds nothing.
	NoInformation = "No relevant information."
)

var tracer = otel.Tracer("docmind.rag")

// Config holds orchestration settings.
type Config struct {
	TopK        int    `koanf:"top_k"`
	PromptsFile string `koanf:"prompts_file"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidConfig, c.TopK)
	}
	return nil
}

// ChatClient is the subset of chat.Client the orchestrator needs.
type ChatClient interface {
	Complete(ctx context.Context, user, system string) (string, error)
	Stream(ctx context.Context, user, system string) (*chat.Stream, error)
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Chunker  *chunker.Chunker
	Embedder embeddings.Embedder
	Store    vectorstore.Store
	Chat     ChatClient
}

// Service orchestrates import and question answering. It is safe for
// concurrent use; each Ask runs its own state machine.
type Service struct {
	cfg      Config
	deps     Deps
	prompts  *Prompts
	logger   *zap.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrompts replaces the prompt set loaded from Config.PromptsFile.
func WithPrompts(p *Prompts) Option {
	return func(s *Service) { s.prompts = p }
}

// WithObserver receives every query state transition.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a Service. Prompts are loaded and validated here so a
// bad prompts file fails at startup rather than on the first question.
func NewService(cfg Config, deps Deps, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Chunker == nil:
		return nil, fmt.Errorf("chunker cannot be nil")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("embedder cannot be nil")
	case deps.Store == nil:
		return nil, fmt.Errorf("vector store cannot be nil")
	case deps.Chat == nil:
		return nil, fmt.Errorf("chat client cannot be nil")
	}

	s := &Service{cfg: cfg, deps: deps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.prompts == nil {
		p, err := LoadPrompts(cfg.PromptsFile)
		if err != nil {
			return nil, fmt.Errorf("loading prompts: %w", err)
		}
		s.prompts = p
	}
	return s, nil
}

// Import chunks content, then embeds and saves each chunk in order. It is
// not atomic: when a step fails, chunks saved before it stay in the store.
// The returned count is the number of chunks saved.
func (s *Service) Import(ctx context.Context, fileName string, content document.Content, ft document.FileType) (saved int, err error) {
	ctx = logging.WithDocument(ctx, fileName)
	ctx, span := tracer.Start(ctx, "rag.Import", trace.WithAttributes(
		attribute.String("document.name", fileName),
		attribute.String("document.type", ft.String()),
	))
	defer func() {
		span.SetAttributes(attribute.Int("chunks.saved", saved))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	chunks, err := s.deps.Chunker.Chunk(ft, content)
	if err != nil {
		return 0, fmt.Errorf("chunking %s: %w", fileName, err)
	}

	for _, c := range chunks {
		vec, err := s.deps.Embedder.Embed(ctx, c.Text)
		if err != nil {
			return saved, fmt.Errorf("embedding %s chunk %d: %w", fileName, c.Index, err)
		}
		if _, err := s.deps.Store.Save(ctx, fileName, c.Index, c.Text, vec); err != nil {
			return saved, fmt.Errorf("saving %s chunk %d: %w", fileName, c.Index, err)
		}
		saved++
		ImportChunksTotal.WithLabelValues(ft.String()).Inc()
	}

	s.logger.Info("document imported",
		append(logging.ContextFields(ctx),
			zap.Stringer("type", ft),
			zap.Int("chunks", saved))...)
	return saved, nil
}

// ImportFile imports a loaded file under its name.
func (s *Service) ImportFile(ctx context.Context, f *document.File) (int, error) {
	return s.Import(ctx, f.Name, f.Content, f.Type)
}

// Reset empties the store.
func (s *Service) Reset(ctx context.Context) error {
	return s.deps.Store.Reset(ctx)
}

// Count returns the number of stored chunk records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.deps.Store.Count(ctx)
}

// RetrieveContext embeds question and joins the closest chunks into a
// context string. An empty store yields NoInformation and no results.
func (s *Service) RetrieveContext(ctx context.Context, question string, ft document.FileType) (string, []vectorstore.Result, error) {
	return s.retrieve(ctx, question, ft, nil)
}

// retrieve reports Embedding and Retrieving to m when m is non-nil.
func (s *Service) retrieve(ctx context.Context, question string, ft document.FileType, m *Machine) (string, []vectorstore.Result, error) {
	if m != nil {
		if err := m.To(StateEmbedding); err != nil {
			return "", nil, err
		}
	}
	vec, err := s.deps.Embedder.Embed(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("embedding question: %w", err)
	}

	if m != nil {
		if err := m.To(StateRetrieving); err != nil {
			return "", nil, err
		}
	}
	results, err := s.deps.Store.TopK(ctx, vec, s.cfg.TopK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieving chunks: %w", err)
	}
	if len(results) == 0 {
		return NoInformation, results, nil
	}
	return BuildContext(results, ft), results, nil
}

// BuildContext joins result texts with ChunkSeparator. For paginated
// documents each entry is prefixed with its page number.
func BuildContext(results []vectorstore.Result, ft document.FileType) string {
	parts := make([]string, len(results))
	for i, r := range results {
		if ft == document.Paginated {
			parts[i] = "Page: " + strconv.Itoa(r.ChunkIndex) + ", Content: " + r.Text
		} else {
			parts[i] = r.Text
		}
	}
	return strings.Join(parts, ChunkSeparator)
}

// FirstPassAnswer streams an answer to question restricted to docContext.
func (s *Service) FirstPassAnswer(ctx context.Context, question, docContext string, ft document.FileType) (*chat.Stream, error) {
	system, err := s.prompts.System(ft)
	if err != nil {
		return nil, err
	}
	user, err := s.prompts.Answer(docContext, question)
	if err != nil {
		return nil, err
	}
	return s.deps.Chat.Stream(ctx, user, system)
}

// SecondPassCitations asks for the sentences of docContext that support
// answer, verbatim and separated by citation.Separator.
func (s *Service) SecondPassCitations(ctx context.Context, docContext, answer string, ft document.FileType) (string, error) {
	system, err := s.prompts.System(ft)
	if err != nil {
		return "", err
	}
	user, err := s.prompts.Citations(docContext, answer)
	if err != nil {
		return "", err
	}
	return s.deps.Chat.Complete(ctx, user, system)
}

// Query is one question.
type Query struct {
	Question string
	// FileType selects the prompt and context format. Zero uses Document.Type.
	FileType document.FileType
	// Document is where citations are located. Without it citation
	// sentences are still returned but Spans stays empty.
	Document *document.File
	// Sourcing requests the second, citation-extracting pass.
	Sourcing bool
}

// Answer is the outcome of Ask.
type Answer struct {
	ID        string               `json:"id"`
	Text      string               `json:"text"`
	Context   string               `json:"context"`
	Results   []vectorstore.Result `json:"results"`
	Citations string               `json:"citations,omitempty"`
	Spans     []citation.Span      `json:"spans,omitempty"`
	First     *citation.Position   `json:"first,omitempty"`
}

// Ask runs the full query flow. onToken, when non-nil, receives each answer
// fragment as it streams. When retrieval finds nothing, Ask returns an
// Answer carrying NoInformation together with ErrNoRelevantContext.
func (s *Service) Ask(ctx context.Context, q Query, onToken func(string)) (_ *Answer, err error) {
	if strings.TrimSpace(q.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	ft := q.FileType
	if ft == 0 && q.Document != nil {
		ft = q.Document.Type
	}
	if !ft.Valid() {
		return nil, fmt.Errorf("%w: %v", document.ErrUnsupportedFileType, ft)
	}

	a := &Answer{ID: uuid.NewString()}
	ctx = logging.WithQueryID(ctx, a.ID)
	if q.Document != nil {
		ctx = logging.WithDocument(ctx, q.Document.Name)
	}
	ctx, span := tracer.Start(ctx, "rag.Ask", trace.WithAttributes(
		attribute.String("query.id", a.ID),
		attribute.String("document.type", ft.String()),
		attribute.Bool("sourcing", q.Sourcing),
	))
	start := time.Now()
	m := NewMachine(a.ID, s.observer)

	defer func() {
		outcome := outcomeAnswered
		switch {
		case errors.Is(err, ErrNoRelevantContext):
			outcome = outcomeNoContext
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome = outcomeCanceled
		case err != nil:
			outcome = outcomeError
		}
		m.Abort()
		QueriesTotal.WithLabelValues(outcome).Inc()
		QueryDuration.Observe(time.Since(start).Seconds())

		span.SetAttributes(attribute.String("outcome", outcome), attribute.Int("results", len(a.Results)))
		if err != nil && outcome != outcomeNoContext {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("question failed", append(logging.ContextFields(ctx), zap.Error(err))...)
		}
		span.End()
	}()

	a.Context, a.Results, err = s.retrieve(ctx, q.Question, ft, m)
	if err != nil {
		return nil, err
	}
	if len(a.Results) == 0 {
		if err := m.To(StateNoContext); err != nil {
			return nil, err
		}
		return a, fmt.Errorf("%w for question", ErrNoRelevantContext)
	}

	if err := m.To(StateGenerating); err != nil {
		return nil, err
	}
	if a.Text, err = s.generate(ctx, q.Question, a.Context, ft, onToken); err != nil {
		return nil, err
	}

	if q.Sourcing {
		if err := m.To(StateSourcing); err != nil {
			return nil, err
		}
		if a.Citations, err = s.SecondPassCitations(ctx, a.Context, a.Text, ft); err != nil {
			return nil, fmt.Errorf("extracting citations: %w", err)
		}
		if q.Document != nil {
			located := citation.Locate(citation.FromFile(q.Document), a.Citations)
			a.Spans, a.First = located.Spans, located.First
		}
	}

	if err := m.To(StateIdle); err != nil {
		return nil, err
	}
	s.logger.Info("question answered",
		append(logging.ContextFields(ctx),
			zap.Int("results", len(a.Results)),
			zap.Int("answer_len", len(a.Text)),
			zap.Int("spans", len(a.Spans)))...)
	return a, nil
}

func (s *Service) generate(ctx context.Context, question, docContext string, ft document.FileType, onToken func(string)) (string, error) {
	stream, err := s.FirstPassAnswer(ctx, question, docContext, ft)
	if err != nil {
		return "", fmt.Errorf("starting answer: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for fragment, err := range stream.All() {
		if err != nil {
			return "", fmt.Errorf("streaming answer: %w", err)
		}
		b.WriteString(fragment)
		if onToken != nil {
			onToken(fragment)
		}
	}
	return b.String(), nil
}
