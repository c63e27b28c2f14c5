package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Serial owns a Backend and runs every call inside one critical section.
// Waiting callers are admitted strictly in arrival order.
type Serial struct {
	backend Backend
	model   string
	logger  *zap.Logger
	metrics *Metrics

	mu       sync.Mutex
	busy     bool
	queue    []chan struct{}
	disposed bool

	closeOnce sync.Once
	closeErr  error
}

// SerialOption configures a Serial.
type SerialOption func(*Serial)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) SerialOption {
	return func(s *Serial) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithModelName labels metrics and logs with the model name.
func WithModelName(name string) SerialOption {
	return func(s *Serial) { s.model = name }
}

// NewSerial wraps backend. The Serial takes ownership: callers must not use
// backend directly afterwards.
func NewSerial(backend Backend, opts ...SerialOption) *Serial {
	s := &Serial{
		backend: backend,
		model:   "unknown",
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = NewMetrics(s.logger)
	return s
}

// Embed returns the vector for text. Backend failures are wrapped as
// ErrBackend and never retried.
func (s *Serial) Embed(ctx context.Context, text string) (vec []float32, err error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if s.isDisposed() {
		return nil, ErrDisposed
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordGeneration(ctx, s.model, "embed", time.Since(start), 1, err)
	}()

	vec, err = s.backend.Embed(ctx, text)
	if err != nil {
		s.logger.Debug("embedding failed", zap.String("model", s.model), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return vec, nil
}

// Dimension returns the backend's vector length.
func (s *Serial) Dimension() int {
	return s.backend.Dimension()
}

// Close waits for the call in progress, releases the backend and marks the
// Serial disposed. It is idempotent.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		// Cannot fail with a background context.
		_ = s.acquire(context.Background())
		defer s.release()

		s.mu.Lock()
		s.disposed = true
		s.mu.Unlock()

		if err := s.backend.Close(); err != nil {
			s.closeErr = fmt.Errorf("%w: closing model: %v", ErrBackend, err)
		}
		s.logger.Debug("embedding provider closed", zap.String("model", s.model))
	})
	return s.closeErr
}

func (s *Serial) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// acquire blocks until the caller owns the critical section.
func (s *Serial) acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if !s.busy && len(s.queue) == 0 {
		s.busy = true
		s.mu.Unlock()
		return nil
	}
	turn := make(chan struct{})
	s.queue = append(s.queue, turn)
	s.mu.Unlock()

	select {
	case <-turn:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, ch := range s.queue {
			if ch == turn {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		s.mu.Unlock()
		// The turn was handed over while we were cancelled; pass it on.
		s.release()
		return ctx.Err()
	}
}

// release hands the critical section to the next waiter, if any.
func (s *Serial) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.busy = false
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	close(next)
}

// waiting reports the number of queued callers.
func (s *Serial) waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
