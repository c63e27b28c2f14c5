package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
	// Upper bound for one SSE line.
	maxLineSize = 1 << 20
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream is a finite, non-restartable sequence of text fragments.
//
//	for s.Next() {
//	    fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	span    trace.Span
	logger  *zap.Logger

	// text and err are owned by the goroutine calling Next.
	text string
	err  error

	done      atomic.Bool
	fragments atomic.Int64
	skipped   atomic.Int64

	closeOnce sync.Once
}

func newStream(body io.ReadCloser, cancel context.CancelFunc, span trace.Span, logger *zap.Logger) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Stream{
		body:    body,
		scanner: sc,
		cancel:  cancel,
		span:    span,
		logger:  logger,
	}
}

// Next advances to the next non-empty fragment. It returns false at
// [DONE], end of body, error or after Close.
func (s *Stream) Next() bool {
	if s.done.Load() {
		s.text = ""
		return false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneMarker {
			s.text = ""
			s.cleanup()
			return false
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.skipped.Add(1)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		s.text = chunk.Choices[0].Delta.Content
		s.fragments.Add(1)
		return true
	}

	s.text = ""
	// Reads fail once Close aborts the transport; that is not an error.
	if scanErr := s.scanner.Err(); scanErr != nil && !s.done.Load() && s.err == nil {
		s.err = fmt.Errorf("reading stream: %w", scanErr)
		failSpan(s.span, s.err)
	}
	s.cleanup()
	return false
}

// Text returns the fragment produced by the last successful Next.
func (s *Stream) Text() string { return s.text }

// Err returns the first transport error, if any. Reaching [DONE] or a clean
// end of body is not an error.
func (s *Stream) Err() error { return s.err }

// Close aborts the transport. It may be called from any goroutine and more
// than once.
func (s *Stream) Close() error {
	s.cleanup()
	return nil
}

// All returns an iterator over the remaining fragments. A transport error is
// yielded once as the final pair. The stream is closed when iteration stops.
func (s *Stream) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Text(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains the stream and returns the concatenated text.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for text, err := range s.All() {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// cleanup releases the transport and ends the span exactly once.
func (s *Stream) cleanup() {
	s.closeOnce.Do(func() {
		s.done.Store(true)
		s.cancel()
		_ = s.body.Close()

		skipped := s.skipped.Load()
		s.span.SetAttributes(
			attribute.Int64("fragments", s.fragments.Load()),
			attribute.Int64("skipped_frames", skipped),
		)
		s.span.End()

		if skipped > 0 {
			s.logger.Debug("skipped malformed stream frames", zap.Int64("count", skipped))
		}
	})
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
