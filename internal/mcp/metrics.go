package mcp

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/chat"
	"github.com/fyrsmithlabs/docmind/internal/chunker"
	"github.com/fyrsmithlabs/docmind/internal/document"
	"github.com/fyrsmithlabs/docmind/internal/extraction"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/services"
)

const instrumentationName = "github.com/fyrsmithlabs/docmind/internal/mcp"

// Metrics holds the tool invocation instruments.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics creates tool metrics on meter. A nil meter uses the global
// provider.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"docmind.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	// Answers stream from the chat API, so the buckets reach past a minute.
	m.duration, err = m.meter.Float64Histogram(
		"docmind.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"docmind.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"docmind.mcp.tool.active_requests",
		metric.WithDescription("Number of currently active MCP tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// RecordInvocation records one finished tool call.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("tool", toolName)}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		errorAttrs := append(attrs, attribute.String("reason", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// IncrementActive increments the active requests counter.
func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// DecrementActive decrements the active requests counter.
func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// track wraps a tool body with the active gauge and invocation record.
func (m *Metrics) track(ctx context.Context, toolName string) func(error) {
	start := time.Now()
	m.IncrementActive(ctx, toolName)
	return func(err error) {
		m.DecrementActive(ctx, toolName)
		m.RecordInvocation(ctx, toolName, time.Since(start), err)
	}
}

// categorizeError maps an error to a low-cardinality reason label.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrDuplicateDocument):
		return "duplicate"
	case errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(err, rag.ErrNoRelevantContext):
		return "no_context"
	case errors.Is(err, document.ErrUnsupportedFileType),
		errors.Is(err, chunker.ErrConversion),
		errors.Is(err, rag.ErrEmptyQuestion),
		errors.Is(err, rag.ErrPageOutOfRange),
		errors.Is(err, extraction.ErrNotRegularFile),
		errors.Is(err, extraction.ErrTooLarge),
		errors.Is(err, errInvalidArgument):
		return "validation_error"
	case errors.Is(err, chat.ErrHTTP):
		return "upstream_error"
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal_error"
	}
}
