package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeAnswered  = "answered"
	outcomeNoContext = "no_context"
	outcomeCanceled  = "canceled"
	outcomeError     = "error"
)

var (
	// QueriesTotal counts finished queries.
	// Labels: outcome (answered, no_context, canceled, error)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmind",
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total number of questions asked, by outcome",
		},
		[]string{"outcome"},
	)

	// QueryDuration tracks end-to-end question latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docmind",
			Subsystem: "rag",
			Name:      "query_duration_seconds",
			Help:      "Duration of questions from embedding to last citation",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// ImportChunksTotal counts chunks embedded and saved.
	// Labels: file_type
	ImportChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmind",
			Subsystem: "rag",
			Name:      "import_chunks_total",
			Help:      "Total number of chunks imported",
		},
		[]string{"file_type"},
	)
)
