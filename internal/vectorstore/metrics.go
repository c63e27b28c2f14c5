package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsStored tracks the number of records currently held by the store.
	RecordsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docmind",
			Subsystem: "vectorstore",
			Name:      "records",
			Help:      "Number of chunk records currently stored",
		},
	)

	// TopKDuration tracks how long exhaustive top-K scans take.
	TopKDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docmind",
			Subsystem: "vectorstore",
			Name:      "topk_duration_seconds",
			Help:      "Duration of top-K similarity scans in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SavesTotal counts save operations.
	// Labels: result (success, error)
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmind",
			Subsystem: "vectorstore",
			Name:      "saves_total",
			Help:      "Total number of record save operations",
		},
		[]string{"result"},
	)
)
