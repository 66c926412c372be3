// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestCyclesTotal          *prometheus.CounterVec
	ingestRowsFetchedTotal     prometheus.Counter
	ingestRowsWrittenTotal     prometheus.Counter
	ingestRowsRejectedTotal    prometheus.Counter
	ingestStageErrorsTotal     *prometheus.CounterVec
	ingestCycleDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		ingestCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_cycles_total",
				Help: "Total number of ingestion cycles, labeled by outcome.",
			},
			[]string{"status"},
		)

		ingestRowsFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_rows_fetched_total",
				Help: "Total number of raw match records fetched from upstream.",
			},
		)

		ingestRowsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_rows_written_total",
				Help: "Total number of match rows upserted into the store.",
			},
		)

		ingestRowsRejectedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_rows_rejected_total",
				Help: "Total number of raw records rejected during normalization.",
			},
		)

		ingestStageErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_stage_errors_total",
				Help: "Total number of handled stage failures, labeled by stage and kind.",
			},
			[]string{"stage", "kind"},
		)

		ingestCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_cycle_duration_seconds",
				Help:    "Histogram of full fetch-normalize-upsert cycle latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)
	})
}

// ObserveCycle records one completed cycle with its outcome and duration.
func ObserveCycle(status string, d time.Duration) {
	if ingestCyclesTotal == nil {
		return
	}
	ingestCyclesTotal.WithLabelValues(status).Inc()
	ingestCycleDurationSeconds.Observe(d.Seconds())
}

// AddRowsFetched increments the fetched-record counter.
func AddRowsFetched(n int) {
	if ingestRowsFetchedTotal == nil || n <= 0 {
		return
	}
	ingestRowsFetchedTotal.Add(float64(n))
}

// AddRowsWritten increments the written-row counter.
func AddRowsWritten(n int) {
	if ingestRowsWrittenTotal == nil || n <= 0 {
		return
	}
	ingestRowsWrittenTotal.Add(float64(n))
}

// AddRowsRejected increments the rejected-record counter.
func AddRowsRejected(n int) {
	if ingestRowsRejectedTotal == nil || n <= 0 {
		return
	}
	ingestRowsRejectedTotal.Add(float64(n))
}

// IncStageError records one handled failure for a pipeline stage.
func IncStageError(stage, kind string) {
	if ingestStageErrorsTotal == nil {
		return
	}
	ingestStageErrorsTotal.WithLabelValues(stage, kind).Inc()
}
