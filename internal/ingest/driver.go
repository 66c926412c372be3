package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crickstream/cricket-ingest/internal/metrics"
)

// RunnerConfig controls the cycle loop.
type RunnerConfig struct {
	// Interval between cycle starts. A cycle that outlasts the interval
	// simply defers the next tick; cycles never overlap.
	Interval time.Duration
}

// Runner drives the fetch-normalize-upsert loop on a fixed interval.
// Every stage failure is caught here, logged with the cycle's correlation
// id, and swallowed; a bad cycle never stops the next one.
type Runner struct {
	fetcher    Fetcher
	normalizer *Normalizer
	store      Store
	archiver   Archiver
	clock      Clock
	ids        IDGenerator
	interval   time.Duration
	logger     *zap.Logger
}

// NewRunner constructs a Runner. The archiver may be nil.
func NewRunner(
	fetcher Fetcher,
	normalizer *Normalizer,
	store Store,
	archiver Archiver,
	clock Clock,
	ids IDGenerator,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		archiver:   archiver,
		clock:      clock,
		ids:        ids,
		interval:   interval,
		logger:     logger,
	}
}

// Run executes one cycle immediately and then one per tick until the
// context is cancelled. An in-flight cycle finishes before Run returns.
func (r *Runner) Run(ctx context.Context) {
	r.runCycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ingestion loop stopped")
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	cycleID, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("cycle id generation failed", zap.Error(err))
	}
	logger := r.logger.With(zap.String("cycle_id", cycleID))
	start := r.clock.Now()
	logger.Info("cycle started")

	result, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.failCycle(logger, start, "fetch", err)
		return
	}
	logger.Debug("fetch completed", zap.Int("records", len(result.Records)))
	metrics.AddRowsFetched(len(result.Records))

	if r.archiver != nil && len(result.Body) > 0 {
		if err := r.archiver.Archive(ctx, cycleID, result.Body); err != nil {
			logger.Warn("raw payload archive failed", zap.Error(err))
		}
	}

	rows, rejects := r.normalizer.NormalizeBatch(result.Records)
	for _, rej := range rejects {
		logger.Warn("record rejected", zap.String("stage", "normalize"), zap.Error(rej))
	}
	metrics.AddRowsRejected(len(rejects))

	written := 0
	if len(rows) > 0 {
		written, err = r.store.UpsertBatch(ctx, rows)
		if err != nil {
			r.failCycle(logger, start, "store", err)
			return
		}
		metrics.AddRowsWritten(written)
	}

	elapsed := r.clock.Now().Sub(start)
	metrics.ObserveCycle("ok", elapsed)
	logger.Info("cycle completed",
		zap.Int("fetched", len(result.Records)),
		zap.Int("rejected", len(rejects)),
		zap.Int("written", written),
		zap.Duration("elapsed", elapsed),
	)
}

// failCycle logs a handled stage failure and records it in metrics. The
// process keeps running; the next tick starts a fresh cycle.
func (r *Runner) failCycle(logger *zap.Logger, start time.Time, stage string, err error) {
	kind := errorKind(err)
	metrics.IncStageError(stage, kind)
	metrics.ObserveCycle("error", r.clock.Now().Sub(start))
	logger.Error("cycle failed",
		zap.String("stage", stage),
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// errorKind extracts the taxonomy kind from a stage error for logging and
// metric labels.
func errorKind(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	var ne *NormalizeError
	if errors.As(err, &ne) {
		return string(ne.Kind)
	}
	var se *StoreError
	if errors.As(err, &se) {
		return string(se.Kind)
	}
	return "unknown"
}
