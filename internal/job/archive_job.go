package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	archiveInterval = 30 * time.Minute
	retentionPeriod = 90 * 24 * time.Hour
	// Archiving the full universe would burn the rate budget the signal
	// cycles need, so only the head of the pair list is persisted.
	maxArchiveSymbols = 20
)

// Archiver persists candle history and enforces retention.
type Archiver interface {
	ArchiveCandles(ctx context.Context, symbols []string, timeframe string, limit int) error
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// PairLister yields the enumerated pair universe.
type PairLister interface {
	Pairs(ctx context.Context) []string
}

// ArchiveJob periodically persists candle history for the leading pairs
// and prunes rows past the retention window.
type ArchiveJob struct {
	tracer      trace.Tracer
	archiver    Archiver
	pairs       PairLister
	timeframes  []string
	candleLimit int
}

func NewArchiveJob(tracer trace.Tracer, archiver Archiver, pairs PairLister, timeframes []string, candleLimit int) *ArchiveJob {
	return &ArchiveJob{
		tracer:      tracer,
		archiver:    archiver,
		pairs:       pairs,
		timeframes:  timeframes,
		candleLimit: candleLimit,
	}
}

// Start blocks until ctx is cancelled.
func (j *ArchiveJob) Start(ctx context.Context) {
	log.Println("Archive job starting...")

	j.runPass(ctx)

	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Archive job stopped")
			return
		case <-ticker.C:
			j.runPass(ctx)
		}
	}
}

func (j *ArchiveJob) runPass(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "archive-job.run-pass")
	defer span.End()

	symbols := j.pairs.Pairs(ctx)
	if len(symbols) > maxArchiveSymbols {
		symbols = symbols[:maxArchiveSymbols]
	}

	for _, timeframe := range j.timeframes {
		if ctx.Err() != nil {
			return
		}
		if err := j.archiver.ArchiveCandles(ctx, symbols, timeframe, j.candleLimit); err != nil {
			log.Printf("archive pass failed for %s: %v", timeframe, err)
		}
	}

	pruned, err := j.archiver.PruneHistory(ctx, timeNow().Add(-retentionPeriod))
	if err != nil {
		log.Printf("history prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Pruned %d archived candles", pruned)
	}
}
