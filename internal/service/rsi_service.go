package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"momentum-radar/internal/batch"
	"momentum-radar/internal/domain"
	"momentum-radar/internal/signal"

	"go.opentelemetry.io/otel/trace"
)

var timeNow = time.Now

// PairSource enumerates the tradable universe.
type PairSource interface {
	ListActivePairs(ctx context.Context, quote string) []domain.TradingPair
}

// BatchRunner computes the latest RSI value per pair.
type BatchRunner interface {
	Run(ctx context.Context, task batch.Task) (map[string]float64, error)
}

// SnapshotStore persists per-timeframe computation records.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, timeframe string) (domain.RSISnapshot, error)
	SaveSnapshot(ctx context.Context, snap domain.RSISnapshot) error
}

// RSIService orchestrates one timeframe's signal cycle: gate on the
// persisted snapshot, fan the universe out to the batch runner, classify,
// and persist the notable values.
type RSIService struct {
	tracer     trace.Tracer
	pairSource PairSource
	runner     BatchRunner
	classifier *signal.Classifier
	store      SnapshotStore

	quoteAsset   string
	period       int
	candleLimit  int
	cycleTimeout time.Duration

	mu    sync.Mutex
	pairs []string
}

func NewRSIService(
	tracer trace.Tracer,
	pairSource PairSource,
	runner BatchRunner,
	classifier *signal.Classifier,
	store SnapshotStore,
	quoteAsset string,
	period, candleLimit int,
	cycleTimeout time.Duration,
) *RSIService {
	return &RSIService{
		tracer:       tracer,
		pairSource:   pairSource,
		runner:       runner,
		classifier:   classifier,
		store:        store,
		quoteAsset:   quoteAsset,
		period:       period,
		candleLimit:  candleLimit,
		cycleTimeout: cycleTimeout,
	}
}

// Pairs returns the pair universe, enumerating it on first use and
// reusing the result for the lifetime of the service.
func (s *RSIService) Pairs(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pairs == nil {
		for _, p := range s.pairSource.ListActivePairs(ctx, s.quoteAsset) {
			if p.Active {
				s.pairs = append(s.pairs, p.Symbol)
			}
		}
		log.Printf("Enumerated %d active %s pairs", len(s.pairs), s.quoteAsset)
	}
	return s.pairs
}

// GetReport returns the categorized RSI report for a timeframe. When the
// persisted snapshot is younger than the staleness window the stored
// values are reused; otherwise a full recomputation runs.
func (s *RSIService) GetReport(ctx context.Context, timeframe string) (domain.RSIReport, error) {
	ctx, span := s.tracer.Start(ctx, "rsi-service.get-report")
	defer span.End()

	snap, err := s.store.GetSnapshot(ctx, timeframe)
	if err != nil {
		log.Printf("snapshot read error for %s, recomputing: %v", timeframe, err)
	}
	if computedAt, ok := snap.ComputedAt(); ok && !signal.ShouldRecompute(timeNow(), snap) {
		return domain.RSIReport{
			Timeframe:  timeframe,
			ComputedAt: computedAt,
			Groups:     s.classifier.Classify(snap.Values),
		}, nil
	}

	return s.Compute(ctx, timeframe)
}

// Compute unconditionally recomputes a timeframe. The whole cycle runs
// under a hard deadline; on expiry partial results are discarded and the
// caller gets an error instead of an incomplete report.
func (s *RSIService) Compute(ctx context.Context, timeframe string) (domain.RSIReport, error) {
	ctx, span := s.tracer.Start(ctx, "rsi-service.compute")
	defer span.End()

	pairs := s.Pairs(ctx)
	if len(pairs) == 0 {
		return domain.RSIReport{}, fmt.Errorf("no active %s pairs available", s.quoteAsset)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	values, err := s.runner.Run(runCtx, batch.Task{
		Pairs:     pairs,
		Timeframe: timeframe,
		Period:    s.period,
		Limit:     s.candleLimit,
		UseCache:  true,
	})
	if err != nil {
		return domain.RSIReport{}, fmt.Errorf("rsi cycle for %s: %w", timeframe, err)
	}

	now := timeNow()
	notable := s.classifier.Notable(values)
	if err := s.store.SaveSnapshot(ctx, domain.NewRSISnapshot(timeframe, now, notable)); err != nil {
		log.Printf("snapshot write error for %s: %v", timeframe, err)
	}

	return domain.RSIReport{
		Timeframe:  timeframe,
		ComputedAt: now,
		Groups:     s.classifier.Classify(values),
	}, nil
}

// Snapshot exposes the raw persisted record for a timeframe.
func (s *RSIService) Snapshot(ctx context.Context, timeframe string) (domain.RSISnapshot, error) {
	_, span := s.tracer.Start(ctx, "rsi-service.snapshot")
	defer span.End()

	return s.store.GetSnapshot(ctx, timeframe)
}
