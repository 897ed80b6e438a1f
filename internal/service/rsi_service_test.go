package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"momentum-radar/internal/batch"
	"momentum-radar/internal/domain"
	"momentum-radar/internal/signal"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func newTestRSIService(pairSource PairSource, runner BatchRunner, store SnapshotStore) *RSIService {
	return NewRSIService(
		testTracer,
		pairSource,
		runner,
		signal.NewClassifier(nil, 30, 70),
		store,
		"USDT",
		14,
		100,
		time.Minute,
	)
}

func TestRSIService_GetReportReusesFreshSnapshot(t *testing.T) {
	t.Parallel()

	store := &mockSnapshotStore{
		snap: domain.NewRSISnapshot("1h", time.Now().Add(-time.Minute), map[string]float64{
			"BTCUSDT": 75.0,
		}),
	}
	runner := &mockRunner{}
	svc := newTestRSIService(&mockPairSource{}, runner, store)

	report, err := svc.GetReport(context.Background(), "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("fresh snapshot should not trigger a recompute, got %d runs", runner.calls)
	}
	if len(report.Groups) != 1 || report.Groups[0].Category.Name != "Overbought" {
		t.Fatalf("unexpected groups: %+v", report.Groups)
	}
}

func TestRSIService_GetReportRecomputesWhenStale(t *testing.T) {
	t.Parallel()

	store := &mockSnapshotStore{
		snap: domain.NewRSISnapshot("1h", time.Now().Add(-10*time.Minute), map[string]float64{
			"OLDUSDT": 80.0,
		}),
	}
	runner := &mockRunner{values: map[string]float64{
		"BTCUSDT": 75.0,
		"ETHUSDT": 50.0,
		"ADAUSDT": 25.0,
	}}
	pairSource := &mockPairSource{pairs: []domain.TradingPair{
		{Symbol: "BTCUSDT", Active: true},
		{Symbol: "ETHUSDT", Active: true},
		{Symbol: "ADAUSDT", Active: true},
	}}
	svc := newTestRSIService(pairSource, runner, store)

	report, err := svc.GetReport(context.Background(), "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("stale snapshot should recompute once, got %d", runner.calls)
	}
	if len(report.Groups) != 2 {
		t.Fatalf("expected overbought and oversold groups, got %+v", report.Groups)
	}

	// Only values outside the notable band are persisted.
	if len(store.saved) != 1 {
		t.Fatalf("expected one snapshot write, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if len(saved.Values) != 2 {
		t.Fatalf("expected 2 notable values persisted, got %v", saved.Values)
	}
	if _, ok := saved.Values["ETHUSDT"]; ok {
		t.Fatal("mid-band value should not be persisted")
	}
}

func TestRSIService_ComputeRunnerError(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{err: context.DeadlineExceeded}
	store := &mockSnapshotStore{}
	pairSource := &mockPairSource{pairs: []domain.TradingPair{{Symbol: "BTCUSDT", Active: true}}}
	svc := newTestRSIService(pairSource, runner, store)

	_, err := svc.Compute(context.Background(), "4h")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("failed cycle must not persist a snapshot")
	}
}

func TestRSIService_ComputeSetsDeadline(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{values: map[string]float64{"BTCUSDT": 80}}
	pairSource := &mockPairSource{pairs: []domain.TradingPair{{Symbol: "BTCUSDT", Active: true}}}
	svc := newTestRSIService(pairSource, runner, &mockSnapshotStore{})

	if _, err := svc.Compute(context.Background(), "1h"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !runner.hadDeadline {
		t.Fatal("cycle context should carry a deadline")
	}
}

func TestRSIService_PairsEnumeratedOnce(t *testing.T) {
	t.Parallel()

	pairSource := &mockPairSource{pairs: []domain.TradingPair{
		{Symbol: "BTCUSDT", Active: true},
		{Symbol: "DELISTED", Active: false},
	}}
	runner := &mockRunner{values: map[string]float64{"BTCUSDT": 80}}
	svc := newTestRSIService(pairSource, runner, &mockSnapshotStore{})

	for i := 0; i < 3; i++ {
		if _, err := svc.Compute(context.Background(), "1h"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if pairSource.calls != 1 {
		t.Fatalf("expected one enumeration, got %d", pairSource.calls)
	}
	if len(runner.lastTask.Pairs) != 1 || runner.lastTask.Pairs[0] != "BTCUSDT" {
		t.Fatalf("inactive pairs should be excluded: %v", runner.lastTask.Pairs)
	}
}

func TestRSIService_ComputeEmptyUniverse(t *testing.T) {
	t.Parallel()

	svc := newTestRSIService(&mockPairSource{}, &mockRunner{}, &mockSnapshotStore{})
	if _, err := svc.Compute(context.Background(), "1h"); err == nil {
		t.Fatal("expected error for empty universe")
	}
}

type mockPairSource struct {
	pairs []domain.TradingPair
	calls int
}

func (m *mockPairSource) ListActivePairs(ctx context.Context, quote string) []domain.TradingPair {
	m.calls++
	return m.pairs
}

type mockRunner struct {
	values map[string]float64
	err    error

	calls       int
	lastTask    batch.Task
	hadDeadline bool
}

func (m *mockRunner) Run(ctx context.Context, task batch.Task) (map[string]float64, error) {
	m.calls++
	m.lastTask = task
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return m.values, nil
}

type mockSnapshotStore struct {
	snap   domain.RSISnapshot
	getErr error

	saved   []domain.RSISnapshot
	saveErr error
}

func (m *mockSnapshotStore) GetSnapshot(ctx context.Context, timeframe string) (domain.RSISnapshot, error) {
	if m.getErr != nil {
		return domain.RSISnapshot{Timeframe: timeframe}, m.getErr
	}
	return m.snap, nil
}

func (m *mockSnapshotStore) SaveSnapshot(ctx context.Context, snap domain.RSISnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snap)
	return nil
}
