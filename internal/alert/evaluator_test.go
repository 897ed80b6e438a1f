package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"momentum-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeGate struct {
	last    time.Time
	readErr error
	sets    int
}

func (f *fakeGate) LastAlertHour(ctx context.Context) (time.Time, error) {
	if f.readErr != nil {
		return time.Time{}, f.readErr
	}
	return f.last, nil
}

func (f *fakeGate) SetLastAlertHour(ctx context.Context, hour time.Time) error {
	f.sets++
	f.last = hour
	return nil
}

func TestEvaluateFlagsThresholdCrossers(t *testing.T) {
	t.Parallel()

	prices := map[string]domain.PriceSnapshot{
		"BTC": {Symbol: "BTC", ChangePct: map[string]float64{"24h": 6.0}},
		"ETH": {Symbol: "ETH", ChangePct: map[string]float64{"24h": -3.0}},
	}
	decision := Evaluate(prices, domain.AlertTier{Timeframe: "24h", ThresholdPct: 5})

	if !decision.Found {
		t.Fatal("expected alerts found")
	}
	if len(decision.Hits) != 1 || decision.Hits[0].Symbol != "BTC" {
		t.Fatalf("expected BTC only, got %+v", decision.Hits)
	}
}

func TestEvaluateUsesAbsoluteChange(t *testing.T) {
	t.Parallel()

	prices := map[string]domain.PriceSnapshot{
		"AAA": {Symbol: "AAA", ChangePct: map[string]float64{"24h": -8.0}},
		"BBB": {Symbol: "BBB", ChangePct: map[string]float64{"24h": 5.0}}, // >= threshold counts
		"CCC": {Symbol: "CCC", ChangePct: map[string]float64{"24h": 4.9}},
	}
	decision := Evaluate(prices, domain.AlertTier{Timeframe: "24h", ThresholdPct: 5})

	if len(decision.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", decision.Hits)
	}
	// Sorted by absolute change, largest first.
	if decision.Hits[0].Symbol != "AAA" || decision.Hits[1].Symbol != "BBB" {
		t.Fatalf("unexpected ordering: %+v", decision.Hits)
	}
}

func TestEvaluateSkipsUnsuppliedHorizons(t *testing.T) {
	t.Parallel()

	// Shape of a snapshot straight off the 24h ticker feed: a large move,
	// but only the 24h horizon supplied. The other tiers must not treat
	// the missing horizons as zero-change data.
	prices := map[string]domain.PriceSnapshot{
		"BTCUSDT": {
			Symbol:          "BTCUSDT",
			PriceUSD:        90000,
			Volume24h:       1e9,
			ChangePct:       map[string]float64{"24h": 50},
			LastUpdatedUnix: 1767225600,
		},
	}

	for _, tf := range []string{"1h", "7d", "30d"} {
		decision := Evaluate(prices, domain.AlertTier{Timeframe: tf, ThresholdPct: 5})
		if decision.Found || len(decision.Hits) != 0 {
			t.Fatalf("%s has no supplied change, got %+v", tf, decision)
		}
	}

	decision := Evaluate(prices, domain.AlertTier{Timeframe: "24h", ThresholdPct: 5})
	if !decision.Found || len(decision.Hits) != 1 {
		t.Fatalf("24h should fire, got %+v", decision)
	}
	if decision.Hits[0].Symbol != "BTCUSDT" || decision.Hits[0].ChangePct != 50 {
		t.Fatalf("unexpected hit: %+v", decision.Hits[0])
	}
}

func TestEvaluateEmptyResult(t *testing.T) {
	t.Parallel()

	decision := Evaluate(nil, domain.AlertTier{Timeframe: "7d", ThresholdPct: 10})
	if decision.Found || len(decision.Hits) != 0 {
		t.Fatalf("expected no alerts, got %+v", decision)
	}
}

func tickPrices() map[string]domain.PriceSnapshot {
	return map[string]domain.PriceSnapshot{
		"BTC": {Symbol: "BTC", ChangePct: map[string]float64{
			"1h": 3, "24h": 9, "7d": 20, "30d": 1,
		}},
	}
}

func tickTiers() []domain.AlertTier {
	return []domain.AlertTier{
		{Timeframe: "1h", ThresholdPct: 2},
		{Timeframe: "24h", ThresholdPct: 5, Hours: []int{12}},
		{Timeframe: "7d", ThresholdPct: 15, Hours: []int{9}},
		{Timeframe: "30d", ThresholdPct: 25, Hours: []int{12}},
	}
}

func TestEvaluateTickRunsHourlyTierEveryTick(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	gate := &fakeGate{last: now.Truncate(time.Hour)} // slow tiers already ran this hour

	e := NewEvaluator(testTracer, tickTiers(), gate)
	decisions := e.EvaluateTick(context.Background(), now, tickPrices())

	if len(decisions) != 1 || decisions[0].Timeframe != "1h" {
		t.Fatalf("expected only 1h decision, got %+v", decisions)
	}
	if gate.sets != 0 {
		t.Fatal("gate must not advance twice within the same hour")
	}
}

func TestEvaluateTickGatedTiersHonorEligibleHours(t *testing.T) {
	t.Parallel()

	// 12:00 is eligible for 24h and 30d, not 7d.
	now := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	gate := &fakeGate{last: now.Add(-2 * time.Hour).Truncate(time.Hour)}

	e := NewEvaluator(testTracer, tickTiers(), gate)
	decisions := e.EvaluateTick(context.Background(), now, tickPrices())

	// 1h fires (3 >= 2), 24h fires (9 >= 5), 7d skipped by hour,
	// 30d eligible but below threshold (1 < 25).
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %+v", decisions)
	}
	if decisions[0].Timeframe != "1h" || decisions[1].Timeframe != "24h" {
		t.Fatalf("unexpected tiers: %+v", decisions)
	}
}

func TestEvaluateTickAdvancesGateUnconditionally(t *testing.T) {
	t.Parallel()

	// 3:00 is eligible for nothing in tickTiers.
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	gate := &fakeGate{}

	e := NewEvaluator(testTracer, tickTiers(), gate)
	_ = e.EvaluateTick(context.Background(), now, map[string]domain.PriceSnapshot{})

	if gate.sets != 1 {
		t.Fatalf("gate must advance once per hour regardless of firing, got %d", gate.sets)
	}
	if !gate.last.Equal(now.Truncate(time.Hour)) {
		t.Fatalf("unexpected gate hour: %v", gate.last)
	}
}

func TestEvaluateTickGateReadFailureEvaluates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate := &fakeGate{readErr: errors.New("redis down")}

	e := NewEvaluator(testTracer, tickTiers(), gate)
	decisions := e.EvaluateTick(context.Background(), now, tickPrices())

	found := map[string]bool{}
	for _, d := range decisions {
		found[d.Timeframe] = true
	}
	if !found["24h"] {
		t.Fatalf("unreadable gate should degrade to evaluating, got %+v", decisions)
	}
}
