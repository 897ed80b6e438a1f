package alert

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"momentum-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// gatedTimeframes are the slow tiers that fire at most once per
// wall-clock hour; the 1h tier runs on every tick.
var gatedTimeframes = []string{"24h", "7d", "30d"}

// GateStore persists the "last hour evaluated" timestamp for the slow
// tiers. A single scheduler loop is the only writer.
type GateStore interface {
	LastAlertHour(ctx context.Context) (time.Time, error)
	SetLastAlertHour(ctx context.Context, hour time.Time) error
}

// Evaluator flags coins whose percentage price change crosses the
// configured per-timeframe threshold.
type Evaluator struct {
	tracer trace.Tracer
	tiers  map[string]domain.AlertTier
	gate   GateStore
}

func NewEvaluator(tracer trace.Tracer, tiers []domain.AlertTier, gate GateStore) *Evaluator {
	byTimeframe := make(map[string]domain.AlertTier, len(tiers))
	for _, t := range tiers {
		byTimeframe[t.Timeframe] = t
	}
	return &Evaluator{tracer: tracer, tiers: byTimeframe, gate: gate}
}

// Evaluate is the stateless single-pass check for one tier: every coin
// whose absolute change meets the threshold is accumulated.
func Evaluate(prices map[string]domain.PriceSnapshot, tier domain.AlertTier) domain.AlertDecision {
	decision := domain.AlertDecision{Timeframe: tier.Timeframe}
	for symbol, snap := range prices {
		change, ok := snap.ChangeFor(tier.Timeframe)
		if !ok {
			continue
		}
		if math.Abs(change) >= tier.ThresholdPct {
			decision.Hits = append(decision.Hits, domain.AlertHit{Symbol: symbol, ChangePct: change})
		}
	}
	sort.Slice(decision.Hits, func(i, j int) bool {
		a, b := decision.Hits[i], decision.Hits[j]
		if math.Abs(a.ChangePct) == math.Abs(b.ChangePct) {
			return a.Symbol < b.Symbol
		}
		return math.Abs(a.ChangePct) > math.Abs(b.ChangePct)
	})
	decision.Found = len(decision.Hits) > 0
	return decision
}

// EvaluateTick runs the 1h tier unconditionally and the slow tiers at
// most once per wall-clock hour, each only during its configured
// hours of day. The gate timestamp advances once per hour whether or
// not any tier fired, so a tier cannot re-notify within the same hour.
func (e *Evaluator) EvaluateTick(ctx context.Context, now time.Time, prices map[string]domain.PriceSnapshot) []domain.AlertDecision {
	_, span := e.tracer.Start(ctx, "alert.evaluate-tick")
	defer span.End()

	var decisions []domain.AlertDecision
	if tier, ok := e.tiers["1h"]; ok {
		if d := Evaluate(prices, tier); d.Found {
			decisions = append(decisions, d)
		}
	}

	hour := now.Truncate(time.Hour)
	last, err := e.gate.LastAlertHour(ctx)
	if err != nil {
		// Unreadable gate state degrades to "evaluate now".
		log.Printf("alert: gate read failed, evaluating anyway: %v", err)
	} else if !hour.After(last) {
		return decisions
	}
	if err := e.gate.SetLastAlertHour(ctx, hour); err != nil {
		log.Printf("alert: gate update failed: %v", err)
	}

	for _, timeframe := range gatedTimeframes {
		tier, ok := e.tiers[timeframe]
		if !ok || !tier.EligibleAt(now.Hour()) {
			continue
		}
		if d := Evaluate(prices, tier); d.Found {
			decisions = append(decisions, d)
		}
	}
	return decisions
}
