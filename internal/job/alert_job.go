package job

import (
	"context"
	"log"
	"time"

	"momentum-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var timeNow = time.Now

// PriceSource serves the latest per-symbol price statistics.
type PriceSource interface {
	Prices(ctx context.Context) (map[string]domain.PriceSnapshot, error)
}

// TickEvaluator applies the alert tiers to one tick's prices.
type TickEvaluator interface {
	EvaluateTick(ctx context.Context, now time.Time, prices map[string]domain.PriceSnapshot) []domain.AlertDecision
}

// AlertJob polls prices and runs the alert tiers against them. Decisions
// are ephemeral: anything worth saying goes straight to the notifier.
type AlertJob struct {
	tracer       trace.Tracer
	market       PriceSource
	evaluator    TickEvaluator
	notifier     Notifier
	pollInterval time.Duration
}

func NewAlertJob(tracer trace.Tracer, market PriceSource, evaluator TickEvaluator, notifier Notifier, pollIntervalSecs int) *AlertJob {
	return &AlertJob{
		tracer:       tracer,
		market:       market,
		evaluator:    evaluator,
		notifier:     notifier,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (j *AlertJob) Start(ctx context.Context) {
	log.Println("Alert job starting...")

	j.runTick(ctx)

	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Alert job stopped")
			return
		case <-ticker.C:
			j.runTick(ctx)
		}
	}
}

func (j *AlertJob) runTick(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "alert-job.run-tick")
	defer span.End()

	prices, err := j.market.Prices(ctx)
	if err != nil {
		log.Printf("alert tick price fetch failed: %v", err)
		return
	}

	decisions := j.evaluator.EvaluateTick(ctx, timeNow(), prices)
	if len(decisions) == 0 {
		return
	}
	j.notifier.NotifyAlerts(decisions)
}
