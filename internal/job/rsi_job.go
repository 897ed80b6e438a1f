package job

import (
	"context"
	"errors"
	"log"
	"time"

	"momentum-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// RSIReporter runs one timeframe's signal cycle.
type RSIReporter interface {
	GetReport(ctx context.Context, timeframe string) (domain.RSIReport, error)
}

// Notifier pushes cycle outcomes to the chats. Implementations must
// tolerate a nil receiver so an unconfigured bot degrades to silence.
type Notifier interface {
	NotifyReport(report domain.RSIReport)
	NotifyTimeout(timeframe string)
	NotifyAlerts(decisions []domain.AlertDecision)
}

// RSIJob drives the periodic signal cycles, one pass over every
// configured timeframe per tick.
type RSIJob struct {
	tracer       trace.Tracer
	reporter     RSIReporter
	notifier     Notifier
	timeframes   []string
	pollInterval time.Duration
}

func NewRSIJob(tracer trace.Tracer, reporter RSIReporter, notifier Notifier, timeframes []string, pollIntervalSecs int) *RSIJob {
	return &RSIJob{
		tracer:       tracer,
		reporter:     reporter,
		notifier:     notifier,
		timeframes:   timeframes,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start blocks until ctx is cancelled, running one pass immediately and
// then one per poll interval.
func (j *RSIJob) Start(ctx context.Context) {
	log.Println("RSI job starting...")

	j.runPass(ctx)

	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("RSI job stopped")
			return
		case <-ticker.C:
			j.runPass(ctx)
		}
	}
}

// runPass cycles every timeframe sequentially. A timed-out timeframe is
// reported to the chats and does not stop the pass.
func (j *RSIJob) runPass(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "rsi-job.run-pass")
	defer span.End()

	for _, timeframe := range j.timeframes {
		if ctx.Err() != nil {
			return
		}

		report, err := j.reporter.GetReport(ctx, timeframe)
		if err != nil {
			log.Printf("rsi cycle failed for %s: %v", timeframe, err)
			if errors.Is(err, context.DeadlineExceeded) {
				j.notifier.NotifyTimeout(timeframe)
			}
			continue
		}
		j.notifier.NotifyReport(report)
	}
}
