package batch

import (
	"context"
	"log"
	"runtime"
	"time"

	"momentum-radar/internal/domain"
	"momentum-radar/internal/ta"

	"go.opentelemetry.io/otel/trace"
)

const (
	minWorkers   = 2
	maxWorkers   = 8
	minChunkSize = 5
	// Below this many pairs the fan-out overhead is not worth it.
	smallUniverse = 10
)

// pairDelay spaces successive per-pair fetches inside one worker to
// respect exchange rate limits.
var pairDelay = 200 * time.Millisecond

var numCPU = runtime.NumCPU

// CandleSource yields candles for one pair; in production this is an
// OHLCV cache wrapping a gateway.
type CandleSource interface {
	GetOrFetch(ctx context.Context, pair, timeframe string, limit int, useCache bool) ([]domain.Candle, error)
}

// SourceFactory builds a fresh CandleSource per worker, so every worker
// owns its own gateway connection and rate-limiter state.
type SourceFactory func() CandleSource

// Task is the explicit description of one worker's unit of work.
type Task struct {
	Pairs     []string
	Timeframe string
	Period    int
	Limit     int
	UseCache  bool
}

// Runner computes RSI for a pair universe by fanning contiguous chunks
// out to workers and merging their results.
type Runner struct {
	tracer    trace.Tracer
	newSource SourceFactory
}

func NewRunner(tracer trace.Tracer, newSource SourceFactory) *Runner {
	return &Runner{tracer: tracer, newSource: newSource}
}

// Run computes the latest RSI for every pair for which enough data is
// available. Each computable pair appears exactly once in the result;
// ordering of the merged map is undefined. On context cancellation the
// partial results are dropped and ctx.Err is returned.
func (r *Runner) Run(ctx context.Context, task Task) (map[string]float64, error) {
	ctx, span := r.tracer.Start(ctx, "batch.run")
	defer span.End()

	if len(task.Pairs) == 0 {
		return map[string]float64{}, nil
	}

	workers := workerCount(len(task.Pairs))
	chunks := partition(task.Pairs, chunkSize(len(task.Pairs), workers))

	results := make(chan []domain.RSIResult, len(chunks))
	for _, chunk := range chunks {
		chunkTask := task
		chunkTask.Pairs = chunk
		go func() {
			results <- r.runChunk(ctx, chunkTask)
		}()
	}

	merged := make(map[string]float64, len(task.Pairs))
	for range chunks {
		for _, res := range <-results {
			merged[res.Pair] = res.Value
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merged, nil
}

// runChunk walks its pairs sequentially with a fixed delay between
// fetches. A failing pair is skipped, never aborting the chunk.
func (r *Runner) runChunk(ctx context.Context, task Task) []domain.RSIResult {
	source := r.newSource()
	out := make([]domain.RSIResult, 0, len(task.Pairs))

	for i, pair := range task.Pairs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(pairDelay):
			}
		}
		if ctx.Err() != nil {
			return out
		}

		candles, err := source.GetOrFetch(ctx, pair, task.Timeframe, task.Limit, task.UseCache)
		if err != nil {
			log.Printf("batch: skipping %s %s: %v", pair, task.Timeframe, err)
			continue
		}
		value, ok := ta.RSI(domain.Closes(candles), task.Period)
		if !ok {
			continue
		}
		out = append(out, domain.RSIResult{Pair: pair, Value: value})
	}
	return out
}

// workerCount clamps to the CPU budget, forcing a single worker for
// small universes.
func workerCount(totalPairs int) int {
	if totalPairs < smallUniverse {
		return 1
	}
	n := numCPU() - 1
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

func chunkSize(totalPairs, workers int) int {
	size := totalPairs / workers
	if size < minChunkSize {
		size = minChunkSize
	}
	return size
}

// partition splits pairs into contiguous chunks of at most size.
func partition(pairs []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(pairs); start += size {
		end := start + size
		if end > len(pairs) {
			end = len(pairs)
		}
		chunks = append(chunks, pairs[start:end])
	}
	return chunks
}
