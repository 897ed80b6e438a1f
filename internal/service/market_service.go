package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"momentum-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	statsCacheKey = "market:daily-stats"
	statsCacheTTL = 90 * time.Second

	// The 24h ticker only carries a 24h change; the 1h/7d/30d horizons
	// are derived from candles for the highest-volume markets so the
	// longer alert tiers have data to evaluate.
	enrichSymbolCap = 20
	dailyWindow     = 31 // 30 daily moves need 31 closes
)

// StatsProvider fetches the exchange's rolling 24h ticker statistics.
type StatsProvider interface {
	FetchDailyStats(ctx context.Context) (map[string]domain.PriceSnapshot, error)
}

// CandleRepository archives and serves OHLCV history.
type CandleRepository interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error)
	UpsertCandles(ctx context.Context, candles []domain.Candle) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CandleSource yields live candles when the archive has none.
type CandleSource interface {
	GetOrFetch(ctx context.Context, pair, timeframe string, limit int, useCache bool) ([]domain.Candle, error)
}

// RedisClient is the slice of the redis API the service needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketService serves price statistics and candle history. Stats are
// cached briefly in Redis so the alert loop and HTTP surface share one
// upstream call.
type MarketService struct {
	tracer trace.Tracer
	stats  StatsProvider
	source CandleSource
	repo   CandleRepository
	redis  RedisClient
}

func NewMarketService(
	tracer trace.Tracer,
	stats StatsProvider,
	source CandleSource,
	repo CandleRepository,
	redisClient RedisClient,
) *MarketService {
	return &MarketService{
		tracer: tracer,
		stats:  stats,
		source: source,
		repo:   repo,
		redis:  redisClient,
	}
}

// Prices returns the latest per-symbol price statistics, served from the
// Redis cache when fresh.
func (s *MarketService) Prices(ctx context.Context) (map[string]domain.PriceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.prices")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getStatsCache(ctx)
		if err != nil {
			log.Printf("stats cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	prices, err := s.stats.FetchDailyStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch daily stats: %w", err)
	}
	s.deriveChanges(ctx, prices)

	if s.redis != nil {
		if err := s.setStatsCache(ctx, prices); err != nil {
			log.Printf("stats cache write error: %v", err)
		}
	}
	return prices, nil
}

// GetCandles serves candles from the archive, falling back to a live
// fetch when the archive is empty or disabled.
func (s *MarketService) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-candles")
	defer span.End()

	if s.repo != nil {
		candles, err := s.repo.GetCandles(ctx, symbol, timeframe, limit)
		if err != nil {
			return nil, err
		}
		if len(candles) > 0 {
			return candles, nil
		}
	}
	return s.source.GetOrFetch(ctx, symbol, timeframe, limit, true)
}

// ArchiveCandles fetches and upserts history for the given symbols. A
// failing symbol is logged and skipped.
func (s *MarketService) ArchiveCandles(ctx context.Context, symbols []string, timeframe string, limit int) error {
	ctx, span := s.tracer.Start(ctx, "market-service.archive-candles")
	defer span.End()

	if s.repo == nil {
		return nil
	}

	archived := 0
	for _, symbol := range symbols {
		candles, err := s.source.GetOrFetch(ctx, symbol, timeframe, limit, true)
		if err != nil {
			log.Printf("archive fetch failed for %s %s: %v", symbol, timeframe, err)
			continue
		}
		if err := s.repo.UpsertCandles(ctx, candles); err != nil {
			return fmt.Errorf("upsert candles for %s: %w", symbol, err)
		}
		archived += len(candles)
	}
	log.Printf("Archived %d candles for %d symbols (%s)", archived, len(symbols), timeframe)
	return nil
}

// PruneHistory removes archived candles older than cutoff.
func (s *MarketService) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.prune-history")
	defer span.End()

	if s.repo == nil {
		return 0, nil
	}
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

// deriveChanges fills in the 1h, 7d and 30d percentage changes from
// candle closes for the top markets by quote volume. A symbol whose
// candles cannot be fetched keeps whatever horizons it already has.
func (s *MarketService) deriveChanges(ctx context.Context, prices map[string]domain.PriceSnapshot) {
	for _, symbol := range topByVolume(prices, enrichSymbolCap) {
		snap := prices[symbol]

		hourly, err := s.source.GetOrFetch(ctx, symbol, "1h", 2, true)
		if err != nil {
			log.Printf("hourly change fetch failed for %s: %v", symbol, err)
		} else if pct, ok := changeOverWindow(hourly, 1); ok {
			snap.SetChange("1h", pct)
		}

		daily, err := s.source.GetOrFetch(ctx, symbol, "1d", dailyWindow, true)
		if err != nil {
			log.Printf("daily change fetch failed for %s: %v", symbol, err)
		} else {
			if pct, ok := changeOverWindow(daily, 7); ok {
				snap.SetChange("7d", pct)
			}
			if pct, ok := changeOverWindow(daily, 30); ok {
				snap.SetChange("30d", pct)
			}
		}

		prices[symbol] = snap
	}
}

// topByVolume returns up to n symbols ordered by descending 24h quote
// volume, ties broken by symbol.
func topByVolume(prices map[string]domain.PriceSnapshot, n int) []string {
	symbols := make([]string, 0, len(prices))
	for symbol := range prices {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool {
		vi, vj := prices[symbols[i]].Volume24h, prices[symbols[j]].Volume24h
		if vi != vj {
			return vi > vj
		}
		return symbols[i] < symbols[j]
	})
	if len(symbols) > n {
		symbols = symbols[:n]
	}
	return symbols
}

// changeOverWindow computes the percentage move of the latest close
// against the close `periods` candles earlier. Candles are expected in
// ascending time order, as the exchange returns them.
func changeOverWindow(candles []domain.Candle, periods int) (float64, bool) {
	if len(candles) < periods+1 {
		return 0, false
	}
	base := candles[len(candles)-1-periods].Close
	if base == 0 {
		return 0, false
	}
	last := candles[len(candles)-1].Close
	return (last - base) / base * 100, true
}

func (s *MarketService) setStatsCache(ctx context.Context, prices map[string]domain.PriceSnapshot) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, statsCacheKey, data, statsCacheTTL).Err()
}

func (s *MarketService) getStatsCache(ctx context.Context) (map[string]domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, statsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var prices map[string]domain.PriceSnapshot
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}
