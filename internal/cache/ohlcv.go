package cache

import (
	"context"
	"sync"
	"time"

	"momentum-radar/internal/domain"
)

const (
	intradayValidity = 600 * time.Second
	defaultValidity  = 3600 * time.Second
)

// CandleFetcher is the network-facing source behind the cache.
type CandleFetcher interface {
	FetchOHLCV(ctx context.Context, pair, timeframe string, limit int) ([]domain.Candle, error)
}

type ohlcvKey struct {
	pair      string
	timeframe string
	limit     int
}

type ohlcvEntry struct {
	candles   []domain.Candle
	fetchedAt time.Time
}

// OHLCVCache avoids refetching identical (pair, timeframe, limit)
// requests within a validity window. The cache is process-local; batch
// workers each hold their own.
type OHLCVCache struct {
	mu          sync.Mutex
	fetcher     CandleFetcher
	entries     map[ohlcvKey]ohlcvEntry
	lastCleared time.Time

	now func() time.Time
}

func NewOHLCVCache(fetcher CandleFetcher) *OHLCVCache {
	return &OHLCVCache{
		fetcher:     fetcher,
		entries:     make(map[ohlcvKey]ohlcvEntry),
		lastCleared: time.Now(),
		now:         time.Now,
	}
}

// GetOrFetch returns cached candles when useCache is set and the entry
// is still valid, otherwise fetches through the gateway. Successful
// fetches are cached even when empty; a failed fetch is not cached, so
// the next call retries the network.
func (c *OHLCVCache) GetOrFetch(ctx context.Context, pair, timeframe string, limit int, useCache bool) ([]domain.Candle, error) {
	now := c.now()
	key := ohlcvKey{pair: pair, timeframe: timeframe, limit: limit}

	c.mu.Lock()
	c.clearOnHourRollover(now)
	if useCache {
		if e, ok := c.entries[key]; ok && now.Sub(e.fetchedAt) < validityWindow(timeframe) {
			c.mu.Unlock()
			return e.candles, nil
		}
	}
	c.mu.Unlock()

	candles, err := c.fetcher.FetchOHLCV(ctx, pair, timeframe, limit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = ohlcvEntry{candles: candles, fetchedAt: now}
	c.mu.Unlock()
	return candles, nil
}

// clearOnHourRollover drops every entry once per wall-clock hour,
// bounding growth from an ever-changing pair universe. Caller holds mu.
func (c *OHLCVCache) clearOnHourRollover(now time.Time) {
	if !now.Truncate(time.Hour).After(c.lastCleared.Truncate(time.Hour)) {
		return
	}
	c.entries = make(map[ohlcvKey]ohlcvEntry)
	c.lastCleared = now
}

func validityWindow(timeframe string) time.Duration {
	if domain.IsIntradayTimeframe(timeframe) {
		return intradayValidity
	}
	return defaultValidity
}
