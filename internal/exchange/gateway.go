package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"momentum-radar/internal/domain"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"
)

const defaultBaseURL = "https://api.binance.com"

const enumerationTries = 3

// enumerationBackoff is the initial retry interval; tests shrink it.
var enumerationBackoff = 2 * time.Second

// Gateway is a rate-limited connection to the exchange's public market
// data API. Each Gateway owns its limiter state; batch workers construct
// their own instance instead of sharing one.
type Gateway struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewGateway creates a gateway limited to 60 requests per minute.
// baseURL may be empty to use the production endpoint.
func NewGateway(tracer trace.Tracer, baseURL string) *Gateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Gateway{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(60, time.Minute),
	}
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// ListActivePairs enumerates all markets quoted in the given asset and
// currently trading. Enumeration is retried up to 3 times with
// exponential backoff (2s base, doubling); on exhaustion it degrades to
// an empty universe and logs the failure. Callers must tolerate an
// empty result.
func (g *Gateway) ListActivePairs(ctx context.Context, quote string) []domain.TradingPair {
	_, span := g.tracer.Start(ctx, "exchange.list-active-pairs")
	defer span.End()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = enumerationBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	pairs, err := backoff.Retry(ctx, func() ([]domain.TradingPair, error) {
		pairs, err := g.fetchPairs(ctx, quote)
		if err != nil && !IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return pairs, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(enumerationTries))
	if err != nil {
		log.Printf("exchange: pair enumeration failed after %d attempts: %v", enumerationTries, err)
		return nil
	}
	return pairs
}

func (g *Gateway) fetchPairs(ctx context.Context, quote string) ([]domain.TradingPair, error) {
	body, err := g.doRequest(ctx, g.baseURL+"/api/v3/exchangeInfo")
	if err != nil {
		return nil, err
	}

	var info exchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &MalformedDataError{Op: "parse exchangeInfo", Err: err}
	}

	var pairs []domain.TradingPair
	for _, s := range info.Symbols {
		if s.QuoteAsset != quote || s.Status != "TRADING" {
			continue
		}
		pairs = append(pairs, domain.TradingPair{Symbol: s.Symbol, Active: true})
	}
	return pairs, nil
}

// FetchOHLCV fetches up to limit candles for one pair and timeframe in a
// single call. Errors are returned, not raised further: batch callers
// skip the pair and continue.
func (g *Gateway) FetchOHLCV(ctx context.Context, pair, timeframe string, limit int) ([]domain.Candle, error) {
	_, span := g.tracer.Start(ctx, "exchange.fetch-ohlcv")
	defer span.End()

	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	body, err := g.doRequest(ctx, g.baseURL+"/api/v3/klines?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &MalformedDataError{Op: "parse klines for " + pair, Err: err}
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseKline(pair, timeframe, row)
		if err != nil {
			return nil, &MalformedDataError{Op: "parse kline row for " + pair, Err: err}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// FetchDailyStats returns the 24h ticker for every market, used as the
// market snapshot feed for price-change alerting. The ticker endpoint only
// carries a 24h change, so that is the only horizon marked on the
// snapshots; longer and shorter horizons are derived from candles upstream.
func (g *Gateway) FetchDailyStats(ctx context.Context) (map[string]domain.PriceSnapshot, error) {
	_, span := g.tracer.Start(ctx, "exchange.fetch-daily-stats")
	defer span.End()

	body, err := g.doRequest(ctx, g.baseURL+"/api/v3/ticker/24hr")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &MalformedDataError{Op: "parse 24h tickers", Err: err}
	}

	now := time.Now().Unix()
	out := make(map[string]domain.PriceSnapshot, len(rows))
	for _, row := range rows {
		price, err1 := strconv.ParseFloat(row.LastPrice, 64)
		change, err2 := strconv.ParseFloat(row.PriceChangePercent, 64)
		volume, err3 := strconv.ParseFloat(row.QuoteVolume, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out[row.Symbol] = domain.PriceSnapshot{
			Symbol:          row.Symbol,
			PriceUSD:        price,
			ChangePct:       map[string]float64{"24h": change},
			Volume24h:       volume,
			LastUpdatedUnix: now,
		}
	}
	return out, nil
}

func (g *Gateway) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Op: "rate limit wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &MalformedDataError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "exchange request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		respErr := fmt.Errorf("exchange API error %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &TransientError{Op: "exchange response", Err: respErr}
		}
		return nil, &MalformedDataError{Op: "exchange response", Err: respErr}
	}

	return io.ReadAll(resp.Body)
}

// parseKline converts one Binance kline row:
// [openTime, open, high, low, close, volume, closeTime, ...]
// with prices encoded as strings.
func parseKline(pair, timeframe string, row []any) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}
	openMs, ok := row[0].(float64)
	if !ok {
		return domain.Candle{}, fmt.Errorf("kline open time is %T", row[0])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return domain.Candle{}, fmt.Errorf("kline field %d is %T", i, row[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		vals[i-1] = v
	}

	return domain.Candle{
		Symbol:    pair,
		Timeframe: timeframe,
		OpenTime:  time.UnixMilli(int64(openMs)).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
