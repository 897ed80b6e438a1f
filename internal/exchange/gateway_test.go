package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func testGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGateway(testTracer, srv.URL)
}

func TestListActivePairsFilters(t *testing.T) {
	t.Parallel()

	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","quoteAsset":"USDT"},
			{"symbol":"ETHUSDT","status":"TRADING","quoteAsset":"USDT"},
			{"symbol":"OLDUSDT","status":"BREAK","quoteAsset":"USDT"},
			{"symbol":"BTCEUR","status":"TRADING","quoteAsset":"EUR"}
		]}`))
	})

	pairs := g.ListActivePairs(context.Background(), "USDT")
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
	for _, p := range pairs {
		if !p.Active {
			t.Fatalf("expected active pair, got %+v", p)
		}
	}
}

func TestListActivePairsRetriesThenEmpty(t *testing.T) {
	old := enumerationBackoff
	enumerationBackoff = time.Millisecond
	defer func() { enumerationBackoff = old }()

	attempts := 0
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	pairs := g.ListActivePairs(context.Background(), "USDT")
	if pairs != nil {
		t.Fatalf("expected empty universe, got %+v", pairs)
	}
	if attempts != enumerationTries {
		t.Fatalf("expected exactly %d attempts, got %d", enumerationTries, attempts)
	}
}

func TestListActivePairsMalformedIsNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`{"symbols": not-json`))
	})

	pairs := g.ListActivePairs(context.Background(), "USDT")
	if pairs != nil {
		t.Fatalf("expected empty universe, got %+v", pairs)
	}
	if attempts != 1 {
		t.Fatalf("malformed payload should not be retried, got %d attempts", attempts)
	}
}

func TestFetchOHLCV(t *testing.T) {
	t.Parallel()

	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("unexpected symbol %s", got)
		}
		if got := r.URL.Query().Get("interval"); got != "1h" {
			t.Errorf("unexpected interval %s", got)
		}
		w.Write([]byte(`[
			[1700000000000,"100.0","110.0","90.0","105.0","5000.0",1700003599999],
			[1700003600000,"105.0","120.0","104.0","118.0","6000.0",1700007199999]
		]`))
	})

	candles, err := g.FetchOHLCV(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 100 || first.High != 110 || first.Low != 90 || first.Close != 105 || first.Volume != 5000 {
		t.Fatalf("unexpected candle: %+v", first)
	}
	if first.Symbol != "BTCUSDT" || first.Timeframe != "1h" {
		t.Fatalf("candle not tagged: %+v", first)
	}
	if !first.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("unexpected open time: %v", first.OpenTime)
	}
}

func TestFetchOHLCVErrorTaxonomy(t *testing.T) {
	t.Parallel()

	transient := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := transient.FetchOHLCV(context.Background(), "BTCUSDT", "1h", 10); !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}

	malformed := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"not-a-number","1","1","1","1"]]`))
	})
	_, err := malformed.FetchOHLCV(context.Background(), "BTCUSDT", "1h", 10)
	var mde *MalformedDataError
	if !errors.As(err, &mde) {
		t.Fatalf("expected malformed-data error, got %v", err)
	}
}

func TestFetchDailyStats(t *testing.T) {
	t.Parallel()

	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"97000.5","priceChangePercent":"6.0","quoteVolume":"123456789"},
			{"symbol":"ETHUSDT","lastPrice":"2700.1","priceChangePercent":"-3.0","quoteVolume":"98765432"},
			{"symbol":"BROKEN","lastPrice":"??","priceChangePercent":"0","quoteVolume":"0"}
		]`))
	})

	stats, err := g.FetchDailyStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected broken row skipped, got %d entries", len(stats))
	}
	if got, ok := stats["BTCUSDT"].ChangeFor("24h"); !ok || got != 6.0 {
		t.Fatalf("unexpected 24h change: %+v", stats["BTCUSDT"])
	}
	// The ticker endpoint only carries a 24h change; the other horizons
	// must stay unsupplied rather than read as zero.
	for _, tf := range []string{"1h", "7d", "30d"} {
		if _, ok := stats["BTCUSDT"].ChangeFor(tf); ok {
			t.Fatalf("%s change should not be supplied by the 24h ticker", tf)
		}
	}
}
