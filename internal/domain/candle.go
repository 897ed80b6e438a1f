package domain

import "time"

// Candle represents a single OHLCV candle for a pair at a given timeframe.
// Candles are immutable once fetched.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Closes extracts the close-price series in input order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// PriceSnapshot is the latest market state for one coin, including the
// percentage price changes the alert evaluator consumes. ChangePct only
// holds the horizons the producer actually computed; a missing key means
// no data, not a zero move.
type PriceSnapshot struct {
	Symbol          string             `json:"symbol"`
	PriceUSD        float64            `json:"price_usd"`
	Volume24h       float64            `json:"volume_24h"`
	ChangePct       map[string]float64 `json:"change_pct,omitempty"`
	LastUpdatedUnix int64              `json:"last_updated_unix"`
}

// SetChange records the percentage change for one alert timeframe.
func (p *PriceSnapshot) SetChange(timeframe string, pct float64) {
	if p.ChangePct == nil {
		p.ChangePct = make(map[string]float64)
	}
	p.ChangePct[timeframe] = pct
}

// ChangeFor returns the percentage change for an alert timeframe, and
// whether the producer supplied it.
func (p PriceSnapshot) ChangeFor(timeframe string) (float64, bool) {
	pct, ok := p.ChangePct[timeframe]
	return pct, ok
}
