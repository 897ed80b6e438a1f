package domain

import "time"

// TradingPair is an exchange-listed base/quote pair. The universe is
// enumerated once per engine instance and treated as read-only afterward.
type TradingPair struct {
	Symbol string `json:"symbol"`
	Active bool   `json:"active"`
}

// RSIResult is the latest computed RSI value for one pair.
type RSIResult struct {
	Pair  string  `json:"pair"`
	Value float64 `json:"value"`
}

// RSISnapshot is the persisted per-timeframe computation record.
// Date stays a raw string so a corrupt persisted value degrades to
// "must recompute" instead of failing the cycle.
type RSISnapshot struct {
	Timeframe string             `json:"timeframe"`
	Date      string             `json:"date"`
	Values    map[string]float64 `json:"values"`
}

// NewRSISnapshot stamps a snapshot with the given computation time in UTC.
func NewRSISnapshot(timeframe string, computedAt time.Time, values map[string]float64) RSISnapshot {
	return RSISnapshot{
		Timeframe: timeframe,
		Date:      computedAt.UTC().Format(time.RFC3339),
		Values:    values,
	}
}

// ComputedAt parses the persisted timestamp. ok is false for missing or
// malformed state.
func (s RSISnapshot) ComputedAt() (time.Time, bool) {
	if s.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RSICategory is one named bucket in the ordered classification list.
// A value matches when it is strictly above Above and strictly below
// Below; a nil bound is open.
type RSICategory struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Above *float64 `json:"above,omitempty"`
	Below *float64 `json:"below,omitempty"`
}

func (c RSICategory) Matches(value float64) bool {
	if c.Above != nil && value <= *c.Above {
		return false
	}
	if c.Below != nil && value >= *c.Below {
		return false
	}
	return true
}

// RSIGroup is one category and its members, sorted by RSI descending.
type RSIGroup struct {
	Category RSICategory `json:"category"`
	Members  []RSIResult `json:"members"`
}

// RSIReport is the categorized output of one computation cycle.
type RSIReport struct {
	Timeframe  string     `json:"timeframe"`
	ComputedAt time.Time  `json:"computed_at"`
	Groups     []RSIGroup `json:"groups"`
}

// DefaultRSICategories is the stock Overbought/Oversold split. Categories
// are configuration; this is only the fallback when none are configured.
func DefaultRSICategories() []RSICategory {
	overbought := 70.0
	oversold := 30.0
	return []RSICategory{
		{Name: "Overbought", Label: "🔥", Above: &overbought},
		{Name: "Oversold", Label: "🧊", Below: &oversold},
	}
}

// AlertTimeframes are the price-change tiers the alert evaluator knows.
var AlertTimeframes = []string{"1h", "24h", "7d", "30d"}

// AlertTier binds one price-change timeframe to its threshold and the
// hours of day at which it is eligible to fire.
type AlertTier struct {
	Timeframe    string  `json:"timeframe"`
	ThresholdPct float64 `json:"threshold_pct"`
	Hours        []int   `json:"hours,omitempty"`
}

// EligibleAt reports whether the tier may fire during the given hour.
// An empty hour set means every hour.
func (t AlertTier) EligibleAt(hour int) bool {
	if len(t.Hours) == 0 {
		return true
	}
	for _, h := range t.Hours {
		if h == hour {
			return true
		}
	}
	return false
}

// AlertHit is one coin crossing its threshold.
type AlertHit struct {
	Symbol    string  `json:"symbol"`
	ChangePct float64 `json:"change_pct"`
}

// AlertDecision is the ephemeral outcome of one evaluation.
type AlertDecision struct {
	Timeframe string     `json:"timeframe"`
	Found     bool       `json:"found"`
	Hits      []AlertHit `json:"hits"`
}

// SupportedTimeframes lists the candle timeframes the engine computes RSI for.
var SupportedTimeframes = []string{"5m", "15m", "1h", "4h", "1d", "1w"}

// IsIntradayTimeframe reports whether a timeframe is minute-granular,
// which shortens the OHLCV cache validity window.
func IsIntradayTimeframe(timeframe string) bool {
	return len(timeframe) > 1 && timeframe[len(timeframe)-1] == 'm'
}
