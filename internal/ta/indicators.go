package ta

import "math"

// minAvgLoss is substituted for a zero average loss so the relative
// strength ratio stays finite.
const minAvgLoss = 1e-4

// RSI returns Wilder's smoothed RSI at the most recent close.
// ok is false when fewer than period+1 closes are available; that is a
// legitimate "no signal" outcome, not an error.
func RSI(closes []float64, period int) (float64, bool) {
	series := RSISeries(closes, period)
	if series == nil {
		return 0, false
	}
	return series[len(series)-1], true
}

// RSISeries computes the full Wilder-smoothed RSI series. Positions
// before the first computable value hold NaN. Returns nil when the
// input is shorter than period+1.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

// rsiFromAvg converts smoothed averages to an RSI value. A flat series
// (no gains, no losses) reads as exactly 100; this is the defined
// edge-case behavior of the zero-loss substitution.
func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss < minAvgLoss {
		if avgGain < minAvgLoss {
			return 100
		}
		avgLoss = minAvgLoss
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
