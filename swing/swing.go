package swing

import (
	"math"

	"github.com/dnldd/pullback/shared"
)

// isExtremum checks whether the candle at the provided index strictly exceeds every other
// candle in its symmetric window. Ties disqualify the candidate.
func isExtremum(candles []shared.Candlestick, idx int, lookback int, kind shared.SwingKind) bool {
	for j := idx - lookback; j <= idx+lookback; j++ {
		if j == idx {
			continue
		}

		switch kind {
		case shared.SwingHigh:
			if candles[idx].High <= candles[j].High {
				return false
			}
		case shared.SwingLow:
			if candles[idx].Low >= candles[j].Low {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// passesRSIFilter checks the candle rsi against the provided threshold. Undefined rsi values
// never qualify when a threshold is set.
func passesRSIFilter(rsi float64, kind shared.SwingKind, threshold *float64) bool {
	if threshold == nil {
		return true
	}
	if math.IsNaN(rsi) {
		return false
	}

	switch kind {
	case shared.SwingHigh:
		return rsi > *threshold
	case shared.SwingLow:
		return rsi < *threshold
	default:
		return false
	}
}

// FindSwing returns the most recent swing point of the provided kind with its full window
// preceding upperBound. The second return value is false when no swing qualifies.
func FindSwing(series *shared.CandleSeries, lookback int, kind shared.SwingKind, rsiThreshold *float64, upperBound int) (shared.SwingPoint, bool) {
	return FindSwingAfter(series, lookback, kind, rsiThreshold, 0, upperBound)
}

// FindSwingAfter returns the most recent swing point of the provided kind located in
// [lowerBound, upperBound - lookback). The second return value is false when no swing
// qualifies.
func FindSwingAfter(series *shared.CandleSeries, lookback int, kind shared.SwingKind, rsiThreshold *float64, lowerBound int, upperBound int) (shared.SwingPoint, bool) {
	if lookback < 1 || series == nil {
		return shared.SwingPoint{}, false
	}

	if upperBound > series.Len() {
		upperBound = series.Len()
	}
	if lowerBound < lookback {
		lowerBound = lookback
	}

	for idx := upperBound - lookback - 1; idx >= lowerBound; idx-- {
		if !isExtremum(series.Candles, idx, lookback, kind) {
			continue
		}

		rsi := math.NaN()
		if idx < len(series.RSI) {
			rsi = series.RSI[idx]
		}
		if !passesRSIFilter(rsi, kind, rsiThreshold) {
			continue
		}

		price := series.Candles[idx].High
		if kind == shared.SwingLow {
			price = series.Candles[idx].Low
		}

		return shared.SwingPoint{
			Index: idx,
			Date:  series.Candles[idx].Date,
			Price: price,
			Kind:  kind,
			RSI:   rsi,
		}, true
	}

	return shared.SwingPoint{}, false
}
