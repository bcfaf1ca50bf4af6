package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// undefined returns a series of n not-a-number values.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for idx := range out {
		out[idx] = math.NaN()
	}

	return out
}

// maskWarmup replaces the warm-up entries of the provided series with not-a-number values.
func maskWarmup(values []float64, warmup int) []float64 {
	for idx := 0; idx < warmup && idx < len(values); idx++ {
		values[idx] = math.NaN()
	}

	return values
}

// EMA calculates the exponential moving average of the provided values using a smoothing
// factor of 2/(period+1). The average is seeded by the first value rather than a simple
// average, entries before the period completes are undefined.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return undefined(len(values))
	}

	k := 2 / float64(period+1)
	out := make([]float64, len(values))
	ema := values[0]
	out[0] = ema
	for idx := 1; idx < len(values); idx++ {
		ema = values[idx]*k + ema*(1-k)
		out[idx] = ema
	}

	return maskWarmup(out, period-1)
}

// RSI calculates the Wilder relative strength index of the provided closes. Entries before
// the period completes are undefined.
func RSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return undefined(len(closes))
	}

	return maskWarmup(talib.Rsi(closes, period), period)
}

// ATR calculates the Wilder average true range. The true range of a candle is the max of
// high-low, |high-prevClose| and |low-prevClose|. Entries before the period completes are
// undefined.
func ATR(high []float64, low []float64, close []float64, period int) []float64 {
	if period < 1 || len(close) <= period {
		return undefined(len(close))
	}

	return maskWarmup(talib.Atr(high, low, close, period), period)
}

// ADX calculates the Wilder average directional index derived from directional movement and
// the smoothed true range. Entries before twice the period completes are undefined.
func ADX(high []float64, low []float64, close []float64, period int) []float64 {
	if period < 2 || len(close) < 2*period {
		return undefined(len(close))
	}

	return maskWarmup(talib.Adx(high, low, close, period), 2*period-1)
}
