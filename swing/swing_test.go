package swing

import (
	"math"
	"testing"
	"time"

	"github.com/dnldd/pullback/shared"
	"github.com/peterldowns/testy/assert"
)

// seriesFromHighs builds a series where each candle has the provided high, a low one point
// beneath it and the provided rsi.
func seriesFromHighs(highs []float64, rsi []float64) *shared.CandleSeries {
	start := time.Date(2025, 2, 4, 15, 0, 0, 0, time.UTC)
	series := &shared.CandleSeries{
		Candles: make([]shared.Candlestick, len(highs)),
		EMAFast: make([]float64, len(highs)),
		EMASlow: make([]float64, len(highs)),
		RSI:     rsi,
		ATR:     make([]float64, len(highs)),
		ADX:     make([]float64, len(highs)),
	}

	for idx := range highs {
		series.Candles[idx] = shared.Candlestick{
			Open:      highs[idx] - 0.5,
			High:      highs[idx],
			Low:       highs[idx] - 1,
			Close:     highs[idx] - 0.5,
			Date:      start.Add(time.Minute * 5 * time.Duration(idx)),
			Timeframe: shared.FiveMinute,
		}
	}

	return series
}

func constant(n int, value float64) []float64 {
	values := make([]float64, n)
	for idx := range values {
		values[idx] = value
	}
	return values
}

func TestFindSwingHigh(t *testing.T) {
	highs := []float64{1, 2, 3, 4, 5, 10, 5, 4, 3, 2, 1}
	series := seriesFromHighs(highs, constant(len(highs), 75))

	// Ensure a strict local high is found.
	swing, ok := FindSwing(series, 2, shared.SwingHigh, nil, series.Len())
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 5)
	assert.Equal(t, swing.Price, float64(10))
	assert.Equal(t, swing.Kind, shared.SwingHigh)
	assert.Equal(t, swing.RSI, float64(75))
	assert.True(t, swing.Date.Equal(series.Candles[5].Date))

	// Ensure the swing window must precede the upper bound.
	_, ok = FindSwing(series, 2, shared.SwingHigh, nil, 7)
	assert.False(t, ok)
	swing, ok = FindSwing(series, 2, shared.SwingHigh, nil, 8)
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 5)

	// Ensure an out of range upper bound is clamped.
	swing, ok = FindSwing(series, 2, shared.SwingHigh, nil, 100)
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 5)

	// Ensure a swing high is not reported as a swing low.
	_, ok = FindSwing(series, 2, shared.SwingLow, nil, series.Len())
	assert.False(t, ok)

	// Ensure an invalid lookback finds nothing.
	_, ok = FindSwing(series, 0, shared.SwingHigh, nil, series.Len())
	assert.False(t, ok)
}

func TestFindSwingStrictness(t *testing.T) {
	tests := []struct {
		name  string
		highs []float64
		found bool
	}{
		{
			name:  "tie with the following neighbour",
			highs: []float64{1, 2, 3, 4, 5, 10, 10, 4, 3, 2, 1},
			found: false,
		},
		{
			name:  "tie at the window edge",
			highs: []float64{1, 2, 3, 10, 5, 10, 5, 4, 3, 2, 1},
			found: false,
		},
		{
			name:  "tie just outside the window",
			highs: []float64{1, 2, 10, 4, 5, 10, 5, 4, 3, 2, 1},
			found: true,
		},
		{
			name:  "flat series",
			highs: constant(11, 5),
			found: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			series := seriesFromHighs(test.highs, constant(len(test.highs), 50))
			swing, ok := FindSwing(series, 2, shared.SwingHigh, nil, series.Len())
			assert.Equal(t, ok, test.found)
			if test.found {
				assert.Equal(t, swing.Index, 5)
			}
		})
	}
}

func TestFindSwingRSIFilter(t *testing.T) {
	highs := []float64{1, 2, 3, 4, 5, 10, 5, 4, 3, 2, 1}
	threshold := float64(70)

	tests := []struct {
		name  string
		rsi   float64
		found bool
	}{
		{name: "rsi above threshold", rsi: 75, found: true},
		{name: "rsi at threshold", rsi: 70, found: false},
		{name: "rsi below threshold", rsi: 65, found: false},
		{name: "undefined rsi", rsi: math.NaN(), found: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rsi := constant(len(highs), 50)
			rsi[5] = test.rsi
			series := seriesFromHighs(highs, rsi)
			_, ok := FindSwing(series, 2, shared.SwingHigh, &threshold, series.Len())
			assert.Equal(t, ok, test.found)
		})
	}
}

func TestFindSwingLow(t *testing.T) {
	highs := []float64{10, 9, 8, 7, 6, 1, 6, 7, 8, 9, 10}
	rsi := constant(len(highs), 50)
	rsi[5] = 25
	series := seriesFromHighs(highs, rsi)
	threshold := float64(30)

	// Ensure a strict local low is found with its low as price.
	swing, ok := FindSwing(series, 2, shared.SwingLow, &threshold, series.Len())
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 5)
	assert.Equal(t, swing.Price, float64(0))
	assert.Equal(t, swing.Kind, shared.SwingLow)

	// Ensure the rsi filter applies below the threshold for lows.
	rsi[5] = 35
	_, ok = FindSwing(series, 2, shared.SwingLow, &threshold, series.Len())
	assert.False(t, ok)
}

func TestFindSwingMostRecent(t *testing.T) {
	highs := []float64{1, 2, 8, 2, 1, 2, 3, 9, 3, 2, 1}
	series := seriesFromHighs(highs, constant(len(highs), 50))

	// Ensure the most recent qualifying swing is returned.
	swing, ok := FindSwing(series, 2, shared.SwingHigh, nil, series.Len())
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 7)

	// Ensure an earlier swing is found when the bound excludes the later one.
	swing, ok = FindSwing(series, 2, shared.SwingHigh, nil, 9)
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 2)

	// Ensure the lower bound restricts the search.
	_, ok = FindSwingAfter(series, 2, shared.SwingHigh, nil, 3, 9)
	assert.False(t, ok)
	swing, ok = FindSwingAfter(series, 2, shared.SwingHigh, nil, 7, series.Len())
	assert.True(t, ok)
	assert.Equal(t, swing.Index, 7)
}
