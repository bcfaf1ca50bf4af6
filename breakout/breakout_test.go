package breakout

import (
	"math"
	"strings"
	"testing"

	"github.com/dnldd/pullback/shared"
	"github.com/peterldowns/testy/assert"
)

// breakoutSeries builds a two candle series crossing a flat trendline at 100.
func breakoutSeries() *shared.CandleSeries {
	return &shared.CandleSeries{
		Candles: []shared.Candlestick{
			{Open: 99.5, High: 100, Low: 99, Close: 99.8},
			{Open: 99.8, High: 101, Low: 99.7, Close: 100.5},
		},
		EMAFast: []float64{99, 99.5},
		EMASlow: []float64{98, 98.5},
		RSI:     []float64{50, 55},
		ATR:     []float64{1, 1},
		ADX:     []float64{22, 22},
	}
}

// mirrorSeries reflects the provided series into a bearish breakout.
func mirrorSeries(series *shared.CandleSeries) *shared.CandleSeries {
	const pivot = 200
	mirrored := &shared.CandleSeries{
		Candles: make([]shared.Candlestick, series.Len()),
		EMAFast: make([]float64, series.Len()),
		EMASlow: make([]float64, series.Len()),
		RSI:     make([]float64, series.Len()),
		ATR:     series.ATR,
		ADX:     series.ADX,
	}
	for idx, c := range series.Candles {
		mirrored.Candles[idx] = shared.Candlestick{
			Open:  pivot - c.Open,
			High:  pivot - c.Low,
			Low:   pivot - c.High,
			Close: pivot - c.Close,
		}
		mirrored.EMAFast[idx] = pivot - series.EMAFast[idx]
		mirrored.EMASlow[idx] = pivot - series.EMASlow[idx]
		mirrored.RSI[idx] = 100 - series.RSI[idx]
	}

	return mirrored
}

func TestConfirm(t *testing.T) {
	flat := &shared.TrendlineModel{Slope: 0, Intercept: 100}

	tests := []struct {
		name     string
		mutate   func(series *shared.CandleSeries)
		followUp bool
		kind     shared.RejectionKind
		message  string
	}{
		{
			name:   "confirmed breakout",
			mutate: func(series *shared.CandleSeries) {},
		},
		{
			name:    "previous close already beyond",
			mutate:  func(series *shared.CandleSeries) { series.Candles[0].Close = 100.2 },
			message: "previous close",
		},
		{
			name:     "previous close already beyond on a follow up",
			mutate:   func(series *shared.CandleSeries) { series.Candles[0].Close = 100.2 },
			followUp: true,
		},
		{
			name:   "previous close on the line",
			mutate: func(series *shared.CandleSeries) { series.Candles[0].Close = 100 },
		},
		{
			name:    "close on the line",
			mutate:  func(series *shared.CandleSeries) { series.Candles[1].Close = 100 },
			message: "trendline",
		},
		{
			name:    "close below ema",
			mutate:  func(series *shared.CandleSeries) { series.EMAFast[1] = 100.6 },
			message: "ema",
		},
		{
			name:   "close on the ema",
			mutate: func(series *shared.CandleSeries) { series.EMAFast[1] = 100.5 },
		},
		{
			name:    "flat rsi",
			mutate:  func(series *shared.CandleSeries) { series.RSI[1] = 50 },
			message: "rsi",
		},
		{
			name:    "weak adx",
			mutate:  func(series *shared.CandleSeries) { series.ADX[1] = 10 },
			message: "adx",
		},
		{
			name:   "adx at minimum",
			mutate: func(series *shared.CandleSeries) { series.ADX[1] = 18 },
		},
		{
			name:    "undefined ema",
			mutate:  func(series *shared.CandleSeries) { series.EMAFast[1] = math.NaN() },
			kind:    shared.IndicatorUndefined,
			message: "ema undefined",
		},
		{
			name:    "undefined rsi",
			mutate:  func(series *shared.CandleSeries) { series.RSI[0] = math.NaN() },
			kind:    shared.IndicatorUndefined,
			message: "rsi undefined",
		},
		{
			name:    "undefined adx",
			mutate:  func(series *shared.CandleSeries) { series.ADX[1] = math.NaN() },
			kind:    shared.IndicatorUndefined,
			message: "adx undefined",
		},
	}

	c, err := NewConfirmer(DefaultConfig())
	assert.NoError(t, err)

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bullish := breakoutSeries()
			test.mutate(bullish)
			bearish := mirrorSeries(bullish)
			mirroredLine := &shared.TrendlineModel{Slope: 0, Intercept: 100}

			for _, check := range []struct {
				series    *shared.CandleSeries
				direction shared.Direction
			}{
				{series: bullish, direction: shared.Buy},
				{series: bearish, direction: shared.Sell},
			} {
				line := flat
				if check.direction == shared.Sell {
					line = mirroredLine
				}

				rej := c.Confirm(check.series, line, check.direction, 1, test.followUp)
				if test.message == "" {
					assert.Nil(t, rej)
					continue
				}

				assert.NotNil(t, rej)
				assert.Equal(t, rej.Stage, shared.BreakoutConfirmed)
				assert.Equal(t, rej.Kind, test.kind)
				assert.True(t, strings.Contains(rej.Message, test.message))
				assert.True(t, strings.HasPrefix(rej.String(), "breakout: "))
			}
		})
	}
}

func TestConfirmBounds(t *testing.T) {
	c, err := NewConfirmer(DefaultConfig())
	assert.NoError(t, err)
	line := &shared.TrendlineModel{Intercept: 100}

	// Ensure a breakout candle without a predecessor is rejected.
	rej := c.Confirm(breakoutSeries(), line, shared.Buy, 0, false)
	assert.NotNil(t, rej)
	assert.Equal(t, rej.Kind, shared.InsufficientData)

	// Ensure a breakout candle past the series is rejected.
	rej = c.Confirm(breakoutSeries(), line, shared.Buy, 2, false)
	assert.NotNil(t, rej)
	assert.Equal(t, rej.Kind, shared.InsufficientData)

	// Ensure a breakout without a direction is rejected.
	rej = c.Confirm(breakoutSeries(), line, shared.None, 1, false)
	assert.NotNil(t, rej)

	// Ensure an invalid config is rejected.
	_, err = NewConfirmer(Config{MinADX: 101})
	assert.Error(t, err)
}
