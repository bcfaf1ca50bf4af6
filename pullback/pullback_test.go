package pullback

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/pullback/shared"
	"github.com/peterldowns/testy/assert"
)

const (
	testATR     = 12.5
	swingIndex  = 5
	breakoutIdx = 13
)

func candle(open, high, low, close float64) shared.Candlestick {
	return shared.Candlestick{Open: open, High: high, Low: low, Close: close}
}

// waveSeries builds a swing high at candle 5 followed by a pullback whose lowest low is the
// provided value, with a constant atr of 12.5.
func waveSeries(lowest float64) *shared.CandleSeries {
	candles := make([]shared.Candlestick, 0, 15)
	for idx := 0; idx <= swingIndex; idx++ {
		high := 1000 + float64(idx)
		candles = append(candles, candle(high-0.75, high, high-1, high-0.5))
	}

	candles = append(candles, candle(1004, 1004.25, 1001, 1003.5))
	for idx := 7; idx <= 14; idx++ {
		low := float64(1000)
		if idx == 9 {
			low = lowest
		}
		candles = append(candles, candle(1002, 1002.25, low, 1001.5))
	}

	start := time.Date(2025, 2, 4, 15, 0, 0, 0, time.UTC)
	series := &shared.CandleSeries{
		Candles: candles,
		EMAFast: make([]float64, len(candles)),
		EMASlow: make([]float64, len(candles)),
		RSI:     make([]float64, len(candles)),
		ATR:     make([]float64, len(candles)),
		ADX:     make([]float64, len(candles)),
	}
	for idx := range candles {
		series.Candles[idx].Date = start.Add(time.Minute * 5 * time.Duration(idx))
		series.Candles[idx].Timeframe = shared.FiveMinute
		series.ATR[idx] = testATR
	}

	return series
}

// mirror reflects the series prices around the provided pivot, turning highs into lows.
func mirror(series *shared.CandleSeries, pivot float64) *shared.CandleSeries {
	mirrored := &shared.CandleSeries{
		Candles: make([]shared.Candlestick, series.Len()),
		EMAFast: series.EMAFast,
		EMASlow: series.EMASlow,
		RSI:     series.RSI,
		ATR:     series.ATR,
		ADX:     series.ADX,
	}
	for idx, c := range series.Candles {
		mirrored.Candles[idx] = shared.Candlestick{
			Open:      pivot - c.Open,
			High:      pivot - c.Low,
			Low:       pivot - c.High,
			Close:     pivot - c.Close,
			Date:      c.Date,
			Timeframe: c.Timeframe,
		}
	}

	return mirrored
}

func swingHigh(series *shared.CandleSeries) shared.SwingPoint {
	return shared.SwingPoint{
		Index: swingIndex,
		Date:  series.Candles[swingIndex].Date,
		Price: series.Candles[swingIndex].High,
		Kind:  shared.SwingHigh,
	}
}

func newTestValidator(t *testing.T) *Validator {
	v, err := NewValidator(DefaultConfig())
	assert.NoError(t, err)
	return v
}

func TestConfigValidate(t *testing.T) {
	// Ensure the default config is valid.
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	// Ensure unordered bands are rejected.
	cfg.Bands.ValidMax = 70
	assert.Error(t, cfg.Validate())

	// Ensure every invalid field is reported.
	cfg = Config{}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "wick atr multiplier"))
	assert.True(t, strings.Contains(err.Error(), "slope scale"))

	_, err = NewValidator(cfg)
	assert.Error(t, err)
}

func TestValidatorMinCandles(t *testing.T) {
	// Ensure the minimum covers the pullback candles and the breakout candle.
	v := newTestValidator(t)
	assert.Equal(t, v.MinCandles(), 7)
}

func TestClassify(t *testing.T) {
	bands := DefaultConfig().Bands
	tests := []struct {
		slope float64
		want  shared.Classification
	}{
		{slope: 10, want: shared.Rejected},
		{slope: 17.99, want: shared.Rejected},
		{slope: 18, want: shared.Valid},
		{slope: 18.01, want: shared.Valid},
		{slope: 30, want: shared.Valid},
		{slope: 48, want: shared.Valid},
		{slope: 48.01, want: shared.Steep},
		{slope: 61.99, want: shared.Steep},
		{slope: 62, want: shared.Rejected},
		{slope: 62.01, want: shared.Rejected},
		{slope: math.NaN(), want: shared.Rejected},
	}

	for _, test := range tests {
		assert.Equal(t, Classify(test.slope, bands), test.want)
	}
}

func TestValidateSlopeBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		lowest   float64
		slope    float64
		class    shared.Classification
		rejected bool
		deferred bool
	}{
		{name: "shallow just below 18", lowest: 991.5075, slope: 17.99, class: shared.Rejected, rejected: true},
		{name: "exactly 18", lowest: 991.5, slope: 18, class: shared.Valid},
		{name: "just above 18", lowest: 991.4925, slope: 18.01, class: shared.Valid},
		{name: "exactly 48", lowest: 969, slope: 48, class: shared.Valid},
		{name: "just above 48", lowest: 968.9925, slope: 48.01, class: shared.Steep, rejected: true, deferred: true},
		{name: "just below 62", lowest: 958.5075, slope: 61.99, class: shared.Steep, rejected: true, deferred: true},
		{name: "exactly 62", lowest: 958.5, slope: 62, class: shared.Rejected, rejected: true},
		{name: "just above 62", lowest: 958.4925, slope: 62.01, class: shared.Rejected, rejected: true},
	}

	v := newTestValidator(t)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			series := waveSeries(test.lowest)
			wave, rej := v.Validate(series, swingHigh(series), breakoutIdx)
			assert.NotNil(t, wave)
			assert.True(t, math.Abs(wave.Slope-test.slope) < 1e-9)
			assert.Equal(t, wave.Classification, test.class)
			assert.Equal(t, wave.FirstPullbackIndex, 6)
			assert.Equal(t, wave.Start, 6)
			assert.Equal(t, wave.End, breakoutIdx)
			assert.Equal(t, rej != nil, test.rejected)
			if rej != nil {
				assert.Equal(t, rej.Stage, shared.PullbackValid)
				assert.Equal(t, rej.Kind, shared.GateRejected)
				assert.Equal(t, rej.Deferred, test.deferred)
			}
		})
	}
}

func TestValidateRawSlope(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlopeScale = 1
	cfg.Bands = Bands{ValidMin: 0.18, ValidMax: 0.48, RejectMin: 0.62}
	v, err := NewValidator(cfg)
	assert.NoError(t, err)

	// Ensure a unit slope scale yields the raw excursion to atr ratio.
	series := waveSeries(991.5)
	wave, rej := v.Validate(series, swingHigh(series), breakoutIdx)
	assert.Nil(t, rej)
	assert.True(t, math.Abs(wave.Slope-0.18) < 1e-9)
	assert.Equal(t, wave.Classification, shared.Valid)
}

func TestValidateWaveWick(t *testing.T) {
	v := newTestValidator(t)

	// Ensure a wave wick of exactly 1.3 x atr vetoes the wave.
	series := waveSeries(991.5)
	series.Candles[8].High = 1002 + 1.3*testATR
	_, rej := v.Validate(series, swingHigh(series), breakoutIdx)
	assert.NotNil(t, rej)
	assert.True(t, strings.Contains(rej.Message, "wave wick"))
	assert.True(t, strings.HasPrefix(rej.String(), "pullback: "))

	// Ensure a wave wick just below the multiple does not.
	series = waveSeries(991.5)
	series.Candles[8].High = 1002 + 1.29999*testATR
	wave, rej := v.Validate(series, swingHigh(series), breakoutIdx)
	assert.Nil(t, rej)
	assert.Equal(t, wave.Classification, shared.Valid)

	// Ensure the breakout candle itself is not part of the wave wick check.
	series = waveSeries(991.5)
	series.Candles[breakoutIdx].High = 1002 + 2*testATR
	_, rej = v.Validate(series, swingHigh(series), breakoutIdx)
	assert.Nil(t, rej)
}

func TestExceedsWick(t *testing.T) {
	// Ensure the wick comparison is inclusive.
	assert.True(t, exceedsWick(11.3-10, 1, 1.3))
	assert.False(t, exceedsWick(11.29999-10, 1, 1.3))
}

func TestValidateSwingWick(t *testing.T) {
	v := newTestValidator(t)

	// Ensure an exhaustion wick around the swing rejects the wave.
	series := waveSeries(991.5)
	series.Candles[3] = candle(1003-1.3*testATR, 1003, 986, 1003-1.3*testATR)
	series.Candles[3].Date = series.Candles[2].Date.Add(time.Minute * 5)
	wave, rej := v.Validate(series, swingHigh(series), breakoutIdx)
	assert.Nil(t, wave)
	assert.NotNil(t, rej)
	assert.True(t, strings.Contains(rej.Message, "swing wick"))

	// Ensure undefined atr at the swing is reported.
	series = waveSeries(991.5)
	series.ATR[swingIndex] = math.NaN()
	_, rej = v.Validate(series, swingHigh(series), breakoutIdx)
	assert.NotNil(t, rej)
	assert.Equal(t, rej.Kind, shared.IndicatorUndefined)
}

func TestValidateRetracement(t *testing.T) {
	v := newTestValidator(t)

	// Ensure a wave with no candle closing beneath the prior low is rejected.
	series := waveSeries(991.5)
	for idx := swingIndex + 1; idx < series.Len(); idx++ {
		high := 1000 + float64(idx)
		series.Candles[idx].Open = high - 0.75
		series.Candles[idx].High = high
		series.Candles[idx].Low = high - 1
		series.Candles[idx].Close = high - 0.5
	}
	_, rej := v.Validate(series, swingHigh(series), breakoutIdx)
	assert.NotNil(t, rej)
	assert.True(t, strings.Contains(rej.Message, "no retracement"))

	// Ensure six pullback candles are required before the breakout candle.
	series = waveSeries(991.5)
	_, rej = v.Validate(series, swingHigh(series), 11)
	assert.NotNil(t, rej)
	assert.Equal(t, rej.Kind, shared.InsufficientData)
	_, rej = v.Validate(series, swingHigh(series), 12)
	assert.Nil(t, rej)

	// Ensure a breakout too far from the swing is rejected.
	cfg := DefaultConfig()
	cfg.MaxPullbackLength = 7
	short, err := NewValidator(cfg)
	assert.NoError(t, err)
	_, rej = short.Validate(series, swingHigh(series), breakoutIdx)
	assert.NotNil(t, rej)
	assert.True(t, strings.Contains(rej.Message, "exceeded"))

	// Ensure a breakout candle preceding the swing is reported as insufficient data.
	_, rej = v.Validate(series, swingHigh(series), swingIndex)
	assert.NotNil(t, rej)
	assert.Equal(t, rej.Kind, shared.InsufficientData)
}

func TestValidateSwingLow(t *testing.T) {
	v := newTestValidator(t)

	// Ensure a mirrored wave after a swing low classifies identically.
	series := mirror(waveSeries(975), 2000)
	swing := shared.SwingPoint{
		Index: swingIndex,
		Date:  series.Candles[swingIndex].Date,
		Price: series.Candles[swingIndex].Low,
		Kind:  shared.SwingLow,
	}
	wave, rej := v.Validate(series, swing, breakoutIdx)
	assert.Nil(t, rej)
	assert.Equal(t, wave.FirstPullbackIndex, 6)
	assert.Equal(t, wave.Classification, shared.Valid)
	assert.True(t, math.Abs(wave.Slope-40) < 1e-9)

	// Ensure the lower wick vetoes waves after a swing low.
	series.Candles[8].Low = series.Candles[8].Open - 1.3*testATR
	_, rej = v.Validate(series, swing, breakoutIdx)
	assert.NotNil(t, rej)
	assert.True(t, strings.Contains(rej.Message, "wave wick"))
}
