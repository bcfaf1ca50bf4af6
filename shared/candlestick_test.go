package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestWicks(t *testing.T) {
	tests := []struct {
		name      string
		candle    Candlestick
		wantUpper float64
		wantLower float64
	}{
		{
			name: "bullish candle",
			candle: Candlestick{
				Open:  10,
				Close: 12,
				High:  15,
				Low:   9,
			},
			wantUpper: 3,
			wantLower: 1,
		},
		{
			name: "bearish candle",
			candle: Candlestick{
				Open:  12,
				Close: 10,
				High:  13,
				Low:   6,
			},
			wantUpper: 1,
			wantLower: 4,
		},
		{
			name: "marubozu",
			candle: Candlestick{
				Open:  10,
				Close: 12,
				High:  12,
				Low:   10,
			},
			wantUpper: 0,
			wantLower: 0,
		},
	}

	for _, test := range tests {
		if upper := test.candle.UpperWick(); upper != test.wantUpper {
			t.Errorf("%s: expected upper wick %f, got %f", test.name, test.wantUpper, upper)
		}
		if lower := test.candle.LowerWick(); lower != test.wantLower {
			t.Errorf("%s: expected lower wick %f, got %f", test.name, test.wantLower, lower)
		}
	}
}

func TestParseCandlesticks(t *testing.T) {
	market := "^GSPC"
	timeframe := FiveMinute
	data := `[{"open":10,"close":12,"high":15,"low":8, "volume":5,"date":"2025-02-04 15:05:00"}]`
	gjd := gjson.Parse(data).Array()

	// Ensure candlesticks data can be parsed.
	candles, err := ParseCandlesticks(gjd, market, timeframe)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Open, float64(10))
	assert.Equal(t, candles[0].Close, float64(12))
	assert.Equal(t, candles[0].High, float64(15))
	assert.Equal(t, candles[0].Low, float64(8))
	assert.Equal(t, candles[0].Volume, float64(5))
	assert.Equal(t, candles[0].Market, market)
	assert.Equal(t, candles[0].Timeframe, timeframe)
	assert.Equal(t, candles[0].Date.Year(), 2025)
	assert.Equal(t, candles[0].Date.Month(), 2)
	assert.Equal(t, candles[0].Date.Day(), 4)

	// Ensure malformed dates fail parsing.
	data = `[{"open":10,"close":12,"high":15,"low":8, "volume":5,"date":"04/02/2025"}]`
	_, err = ParseCandlesticks(gjson.Parse(data).Array(), market, timeframe)
	assert.Error(t, err)
}
