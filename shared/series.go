package shared

import (
	"fmt"
	"math"
)

// CandleSeries represents an ordered set of candlesticks along with their derived indicator
// columns, aligned by index.
type CandleSeries struct {
	Candles []Candlestick
	EMAFast []float64
	EMASlow []float64
	RSI     []float64
	ATR     []float64
	ADX     []float64
}

// Len returns the number of candles in the series.
func (s *CandleSeries) Len() int {
	return len(s.Candles)
}

// Validate asserts the indicator columns are aligned with the candles.
func (s *CandleSeries) Validate() error {
	n := len(s.Candles)
	columns := []struct {
		name   string
		values []float64
	}{
		{"ema fast", s.EMAFast},
		{"ema slow", s.EMASlow},
		{"rsi", s.RSI},
		{"atr", s.ATR},
		{"adx", s.ADX},
	}

	for _, col := range columns {
		if len(col.values) != n {
			return fmt.Errorf("%s column has %d entries, expected %d", col.name, len(col.values), n)
		}
	}

	return nil
}

// Slice returns a view of the series covering candles [0, end). The view shares its
// backing arrays with the series.
func (s *CandleSeries) Slice(end int) *CandleSeries {
	if end > len(s.Candles) {
		end = len(s.Candles)
	}
	if end < 0 {
		end = 0
	}

	return &CandleSeries{
		Candles: s.Candles[:end],
		EMAFast: s.EMAFast[:end],
		EMASlow: s.EMASlow[:end],
		RSI:     s.RSI[:end],
		ATR:     s.ATR[:end],
		ADX:     s.ADX[:end],
	}
}

// ClosedView returns the series without its most recent candle, which is assumed to still
// be forming. Only the closed view is eligible for analysis.
func (s *CandleSeries) ClosedView() *CandleSeries {
	return s.Slice(len(s.Candles) - 1)
}

// IndexOf returns the index of the candle opened at the provided swing's date, or -1.
func (s *CandleSeries) IndexOf(swing *SwingPoint) int {
	// Candles are time ordered, search from the end since cached swings are recent.
	for idx := len(s.Candles) - 1; idx >= 0; idx-- {
		date := s.Candles[idx].Date
		switch {
		case date.Equal(swing.Date):
			return idx
		case date.Before(swing.Date):
			return -1
		}
	}

	return -1
}

// Snapshot returns the indicator values at the provided index.
func (s *CandleSeries) Snapshot(idx int) IndicatorSnapshot {
	if idx < 0 || idx >= len(s.Candles) {
		nan := math.NaN()
		return IndicatorSnapshot{EMAFast: nan, EMASlow: nan, RSI: nan, ATR: nan, ADX: nan}
	}

	return IndicatorSnapshot{
		EMAFast: s.EMAFast[idx],
		EMASlow: s.EMASlow[idx],
		RSI:     s.RSI[idx],
		ATR:     s.ATR[idx],
		ADX:     s.ADX[idx],
	}
}

// IndicatorSnapshot represents indicator values at a single candle.
type IndicatorSnapshot struct {
	EMAFast float64
	EMASlow float64
	RSI     float64
	ATR     float64
	ADX     float64
}
