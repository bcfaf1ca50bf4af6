package indicator

import (
	"errors"
	"fmt"

	"github.com/dnldd/pullback/shared"
)

// Periods represents the indicator periods used to derive a candle series.
type Periods struct {
	// EMAFast is the medium ema period used for breakout trend confirmation.
	EMAFast int
	// EMASlow is the long ema period.
	EMASlow int
	// RSI is the relative strength index period.
	RSI int
	// ATR is the average true range period.
	ATR int
	// ADX is the average directional index period.
	ADX int
}

// DefaultPeriods returns the default indicator periods.
func DefaultPeriods() Periods {
	return Periods{
		EMAFast: 50,
		EMASlow: 200,
		RSI:     14,
		ATR:     14,
		ADX:     14,
	}
}

// Validate asserts the periods are sane.
func (p *Periods) Validate() error {
	var errs error

	if p.EMAFast <= 0 {
		errs = errors.Join(errs, fmt.Errorf("fast ema period must be positive, got %d", p.EMAFast))
	}
	if p.EMASlow <= 0 {
		errs = errors.Join(errs, fmt.Errorf("slow ema period must be positive, got %d", p.EMASlow))
	}
	if p.RSI < 2 {
		errs = errors.Join(errs, fmt.Errorf("rsi period must be at least 2, got %d", p.RSI))
	}
	if p.ATR < 1 {
		errs = errors.Join(errs, fmt.Errorf("atr period must be positive, got %d", p.ATR))
	}
	if p.ADX < 2 {
		errs = errors.Join(errs, fmt.Errorf("adx period must be at least 2, got %d", p.ADX))
	}

	return errs
}

// NewCandleSeries derives the indicator columns of the provided candles.
func NewCandleSeries(candles []shared.Candlestick, periods Periods) (*shared.CandleSeries, error) {
	err := periods.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating periods: %w", err)
	}

	n := len(candles)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for idx := range candles {
		high[idx] = candles[idx].High
		low[idx] = candles[idx].Low
		closes[idx] = candles[idx].Close
	}

	series := &shared.CandleSeries{
		Candles: candles,
		EMAFast: EMA(closes, periods.EMAFast),
		EMASlow: EMA(closes, periods.EMASlow),
		RSI:     RSI(closes, periods.RSI),
		ATR:     ATR(high, low, closes, periods.ATR),
		ADX:     ADX(high, low, closes, periods.ADX),
	}

	return series, nil
}
