package breakout

import (
	"fmt"
	"math"

	"github.com/dnldd/pullback/shared"
)

// Config represents the breakout confirmer configuration.
type Config struct {
	// MinADX is the minimum trend strength required at the breakout candle.
	MinADX float64
}

// DefaultConfig returns the default breakout confirmer configuration.
func DefaultConfig() Config {
	return Config{MinADX: 18}
}

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	if c.MinADX < 0 || c.MinADX > 100 {
		return fmt.Errorf("minimum adx must be in [0, 100], got %f", c.MinADX)
	}

	return nil
}

// Confirmer confirms trendline breakouts.
type Confirmer struct {
	cfg Config
}

// NewConfirmer initializes a new breakout confirmer.
func NewConfirmer(cfg Config) (*Confirmer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating breakout config: %w", err)
	}

	return &Confirmer{cfg: cfg}, nil
}

// reject creates a breakout rejection.
func reject(kind shared.RejectionKind, format string, args ...any) *shared.Rejection {
	return shared.NewRejection(shared.BreakoutConfirmed, kind, format, args...)
}

// Confirm checks whether the candle at current breaks the provided trendline in the trade
// direction with trend, momentum and strength confirmation. When followUp is set the
// previous candle may already be beyond the line, which allows repeated confirmations of
// the same breakout.
func (c *Confirmer) Confirm(series *shared.CandleSeries, model *shared.TrendlineModel, direction shared.Direction, current int, followUp bool) *shared.Rejection {
	if current < 1 || current >= series.Len() {
		return reject(shared.InsufficientData, "breakout candle %d out of range", current)
	}
	if direction != shared.Buy && direction != shared.Sell {
		return reject(shared.GateRejected, "no trade direction")
	}

	bullish := direction == shared.Buy
	prev := series.Candles[current-1].Close
	prevLine := model.ValueAt(current - 1)
	close := series.Candles[current].Close
	line := model.ValueAt(current)

	if !followUp {
		if bullish && prev > prevLine {
			return reject(shared.GateRejected, "previous close %.5f already above trendline %.5f", prev, prevLine)
		}
		if !bullish && prev < prevLine {
			return reject(shared.GateRejected, "previous close %.5f already below trendline %.5f", prev, prevLine)
		}
	}

	if bullish && close <= line {
		return reject(shared.GateRejected, "close %.5f not above trendline %.5f", close, line)
	}
	if !bullish && close >= line {
		return reject(shared.GateRejected, "close %.5f not below trendline %.5f", close, line)
	}

	ema := series.EMAFast[current]
	if math.IsNaN(ema) {
		return reject(shared.IndicatorUndefined, "ema undefined at candle %d", current)
	}
	if bullish && close < ema {
		return reject(shared.GateRejected, "close %.5f below ema %.5f", close, ema)
	}
	if !bullish && close > ema {
		return reject(shared.GateRejected, "close %.5f above ema %.5f", close, ema)
	}

	rsi := series.RSI[current]
	prevRSI := series.RSI[current-1]
	if math.IsNaN(rsi) || math.IsNaN(prevRSI) {
		return reject(shared.IndicatorUndefined, "rsi undefined at candle %d", current)
	}
	if bullish && rsi <= prevRSI {
		return reject(shared.GateRejected, "rsi %.2f not rising from %.2f", rsi, prevRSI)
	}
	if !bullish && rsi >= prevRSI {
		return reject(shared.GateRejected, "rsi %.2f not falling from %.2f", rsi, prevRSI)
	}

	adx := series.ADX[current]
	if math.IsNaN(adx) {
		return reject(shared.IndicatorUndefined, "adx undefined at candle %d", current)
	}
	if adx < c.cfg.MinADX {
		return reject(shared.GateRejected, "adx %.2f below %.2f", adx, c.cfg.MinADX)
	}

	return nil
}
