package divergence

import (
	"fmt"
	"math"

	"github.com/dnldd/pullback/shared"
)

// Config represents the divergence detector configuration.
type Config struct {
	// Lookback is the number of candles, the evaluated candle included, searched for extrema.
	Lookback int
}

// DefaultConfig returns the default divergence detector configuration.
func DefaultConfig() Config {
	return Config{Lookback: 50}
}

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	if c.Lookback < 3 {
		return fmt.Errorf("divergence lookback must be at least 3, got %d", c.Lookback)
	}

	return nil
}

// Detector detects price and rsi divergence.
type Detector struct {
	cfg Config
}

// NewDetector initializes a new divergence detector.
func NewDetector(cfg Config) (*Detector, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating divergence config: %w", err)
	}

	return &Detector{cfg: cfg}, nil
}

// extrema returns the indices of the 3-candle peaks (bearish) or troughs (bullish) in the
// window ending at current. Both neighbours of an extremum must lie inside the window, so
// the evaluation candle itself never qualifies. Candles with undefined rsi are skipped.
func (d *Detector) extrema(series *shared.CandleSeries, current int, sentiment shared.Sentiment) []int {
	start := max(current-d.cfg.Lookback+1, 0)
	candles := series.Candles

	var indices []int
	for idx := start + 1; idx < current; idx++ {
		if math.IsNaN(series.RSI[idx]) {
			continue
		}

		switch sentiment {
		case shared.Bearish:
			if candles[idx].High > candles[idx-1].High && candles[idx].High > candles[idx+1].High {
				indices = append(indices, idx)
			}
		case shared.Bullish:
			if candles[idx].Low < candles[idx-1].Low && candles[idx].Low < candles[idx+1].Low {
				indices = append(indices, idx)
			}
		}
	}

	return indices
}

// Detect checks the two most recent extrema in the window ending at current for a
// divergence of the provided sentiment.
func (d *Detector) Detect(series *shared.CandleSeries, current int, sentiment shared.Sentiment) shared.DivergenceResult {
	result := shared.DivergenceResult{Direction: sentiment}
	if current < 0 || current >= series.Len() {
		result.Explanation = fmt.Sprintf("evaluation candle %d out of range", current)
		return result
	}

	indices := d.extrema(series, current, sentiment)
	if len(indices) < 2 {
		result.Explanation = fmt.Sprintf("%d %s extrema in the last %d candles", len(indices),
			sentiment, d.cfg.Lookback)
		return result
	}

	prior := indices[len(indices)-2]
	latest := indices[len(indices)-1]
	candles := series.Candles
	rsi := series.RSI

	switch sentiment {
	case shared.Bearish:
		if candles[latest].High > candles[prior].High && rsi[latest] <= rsi[prior] {
			result.Present = true
			result.Explanation = fmt.Sprintf("higher high %.5f at %d over %.5f at %d with rsi %.2f <= %.2f",
				candles[latest].High, latest, candles[prior].High, prior, rsi[latest], rsi[prior])
			return result
		}
	case shared.Bullish:
		if candles[latest].Low < candles[prior].Low && rsi[latest] >= rsi[prior] {
			result.Present = true
			result.Explanation = fmt.Sprintf("lower low %.5f at %d under %.5f at %d with rsi %.2f >= %.2f",
				candles[latest].Low, latest, candles[prior].Low, prior, rsi[latest], rsi[prior])
			return result
		}
	}

	result.Explanation = fmt.Sprintf("no %s divergence between candles %d and %d", sentiment, prior, latest)
	return result
}

// Check vetoes the provided trade direction when an opposing divergence is present at current.
func (d *Detector) Check(series *shared.CandleSeries, current int, direction shared.Direction) (*shared.DivergenceResult, *shared.Rejection) {
	opposing := shared.Bearish
	if direction == shared.Sell {
		opposing = shared.Bullish
	}

	result := d.Detect(series, current, opposing)
	if result.Present {
		return &result, shared.NewRejection(shared.DivergenceClear, shared.GateRejected,
			"%s divergence opposes %s, %s", opposing, direction, result.Explanation)
	}

	return &result, nil
}
