package pullback

import (
	"errors"
	"fmt"
)

// Bands represents the slope classification bands.
type Bands struct {
	// ValidMin is the smallest slope classified as valid.
	ValidMin float64
	// ValidMax is the largest slope classified as valid.
	ValidMax float64
	// RejectMin is the smallest slope rejected outright as too steep. Slopes between
	// ValidMax and RejectMin are steep and deferred.
	RejectMin float64
}

// Config represents the pullback validator configuration.
type Config struct {
	// WickATRMultiplier is the multiple of atr a wick must reach to veto a wave.
	WickATRMultiplier float64
	// MaxPullbackLength is the maximum number of candles between a swing and the breakout candle.
	MaxPullbackLength int
	// PreCandles is the number of candles preceding the first pullback candle used for the slope.
	PreCandles int
	// PullbackCandles is the number of pullback candles used for the slope.
	PullbackCandles int
	// SlopeScale scales the atr normalized excursion into the units of the bands. The
	// default of 100 expresses the excursion as a percentage of the summed atr so it meets
	// the 18/48/62 bands; a scale of 1 yields the raw excursion to atr ratio, in which case
	// the bands must be rescaled to match.
	SlopeScale float64
	// Bands represents the slope classification bands.
	Bands Bands
}

// DefaultConfig returns the default pullback validator configuration.
func DefaultConfig() Config {
	return Config{
		WickATRMultiplier: 1.3,
		MaxPullbackLength: 30,
		PreCandles:        3,
		PullbackCandles:   6,
		SlopeScale:        100,
		Bands: Bands{
			ValidMin:  18,
			ValidMax:  48,
			RejectMin: 62,
		},
	}
}

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	var errs error

	if c.WickATRMultiplier <= 0 {
		errs = errors.Join(errs, fmt.Errorf("wick atr multiplier must be positive, got %f", c.WickATRMultiplier))
	}
	if c.PreCandles < 1 {
		errs = errors.Join(errs, fmt.Errorf("pre candles must be positive, got %d", c.PreCandles))
	}
	if c.PullbackCandles < 1 {
		errs = errors.Join(errs, fmt.Errorf("pullback candles must be positive, got %d", c.PullbackCandles))
	}
	if c.MaxPullbackLength <= c.PullbackCandles {
		errs = errors.Join(errs, fmt.Errorf("max pullback length (%d) must exceed pullback candles (%d)",
			c.MaxPullbackLength, c.PullbackCandles))
	}
	if c.SlopeScale <= 0 {
		errs = errors.Join(errs, fmt.Errorf("slope scale must be positive, got %f", c.SlopeScale))
	}
	if c.Bands.ValidMin < 0 || c.Bands.ValidMin > c.Bands.ValidMax || c.Bands.ValidMax >= c.Bands.RejectMin {
		errs = errors.Join(errs, fmt.Errorf("slope bands must be ordered, got [%f, %f, %f]",
			c.Bands.ValidMin, c.Bands.ValidMax, c.Bands.RejectMin))
	}

	return errs
}
