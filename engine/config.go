package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/pullback/breakout"
	"github.com/dnldd/pullback/divergence"
	"github.com/dnldd/pullback/pullback"
	"github.com/dnldd/pullback/shared"
	"github.com/dnldd/pullback/trendline"
)

// RSIBand represents an inclusive rsi range.
type RSIBand struct {
	Min float64
	Max float64
}

// Contains checks whether the provided rsi falls within the band.
func (b RSIBand) Contains(rsi float64) bool {
	return rsi >= b.Min && rsi <= b.Max
}

// Config represents the signal pipeline configuration.
type Config struct {
	// SwingLookback is the number of candles either side of a swing it must strictly exceed.
	SwingLookback int
	// SwingRSIFilter enables rsi qualification of swings.
	SwingRSIFilter bool
	// SwingHighRSI is the rsi a swing high must exceed when filtering.
	SwingHighRSI float64
	// SwingLowRSI is the rsi a swing low must be below when filtering.
	SwingLowRSI float64
	// Pullback is the pullback validator configuration.
	Pullback pullback.Config
	// Trendline is the trendline fitter configuration.
	Trendline trendline.Config
	// Breakout is the breakout confirmer configuration.
	Breakout breakout.Config
	// Divergence is the divergence detector configuration.
	Divergence divergence.Config
	// BuyRSIBand is the higher timeframe rsi band confirming buys.
	BuyRSIBand RSIBand
	// SellRSIBand is the higher timeframe rsi band confirming sells.
	SellRSIBand RSIBand
	// Confirmations is the number of consecutive qualifying evaluations of the same swing
	// required before emitting a signal.
	Confirmations int
}

// DefaultConfig returns the default signal pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SwingLookback:  5,
		SwingRSIFilter: true,
		SwingHighRSI:   70,
		SwingLowRSI:    30,
		Pullback:       pullback.DefaultConfig(),
		Trendline:      trendline.DefaultConfig(),
		Breakout:       breakout.DefaultConfig(),
		Divergence:     divergence.DefaultConfig(),
		BuyRSIBand:     RSIBand{Min: 55, Max: 65},
		SellRSIBand:    RSIBand{Min: 35, Max: 45},
		Confirmations:  1,
	}
}

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	var errs error

	if c.SwingLookback < 1 {
		errs = errors.Join(errs, fmt.Errorf("swing lookback must be positive, got %d", c.SwingLookback))
	}
	if c.SwingRSIFilter && c.SwingLowRSI > c.SwingHighRSI {
		errs = errors.Join(errs, fmt.Errorf("swing low rsi (%f) exceeds swing high rsi (%f)",
			c.SwingLowRSI, c.SwingHighRSI))
	}
	if c.BuyRSIBand.Min > c.BuyRSIBand.Max {
		errs = errors.Join(errs, fmt.Errorf("buy rsi band is inverted: [%f, %f]",
			c.BuyRSIBand.Min, c.BuyRSIBand.Max))
	}
	if c.SellRSIBand.Min > c.SellRSIBand.Max {
		errs = errors.Join(errs, fmt.Errorf("sell rsi band is inverted: [%f, %f]",
			c.SellRSIBand.Min, c.SellRSIBand.Max))
	}
	if c.Confirmations < 1 {
		errs = errors.Join(errs, fmt.Errorf("confirmations must be positive, got %d", c.Confirmations))
	}

	errs = errors.Join(errs, c.Pullback.Validate(), c.Trendline.Validate(), c.Breakout.Validate(),
		c.Divergence.Validate())

	return errs
}

// swingThreshold returns the rsi threshold of the provided swing kind, nil when filtering
// is disabled.
func (c *Config) swingThreshold(kind shared.SwingKind) *float64 {
	if !c.SwingRSIFilter {
		return nil
	}

	threshold := c.SwingLowRSI
	if kind == shared.SwingHigh {
		threshold = c.SwingHighRSI
	}

	return &threshold
}
