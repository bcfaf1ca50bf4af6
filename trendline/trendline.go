package trendline

import (
	"errors"
	"fmt"

	"github.com/dnldd/pullback/shared"
)

const (
	// minVariance is the smallest index variance considered a fittable spread.
	minVariance = 1e-12
)

// Config represents the trendline fitter configuration.
type Config struct {
	// Window is the number of candles either side of an extremum it must strictly exceed.
	Window int
	// Tolerance is the fraction an extremum may break the monotonic sequence by while a
	// later extremum restores it.
	Tolerance float64
	// MinPoints is the minimum number of accepted points required for a fit.
	MinPoints int
}

// DefaultConfig returns the default trendline fitter configuration.
func DefaultConfig() Config {
	return Config{
		Window:    2,
		Tolerance: 0.001,
		MinPoints: 2,
	}
}

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	var errs error

	if c.Window < 1 {
		errs = errors.Join(errs, fmt.Errorf("extrema window must be positive, got %d", c.Window))
	}
	if c.Tolerance < 0 || c.Tolerance >= 1 {
		errs = errors.Join(errs, fmt.Errorf("tolerance must be in [0, 1), got %f", c.Tolerance))
	}
	if c.MinPoints < 2 {
		errs = errors.Join(errs, fmt.Errorf("at least 2 points are required for a fit, got %d", c.MinPoints))
	}

	return errs
}

// Fitter fits trendlines through pullback extrema.
type Fitter struct {
	cfg Config
}

// NewFitter initializes a new trendline fitter.
func NewFitter(cfg Config) (*Fitter, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trendline config: %w", err)
	}

	return &Fitter{cfg: cfg}, nil
}

// Fit fits a trendline through the swing and the monotonic extrema of the provided wave.
// Waves following a swing high are fitted through their highs, waves following a swing low
// through their lows.
func (f *Fitter) Fit(series *shared.CandleSeries, wave *shared.PullbackWave) (*shared.TrendlineModel, *shared.Rejection) {
	kind := wave.Swing.Kind
	extrema := f.extrema(series.Candles, kind, wave.Swing.Index, wave.End)

	anchor := shared.TrendlinePoint{Index: wave.Swing.Index, Price: wave.Swing.Price}
	points := filterMonotonic(anchor, extrema, kind, f.cfg.Tolerance)
	if len(points) < f.cfg.MinPoints {
		return nil, shared.NewRejection(shared.TrendlineFit, shared.GateRejected,
			"trendline unfit, %d of %d points accepted", len(points), f.cfg.MinPoints)
	}

	model, ok := FitLine(points)
	if !ok {
		return nil, shared.NewRejection(shared.TrendlineFit, shared.DegenerateFit,
			"degenerate fit over %d points", len(points))
	}

	return model, nil
}

// extrema returns the local extrema following the swing whose full comparison window closes
// before the breakout candle.
func (f *Fitter) extrema(candles []shared.Candlestick, kind shared.SwingKind, swing int, breakout int) []shared.TrendlinePoint {
	var points []shared.TrendlinePoint
	start := max(swing+1, f.cfg.Window)
	end := min(breakout-1, len(candles)-1) - f.cfg.Window
	for idx := start; idx <= end; idx++ {
		if !isExtremum(candles, idx, f.cfg.Window, kind) {
			continue
		}

		price := candles[idx].High
		if kind == shared.SwingLow {
			price = candles[idx].Low
		}
		points = append(points, shared.TrendlinePoint{Index: idx, Price: price})
	}

	return points
}

// isExtremum checks whether the candle at the provided index strictly exceeds its neighbours:
// highs when fitting after a swing high, lows after a swing low.
func isExtremum(candles []shared.Candlestick, idx int, window int, kind shared.SwingKind) bool {
	for j := idx - window; j <= idx+window; j++ {
		if j == idx {
			continue
		}
		if kind == shared.SwingHigh && candles[idx].High <= candles[j].High {
			return false
		}
		if kind == shared.SwingLow && candles[idx].Low >= candles[j].Low {
			return false
		}
	}

	return true
}

// qualifies checks whether the price continues the monotonic sequence from the reference.
func qualifies(price float64, ref float64, kind shared.SwingKind) bool {
	if kind == shared.SwingLow {
		return price >= ref
	}

	return price <= ref
}

// tolerated checks whether the price breaks the sequence by no more than the tolerance.
func tolerated(price float64, ref float64, kind shared.SwingKind, tolerance float64) bool {
	if kind == shared.SwingLow {
		return price >= ref*(1-tolerance)
	}

	return price <= ref*(1+tolerance)
}

// filterMonotonic filters the extrema into a monotonic sequence starting at the anchor.
// Extrema breaking the sequence within tolerance are kept only when a later extremum
// qualifies against the last accepted point.
func filterMonotonic(anchor shared.TrendlinePoint, extrema []shared.TrendlinePoint, kind shared.SwingKind, tolerance float64) []shared.TrendlinePoint {
	accepted := []shared.TrendlinePoint{anchor}
	for idx, point := range extrema {
		last := accepted[len(accepted)-1]
		switch {
		case qualifies(point.Price, last.Price, kind):
			accepted = append(accepted, point)

		case tolerated(point.Price, last.Price, kind, tolerance):
			for _, later := range extrema[idx+1:] {
				if qualifies(later.Price, last.Price, kind) {
					accepted = append(accepted, point)
					break
				}
			}
		}
	}

	return accepted
}

// FitLine fits a line through the provided points using ordinary least squares. It returns
// false when the index variance is numerically zero.
func FitLine(points []shared.TrendlinePoint) (*shared.TrendlineModel, bool) {
	if len(points) == 0 {
		return nil, false
	}

	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += float64(p.Index)
		sumY += p.Price
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for _, p := range points {
		dx := float64(p.Index) - meanX
		sxx += dx * dx
		sxy += dx * (p.Price - meanY)
	}
	if sxx < minVariance {
		return nil, false
	}

	slope := sxy / sxx
	anchors := make([]shared.TrendlinePoint, len(points))
	copy(anchors, points)

	return &shared.TrendlineModel{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
		Anchors:   anchors,
	}, true
}
