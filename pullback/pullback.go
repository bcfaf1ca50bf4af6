package pullback

import (
	"fmt"
	"math"

	"github.com/dnldd/pullback/shared"
)

const (
	// swingWickRadius is the number of candles either side of the swing checked for exhaustion wicks.
	swingWickRadius = 2
)

// Classify classifies the provided slope against the bands. Undefined slopes are rejected.
func Classify(slope float64, bands Bands) shared.Classification {
	switch {
	case math.IsNaN(slope):
		return shared.Rejected
	case slope >= bands.RejectMin:
		return shared.Rejected
	case slope > bands.ValidMax:
		return shared.Steep
	case slope >= bands.ValidMin:
		return shared.Valid
	default:
		return shared.Rejected
	}
}

// swingSideWick returns the wick of the provided candle on the side of the swing kind.
func swingSideWick(candle *shared.Candlestick, kind shared.SwingKind) float64 {
	if kind == shared.SwingLow {
		return candle.LowerWick()
	}

	return candle.UpperWick()
}

// exceedsWick checks whether the wick reaches the provided multiple of atr. The comparison
// is inclusive.
func exceedsWick(wick float64, atr float64, multiplier float64) bool {
	return wick >= multiplier*atr
}

// startsPullback checks whether the candle at the provided index retraces past the
// previous candle's range.
func startsPullback(candles []shared.Candlestick, idx int, kind shared.SwingKind) bool {
	prev := candles[idx-1]
	switch kind {
	case shared.SwingHigh:
		return candles[idx].Close <= prev.Low
	case shared.SwingLow:
		return candles[idx].Close >= prev.High
	default:
		return false
	}
}

// Validator validates the retracement following a swing point.
type Validator struct {
	cfg Config
}

// NewValidator initializes a new pullback validator.
func NewValidator(cfg Config) (*Validator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pullback config: %w", err)
	}

	return &Validator{cfg: cfg}, nil
}

// MinCandles returns the minimum number of candles following a swing required to evaluate
// a wave, the breakout candle included.
func (v *Validator) MinCandles() int {
	return v.cfg.PullbackCandles + 1
}

// Validate validates the wave between the provided swing and the breakout candle at current.
// A non-nil rejection short-circuits the wave; the wave is still returned when its slope
// was computed so callers can report it.
func (v *Validator) Validate(series *shared.CandleSeries, swing shared.SwingPoint, current int) (*shared.PullbackWave, *shared.Rejection) {
	candles := series.Candles
	if current >= len(candles) || swing.Index < 0 || swing.Index >= current {
		return nil, shared.NewRejection(shared.PullbackValid, shared.InsufficientData,
			"breakout candle %d does not follow swing %d", current, swing.Index)
	}

	if current-swing.Index > v.cfg.MaxPullbackLength {
		return nil, shared.NewRejection(shared.PullbackValid, shared.GateRejected,
			"pullback exceeded %d candles since swing %d", v.cfg.MaxPullbackLength, swing.Index)
	}

	rej := v.checkSwingWicks(series, swing, current)
	if rej != nil {
		return nil, rej
	}

	pb1 := v.firstPullback(candles, swing, current)
	if pb1 < 0 {
		return nil, shared.NewRejection(shared.PullbackValid, shared.GateRejected,
			"no retracement started after swing %d", swing.Index)
	}

	slope, rej := v.slope(series, swing.Kind, pb1, current)
	if rej != nil {
		return nil, rej
	}

	wave := &shared.PullbackWave{
		Swing:              swing,
		FirstPullbackIndex: pb1,
		Slope:              slope,
		Classification:     Classify(slope, v.cfg.Bands),
		Start:              pb1,
		End:                current,
	}

	switch wave.Classification {
	case shared.Steep:
		rej := shared.NewRejection(shared.PullbackValid, shared.GateRejected,
			"steep pullback slope %.2f in (%.2f, %.2f), awaiting a clearer reversal",
			slope, v.cfg.Bands.ValidMax, v.cfg.Bands.RejectMin)
		rej.Deferred = true
		return wave, rej

	case shared.Rejected:
		if slope < v.cfg.Bands.ValidMin {
			return wave, shared.NewRejection(shared.PullbackValid, shared.GateRejected,
				"shallow pullback slope %.2f below %.2f", slope, v.cfg.Bands.ValidMin)
		}
		return wave, shared.NewRejection(shared.PullbackValid, shared.GateRejected,
			"pullback slope %.2f at or above %.2f", slope, v.cfg.Bands.RejectMin)
	}

	rej = v.checkWaveWicks(series, swing.Kind, pb1, current)
	if rej != nil {
		return wave, rej
	}

	return wave, nil
}

// checkSwingWicks rejects swings with an exhaustion wick around the pivot.
func (v *Validator) checkSwingWicks(series *shared.CandleSeries, swing shared.SwingPoint, current int) *shared.Rejection {
	atr := series.ATR[swing.Index]
	if math.IsNaN(atr) {
		return shared.NewRejection(shared.PullbackValid, shared.IndicatorUndefined,
			"atr undefined at swing %d", swing.Index)
	}

	start := max(swing.Index-swingWickRadius, 0)
	end := min(swing.Index+swingWickRadius, current)
	for idx := start; idx <= end; idx++ {
		wick := swingSideWick(&series.Candles[idx], swing.Kind)
		if exceedsWick(wick, atr, v.cfg.WickATRMultiplier) {
			return shared.NewRejection(shared.PullbackValid, shared.GateRejected,
				"swing wick of %.5f at candle %d reaches %.2f x atr %.5f",
				wick, idx, v.cfg.WickATRMultiplier, atr)
		}
	}

	return nil
}

// firstPullback returns the index of the first pullback candle following the swing, or -1.
func (v *Validator) firstPullback(candles []shared.Candlestick, swing shared.SwingPoint, current int) int {
	bound := min(swing.Index+v.cfg.MaxPullbackLength, current)
	for idx := swing.Index + 1; idx <= bound; idx++ {
		if startsPullback(candles, idx, swing.Kind) {
			return idx
		}
	}

	return -1
}

// slope computes the atr normalized excursion of the wave starting at pb1.
func (v *Validator) slope(series *shared.CandleSeries, kind shared.SwingKind, pb1 int, current int) (float64, *shared.Rejection) {
	preStart := pb1 - v.cfg.PreCandles
	pbEnd := pb1 + v.cfg.PullbackCandles - 1
	if preStart < 0 {
		return 0, shared.NewRejection(shared.PullbackValid, shared.InsufficientData,
			"%d candles required before first pullback candle %d", v.cfg.PreCandles, pb1)
	}
	if pbEnd >= current {
		return 0, shared.NewRejection(shared.PullbackValid, shared.InsufficientData,
			"%d pullback candles required from %d before breakout candle %d",
			v.cfg.PullbackCandles, pb1, current)
	}

	candles := series.Candles
	var atrSum float64
	for idx := pb1; idx <= pbEnd; idx++ {
		atr := series.ATR[idx]
		if math.IsNaN(atr) {
			return 0, shared.NewRejection(shared.PullbackValid, shared.IndicatorUndefined,
				"atr undefined at pullback candle %d", idx)
		}
		atrSum += atr
	}
	if atrSum <= 0 {
		return 0, shared.NewRejection(shared.PullbackValid, shared.IndicatorUndefined,
			"non-positive atr sum %f over pullback candles", atrSum)
	}

	var excursion float64
	switch kind {
	case shared.SwingHigh:
		high := math.Inf(-1)
		for idx := preStart; idx <= pb1; idx++ {
			high = math.Max(high, candles[idx].High)
		}
		low := math.Inf(1)
		for idx := pb1; idx <= pbEnd; idx++ {
			low = math.Min(low, candles[idx].Low)
		}
		excursion = high - low

	case shared.SwingLow:
		high := math.Inf(-1)
		for idx := pb1; idx <= pbEnd; idx++ {
			high = math.Max(high, candles[idx].High)
		}
		low := math.Inf(1)
		for idx := preStart; idx <= pb1; idx++ {
			low = math.Min(low, candles[idx].Low)
		}
		excursion = high - low
	}

	return v.cfg.SlopeScale * excursion / atrSum, nil
}

// checkWaveWicks rejects waves containing a counter-trend wick reaching the atr multiple.
func (v *Validator) checkWaveWicks(series *shared.CandleSeries, kind shared.SwingKind, start int, end int) *shared.Rejection {
	for idx := start; idx < end; idx++ {
		atr := series.ATR[idx]
		if math.IsNaN(atr) {
			return shared.NewRejection(shared.PullbackValid, shared.IndicatorUndefined,
				"atr undefined at wave candle %d", idx)
		}

		wick := swingSideWick(&series.Candles[idx], kind)
		if exceedsWick(wick, atr, v.cfg.WickATRMultiplier) {
			return shared.NewRejection(shared.PullbackValid, shared.GateRejected,
				"wave wick of %.5f at candle %d reaches %.2f x atr %.5f",
				wick, idx, v.cfg.WickATRMultiplier, atr)
		}
	}

	return nil
}
