package engine

import (
	"fmt"
	"math"

	"github.com/dnldd/pullback/breakout"
	"github.com/dnldd/pullback/divergence"
	"github.com/dnldd/pullback/pullback"
	"github.com/dnldd/pullback/shared"
	"github.com/dnldd/pullback/swing"
	"github.com/dnldd/pullback/trendline"
)

// Pipeline evaluates candle series for swing pullback trendline breakouts.
type Pipeline struct {
	cfg       Config
	validator *pullback.Validator
	fitter    *trendline.Fitter
	confirmer *breakout.Confirmer
	detector  *divergence.Detector
}

// NewPipeline initializes a new signal pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pipeline config: %w", err)
	}

	validator, err := pullback.NewValidator(cfg.Pullback)
	if err != nil {
		return nil, err
	}
	fitter, err := trendline.NewFitter(cfg.Trendline)
	if err != nil {
		return nil, err
	}
	confirmer, err := breakout.NewConfirmer(cfg.Breakout)
	if err != nil {
		return nil, err
	}
	detector, err := divergence.NewDetector(cfg.Divergence)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		validator: validator,
		fitter:    fitter,
		confirmer: confirmer,
		detector:  detector,
	}, nil
}

// MinCandles returns the minimum number of closed candles required for an evaluation.
func (p *Pipeline) MinCandles() int {
	return 2*p.cfg.SwingLookback + p.cfg.Pullback.PreCandles + p.validator.MinCandles()
}

// evaluation represents the outcome of evaluating a single trade direction.
type evaluation struct {
	signal  shared.Signal
	emitted bool
}

// progress returns how far the evaluation advanced through the pipeline stages.
func (e *evaluation) progress() shared.Stage {
	if e.emitted {
		return shared.SignalEmitted
	}

	return e.signal.Rejection.Stage
}

// Evaluate evaluates the closed candles of the provided series for a trade signal. Only the
// latest closed rsi of the higher timeframe series is used. The returned state must replace
// the provided one. An error is returned only for malformed series.
func (p *Pipeline) Evaluate(series *shared.CandleSeries, higher *shared.CandleSeries, state State) (shared.Signal, State, error) {
	err := series.Validate()
	if err != nil {
		return shared.Signal{}, state, fmt.Errorf("validating series: %w", err)
	}
	if higher != nil {
		err = higher.Validate()
		if err != nil {
			return shared.Signal{}, state, fmt.Errorf("validating higher timeframe series: %w", err)
		}
	}

	next := state
	next.Buy.Required = p.cfg.Confirmations
	next.Sell.Required = p.cfg.Confirmations

	closed := series.ClosedView()
	if closed.Len() < p.MinCandles() {
		rej := shared.NewRejection(shared.SwingFound, shared.InsufficientData,
			"%d closed candles, %d required", closed.Len(), p.MinCandles())
		return shared.NewRejectedSignal(shared.SearchingSwing, rej, nil), next, nil
	}

	buy := p.evaluateDirection(closed, higher, shared.SwingHigh, &next)
	sell := p.evaluateDirection(closed, higher, shared.SwingLow, &next)

	switch {
	case buy.emitted:
		return buy.signal, next, nil
	case sell.emitted:
		return sell.signal, next, nil
	case sell.progress() > buy.progress():
		return sell.signal, next, nil
	default:
		return buy.signal, next, nil
	}
}

// findSwing returns the most recent swing of the provided kind whose window closes before
// the breakout candle, using the cached swing to bound the search.
func (p *Pipeline) findSwing(series *shared.CandleSeries, kind shared.SwingKind, current int, state *State) (shared.SwingPoint, bool) {
	lookback := p.cfg.SwingLookback
	threshold := p.cfg.swingThreshold(kind)

	cached := state.lastSwing(kind)
	if cached != nil {
		idx := series.IndexOf(cached)
		if idx >= 0 {
			point, ok := swing.FindSwingAfter(series, lookback, kind, threshold, idx+1, current)
			if ok {
				return point, true
			}

			// The cached swing stands when it still qualifies in this window.
			point, ok = swing.FindSwingAfter(series, lookback, kind, threshold, idx, min(idx+lookback+1, current))
			if ok {
				return point, true
			}
		}
	}

	return swing.FindSwing(series, lookback, kind, threshold, current)
}

// evaluateDirection runs the pipeline stages for the trade direction set up by the provided
// swing kind.
func (p *Pipeline) evaluateDirection(series *shared.CandleSeries, higher *shared.CandleSeries, kind shared.SwingKind, state *State) evaluation {
	direction := kind.TradeDirection()
	counter := state.counter(direction)
	current := series.Len() - 1
	evidence := &shared.Evidence{
		Snapshot:  series.Snapshot(current),
		HigherRSI: math.NaN(),
	}

	reject := func(rej *shared.Rejection) evaluation {
		if rej.Stage != shared.SignalEmitted {
			counter.Reset()
		}
		return evaluation{signal: shared.NewRejectedSignal(rej.Stage-1, rej, evidence)}
	}

	point, ok := p.findSwing(series, kind, current, state)
	if !ok {
		return reject(shared.NewRejection(shared.SwingFound, shared.GateRejected,
			"no %s in the last %d candles", kind, series.Len()))
	}
	state.setLastSwing(point)
	evidence.Swing = &point

	if !counter.SwingDate.IsZero() && !counter.SwingDate.Equal(point.Date) {
		counter.Reset()
	}

	wave, rej := p.validator.Validate(series, point, current)
	evidence.Wave = wave
	if rej != nil {
		return reject(rej)
	}

	model, rej := p.fitter.Fit(series, wave)
	if rej != nil {
		return reject(rej)
	}
	evidence.Trendline = model

	candle := series.Candles[current]
	rej = p.confirmer.Confirm(series, model, direction, current, counter.FollowUp(point.Date, candle.Date))
	if rej != nil {
		return reject(rej)
	}

	div, rej := p.detector.Check(series, current, direction)
	evidence.Divergence = div
	if rej != nil {
		return reject(rej)
	}

	rej = p.confirmHigherTimeframe(higher, direction, evidence)
	if rej != nil {
		return reject(rej)
	}

	if !counter.Observe(point.Date, current, candle.Date) {
		rej := shared.NewRejection(shared.SignalEmitted, shared.GateRejected,
			"%d of %d qualifying evaluations of %s at %d", counter.Count, counter.Required,
			kind, point.Index)
		rej.Deferred = true
		return reject(rej)
	}

	return evaluation{
		signal: shared.Signal{
			Direction:    direction,
			Stage:        shared.SignalEmitted,
			TriggerIndex: current,
			TriggerPrice: candle.Close,
			TriggerDate:  candle.Date,
			Evidence:     evidence,
			Reason: fmt.Sprintf("%s breakout of %s at %d, slope %.2f", direction, kind,
				point.Index, wave.Slope),
		},
		emitted: true,
	}
}

// confirmHigherTimeframe checks the latest closed rsi of the higher timeframe series against
// the band of the provided direction.
func (p *Pipeline) confirmHigherTimeframe(higher *shared.CandleSeries, direction shared.Direction, evidence *shared.Evidence) *shared.Rejection {
	if higher == nil {
		return shared.NewRejection(shared.MTFConfirmed, shared.InsufficientData,
			"no higher timeframe series")
	}

	closed := higher.ClosedView()
	if closed.Len() == 0 {
		return shared.NewRejection(shared.MTFConfirmed, shared.InsufficientData,
			"no closed higher timeframe candles")
	}

	rsi := closed.RSI[closed.Len()-1]
	evidence.HigherRSI = rsi
	if math.IsNaN(rsi) {
		return shared.NewRejection(shared.MTFConfirmed, shared.IndicatorUndefined,
			"higher timeframe rsi undefined")
	}

	band := p.cfg.BuyRSIBand
	if direction == shared.Sell {
		band = p.cfg.SellRSIBand
	}
	if !band.Contains(rsi) {
		return shared.NewRejection(shared.MTFConfirmed, shared.GateRejected,
			"higher timeframe rsi %.2f outside [%.2f, %.2f]", rsi, band.Min, band.Max)
	}

	return nil
}
