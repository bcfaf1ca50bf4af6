package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/pullback/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 16
)

// EngineConfig represents the signal engine configuration.
type EngineConfig struct {
	// MarketIDs represents the collection of ids of the markets to evaluate.
	MarketIDs []string
	// Pipeline represents the signal pipeline configuration.
	Pipeline Config
	// SendEntrySignal relays the provided entry signal for processing.
	SendEntrySignal func(signal shared.EntrySignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine evaluates market candle series for entry signals.
type Engine struct {
	cfg                *EngineConfig
	pipeline           *Pipeline
	states             map[string]*State
	workers            chan struct{}
	marketWorkers      map[string]chan struct{}
	evaluationRequests chan shared.EvaluationRequest
}

// NewEngine initializes a new signal engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	pipeline, err := NewPipeline(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	states := make(map[string]*State, len(cfg.MarketIDs))
	marketWorkers := make(map[string]chan struct{}, len(cfg.MarketIDs))
	for _, market := range cfg.MarketIDs {
		state := NewState(cfg.Pipeline.Confirmations)
		states[market] = &state
		marketWorkers[market] = make(chan struct{}, 1)
	}

	return &Engine{
		cfg:                cfg,
		pipeline:           pipeline,
		states:             states,
		workers:            make(chan struct{}, maxWorkers),
		marketWorkers:      marketWorkers,
		evaluationRequests: make(chan shared.EvaluationRequest, bufferSize),
	}, nil
}

// MinCandles returns the minimum number of closed candles an evaluation requires.
func (e *Engine) MinCandles() int {
	return e.pipeline.MinCandles()
}

// SendEvaluationRequest relays the provided evaluation request for processing.
func (e *Engine) SendEvaluationRequest(req shared.EvaluationRequest) {
	select {
	case e.evaluationRequests <- req:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("evaluation request channel at capacity: %d/%d",
			len(e.evaluationRequests), bufferSize)
	}
}

// handleEvaluationRequest evaluates the provided request and relays any resulting entry signal.
func (e *Engine) handleEvaluationRequest(req *shared.EvaluationRequest) {
	defer func() { req.Status <- shared.Processed }()

	state := e.states[req.Market]
	signal, next, err := e.pipeline.Evaluate(req.Series, req.Higher, *state)
	if err != nil {
		e.cfg.Logger.Error().Err(err).Msgf("evaluating %s market", req.Market)
		return
	}
	*state = next

	if signal.Direction == shared.None {
		e.cfg.Logger.Debug().
			Str("market", req.Market).
			Str("timeframe", req.Timeframe.String()).
			Str("stage", signal.Stage.String()).
			Bool("deferred", signal.Deferred).
			Msgf("no signal: %s", signal.Reason)
		return
	}

	e.cfg.Logger.Info().
		Str("market", req.Market).
		Str("timeframe", req.Timeframe.String()).
		Str("direction", signal.Direction.String()).
		Float64("price", signal.TriggerPrice).
		Time("date", signal.TriggerDate).
		Msg(signal.Reason)
	if trace := e.cfg.Logger.Trace(); trace.Enabled() {
		trace.Msg(spew.Sdump(signal.Evidence))
	}

	entry := shared.NewEntrySignal(req.Market, req.Timeframe, signal, signal.TriggerDate)
	e.cfg.SendEntrySignal(entry)

	select {
	case <-entry.Status:
	case <-time.After(shared.TimeoutDuration):
		e.cfg.Logger.Error().Msgf("timed out waiting for %s entry signal %s to be processed", req.Market, entry.ID)
	}
}

// acquire blocks until a slot on the provided worker channel is available. It returns false
// if the context is cancelled first.
func acquire(ctx context.Context, workers chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case workers <- struct{}{}:
		return true
	}
}

// Run manages the lifecycle processes of the signal engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.evaluationRequests:
			marketWorker, ok := e.marketWorkers[req.Market]
			if !ok {
				e.cfg.Logger.Error().Msgf("no market found with name %s for evaluation", req.Market)
				req.Status <- shared.Processed
				continue
			}

			// A market's state is owned by one evaluation at a time, acquiring its worker
			// here keeps evaluations in arrival order.
			if !acquire(ctx, marketWorker) {
				return
			}
			if !acquire(ctx, e.workers) {
				<-marketWorker
				return
			}

			go func(req *shared.EvaluationRequest) {
				e.handleEvaluationRequest(req)
				<-e.workers
				<-marketWorker
			}(&req)
		}
	}
}
