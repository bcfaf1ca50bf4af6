package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/pullback/engine"
	"github.com/dnldd/pullback/fetch"
	"github.com/dnldd/pullback/indicator"
	"github.com/dnldd/pullback/market"
	"github.com/dnldd/pullback/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/atomic"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// SourceFMP selects the FMP market data source.
	SourceFMP = "fmp"
	// SourceBinance selects the binance market data source.
	SourceBinance = "binance"
)

// PullbackConfig represents the configuration struct for the pullback service.
type PullbackConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Source is the market data source, either fmp or binance.
	Source string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// BinanceAPIKey is the binance api key, optional for market data.
	BinanceAPIKey string
	// BinanceSecretKey is the binance secret key, optional for market data.
	BinanceSecretKey string
	// Primary is the timeframe evaluated for signals.
	Primary shared.Timeframe
	// Higher is the timeframe used for confirmation.
	Higher shared.Timeframe
	// PollInterval is the interval between market data fetches.
	PollInterval time.Duration
	// Periods represents the indicator periods of the derived series.
	Periods indicator.Periods
	// Pipeline represents the signal pipeline configuration.
	Pipeline engine.Config
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// NotifyEntrySignal is an optional hook invoked with every emitted entry signal.
	NotifyEntrySignal func(signal shared.EntrySignal)
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *PullbackConfig) Validate() error {
	var errs error

	if cfg.Primary >= cfg.Higher {
		errs = errors.Join(errs, fmt.Errorf("higher timeframe %s must exceed primary timeframe %s",
			cfg.Higher.String(), cfg.Primary.String()))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	switch cfg.Backtest {
	case true:
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for pullback service"))
		}
		if cfg.PollInterval <= 0 {
			errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
		}
		switch cfg.Source {
		case SourceFMP:
			if cfg.FMPAPIKey == "" {
				errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
			}
		case SourceBinance:
		default:
			errs = errors.Join(errs, fmt.Errorf("unknown market data source: %q", cfg.Source))
		}
	}

	errs = errors.Join(errs, cfg.Periods.Validate(), cfg.Pipeline.Validate())

	return errs
}

// Pullback represents a pullback breakout signal service.
type Pullback struct {
	cfg           *PullbackConfig
	fetchManager  *fetch.Manager
	marketManager *market.Manager
	historicData  *fetch.HistoricData
	signalEngine  *engine.Engine
	entrySignals  chan shared.EntrySignal
	signalCount   atomic.Uint32
	logger        *zerolog.Logger
	wg            sync.WaitGroup
}

// newFetcher creates the configured market data source.
func newFetcher(cfg *PullbackConfig) shared.MarketFetcher {
	if cfg.Source == SourceBinance {
		return fetch.NewBinanceClient(&fetch.BinanceConfig{
			APIKey:    cfg.BinanceAPIKey,
			SecretKey: cfg.BinanceSecretKey,
		})
	}

	return fetch.NewFMPClient(&fetch.FMPConfig{APIKey: cfg.FMPAPIKey})
}

// NewPullback initializes a new pullback service.
func NewPullback(cfg *PullbackConfig) (*Pullback, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pullback config: %w", err)
	}

	var marketMgr *market.Manager
	var signalEngine *engine.Engine

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "pullback").Logger()

	svc := &Pullback{
		cfg:          cfg,
		entrySignals: make(chan shared.EntrySignal, bufferSize),
		logger:       &logger,
	}

	caughtUpFunc := func(signal shared.CaughtUpSignal) {
		if marketMgr != nil {
			marketMgr.SendCaughtUpSignal(signal)
		}
	}

	marketUpdateFunc := func(update shared.MarketUpdate) {
		if marketMgr != nil {
			marketMgr.SendMarketUpdate(update)
		}
	}

	evaluationRequestFunc := func(req shared.EvaluationRequest) {
		if signalEngine != nil {
			signalEngine.SendEvaluationRequest(req)
		}
	}

	timeframes := []shared.Timeframe{cfg.Primary, cfg.Higher}
	markets := cfg.Markets

	if cfg.Backtest {
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		svc.historicData, err = fetch.NewHistoricData(&fetch.HistoricDataConfig{
			FilePath:         cfg.BacktestDataFilepath,
			Timeframes:       timeframes,
			SignalCaughtUp:   caughtUpFunc,
			SendMarketUpdate: marketUpdateFunc,
			Logger:           &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %w", err)
		}

		// Backtests track the market of the historic data only.
		markets = []string{svc.historicData.Market()}
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	signalEngine, err = engine.NewEngine(&engine.EngineConfig{
		MarketIDs:       markets,
		Pipeline:        cfg.Pipeline,
		SendEntrySignal: svc.SendEntrySignal,
		Logger:          &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signal engine: %w", err)
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err = market.NewManager(&market.ManagerConfig{
		MarketIDs:         markets,
		Primary:           cfg.Primary,
		Higher:            cfg.Higher,
		Periods:           cfg.Periods,
		MinCandles:        signalEngine.MinCandles(),
		RequestEvaluation: evaluationRequestFunc,
		Logger:            &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %w", err)
	}

	if !cfg.Backtest {
		fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
		svc.fetchManager, err = fetch.NewManager(&fetch.ManagerConfig{
			Markets:          markets,
			Timeframes:       timeframes,
			Fetcher:          newFetcher(cfg),
			PollInterval:     cfg.PollInterval,
			BackfillSize:     int(shared.SnapshotSize),
			SendMarketUpdate: marketUpdateFunc,
			SignalCaughtUp:   caughtUpFunc,
			JobScheduler:     gocron.NewScheduler(time.UTC),
			Logger:           &fetchMgrLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating fetch manager: %w", err)
		}
	}

	svc.marketManager = marketMgr
	svc.signalEngine = signalEngine

	return svc, nil
}

// SendEntrySignal relays the provided entry signal for processing.
func (p *Pullback) SendEntrySignal(signal shared.EntrySignal) {
	select {
	case p.entrySignals <- signal:
		// do nothing.
	default:
		p.logger.Error().Msgf("entry signal channel at capacity: %d/%d",
			len(p.entrySignals), bufferSize)
	}
}

// handleEntrySignal processes the provided entry signal.
func (p *Pullback) handleEntrySignal(signal *shared.EntrySignal) {
	defer func() { signal.Status <- shared.Processed }()

	p.signalCount.Inc()
	p.logger.Info().
		Str("id", signal.ID).
		Str("market", signal.Market).
		Str("timeframe", signal.Timeframe.String()).
		Str("direction", signal.Direction.String()).
		Float64("price", signal.Price).
		Time("created", signal.CreatedOn).
		Msg("entry signal")

	if p.cfg.NotifyEntrySignal != nil {
		p.cfg.NotifyEntrySignal(*signal)
	}
}

// SignalCount returns the number of entry signals processed.
func (p *Pullback) SignalCount() uint32 {
	return p.signalCount.Load()
}

// relaySignals processes entry signals until the context is cancelled.
func (p *Pullback) relaySignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-p.entrySignals:
			p.handleEntrySignal(&signal)
		}
	}
}

// Run handles the lifecycle processes of the pullback service.
func (p *Pullback) Run(ctx context.Context) {
	p.wg.Add(3)

	go func() {
		p.relaySignals(ctx)
		p.wg.Done()
	}()

	go func() {
		p.marketManager.Run(ctx)
		p.wg.Done()
	}()

	go func() {
		p.signalEngine.Run(ctx)
		p.wg.Done()
	}()

	switch p.cfg.Backtest {
	case true:
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()

			// Each historical update completes only once its evaluation and any resulting
			// entry signal have been processed.
			err := p.historicData.ProcessHistoricalData(ctx)
			if err != nil {
				p.logger.Error().Err(err).Msg("processing historical data")
			}

			p.logger.Info().Msgf("backtest for %s done, %d entry signals emitted",
				p.historicData.Market(), p.SignalCount())
			p.cfg.Cancel()
		}()

	case false:
		p.wg.Add(1)
		go func() {
			p.fetchManager.Run(ctx)
			p.wg.Done()
		}()
	}

	p.wg.Wait()
}
