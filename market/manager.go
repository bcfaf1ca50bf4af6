package market

import (
	"context"
	"fmt"

	"github.com/dnldd/pullback/indicator"
	"github.com/dnldd/pullback/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// MarketIDs represents the collection of ids of the markets to manage.
	MarketIDs []string
	// Primary is the timeframe evaluated for signals.
	Primary shared.Timeframe
	// Higher is the timeframe used for confirmation.
	Higher shared.Timeframe
	// Periods represents the indicator periods of the derived series.
	Periods indicator.Periods
	// MinCandles is the minimum number of closed primary candles required before evaluations
	// are requested.
	MinCandles int
	// RequestEvaluation relays the provided evaluation request for processing.
	RequestEvaluation func(req shared.EvaluationRequest)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages the lifecycle processes of all tracked markets.
type Manager struct {
	cfg             *ManagerConfig
	markets         map[string]*Market
	updateSignals   chan shared.MarketUpdate
	caughtUpSignals chan shared.CaughtUpSignal
	workers         map[string]chan struct{}
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	markets := make(map[string]*Market, len(cfg.MarketIDs))
	workers := make(map[string]chan struct{}, len(cfg.MarketIDs))
	for idx := range cfg.MarketIDs {
		mCfg := &MarketConfig{
			Market:            cfg.MarketIDs[idx],
			Primary:           cfg.Primary,
			Higher:            cfg.Higher,
			Periods:           cfg.Periods,
			SnapshotSize:      shared.SnapshotSize,
			MinCandles:        cfg.MinCandles,
			RequestEvaluation: cfg.RequestEvaluation,
		}
		market, err := NewMarket(mCfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s market: %w", cfg.MarketIDs[idx], err)
		}

		markets[cfg.MarketIDs[idx]] = market
		workers[cfg.MarketIDs[idx]] = make(chan struct{}, 1)
	}

	return &Manager{
		cfg:             cfg,
		markets:         markets,
		updateSignals:   make(chan shared.MarketUpdate, bufferSize),
		caughtUpSignals: make(chan shared.CaughtUpSignal, bufferSize),
		workers:         workers,
	}, nil
}

// SendMarketUpdate relays the provided market update for processing.
func (m *Manager) SendMarketUpdate(update shared.MarketUpdate) {
	select {
	case m.updateSignals <- update:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendCaughtUpSignal relays the provided caught up signal for processing.
func (m *Manager) SendCaughtUpSignal(signal shared.CaughtUpSignal) {
	select {
	case m.caughtUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("caught up signal channel at capacity: %d/%d",
			len(m.caughtUpSignals), bufferSize)
	}
}

// handleMarketUpdate processes the provided market update.
func (m *Manager) handleMarketUpdate(update *shared.MarketUpdate) {
	defer func() { update.Status <- shared.Processed }()

	market, ok := m.markets[update.Candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for update", update.Candle.Market)
		return
	}

	err := market.Update(&update.Candle)
	if err != nil {
		m.cfg.Logger.Error().Msgf("updating %s market: %v", update.Candle.Market, err)
	}
}

// handleCaughtUpSignal processes the provided caught up signal.
func (m *Manager) handleCaughtUpSignal(signal *shared.CaughtUpSignal) {
	defer func() { signal.Status <- shared.Processed }()

	market, ok := m.markets[signal.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for caught up signal", signal.Market)
		return
	}

	market.SetCaughtUpStatus(true)
	m.cfg.Logger.Info().Msgf("%s market caught up", signal.Market)
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case update := <-m.updateSignals:
			worker, ok := m.workers[update.Candle.Market]
			if !ok {
				m.handleMarketUpdate(&update)
				continue
			}

			// use the dedicated market worker to keep updates of a market in order.
			select {
			case <-ctx.Done():
				return
			case worker <- struct{}{}:
			}

			go func(update *shared.MarketUpdate) {
				m.handleMarketUpdate(update)
				<-worker
			}(&update)

		case signal := <-m.caughtUpSignals:
			worker, ok := m.workers[signal.Market]
			if !ok {
				m.handleCaughtUpSignal(&signal)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case worker <- struct{}{}:
			}

			go func(signal *shared.CaughtUpSignal) {
				m.handleCaughtUpSignal(signal)
				<-worker
			}(&signal)
		}
	}
}
