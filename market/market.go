package market

import (
	"fmt"
	"time"

	"github.com/dnldd/pullback/indicator"
	"github.com/dnldd/pullback/shared"
	"go.uber.org/atomic"
)

// MarketConfig represents the market configuration.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Primary is the timeframe evaluated for signals.
	Primary shared.Timeframe
	// Higher is the timeframe used for confirmation.
	Higher shared.Timeframe
	// Periods represents the indicator periods of the derived series.
	Periods indicator.Periods
	// SnapshotSize is the number of candles retained per timeframe.
	SnapshotSize int32
	// MinCandles is the minimum number of closed primary candles required before evaluations
	// are requested.
	MinCandles int
	// RequestEvaluation relays the provided evaluation request for processing.
	RequestEvaluation func(req shared.EvaluationRequest)
}

// Market tracks the candle data of a market.
type Market struct {
	cfg      *MarketConfig
	primary  *shared.CandlestickSnapshot
	higher   *shared.CandlestickSnapshot
	caughtUp atomic.Bool
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	if cfg.Primary >= cfg.Higher {
		return nil, fmt.Errorf("higher timeframe %s must exceed primary timeframe %s",
			cfg.Higher.String(), cfg.Primary.String())
	}

	primary, err := shared.NewCandlestickSnapshot(cfg.SnapshotSize, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("creating %s candlestick snapshot: %w", cfg.Primary.String(), err)
	}

	higher, err := shared.NewCandlestickSnapshot(cfg.SnapshotSize, cfg.Higher)
	if err != nil {
		return nil, fmt.Errorf("creating %s candlestick snapshot: %w", cfg.Higher.String(), err)
	}

	return &Market{
		cfg:     cfg,
		primary: primary,
		higher:  higher,
	}, nil
}

// SetCaughtUpStatus sets the caught up status of the market.
func (m *Market) SetCaughtUpStatus(status bool) {
	m.caughtUp.Store(status)
}

// CaughtUp returns the caught up status of the market.
func (m *Market) CaughtUp() bool {
	return m.caughtUp.Load()
}

// series derives the candle series of the provided snapshot.
func (m *Market) series(snapshot *shared.CandlestickSnapshot) (*shared.CandleSeries, error) {
	data := snapshot.LastN(snapshot.Count())
	candles := make([]shared.Candlestick, len(data))
	for idx := range data {
		candles[idx] = *data[idx]
	}

	return indicator.NewCandleSeries(candles, m.cfg.Periods)
}

// Update processes incoming market data for the market. An evaluation is requested when a
// primary candle closes once the market is caught up.
func (m *Market) Update(candle *shared.Candlestick) error {
	if candle.Market != m.cfg.Market {
		return fmt.Errorf("expected candles for %s, got %s", m.cfg.Market, candle.Market)
	}

	switch candle.Timeframe {
	case m.cfg.Higher:
		_, err := m.higher.Update(candle)
		if err != nil {
			return fmt.Errorf("updating %s snapshot: %w", m.cfg.Higher.String(), err)
		}
		return nil

	case m.cfg.Primary:
		closed, err := m.primary.Update(candle)
		if err != nil {
			return fmt.Errorf("updating %s snapshot: %w", m.cfg.Primary.String(), err)
		}

		// The snapshot includes the forming candle.
		if !closed || !m.CaughtUp() || int(m.primary.Count())-1 < m.cfg.MinCandles {
			return nil
		}

		return m.requestEvaluation()

	default:
		// do nothing.
		return nil
	}
}

// requestEvaluation relays an evaluation request for the current market data.
func (m *Market) requestEvaluation() error {
	series, err := m.series(m.primary)
	if err != nil {
		return fmt.Errorf("creating %s series: %w", m.cfg.Primary.String(), err)
	}

	var higher *shared.CandleSeries
	if m.higher.Count() > 0 {
		higher, err = m.series(m.higher)
		if err != nil {
			return fmt.Errorf("creating %s series: %w", m.cfg.Higher.String(), err)
		}
	}

	req := shared.NewEvaluationRequest(m.cfg.Market, m.cfg.Primary, series, higher)
	m.cfg.RequestEvaluation(req)

	// An update is only considered processed once its evaluation completes.
	select {
	case <-req.Status:
		return nil
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("timed out waiting for %s evaluation request to be processed", m.cfg.Market)
	}
}
