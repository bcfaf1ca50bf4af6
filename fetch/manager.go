package fetch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/pullback/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// pollSize is the number of recent candles requested on each poll.
	pollSize = 3
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// Timeframes represents the timeframes fetched for each market.
	Timeframes []shared.Timeframe
	// Fetcher represents the market data source.
	Fetcher shared.MarketFetcher
	// PollInterval is the interval between market data fetches.
	PollInterval time.Duration
	// BackfillSize is the number of candles fetched per timeframe before a market is caught up.
	BackfillSize int
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(update shared.MarketUpdate)
	// SignalCaughtUp signals a market is caught up on market data.
	SignalCaughtUp func(signal shared.CaughtUpSignal)
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided"))
	}
	if len(cfg.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframes provided"))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("market fetcher cannot be nil"))
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.BackfillSize <= 0 {
		errs = errors.Join(errs, fmt.Errorf("backfill size must be positive"))
	}
	if cfg.SendMarketUpdate == nil {
		errs = errors.Join(errs, fmt.Errorf("send market update function cannot be nil"))
	}
	if cfg.SignalCaughtUp == nil {
		errs = errors.Join(errs, fmt.Errorf("signal caught up function cannot be nil"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager represents the market data fetch manager.
type Manager struct {
	cfg              *ManagerConfig
	markets          map[string]struct{}
	lastUpdatedTimes map[string]time.Time
	lastUpdatedMtx   sync.Mutex
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	markets := make(map[string]struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		markets[cfg.Markets[idx]] = struct{}{}
	}

	mgr := &Manager{
		cfg:              cfg,
		markets:          markets,
		lastUpdatedTimes: make(map[string]time.Time),
	}

	return mgr, nil
}

// updateKey returns the last updated time key of the provided market and timeframe.
func updateKey(market string, timeframe shared.Timeframe) string {
	return market + "/" + timeframe.String()
}

// sortCandles orders candles by date, lower timeframes first on ties.
func sortCandles(candles []shared.Candlestick) {
	slices.SortStableFunc(candles, func(a, b shared.Candlestick) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		switch {
		case a.Timeframe < b.Timeframe:
			return -1
		case a.Timeframe > b.Timeframe:
			return 1
		default:
			return 0
		}
	})
}

// relay sends the provided candles for processing in order, waiting on each to be processed.
// Candles older than the last relayed candle of their timeframe are skipped.
func (m *Manager) relay(ctx context.Context, candles []shared.Candlestick) error {
	for idx := range candles {
		candle := candles[idx]
		key := updateKey(candle.Market, candle.Timeframe)

		m.lastUpdatedMtx.Lock()
		last, ok := m.lastUpdatedTimes[key]
		m.lastUpdatedMtx.Unlock()
		if ok && candle.Date.Before(last) {
			continue
		}

		update := shared.NewMarketUpdate(candle)
		m.cfg.SendMarketUpdate(update)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-update.Status:
		case <-time.After(shared.TimeoutDuration):
			return fmt.Errorf("timed out processing %s market update for %s",
				candle.Timeframe.String(), candle.Market)
		}

		m.lastUpdatedMtx.Lock()
		m.lastUpdatedTimes[key] = candle.Date
		m.lastUpdatedMtx.Unlock()
	}

	return nil
}

// fetch fetches the most recent n candles of the market across all configured timeframes.
func (m *Manager) fetch(ctx context.Context, market string, timeframes []shared.Timeframe, n int) ([]shared.Candlestick, error) {
	if _, ok := m.markets[market]; !ok {
		return nil, fmt.Errorf("unknown market provided: %s", market)
	}

	var candles []shared.Candlestick
	for idx := range timeframes {
		data, err := m.cfg.Fetcher.FetchCandles(ctx, market, timeframes[idx], n)
		if err != nil {
			return nil, fmt.Errorf("fetching %s candles for %s: %w", timeframes[idx].String(), market, err)
		}
		candles = append(candles, data...)
	}

	sortCandles(candles)

	return candles, nil
}

// Backfill fetches and relays the backfill candles of the provided market, signalling the
// market is caught up afterwards.
func (m *Manager) Backfill(ctx context.Context, market string) error {
	candles, err := m.fetch(ctx, market, m.cfg.Timeframes, m.cfg.BackfillSize)
	if err != nil {
		return err
	}

	err = m.relay(ctx, candles)
	if err != nil {
		return fmt.Errorf("relaying %s backfill: %w", market, err)
	}

	sig := shared.NewCaughtUpSignal(market)
	m.cfg.SignalCaughtUp(sig)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sig.Status:
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("timed out signalling %s is caught up", market)
	}

	m.cfg.Logger.Info().Msgf("backfilled %d candles for %s", len(candles), market)

	return nil
}

// fetchMarketDataJob fetches and relays the latest candles of the provided market and timeframe.
func (m *Manager) fetchMarketDataJob(ctx context.Context, market string, timeframe shared.Timeframe) error {
	candles, err := m.fetch(ctx, market, []shared.Timeframe{timeframe}, pollSize)
	if err != nil {
		return err
	}

	err = m.relay(ctx, candles)
	if err != nil {
		return fmt.Errorf("relaying %s candles for %s: %w", timeframe.String(), market, err)
	}

	return nil
}

// scheduleJobs schedules periodic market data fetches for all tracked markets.
func (m *Manager) scheduleJobs(ctx context.Context) error {
	for idx := range m.cfg.Markets {
		market := m.cfg.Markets[idx]
		for tfIdx := range m.cfg.Timeframes {
			timeframe := m.cfg.Timeframes[tfIdx]
			_, err := m.cfg.JobScheduler.Every(m.cfg.PollInterval).WaitForSchedule().SingletonMode().Do(func() {
				err := m.fetchMarketDataJob(ctx, market, timeframe)
				if err != nil {
					m.cfg.Logger.Error().Err(err).Msgf("fetching %s market data for %s",
						timeframe.String(), market)
				}
			})
			if err != nil {
				return fmt.Errorf("scheduling %s market data job for %s: %w", timeframe.String(), market, err)
			}
		}
	}

	return nil
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	for idx := range m.cfg.Markets {
		market := m.cfg.Markets[idx]
		err := m.Backfill(ctx, market)
		if err != nil {
			m.cfg.Logger.Error().Err(err).Msgf("backfilling %s", market)
		}
	}

	err := m.scheduleJobs(ctx)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msg("scheduling market data jobs")
		return
	}

	m.cfg.JobScheduler.StartAsync()
	<-ctx.Done()
	m.cfg.JobScheduler.Stop()
}
