package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dnldd/pullback/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Timeframes represents the timeframes replayed from the historic data.
	Timeframes []shared.Timeframe
	// SignalCaughtUp signals a market is caught up on market data.
	SignalCaughtUp func(signal shared.CaughtUpSignal)
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(update shared.MarketUpdate)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *HistoricDataConfig) Validate() error {
	var errs error

	if cfg.FilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("file path cannot be empty"))
	}
	if len(cfg.Timeframes) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no timeframes provided"))
	}
	if cfg.SignalCaughtUp == nil {
		errs = errors.Join(errs, fmt.Errorf("signal caught up function cannot be nil"))
	}
	if cfg.SendMarketUpdate == nil {
		errs = errors.Join(errs, fmt.Errorf("send market update function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// HistoricData represents historic market data.
type HistoricData struct {
	cfg        *HistoricDataConfig
	market     string
	candles    []shared.Candlestick
	timeframes []string
}

// loadHistoricData loads the historic data from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("invalid historic data json in file with path '%s'", filepath)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating historic data config: %w", err)
	}

	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("no market found in historic data")
	}

	historicData := HistoricData{
		cfg:    cfg,
		market: market,
	}

	for idx := range cfg.Timeframes {
		timeframe := cfg.Timeframes[idx]

		data := b.Get(timeframe.String()).Array()
		if len(data) == 0 {
			continue
		}

		candles, err := shared.ParseCandlesticks(data, market, timeframe)
		if err != nil {
			return nil, fmt.Errorf("parsing %s candlesticks: %w", timeframe.String(), err)
		}

		historicData.timeframes = append(historicData.timeframes, timeframe.String())
		historicData.candles = append(historicData.candles, candles...)
	}

	if len(historicData.candles) == 0 {
		return nil, fmt.Errorf("no candles found in historic data for %s", market)
	}

	sortCandles(historicData.candles)

	return &historicData, nil
}

// Market returns the market of the historic data.
func (h *HistoricData) Market() string {
	return h.market
}

// StartTime returns the start time of the loaded historic data.
func (h *HistoricData) StartTime() time.Time {
	return h.candles[0].Date
}

// EndTime returns the end time of the loaded historic data.
func (h *HistoricData) EndTime() time.Time {
	return h.candles[len(h.candles)-1].Date
}

// ProcessHistoricalData streams the historic data for its market in time order, waiting on
// each candle to be processed.
func (h *HistoricData) ProcessHistoricalData(ctx context.Context) error {
	first := h.StartTime()
	last := h.EndTime()

	h.cfg.Logger.Info().Msgf("processing historical [%s] data covering %.2f hours, from %s, to %s",
		strings.Join(h.timeframes, ","), last.Sub(first).Hours(),
		first.Format(time.RFC1123), last.Format(time.RFC1123))

	// Historic markets are evaluated as soon as enough data is available.
	sig := shared.NewCaughtUpSignal(h.market)
	h.cfg.SignalCaughtUp(sig)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sig.Status:
	case <-time.After(shared.TimeoutDuration):
		return fmt.Errorf("timed out signalling %s is caught up", h.market)
	}

	for idx := range h.candles {
		update := shared.NewMarketUpdate(h.candles[idx])
		h.cfg.SendMarketUpdate(update)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-update.Status:
		case <-time.After(shared.TimeoutDuration):
			return fmt.Errorf("timed out processing market update at %s",
				h.candles[idx].Date.Format(shared.DateLayout))
		}
	}

	return nil
}
