package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/dnldd/pullback/shared"
	"golang.org/x/time/rate"
)

const (
	// maxKlines is the maximum number of klines binance serves per request.
	maxKlines = 1000
	// requestsPerSecond is the default request rate limit.
	requestsPerSecond = 10
	// requestBurst is the default request burst limit.
	requestBurst = 20
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// APIKey is the binance api key, optional for market data.
	APIKey string
	// SecretKey is the binance secret key, optional for market data.
	SecretKey string
	// BaseURL overrides the binance api base url when set.
	BaseURL string
	// RateLimit is the maximum requests per second, defaults to requestsPerSecond.
	RateLimit float64
}

// BinanceClient represents the binance spot market data client.
type BinanceClient struct {
	client      *binance.Client
	rateLimiter *rate.Limiter
}

// Ensure the BinanceClient implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = requestsPerSecond
	}

	return &BinanceClient{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(limit), requestBurst),
	}
}

// klineInterval returns the binance kline interval of the provided timeframe.
func klineInterval(timeframe shared.Timeframe) (string, error) {
	switch timeframe {
	case shared.FiveMinute:
		return "5m", nil
	case shared.FifteenMinute:
		return "15m", nil
	case shared.OneHour:
		return "1h", nil
	case shared.FourHour:
		return "4h", nil
	default:
		return "", fmt.Errorf("unknown timeframe provided: %s", timeframe.String())
	}
}

// parseKline parses a binance kline into a candlestick.
func parseKline(kline *binance.Kline, market string, timeframe shared.Timeframe) (shared.Candlestick, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"open", kline.Open},
		{"high", kline.High},
		{"low", kline.Low},
		{"close", kline.Close},
		{"volume", kline.Volume},
	}

	values := make([]float64, len(fields))
	for idx := range fields {
		v, err := strconv.ParseFloat(fields[idx].value, 64)
		if err != nil {
			return shared.Candlestick{}, fmt.Errorf("parsing kline %s: %w", fields[idx].name, err)
		}
		values[idx] = v
	}

	return shared.Candlestick{
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Date:      time.UnixMilli(kline.OpenTime).UTC(),
		Market:    market,
		Timeframe: timeframe,
	}, nil
}

// FetchCandles fetches the most recent n klines of a market, oldest first.
func (c *BinanceClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, n int) ([]shared.Candlestick, error) {
	interval, err := klineInterval(timeframe)
	if err != nil {
		return nil, err
	}

	err = c.rateLimiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting on rate limiter: %w", err)
	}

	klines, err := c.client.NewKlinesService().
		Symbol(market).
		Interval(interval).
		Limit(min(n, maxKlines)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s klines for %s: %w", interval, market, err)
	}

	candles := make([]shared.Candlestick, 0, len(klines))
	for idx := range klines {
		candle, err := parseKline(klines[idx], market, timeframe)
		if err != nil {
			return nil, fmt.Errorf("parsing %s kline for %s: %w", interval, market, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}
