package shared

import (
	"context"
)

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// FetchCandles fetches the most recent n candles of a market, oldest first. The last
	// candle returned may still be forming.
	FetchCandles(ctx context.Context, market string, timeframe Timeframe, n int) ([]Candlestick, error)
}
