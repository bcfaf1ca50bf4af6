package shared

import (
	"time"
)

const (
	// TimeoutDuration is the maximum time to wait before timing out.
	TimeoutDuration = time.Second * 4
)

// MarketUpdate represents a candlestick update for a market.
type MarketUpdate struct {
	Candle Candlestick
	Status chan StatusCode
}

// NewMarketUpdate initializes a new market update.
func NewMarketUpdate(candle Candlestick) MarketUpdate {
	return MarketUpdate{
		Candle: candle,
		Status: make(chan StatusCode, 1),
	}
}

// EvaluationRequest represents a request to evaluate the provided series of a market for a
// trade signal.
type EvaluationRequest struct {
	Market    string
	Timeframe Timeframe
	// Series is the primary timeframe series, its last candle is the forming one.
	Series *CandleSeries
	// Higher is the higher timeframe series used for confirmation.
	Higher *CandleSeries
	Status chan StatusCode
}

// NewEvaluationRequest initializes a new evaluation request.
func NewEvaluationRequest(market string, timeframe Timeframe, series *CandleSeries, higher *CandleSeries) EvaluationRequest {
	return EvaluationRequest{
		Market:    market,
		Timeframe: timeframe,
		Series:    series,
		Higher:    higher,
		Status:    make(chan StatusCode, 1),
	}
}

// CaughtUpSignal represents a signal that a market has caught up on historical data.
type CaughtUpSignal struct {
	Market string
	Status chan StatusCode
}

// NewCaughtUpSignal initializes a new caught up signal.
func NewCaughtUpSignal(market string) CaughtUpSignal {
	return CaughtUpSignal{
		Market: market,
		Status: make(chan StatusCode, 1),
	}
}
