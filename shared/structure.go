package shared

import (
	"time"
)

// SwingKind represents the kind of swing point.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

// String stringifies the provided swing kind.
func (k SwingKind) String() string {
	switch k {
	case SwingHigh:
		return "swing high"
	case SwingLow:
		return "swing low"
	default:
		return "unknown"
	}
}

// TradeDirection returns the trade direction a pullback from the swing kind sets up. A pullback
// from a swing high in an uptrend sets up a buy, a pullback from a swing low sets up a sell.
func (k SwingKind) TradeDirection() Direction {
	switch k {
	case SwingHigh:
		return Buy
	case SwingLow:
		return Sell
	default:
		return None
	}
}

// SwingPoint represents a local price extremum.
type SwingPoint struct {
	Index int
	Date  time.Time
	Price float64
	Kind  SwingKind
	RSI   float64
}

// Classification represents the classification of a pullback wave slope.
type Classification int

const (
	Valid Classification = iota
	Steep
	Rejected
)

// String stringifies the provided classification.
func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Steep:
		return "steep"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// PullbackWave represents the retracement following a swing point.
type PullbackWave struct {
	Swing              SwingPoint
	FirstPullbackIndex int
	Slope              float64
	Classification     Classification
	// Start and End bound the wave candles [Start, End), End being the breakout candle.
	Start int
	End   int
}

// TrendlinePoint represents an anchor point of a trendline.
type TrendlinePoint struct {
	Index int
	Price float64
}

// TrendlineModel represents a linear model fitted through pullback extrema.
type TrendlineModel struct {
	Slope     float64
	Intercept float64
	Anchors   []TrendlinePoint
}

// ValueAt returns the trendline value at the provided candle index.
func (m *TrendlineModel) ValueAt(idx int) float64 {
	return m.Slope*float64(idx) + m.Intercept
}

// DivergenceResult represents the outcome of a price/rsi divergence check.
type DivergenceResult struct {
	Present     bool
	Direction   Sentiment
	Explanation string
}
