package shared

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	FiveMinute Timeframe = iota
	FifteenMinute
	OneHour
	FourHour
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case OneHour:
		return "1H"
	case FourHour:
		return "4H"
	default:
		return "unknown"
	}
}

// Duration returns the time period covered by a single candle of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case OneHour:
		return time.Hour
	case FourHour:
		return time.Hour * 4
	default:
		return 0
	}
}

// ParseTimeframe parses the provided timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch s {
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "1H", "1h":
		return OneHour, nil
	case "4H", "4h":
		return FourHour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe provided: %s", s)
	}
}
