package engine

import (
	"time"

	"github.com/dnldd/pullback/shared"
)

// ConfirmationCounter tracks consecutive qualifying evaluations of the same swing.
type ConfirmationCounter struct {
	Count     int
	Required  int
	LastIndex int
	LastDate  time.Time
	SwingDate time.Time

	// TriggeredDate is the date of the candle that last triggered for SwingDate.
	TriggeredDate time.Time
}

// NewConfirmationCounter initializes a new confirmation counter.
func NewConfirmationCounter(required int) ConfirmationCounter {
	return ConfirmationCounter{
		Required:  required,
		LastIndex: -1,
	}
}

// Reset clears the counter.
func (c *ConfirmationCounter) Reset() {
	*c = NewConfirmationCounter(c.Required)
}

// FollowUp checks whether the candle opened at date follows up on the provided swing, either
// because the swing holds qualifying evaluations that have not triggered yet or because the
// candle already triggered for it.
func (c *ConfirmationCounter) FollowUp(swingDate time.Time, date time.Time) bool {
	if !c.SwingDate.Equal(swingDate) {
		return false
	}

	return c.Count > 0 || (!c.TriggeredDate.IsZero() && c.TriggeredDate.Equal(date))
}

// Observe records a qualifying evaluation of the candle at the provided index for the swing
// opened at swingDate. It returns true once the required count is reached, clearing the
// count so the same swing does not trigger again on later candles. Re-observing the candle
// that triggered triggers again. A newer swing restarts the count and re-observing the same
// candle does not increment it.
func (c *ConfirmationCounter) Observe(swingDate time.Time, index int, date time.Time) bool {
	if !c.SwingDate.Equal(swingDate) {
		c.Reset()
		c.SwingDate = swingDate
	}

	if !c.TriggeredDate.IsZero() && c.TriggeredDate.Equal(date) {
		return true
	}

	if !c.LastDate.Equal(date) {
		c.Count++
		c.LastIndex = index
		c.LastDate = date
	}

	if c.Count >= max(c.Required, 1) {
		c.Count = 0
		c.TriggeredDate = date
		return true
	}

	return false
}

// State represents the cross-evaluation state of a market. It is passed into and returned
// from each evaluation and must be owned by exactly one evaluation at a time.
type State struct {
	// LastSwingHigh is the most recent swing high found.
	LastSwingHigh *shared.SwingPoint
	// LastSwingLow is the most recent swing low found.
	LastSwingLow *shared.SwingPoint
	// Buy tracks confirmations of buy setups.
	Buy ConfirmationCounter
	// Sell tracks confirmations of sell setups.
	Sell ConfirmationCounter
}

// NewState initializes a new market state.
func NewState(confirmations int) State {
	return State{
		Buy:  NewConfirmationCounter(confirmations),
		Sell: NewConfirmationCounter(confirmations),
	}
}

// lastSwing returns the cached swing of the provided kind.
func (s *State) lastSwing(kind shared.SwingKind) *shared.SwingPoint {
	if kind == shared.SwingLow {
		return s.LastSwingLow
	}

	return s.LastSwingHigh
}

// setLastSwing caches the provided swing.
func (s *State) setLastSwing(swing shared.SwingPoint) {
	if swing.Kind == shared.SwingLow {
		s.LastSwingLow = &swing
		return
	}

	s.LastSwingHigh = &swing
}

// counter returns the confirmation counter of the provided direction.
func (s *State) counter(direction shared.Direction) *ConfirmationCounter {
	if direction == shared.Sell {
		return &s.Sell
	}

	return &s.Buy
}
