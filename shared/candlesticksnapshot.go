package shared

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

const (
	// SnapshotSize is the default maximum number of entries for a candlestick snapshot.
	SnapshotSize = 400
)

// CandlestickSnapshot represents a snapshot of candlestick data for a timeframe.
type CandlestickSnapshot struct {
	data      []*Candlestick
	dataMtx   sync.RWMutex
	timeframe Timeframe
	start     atomic.Int32
	count     atomic.Int32
	size      atomic.Int32
}

// NewCandlestickSnapshot initializes a new candlestick snapshot.
func NewCandlestickSnapshot(size int32, timeframe Timeframe) (*CandlestickSnapshot, error) {
	if size < 0 {
		return nil, errors.New("snapshot size cannot be negative")
	}
	if size == 0 {
		return nil, errors.New("snapshot size cannot be zero")
	}

	snapshot := &CandlestickSnapshot{
		data:      make([]*Candlestick, size),
		timeframe: timeframe,
	}

	snapshot.size.Store(size)
	return snapshot, nil
}

// Update adds the provided candlestick to the snapshot. A candle sharing the date of the last
// entry replaces it, since it is an update of the still forming candle. The returned flag is
// true when the candle opened a new period, closing the previous last entry.
func (s *CandlestickSnapshot) Update(candle *Candlestick) (bool, error) {
	if candle.Timeframe != s.timeframe {
		return false, fmt.Errorf("expected candles with timeframe %s, got %s",
			s.timeframe.String(), candle.Timeframe.String())
	}

	entry := *candle

	s.dataMtx.Lock()
	defer s.dataMtx.Unlock()

	start := s.start.Load()
	count := s.count.Load()
	size := s.size.Load()

	if count > 0 {
		lastIdx := (start + count - 1) % size
		last := s.data[lastIdx]
		switch {
		case candle.Date.Equal(last.Date):
			s.data[lastIdx] = &entry
			return false, nil
		case candle.Date.Before(last.Date):
			return false, fmt.Errorf("candle (%s) predates the last snapshot entry (%s)",
				candle.Date.Format(DateLayout), last.Date.Format(DateLayout))
		}
	}

	end := (start + count) % size
	s.data[end] = &entry

	if count == size {
		// Overwrite the oldest entry when the snapshot is at capacity.
		s.start.Store((start + 1) % size)
	} else {
		s.count.Add(1)
	}

	return count > 0, nil
}

// Count returns the number of entries in the snapshot.
func (s *CandlestickSnapshot) Count() int32 {
	return s.count.Load()
}

// LastN fetches the last n number of elements from the snapshot.
func (s *CandlestickSnapshot) LastN(n int32) []*Candlestick {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	if n <= 0 {
		return nil
	}

	start := s.start.Load()
	count := s.count.Load()
	size := s.size.Load()

	// Clamp the number of elements expected if it is greater than the snapshot count.
	if n > count {
		n = count
	}

	set := make([]*Candlestick, n)
	start = (start + count - n + size) % size

	for i := range n {
		idx := (start + i) % size
		set[i] = s.data[idx]
	}

	return set
}
