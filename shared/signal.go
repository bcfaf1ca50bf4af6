package shared

import (
	"time"

	"github.com/google/uuid"
)

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// Evidence represents the structures supporting a signal.
type Evidence struct {
	Swing      *SwingPoint
	Wave       *PullbackWave
	Trendline  *TrendlineModel
	Snapshot   IndicatorSnapshot
	HigherRSI  float64
	Divergence *DivergenceResult
}

// Signal represents the terminal output of a single pipeline evaluation.
type Signal struct {
	Direction    Direction
	Stage        Stage
	TriggerIndex int
	TriggerPrice float64
	TriggerDate  time.Time
	Evidence     *Evidence
	Rejection    *Rejection
	Reason       string
	Deferred     bool
}

// NewRejectedSignal initializes a signal carrying no direction from the provided rejection.
func NewRejectedSignal(stage Stage, rejection *Rejection, evidence *Evidence) Signal {
	return Signal{
		Direction:    None,
		Stage:        stage,
		TriggerIndex: -1,
		Evidence:     evidence,
		Rejection:    rejection,
		Reason:       rejection.String(),
		Deferred:     rejection.Deferred,
	}
}

// EntrySignal represents an emitted signal relayed to execution collaborators.
type EntrySignal struct {
	ID        string
	Market    string
	Timeframe Timeframe
	Direction Direction
	Price     float64
	Signal    Signal
	CreatedOn time.Time
	Status    chan StatusCode
}

// NewEntrySignal initializes a new entry signal.
func NewEntrySignal(market string, timeframe Timeframe, signal Signal, created time.Time) EntrySignal {
	return EntrySignal{
		ID:        uuid.New().String(),
		Market:    market,
		Timeframe: timeframe,
		Direction: signal.Direction,
		Price:     signal.TriggerPrice,
		Signal:    signal,
		CreatedOn: created,
		Status:    make(chan StatusCode, 1),
	}
}
