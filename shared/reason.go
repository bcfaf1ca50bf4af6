package shared

import "fmt"

// Direction represents a trade direction.
type Direction int

const (
	None Direction = iota
	Buy
	Sell
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Stage represents a signal pipeline state. Each stage is a prerequisite for the next.
type Stage int

const (
	SearchingSwing Stage = iota
	SwingFound
	PullbackValid
	TrendlineFit
	BreakoutConfirmed
	DivergenceClear
	MTFConfirmed
	SignalEmitted
)

// String stringifies the provided stage.
func (s Stage) String() string {
	switch s {
	case SearchingSwing:
		return "searching swing"
	case SwingFound:
		return "swing found"
	case PullbackValid:
		return "pullback valid"
	case TrendlineFit:
		return "trendline fit"
	case BreakoutConfirmed:
		return "breakout confirmed"
	case DivergenceClear:
		return "divergence clear"
	case MTFConfirmed:
		return "mtf confirmed"
	case SignalEmitted:
		return "signal"
	default:
		return "unknown"
	}
}

// Gate returns the name of the gate guarding entry into the stage.
func (s Stage) Gate() string {
	switch s {
	case SearchingSwing, SwingFound:
		return "swing"
	case PullbackValid:
		return "pullback"
	case TrendlineFit:
		return "trendline"
	case BreakoutConfirmed:
		return "breakout"
	case DivergenceClear:
		return "divergence"
	case MTFConfirmed:
		return "mtf"
	case SignalEmitted:
		return "confirmation"
	default:
		return "unknown"
	}
}

// RejectionKind represents the category of a pipeline rejection.
type RejectionKind int

const (
	GateRejected RejectionKind = iota
	InsufficientData
	IndicatorUndefined
	DegenerateFit
)

// String stringifies the provided rejection kind.
func (k RejectionKind) String() string {
	switch k {
	case GateRejected:
		return "gate rejected"
	case InsufficientData:
		return "insufficient data"
	case IndicatorUndefined:
		return "indicator undefined"
	case DegenerateFit:
		return "degenerate fit"
	default:
		return "unknown"
	}
}

// Rejection represents the reason a pipeline evaluation did not produce a signal.
type Rejection struct {
	// Stage is the stage the pipeline failed to enter.
	Stage   Stage
	Kind    RejectionKind
	Message string
	// Deferred marks neutral outcomes that may be retried on later candles.
	Deferred bool
}

// NewRejection initializes a new rejection.
func NewRejection(stage Stage, kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// String stringifies the provided rejection.
func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Stage.Gate(), r.Message)
}
