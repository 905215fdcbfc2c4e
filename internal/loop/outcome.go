package loop

import "github.com/mark3labs/commitloop/internal/watcher"

// Outcome is the result of one iteration.
type Outcome int

const (
	OutcomeUnknown   Outcome = iota
	OutcomeCompleted         // commit observed and cleanup sent
	OutcomeCancelled         // cancellation observed at a checkpoint
	OutcomeNoSignal          // wait window elapsed without a commit
	OutcomeFailed            // a step failed
)

// String returns a human-readable description of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNoSignal:
		return "no signal"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func outcomeOf(r watcher.Result) Outcome {
	switch r {
	case watcher.Completed:
		return OutcomeCompleted
	case watcher.Cancelled:
		return OutcomeCancelled
	case watcher.NoSignal:
		return OutcomeNoSignal
	default:
		return OutcomeUnknown
	}
}

// Result is reported when the loop exits.
type Result struct {
	Outcome    Outcome
	Iterations int    // iteration count at exit
	Reason     string // short human-readable exit reason
	Err        error  // set when Outcome is OutcomeFailed
}
