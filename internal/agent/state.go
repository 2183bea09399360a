package agent

// State is the position of a loop in its lifecycle
type State int32

const (
	StateIdle State = iota
	StateNavigated
	StateAwaitingDecision
	StateExecuting
	StateEvaluated
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigated:
		return "navigated"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateExecuting:
		return "executing"
	case StateEvaluated:
		return "evaluated"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Reason explains why a loop terminated
type Reason string

const (
	ReasonMaxActions       Reason = "max_actions"
	ReasonFailureThreshold Reason = "failure_threshold"
	ReasonStopped          Reason = "stopped"
	ReasonCancelled        Reason = "cancelled"
)
