package schema

// RequestID identifies an outbound JSON-RPC request.
type RequestID string

// SessionID identifies a saved runtime session.
type SessionID string

// RunID identifies a single agent run.
type RunID string

// Short returns the first eight characters of the session id.
func (id SessionID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// RunStatus is the status token carried by run.status notifications.
type RunStatus string

const (
	RunStarting   RunStatus = "starting"
	RunRunning    RunStatus = "running"
	RunAwaitingUI RunStatus = "awaiting_ui"
	RunCompleted  RunStatus = "completed"
	RunError      RunStatus = "error"
	RunCancelled  RunStatus = "cancelled"
)

// Active reports whether a run in this status is still in flight.
func (s RunStatus) Active() bool {
	switch s {
	case RunStarting, RunRunning, RunAwaitingUI:
		return true
	default:
		return false
	}
}

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunError, RunCancelled:
		return true
	default:
		return false
	}
}
