package schema

// Client identifies this front-end to the runtime.
type Client struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// UICapabilities advertises which ui.* requests the client can answer.
type UICapabilities struct {
	SupportsConfirm                   bool `json:"supports_confirm"`
	SupportsPrompt                    bool `json:"supports_prompt"`
	SupportsPick                      bool `json:"supports_pick"`
	SupportsClipboardRead             bool `json:"supports_clipboard_read"`
	SupportsPermissionPreflightEvents bool `json:"supports_permission_preflight_events"`
}

// InitializeParams is sent once after the runtime starts.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocol_version"`
	Client          Client         `json:"client"`
	UICapabilities  UICapabilities `json:"ui_capabilities"`
}

// InputText is a plain-text run input.
type InputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RunStartParams starts an agent run.
type RunStartParams struct {
	Input           InputText `json:"input"`
	SessionID       SessionID `json:"session_id,omitempty"`
	ForceCompaction bool      `json:"force_compaction,omitempty"`
}

// RunCancelParams cancels an active run.
type RunCancelParams struct {
	RunID  RunID  `json:"run_id"`
	Reason string `json:"reason,omitempty"`
}

// SessionListParams lists saved sessions.
type SessionListParams struct {
	Limit int `json:"limit,omitempty"`
}

// SessionHistoryParams replays a saved session. Zero limits are left to
// the runtime.
type SessionHistoryParams struct {
	SessionID SessionID `json:"session_id"`
	MaxRuns   int       `json:"max_runs,omitempty"`
	MaxEvents int       `json:"max_events,omitempty"`
}

// SessionHistoryResult summarizes a replayed session.
type SessionHistoryResult struct {
	Runs       int  `json:"runs"`
	EventsSent int  `json:"events_sent"`
	Truncated  bool `json:"truncated"`
}

// RunStartResult is the result payload of run.start.
type RunStartResult struct {
	RunID     RunID     `json:"run_id"`
	// SessionID is reported by runtimes that create a session for the run.
	SessionID SessionID `json:"session_id,omitempty"`
}

// SessionSummary is one row of a session.list result.
type SessionSummary struct {
	SessionID       SessionID `json:"session_id"`
	UpdatedAt       string    `json:"updated_at"`
	MessageCount    *int      `json:"message_count,omitempty"`
	LastUserMessage string    `json:"last_user_message,omitempty"`
}

// SessionListResult is the result payload of session.list.
type SessionListResult struct {
	Sessions []SessionSummary `json:"sessions"`
}
