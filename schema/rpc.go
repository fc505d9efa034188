package schema

import "encoding/json"

// JSONRPCVersion is the protocol marker sent on every outbound message.
const JSONRPCVersion = "2.0"

// Method names exchanged with the runtime.
const (
	MethodInitialize     = "initialize"
	MethodRunStart       = "run.start"
	MethodRunCancel      = "run.cancel"
	MethodRunStatus      = "run.status"
	MethodRunContext     = "run.context"
	MethodRunDiagnostics = "run.diagnostics"
	MethodSessionList    = "session.list"
	MethodSessionHistory = "session.history"
	MethodAgentEvent     = "agent.event"
	MethodConfirmRequest = "ui.confirm.request"
	MethodPromptRequest  = "ui.prompt.request"
	MethodPickRequest    = "ui.pick.request"
)

// Request is an outbound JSON-RPC request.
type Request struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      RequestID `json:"id"`
	Method  string    `json:"method"`
	Params  any       `json:"params,omitempty"`
}

// Result answers a runtime-initiated ui.* request.
type Result struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      RequestID `json:"id"`
	Result  any       `json:"result"`
}

// Response is an inbound JSON-RPC response correlated by ID.
type Response struct {
	ID     RequestID       `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// HasError reports whether the response carries a non-null error.
func (r Response) HasError() bool {
	return len(r.Error) > 0 && string(r.Error) != "null"
}

// RPCError is the decoded error object of a response.
type RPCError struct {
	Code    *int64 `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
