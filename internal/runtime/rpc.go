package runtime

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

// IDs hands out request ids as increasing decimal strings starting at 1.
type IDs struct {
	n atomic.Uint64
}

// Next returns a fresh id.
func (g *IDs) Next() schema.RequestID {
	return schema.RequestID(strconv.FormatUint(g.n.Add(1), 10))
}

// Intent names what an outstanding request is for.
type Intent string

const (
	IntentInitialize     Intent = schema.MethodInitialize
	IntentRunStart       Intent = schema.MethodRunStart
	IntentRunCancel      Intent = schema.MethodRunCancel
	IntentSessionList    Intent = schema.MethodSessionList
	IntentSessionHistory Intent = schema.MethodSessionHistory
)

var intents = []Intent{IntentInitialize, IntentRunStart, IntentRunCancel, IntentSessionList, IntentSessionHistory}

// Pending holds at most one outstanding request per intent. It is owned by
// the render loop.
type Pending struct {
	slots map[Intent]schema.RequestID
}

// Set records id as the outstanding request for intent.
func (p *Pending) Set(intent Intent, id schema.RequestID) {
	if p.slots == nil {
		p.slots = make(map[Intent]schema.RequestID, len(intents))
	}
	p.slots[intent] = id
}

// Has reports whether intent has an outstanding request.
func (p *Pending) Has(intent Intent) bool {
	_, ok := p.slots[intent]
	return ok
}

// ID returns the outstanding id for intent.
func (p *Pending) ID(intent Intent) (schema.RequestID, bool) {
	id, ok := p.slots[intent]
	return id, ok
}

// Clear abandons the request for intent.
func (p *Pending) Clear(intent Intent) { delete(p.slots, intent) }

// Reset abandons every outstanding request.
func (p *Pending) Reset() { clear(p.slots) }

// Len returns the number of outstanding requests.
func (p *Pending) Len() int { return len(p.slots) }

// Match clears the one slot waiting for id and returns its intent.
func (p *Pending) Match(id schema.RequestID) (Intent, error) {
	for _, intent := range intents {
		if current, ok := p.slots[intent]; ok && current == id {
			delete(p.slots, intent)
			return intent, nil
		}
	}
	return "", fmt.Errorf("%w: %s", schema.ErrUnknownResponse, id)
}

// Sender writes one protocol message. *Process satisfies it.
type Sender interface {
	Send(v any) error
}

// Client pairs a Sender with id generation and pending-request tracking.
type Client struct {
	out     Sender
	ids     IDs
	Pending Pending
	log     pslog.Logger
}

// ClientName and ClientVersion are announced in initialize.
var (
	ClientName    = "codelia-tui"
	ClientVersion = "0.1.0"
)

// NewClient wraps out.
func NewClient(out Sender, log pslog.Logger) *Client {
	return &Client{out: out, log: log}
}

func (c *Client) call(intent Intent, method string, params any) (schema.RequestID, error) {
	id := c.ids.Next()
	c.Pending.Set(intent, id)
	err := c.out.Send(schema.Request{JSONRPC: schema.JSONRPCVersion, ID: id, Method: method, Params: params})
	if err != nil {
		c.Pending.Clear(intent)
		if c.log != nil {
			c.log.Warn("runtime send failed", "method", method, "id", id, "err", err)
		}
		return "", err
	}
	if c.log != nil {
		c.log.Debug("runtime request sent", "method", method, "id", id)
	}
	return id, nil
}

// Initialize announces the client and its UI capabilities.
func (c *Client) Initialize() (schema.RequestID, error) {
	return c.call(IntentInitialize, schema.MethodInitialize, schema.InitializeParams{
		ProtocolVersion: "0",
		Client:          schema.Client{Name: ClientName, Version: ClientVersion},
		UICapabilities: schema.UICapabilities{
			SupportsConfirm:                   true,
			SupportsPrompt:                    true,
			SupportsPick:                      true,
			SupportsClipboardRead:             true,
			SupportsPermissionPreflightEvents: true,
		},
	})
}

// RunStart starts a run with text input, optionally in an existing session.
func (c *Client) RunStart(text string, session schema.SessionID, forceCompaction bool) (schema.RequestID, error) {
	return c.call(IntentRunStart, schema.MethodRunStart, schema.RunStartParams{
		Input:           schema.InputText{Type: "text", Text: text},
		SessionID:       session,
		ForceCompaction: forceCompaction,
	})
}

// RunCancel asks the runtime to stop a run.
func (c *Client) RunCancel(run schema.RunID, reason string) (schema.RequestID, error) {
	return c.call(IntentRunCancel, schema.MethodRunCancel, schema.RunCancelParams{RunID: run, Reason: reason})
}

// SessionList requests up to limit saved sessions.
func (c *Client) SessionList(limit int) (schema.RequestID, error) {
	return c.call(IntentSessionList, schema.MethodSessionList, schema.SessionListParams{Limit: limit})
}

// SessionHistory requests the replay of a saved session.
func (c *Client) SessionHistory(session schema.SessionID, maxRuns, maxEvents int) (schema.RequestID, error) {
	return c.call(IntentSessionHistory, schema.MethodSessionHistory, schema.SessionHistoryParams{
		SessionID: session,
		MaxRuns:   maxRuns,
		MaxEvents: maxEvents,
	})
}

func (c *Client) reply(id schema.RequestID, result any) error {
	err := c.out.Send(schema.Result{JSONRPC: schema.JSONRPCVersion, ID: id, Result: result})
	if err != nil && c.log != nil {
		c.log.Warn("runtime reply failed", "id", id, "err", err)
	}
	return err
}

// Confirm answers a ui.confirm.request. An empty reason is sent as null.
func (c *Client) Confirm(id schema.RequestID, ok, remember bool, reason string) error {
	res := schema.ConfirmResult{OK: ok, Remember: remember}
	if reason != "" {
		res.Reason = &reason
	}
	return c.reply(id, res)
}

// Prompt answers a ui.prompt.request. A nil value means cancelled.
func (c *Client) Prompt(id schema.RequestID, value *string) error {
	return c.reply(id, schema.PromptResult{Value: value})
}

// Pick answers a ui.pick.request.
func (c *Client) Pick(id schema.RequestID, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return c.reply(id, schema.PickResult{IDs: ids})
}

// Match correlates an inbound response and logs unknown ids.
func (c *Client) Match(id schema.RequestID) (Intent, error) {
	intent, err := c.Pending.Match(id)
	if err != nil && c.log != nil {
		c.log.Warn("runtime response unmatched", "id", id, "pending", c.Pending.Len())
	}
	return intent, err
}
