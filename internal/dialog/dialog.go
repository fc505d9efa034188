// Package dialog holds the modal overlays shown in place of the composer:
// runtime confirm, prompt and pick requests and the session picker.
package dialog

import (
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/schema"
)

// Overlay is one of *Confirm, *Prompt, *Pick or *SessionList.
type Overlay interface {
	// View describes what the panel shows.
	View() Panel
	// HandleKey applies k. A non-nil Answer means the overlay is done and
	// must be closed. consumed is false for keys the overlay ignores.
	HandleKey(k keys.Key) (answer Answer, consumed bool)
	overlay()
}

// Answer is what a closed overlay produced.
type Answer interface{ answer() }

// ConfirmAnswer replies to a ui.confirm.request.
type ConfirmAnswer struct {
	ID       schema.RequestID
	OK       bool
	Remember bool
	Reason   string
}

// PromptAnswer replies to a ui.prompt.request; a nil Value means cancelled.
type PromptAnswer struct {
	ID    schema.RequestID
	Value *string
}

// PickAnswer replies to a ui.pick.request.
type PickAnswer struct {
	ID  schema.RequestID
	IDs []string
}

// ResumeAnswer asks to resume a saved session.
type ResumeAnswer struct {
	SessionID schema.SessionID
}

// Dismissed closes an overlay with nothing to send.
type Dismissed struct{}

func (ConfirmAnswer) answer() {}
func (PromptAnswer) answer()  {}
func (PickAnswer) answer()    {}
func (ResumeAnswer) answer()  {}
func (Dismissed) answer()     {}

// Holder keeps at most one active overlay plus one confirm waiting for
// the next frame boundary.
type Holder struct {
	active Overlay
	queued *Confirm
}

// Active returns the open overlay or nil.
func (h *Holder) Active() Overlay { return h.active }

// IsOpen reports whether an overlay is shown.
func (h *Holder) IsOpen() bool { return h.active != nil }

// Open shows o, replacing whatever was open.
func (h *Holder) Open(o Overlay) { h.active = o }

// Close hides the active overlay.
func (h *Holder) Close() { h.active = nil }

// Queue parks c until ActivateQueued. A later confirm replaces an earlier
// one that was never shown.
func (h *Holder) Queue(c *Confirm) { h.queued = c }

// Queued reports whether a confirm is waiting.
func (h *Holder) Queued() bool { return h.queued != nil }

// ConfirmActive reports whether the open overlay is a confirm.
func (h *Holder) ConfirmActive() bool {
	_, ok := h.active.(*Confirm)
	return ok
}

// ActivateQueued opens the waiting confirm when nothing else is open.
func (h *Holder) ActivateQueued() bool {
	if h.queued == nil || h.active != nil {
		return false
	}
	h.active, h.queued = h.queued, nil
	return true
}

// DropConfirms forgets any shown or queued confirm, as when a newer
// request supersedes it.
func (h *Holder) DropConfirms() {
	if h.ConfirmActive() {
		h.active = nil
	}
	h.queued = nil
}

// Reset closes everything.
func (h *Holder) Reset() { *h = Holder{} }
