// Package render decides when wrapped conversation lines leave the inline
// viewport and are written into the terminal's scrollback.
//
// The decision is split over frames: layout records the visible range and
// may arm a sync, Apply promotes the overflow and asks for one redraw, and
// the redraw after that restores the composer cursor.
package render

// SyncPhase tracks scrollback promotion across frames.
type SyncPhase uint8

const (
	Idle SyncPhase = iota
	NeedsInsert
	InsertedNeedsRedraw
)

func (p SyncPhase) String() string {
	switch p {
	case NeedsInsert:
		return "needs_insert"
	case InsertedNeedsRedraw:
		return "inserted_needs_redraw"
	default:
		return "idle"
	}
}

// CursorPhase records whether the composer cursor is hidden for a
// scrollback write.
type CursorPhase uint8

const (
	VisibleAtComposer CursorPhase = iota
	HiddenDuringScrollbackInsert
)

func (p CursorPhase) String() string {
	if p == HiddenDuringScrollbackInsert {
		return "hidden_during_insert"
	}
	return "visible_at_composer"
}

// ConfirmPhase is the lifecycle of a confirmation overlay.
type ConfirmPhase uint8

const (
	ConfirmNone ConfirmPhase = iota
	ConfirmPending
	ConfirmActive
)

func (p ConfirmPhase) String() string {
	switch p {
	case ConfirmPending:
		return "pending"
	case ConfirmActive:
		return "active"
	default:
		return "none"
	}
}

// State is owned by the render loop. The zero value is ready to use.
//
// Lines [0, InsertedUntil) are in the terminal scrollback and
// [VisibleStart, VisibleEnd) are drawn in the viewport.
type State struct {
	WrappedTotal  int
	VisibleStart  int
	VisibleEnd    int
	InsertedUntil int
	Sync          SyncPhase
	Cursor        CursorPhase
	Confirm       ConfirmPhase
	// PendingPromotion is set when a sync was wanted while promotion was
	// held back by scrolling or an overlay.
	PendingPromotion bool
}

// UpdateVisibleRange records the range laid out for this frame. A layout
// that pushes VisibleStart past the promoted boundary arms a sync even when
// no log lines were added, e.g. when the input panel grows.
func (s *State) UpdateVisibleRange(total, start, end, scroll int, hold bool) {
	s.WrappedTotal = total
	s.VisibleStart = start
	s.VisibleEnd = end
	if scroll > 0 || hold {
		if start > s.InsertedUntil {
			s.PendingPromotion = true
		}
		return
	}
	if s.Sync == Idle && (s.PendingPromotion || start > s.InsertedUntil) {
		s.Sync = NeedsInsert
	}
}

// RequestScrollbackSync arms a promotion pass for the next Apply.
func (s *State) RequestScrollbackSync() {
	s.Sync = NeedsInsert
}

// QueueConfirm records that a confirmation arrived and waits for the next
// frame boundary. It reports false when one is already queued or shown.
func (s *State) QueueConfirm() bool {
	if s.Confirm != ConfirmNone {
		return false
	}
	s.Confirm = ConfirmPending
	return true
}

// ActivateConfirm surfaces the queued confirmation. Nothing happens while
// another overlay is open.
func (s *State) ActivateConfirm(overlayOpen bool) bool {
	if s.Confirm != ConfirmPending || overlayOpen {
		return false
	}
	s.Confirm = ConfirmActive
	return true
}

// CloseConfirm ends the active confirmation and re-baselines scrollback.
func (s *State) CloseConfirm() {
	if s.Confirm == ConfirmActive {
		s.Confirm = ConfirmNone
	}
	s.RequestScrollbackSync()
}

// Reset forgets all promotion bookkeeping, as after clearing the log. The
// confirm phase is rebuilt from the overlay state.
func (s *State) Reset(confirmActive, confirmQueued bool) {
	*s = State{}
	switch {
	case confirmActive:
		s.Confirm = ConfirmActive
	case confirmQueued:
		s.Confirm = ConfirmPending
	}
}
