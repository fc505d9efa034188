package render

import (
	"fmt"

	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

// Check verifies the ordering of the promotion counters and that the
// confirm phase agrees with the overlay state.
func (s *State) Check(confirmActive, confirmQueued bool) error {
	if s.InsertedUntil > s.VisibleStart || s.VisibleStart > s.VisibleEnd || s.VisibleEnd > s.WrappedTotal {
		return fmt.Errorf("%w: inserted=%d visible=[%d, %d) wrapped_total=%d",
			schema.ErrInvariant, s.InsertedUntil, s.VisibleStart, s.VisibleEnd, s.WrappedTotal)
	}
	ok := false
	switch s.Confirm {
	case ConfirmNone:
		ok = !confirmActive && !confirmQueued
	case ConfirmPending:
		ok = !confirmActive && confirmQueued
	case ConfirmActive:
		ok = confirmActive && !confirmQueued
	}
	if !ok {
		return fmt.Errorf("%w: confirm phase=%s active=%t queued=%t",
			schema.ErrInvariant, s.Confirm, confirmActive, confirmQueued)
	}
	return nil
}

// Checker reports invariant violations. Strict checkers panic.
type Checker struct {
	Strict bool
	Log    pslog.Logger
}

// Assert checks s and reports any violation. It returns the error so
// callers can count them.
func (c Checker) Assert(s *State, confirmActive, confirmQueued bool) error {
	err := s.Check(confirmActive, confirmQueued)
	if err == nil {
		return nil
	}
	if c.Strict {
		panic(err)
	}
	if c.Log != nil {
		c.Log.Error("render invariant violated",
			"err", err,
			"sync", s.Sync.String(),
			"cursor", s.Cursor.String(),
			"inserted_until", s.InsertedUntil,
			"visible_start", s.VisibleStart,
			"visible_end", s.VisibleEnd,
			"wrapped_total", s.WrappedTotal,
		)
	}
	return err
}
