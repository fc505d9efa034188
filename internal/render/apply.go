package render

import "pkt.systems/codelia/internal/grid"

// Promoter writes lines into the terminal scrollback above the viewport.
// *terminal.Terminal satisfies it.
type Promoter interface {
	HideCursor() error
	InsertHistory(lines []grid.Line) error
	MaxHistoryLines() int
}

// LineSource returns wrapped lines [start, end) at the current width.
type LineSource func(start, end int) []grid.Line

// Frame describes the conditions under which effects are applied.
type Frame struct {
	// Scroll is the distance in wrapped lines from the bottom of the log.
	Scroll int
	// Hold suppresses promotion, typically while an overlay is shown.
	Hold bool
	// LogChanged reports that lines were appended since the last draw.
	LogChanged bool
}

// Apply runs the post-draw terminal effects for one frame. It returns true
// when a follow-up redraw is needed. Errors come from the terminal and end
// the render loop.
func (s *State) Apply(p Promoter, src LineSource, f Frame) (bool, error) {
	if f.LogChanged {
		s.RequestScrollbackSync()
	}
	if f.Scroll > 0 || f.Hold {
		if s.Sync == NeedsInsert {
			s.Sync = Idle
			s.PendingPromotion = true
		}
		if s.Sync == InsertedNeedsRedraw {
			s.Sync = Idle
			s.Cursor = VisibleAtComposer
		}
		return false, nil
	}

	switch s.Sync {
	case Idle:
		return false, nil
	case InsertedNeedsRedraw:
		s.Sync = Idle
		s.Cursor = VisibleAtComposer
		return false, nil
	}

	s.PendingPromotion = false
	overflow := min(s.VisibleStart, s.WrappedTotal)
	if overflow <= s.InsertedUntil {
		s.Sync = Idle
		return false, nil
	}
	lines := src(s.InsertedUntil, overflow)
	if len(lines) == 0 {
		s.InsertedUntil = overflow
		s.Sync = Idle
		return false, nil
	}

	s.Cursor = HiddenDuringScrollbackInsert
	if err := p.HideCursor(); err != nil {
		return false, err
	}
	chunk := max(p.MaxHistoryLines(), 1)
	for i := 0; i < len(lines); i += chunk {
		if err := p.InsertHistory(lines[i:min(i+chunk, len(lines))]); err != nil {
			return false, err
		}
	}
	s.InsertedUntil = overflow
	s.Sync = InsertedNeedsRedraw
	return true, nil
}
