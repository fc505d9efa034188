package render

// Window is the slice of wrapped log lines a frame shows.
type Window struct {
	Start  int
	End    int
	Scroll int
}

// Layout lays out a log area of height rows over total wrapped lines,
// scrolled scroll lines up from the bottom, and records the result. Lines
// already promoted are never shown again, so Start never drops below
// InsertedUntil.
func (s *State) Layout(total, height, scroll int, hold bool) Window {
	height = max(height, 0)
	scroll = min(max(scroll, 0), max(total-height, 0))
	if s.InsertedUntil > total {
		s.InsertedUntil = total
	}
	start := max(total-(height+scroll), 0)
	start = max(start, s.InsertedUntil)
	end := min(start+height, total)
	s.UpdateVisibleRange(total, start, end, scroll, hold)
	return Window{Start: start, End: end, Scroll: scroll}
}

// AnchorScroll keeps a scrolled-back view on the same lines while the log
// grows underneath it. At the bottom the view follows new lines.
func AnchorScroll(scroll, prevTotal, total int) int {
	if scroll <= 0 || total <= prevTotal {
		return scroll
	}
	return scroll + total - prevTotal
}
