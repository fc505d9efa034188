package terminal

import (
	"strconv"

	"github.com/charmbracelet/x/ansi"

	"pkt.systems/codelia/internal/grid"
)

const resetScrollRegion = "\x1b[r"

func setScrollRegion(top, bottom int) string {
	return "\x1b[" + strconv.Itoa(top) + ";" + strconv.Itoa(bottom) + "r"
}

// MaxHistoryLines returns how many lines one InsertHistory call may carry
// for the current viewport width.
func (t *Terminal) MaxHistoryLines() int {
	return max(grid.MaxCells/max(t.viewport.Width, 1), 1)
}

// InsertHistory writes lines into the scrollback directly above the
// viewport. When there is room below the viewport it is first slid down by
// up to len(lines) rows. The lines are then streamed through a scroll region
// covering everything above the viewport, so the topmost rows scroll into
// the terminal's history. The cursor is restored to its tracked position,
// shifted by however far the viewport moved.
//
// A viewport at row 0 leaves nothing to write into and is a no-op.
func (t *Terminal) InsertHistory(lines []grid.Line) error {
	if len(lines) == 0 {
		return nil
	}
	_, screenH, err := t.backend.Size()
	if err != nil {
		screenH = 0
	}
	area := t.viewport
	if area.Empty() || screenH == 0 {
		return nil
	}

	last := t.lastCursor
	shift := 0
	moved := false
	var buf []byte
	cursorTop := max(area.Y-1, 0)
	if area.Bottom() < screenH {
		shift = min(len(lines), screenH-area.Bottom())
		buf = append(buf, setScrollRegion(area.Y+1, screenH)...)
		buf = append(buf, grid.MoveTo(0, area.Y)...)
		for range shift {
			buf = append(buf, ansi.ReverseIndex...)
		}
		buf = append(buf, resetScrollRegion...)
		area.Y += shift
		moved = true
	}
	if area.Y == 0 {
		return nil
	}

	buf = append(buf, ansi.HideCursor...)
	buf = append(buf, setScrollRegion(1, area.Y)...)
	buf = append(buf, grid.MoveTo(0, cursorTop)...)
	for _, line := range lines {
		buf = append(buf, "\r\n"...)
		buf = grid.AppendColors(buf, line.Style.FG, line.Style.BG)
		buf = append(buf, ansi.EraseLineRight...)
		buf = appendSpans(buf, line)
	}
	buf = append(buf, resetScrollRegion...)
	restoreY := min(last.Y+shift, screenH-1)
	buf = append(buf, grid.MoveTo(last.X, restoreY)...)
	if _, err := t.backend.Write(buf); err != nil {
		return err
	}

	t.hiddenCursor = true
	t.lastCursor = Position{X: last.X, Y: restoreY}
	if moved {
		t.SetViewport(area)
	}
	return nil
}

func appendSpans(buf []byte, line grid.Line) []byte {
	var pen grid.Pen
	for _, span := range line.Spans {
		st := line.Style.Patch(span.Style)
		buf = pen.Apply(buf, st.FG, st.BG, st.Mod)
		buf = append(buf, span.Text...)
	}
	return grid.AppendPenReset(buf)
}
