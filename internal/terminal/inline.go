package terminal

import "pkt.systems/codelia/internal/grid"

// ComputeInlineArea reserves height rows by feeding line feeds from the
// current cursor, then anchors the viewport to the bottom of the screen.
// It returns the area and the cursor position read back afterwards.
func (t *Terminal) ComputeInlineArea(height int) (grid.Rect, Position, error) {
	w, h, err := t.backend.Size()
	if err != nil {
		return grid.Rect{}, Position{}, err
	}
	maxH := min(h, height)
	if err := t.AppendLines(height - 1); err != nil {
		return grid.Rect{}, Position{}, err
	}
	if err := t.backend.Flush(); err != nil {
		return grid.Rect{}, Position{}, err
	}
	x, y, err := t.backend.CursorPosition()
	if err != nil {
		return grid.Rect{}, Position{}, err
	}
	return grid.Rect{X: 0, Y: max(h-maxH, 0), Width: w, Height: max(maxH, 0)}, Position{X: x, Y: y}, nil
}

// RestoreBelowViewport leaves the cursor on the first row under the
// viewport so the shell prompt lands after the last drawn frame. When the
// viewport touches the bottom edge one line is appended to make room.
func (t *Terminal) RestoreBelowViewport() error {
	_, h, err := t.backend.Size()
	if err != nil {
		return err
	}
	y := t.viewport.Bottom()
	if y >= h {
		y = max(h-1, 0)
		if err := t.SetCursor(Position{X: 0, Y: y}); err != nil {
			return err
		}
		if err := t.AppendLines(1); err != nil {
			return err
		}
	}
	if err := t.SetCursor(Position{X: 0, Y: y}); err != nil {
		return err
	}
	return t.backend.Flush()
}
