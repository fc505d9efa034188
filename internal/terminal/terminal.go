// Package terminal drives an inline viewport anchored to the bottom rows of
// a real terminal. Content above the viewport is pushed into the terminal's
// own scrollback and never redrawn.
package terminal

import (
	"io"

	"github.com/charmbracelet/x/ansi"

	"pkt.systems/codelia/internal/grid"
	"pkt.systems/pslog"
)

// Backend is the byte sink and geometry source behind a Terminal.
type Backend interface {
	io.Writer
	Flush() error
	Size() (width, height int, err error)
	CursorPosition() (x, y int, err error)
}

// Position is a zero-based screen coordinate.
type Position struct {
	X, Y int
}

// Frame is handed to the draw callback. Rendering goes into Buffer; the
// cursor is hidden after the frame unless SetCursor is called.
type Frame struct {
	area   grid.Rect
	buf    *grid.Buffer
	cursor *Position
}

// Area returns the viewport rectangle in screen coordinates.
func (f *Frame) Area() grid.Rect { return f.area }

// Buffer returns the cell grid for this frame.
func (f *Frame) Buffer() *grid.Buffer { return f.buf }

// SetCursor places the visible cursor after the frame is flushed.
func (f *Frame) SetCursor(x, y int) { f.cursor = &Position{X: x, Y: y} }

// Terminal owns the double-buffered viewport.
type Terminal struct {
	backend      Backend
	buffers      [2]*grid.Buffer
	current      int
	hiddenCursor bool
	viewport     grid.Rect
	screenW      int
	screenH      int
	lastCursor   Position
	log          pslog.Logger
}

// New wraps backend. The viewport starts empty at the cursor row.
func New(backend Backend, logger pslog.Logger) (*Terminal, error) {
	w, h, err := backend.Size()
	if err != nil {
		return nil, err
	}
	x, y, err := backend.CursorPosition()
	if err != nil {
		if logger != nil {
			logger.Warn("terminal cursor query failed", "err", err)
		}
		x, y = 0, 0
	}
	return &Terminal{
		backend:    backend,
		buffers:    [2]*grid.Buffer{grid.NewBuffer(grid.Rect{}), grid.NewBuffer(grid.Rect{})},
		viewport:   grid.Rect{Y: y},
		screenW:    w,
		screenH:    h,
		lastCursor: Position{X: x, Y: y},
		log:        logger,
	}, nil
}

// Viewport returns the live area.
func (t *Terminal) Viewport() grid.Rect { return t.viewport }

// ScreenSize returns the size observed by the last autoresize.
func (t *Terminal) ScreenSize() (int, int) { return t.screenW, t.screenH }

// LastCursor returns the last position the cursor was known to be at.
func (t *Terminal) LastCursor() Position { return t.lastCursor }

// SetLastCursor overrides the tracked cursor position.
func (t *Terminal) SetLastCursor(p Position) { t.lastCursor = p }

// Backend exposes the underlying sink.
func (t *Terminal) Backend() Backend { return t.backend }

// Size queries the backend for the current screen size.
func (t *Terminal) Size() (int, int, error) { return t.backend.Size() }

// SetViewport moves and resizes the viewport. Both buffers are reallocated
// together and blanked; callers follow with Clear to resync the screen.
func (t *Terminal) SetViewport(area grid.Rect) {
	area = grid.ClampArea(area)
	t.buffers[0].Resize(area)
	t.buffers[1].Resize(area)
	t.viewport = area
}

func (t *Terminal) currentBuffer() *grid.Buffer  { return t.buffers[t.current] }
func (t *Terminal) previousBuffer() *grid.Buffer { return t.buffers[1-t.current] }

// Autoresize refreshes the cached screen size.
func (t *Terminal) Autoresize() error {
	w, h, err := t.backend.Size()
	if err != nil {
		return err
	}
	if w != t.screenW || h != t.screenH {
		if t.log != nil {
			t.log.Debug("terminal resized", "width", w, "height", h)
		}
		t.screenW, t.screenH = w, h
	}
	return nil
}

// Draw renders one frame: render fills the current buffer, the difference
// against the previous buffer is written out, then the buffers swap.
func (t *Terminal) Draw(render func(*Frame)) error {
	if err := t.Autoresize(); err != nil {
		return err
	}
	frame := &Frame{area: t.viewport, buf: t.currentBuffer()}
	render(frame)
	if err := t.Flush(); err != nil {
		return err
	}
	if frame.cursor == nil {
		if err := t.HideCursor(); err != nil {
			return err
		}
	} else {
		if err := t.ShowCursor(); err != nil {
			return err
		}
		if err := t.SetCursor(*frame.cursor); err != nil {
			return err
		}
	}
	t.swapBuffers()
	return t.backend.Flush()
}

// Flush writes the difference between the previous and current buffers.
func (t *Terminal) Flush() error {
	cmds := grid.Diff(t.previousBuffer(), t.currentBuffer())
	x, y, ok, err := grid.Draw(t.backend, cmds)
	if ok {
		t.lastCursor = Position{X: x, Y: y}
	}
	return err
}

func (t *Terminal) swapBuffers() {
	t.previousBuffer().Reset()
	t.current = 1 - t.current
}

// Clear erases from the viewport origin to the end of the screen and
// forgets what was drawn there.
func (t *Terminal) Clear() error {
	if t.viewport.Empty() {
		return nil
	}
	if _, err := io.WriteString(t.backend, grid.MoveTo(t.viewport.X, t.viewport.Y)+ansi.EraseScreenBelow); err != nil {
		return err
	}
	t.previousBuffer().Reset()
	return nil
}

// HideCursor hides the hardware cursor.
func (t *Terminal) HideCursor() error {
	if _, err := io.WriteString(t.backend, ansi.HideCursor); err != nil {
		return err
	}
	t.hiddenCursor = true
	return nil
}

// ShowCursor shows the hardware cursor.
func (t *Terminal) ShowCursor() error {
	if _, err := io.WriteString(t.backend, ansi.ShowCursor); err != nil {
		return err
	}
	t.hiddenCursor = false
	return nil
}

// CursorHidden reports whether the last cursor command hid it.
func (t *Terminal) CursorHidden() bool { return t.hiddenCursor }

// SetCursor moves the hardware cursor and records the position.
func (t *Terminal) SetCursor(p Position) error {
	if _, err := io.WriteString(t.backend, grid.MoveTo(p.X, p.Y)); err != nil {
		return err
	}
	t.lastCursor = p
	return nil
}

// AppendLines emits n line feeds from the current cursor position.
func (t *Terminal) AppendLines(n int) error {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = '\n'
	}
	_, err := t.backend.Write(b)
	return err
}
