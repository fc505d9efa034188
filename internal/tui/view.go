package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"pkt.systems/codelia/internal/dialog"
	"pkt.systems/codelia/internal/grid"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/internal/render"
	"pkt.systems/codelia/internal/terminal"
	"pkt.systems/codelia/schema"
)

const (
	maxInputHeight   = 6
	inputPaddingX    = 2
	inputPaddingY    = 1
	panelGap         = 1
	debugPanelHeight = 2
	runLineHeight    = 2
	statusLineHeight = 1

	inputPrefix = "> "
	inputIndent = "  "
)

// perfStats feeds the debug perf panel.
type perfStats struct {
	frame   time.Duration
	draw    time.Duration
	redraws uint64
}

// frameLayout is the vertical split of one frame below the log.
type frameLayout struct {
	runH    int
	statusH int
	debugH  int

	panel     []grid.Line
	gap       int
	hasCursor bool

	input      []string
	cursorRow  int
	cursorCol  int
	inputH     int
	inputTotal int

	reserved int
	// fits is false when the chrome alone does not fit the height.
	fits bool
}

// modal reports whether the open overlay takes over the whole chrome.
func (a *App) modal() bool {
	switch a.dialogs.Active().(type) {
	case *dialog.Confirm, *dialog.Prompt:
		return true
	}
	return false
}

func (a *App) chromeHeights() (run, status, debug int) {
	if a.modal() {
		return 0, 0, 0
	}
	if a.opts.DebugPerf {
		debug = debugPanelHeight
	}
	return runLineHeight, statusLineHeight, debug
}

// activeInput returns the open overlay's panel, if any, and the editor the
// composer area shows.
func (a *App) activeInput() (*dialog.Panel, *keys.Editor, bool) {
	o := a.dialogs.Active()
	if o == nil {
		return nil, &a.editor, false
	}
	p := o.View()
	if p.Input != nil {
		return &p, p.Input, p.Secret
	}
	return &p, &a.editor, false
}

func (a *App) computeLayout(width, height int) frameLayout {
	var l frameLayout
	l.runH, l.statusH, l.debugH = a.chromeHeights()
	footer := l.statusH + l.debugH
	inputWidth := max(width-2*inputPaddingX, 1)

	panel, editor, secret := a.activeInput()
	text := editor.Runes()
	if secret {
		text = []rune(strings.Repeat("*", len(text)))
	}
	l.input, l.cursorRow, l.cursorCol = keys.Layout(text, editor.Cursor(), runewidth.StringWidth(inputPrefix), inputWidth)
	l.hasCursor = panel == nil || panel.Input != nil

	maxInput := min(max(height-footer-2*inputPaddingY, 1), maxInputHeight)
	l.inputH = min(max(len(l.input), 1), maxInput)
	base := l.inputH + 2*inputPaddingY
	maxPanel := height - footer - l.runH
	if maxPanel < base {
		return l
	}
	if panel != nil {
		avail := maxPanel - base
		maxLines := avail
		if avail > panelGap {
			l.gap = panelGap
			maxLines = avail - panelGap
		}
		l.panel = dialog.Render(*panel, maxLines, inputWidth)
		if len(l.panel) == 0 {
			l.gap = 0
		}
	}
	l.inputTotal = base + len(l.panel) + l.gap
	l.reserved = l.inputTotal + footer + l.runH
	l.fits = height >= l.reserved
	return l
}

// DesiredHeight is the viewport height the current content wants on a
// screen of width x height cells.
func (a *App) DesiredHeight(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	l := a.computeLayout(width, height)
	if !l.fits {
		return height
	}
	wrapped := len(a.wrap.Rows(&a.convo, width, a.theme))
	logH := min(wrapped, height-l.reserved)
	return min(max(logH+l.reserved, 1), height)
}

// draw renders one frame. The log sits directly above the run line, so a
// short conversation leaves no gap before the composer.
func (a *App) draw(f *terminal.Frame, logChanged, hold bool) {
	area := f.Area()
	buf := f.Buffer()
	if area.Empty() {
		return
	}
	l := a.computeLayout(area.Width, area.Height)
	rows := a.wrap.Rows(&a.convo, area.Width, a.theme)
	total := len(rows)
	if !l.fits {
		return
	}
	if hold {
		a.scroll = 0
	}
	if logChanged && a.lastWrapWidth == area.Width {
		a.scroll = render.AnchorScroll(a.scroll, a.lastWrappedTotal, total)
	}
	a.lastWrappedTotal, a.lastWrapWidth = total, area.Width

	logH := min(total, area.Height-l.reserved)
	win := a.state.Layout(total, logH, a.scroll, hold)
	a.scroll = win.Scroll
	for i, line := range rows[win.Start:win.End] {
		buf.SetLine(area.X, area.Y+i, line, area.Width)
	}

	y := area.Y + logH
	if l.runH > 0 {
		buf.SetLine(area.X, y, a.runLine(), area.Width)
	}
	y += l.runH
	cx, cy := a.drawInput(buf, grid.Rect{X: area.X, Y: y, Width: area.Width, Height: l.inputTotal}, l)
	if l.hasCursor {
		f.SetCursor(cx, cy)
	}
	y += l.inputTotal
	if l.statusH > 0 {
		buf.SetString(area.X, y, a.statusText(), grid.Style{Mod: grid.Dim}, area.Width)
	}
	y += l.statusH
	for i, text := range a.perfLines() {
		if i >= l.debugH {
			break
		}
		buf.SetString(area.X, y+i, text, grid.Style{FG: grid.DarkGray, Mod: grid.Dim}, area.Width)
	}
}

// drawInput paints the composer panel and returns the cursor cell.
func (a *App) drawInput(buf *grid.Buffer, rect grid.Rect, l frameLayout) (int, int) {
	buf.SetStyle(rect, grid.Style{BG: a.theme.InputBG})
	inner := rect.Inset(inputPaddingX, inputPaddingY)
	y := inner.Y
	for _, line := range l.panel {
		buf.SetLine(inner.X, y, line, inner.Width)
		y++
	}
	if l.gap > 0 {
		buf.SetString(inner.X, y, strings.Repeat("─", inner.Width), grid.Style{FG: grid.DarkGray}, inner.Width)
		y += l.gap
	}

	start := 0
	if len(l.input) > l.inputH {
		start = min(max(l.cursorRow+1-l.inputH, 0), len(l.input)-l.inputH)
	}
	end := min(start+l.inputH, len(l.input))
	for i := start; i < end; i++ {
		prefix := inputIndent
		if i == 0 {
			prefix = inputPrefix
		}
		buf.SetString(inner.X, y+i-start, prefix+l.input[i], grid.Style{FG: grid.White}, inner.Width)
	}
	return inner.X + l.cursorCol, y + l.cursorRow - start
}

func (a *App) runLine() grid.Line {
	status := string(a.runStatus)
	if status == "" {
		status = "idle"
	}
	label := "● " + status
	if a.isRunning() {
		label += " " + a.spinnerFrame()
	}
	var style grid.Style
	switch a.runStatus {
	case schema.RunStarting, schema.RunRunning, schema.RunAwaitingUI:
		style = grid.Style{FG: grid.LightGreen}
	case schema.RunCompleted:
		style = grid.Style{FG: grid.Cyan}
	case schema.RunCancelled:
		style = grid.Style{FG: grid.Yellow, Mod: grid.Dim}
	case schema.RunError:
		style = grid.Style{FG: grid.Red, Mod: grid.Bold}
	default:
		style = grid.Style{Mod: grid.Dim}
	}
	return grid.Line{Spans: []grid.Span{{Text: label, Style: style}}}
}

func (a *App) statusText() string {
	var segments []string
	if a.session != "" {
		segments = append(segments, "session: "+a.session.Short())
	}
	if a.contextLeft != nil {
		segments = append(segments, fmt.Sprintf("context left: %d%%", *a.contextLeft))
	}
	if len(a.queue) > 0 {
		segments = append(segments, fmt.Sprintf("queue: %d", len(a.queue)))
	}
	hint := "Ctrl+J newline  •  Ctrl+C cancel/quit"
	if o := a.dialogs.Active(); o != nil {
		if h := o.View().Hint; h != "" {
			hint = h
		}
	}
	segments = append(segments, hint)
	return strings.Join(segments, "  •  ")
}

func (a *App) perfLines() []string {
	if !a.opts.DebugPerf {
		return nil
	}
	stats := a.wrap.Stats
	rate := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		rate = float64(stats.Hits) * 100 / float64(total)
	}
	return []string{
		fmt.Sprintf("perf frame:%.2fms draw:%.2fms wrap_miss:%.2fms wrapped:%d",
			millis(a.perf.frame), millis(a.perf.draw), millis(stats.LastWrap), stats.Total),
		fmt.Sprintf("cache hit:%d miss:%d rate:%.1f%% redraw:%d", stats.Hits, stats.Misses, rate, a.perf.redraws),
	}
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
