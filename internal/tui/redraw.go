package tui

import (
	"time"

	"pkt.systems/codelia/internal/grid"
	"pkt.systems/codelia/internal/render"
	"pkt.systems/codelia/internal/terminal"
)

// redraw draws frames until no follow-up is pending. A promotion into
// scrollback or a confirm reaching the frame boundary each ask for one
// more frame.
func (a *App) redraw() error {
	a.dirty = false
	logChanged := a.convo.TakeChanged()
	for {
		followup, err := a.drawOnce(logChanged)
		if err != nil {
			return err
		}
		logChanged = false
		if a.state.ActivateConfirm(a.dialogs.IsOpen()) {
			a.dialogs.ActivateQueued()
			a.log.Debug("tui confirm shown")
			followup = true
		}
		if err := a.checker.Assert(&a.state, a.dialogs.ConfirmActive(), a.dialogs.Queued()); err != nil {
			a.log.Warn("tui render invariant", "err", err)
		}
		if !followup {
			return nil
		}
	}
}

func (a *App) drawOnce(logChanged bool) (bool, error) {
	started := time.Now()
	if err := a.placeViewport(); err != nil {
		return false, err
	}
	// A confirm or prompt on screen keeps wrapped lines out of scrollback
	// until it is answered.
	hold := a.modal()
	var drawTime time.Duration
	err := a.term.Draw(func(f *terminal.Frame) {
		drawStarted := time.Now()
		a.draw(f, logChanged, hold)
		drawTime = time.Since(drawStarted)
	})
	if err != nil {
		return false, err
	}
	a.perf.draw = drawTime
	a.perf.frame = time.Since(started)
	a.perf.redraws++

	width := a.term.Viewport().Width
	source := func(start, end int) []grid.Line {
		rows := a.wrap.Rows(&a.convo, width, a.theme)
		end = min(end, len(rows))
		if start >= end {
			return nil
		}
		return rows[start:end]
	}
	return a.state.Apply(a.term, source, render.Frame{Scroll: a.scroll, Hold: hold, LogChanged: logChanged})
}

// placeViewport reserves the inline viewport on the first frame and
// refits it to the screen afterwards.
func (a *App) placeViewport() error {
	w, h, err := a.term.Size()
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	if !a.inline {
		target := min(max(a.DesiredHeight(w, h), a.ui.MinViewportHeight), h)
		target = max(target, 1)
		area, cursor, err := a.term.ComputeInlineArea(target)
		if err != nil {
			return err
		}
		a.term.SetViewport(area)
		a.term.SetLastCursor(cursor)
		if err := a.term.Clear(); err != nil {
			return err
		}
		a.inline = true
		a.viewportH = area.Height
		a.screenW, a.screenH = w, h
		a.log.Debug("tui viewport placed", "width", area.Width, "height", area.Height, "y", area.Y)
		return nil
	}

	height := max(min(a.viewportH, h), 1)
	area := grid.Rect{X: 0, Y: max(h-height, 0), Width: w, Height: height}
	if w == a.screenW && h == a.screenH && area == a.term.Viewport() {
		return nil
	}
	a.screenW, a.screenH = w, h
	a.term.SetViewport(area)
	if err := a.term.Clear(); err != nil {
		return err
	}
	a.log.Debug("tui viewport resized", "width", w, "height", height)
	return nil
}
