package tui

import (
	"strings"
	"time"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/dialog"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/codelia/schema"
)

func (a *App) handleKey(k keys.Key) {
	a.dirty = true
	if k.Kind == keys.CtrlC {
		a.handleCtrlC()
		return
	}
	a.lastCtrlC = time.Time{}
	if o := a.dialogs.Active(); o != nil {
		a.handleOverlayKey(o, k)
		return
	}

	switch k.Kind {
	case keys.Esc:
		a.handleEsc()
	case keys.CtrlD:
		if a.editor.Len() == 0 {
			a.log.Info("tui exit", "reason", "ctrl-d")
			a.quit = true
			return
		}
		a.editor.Delete()
		a.historyDirty = true
	case keys.CtrlL:
		a.clearLog()
	case keys.Enter:
		text := a.editor.String()
		a.editor.Clear()
		a.historyIndex = -1
		a.historyDirty = false
		a.submit(text)
	case keys.CtrlJ, keys.AltEnter:
		a.editor.InsertRune('\n')
		a.historyDirty = true
	case keys.Rune:
		a.editor.InsertRune(k.Rune)
		a.historyDirty = true
	case keys.Paste:
		a.editor.Insert(convo.SanitizePaste(k.Text))
		a.historyDirty = true
	case keys.Tab:
		a.editor.Insert("  ")
		a.historyDirty = true
	case keys.Backspace:
		a.editor.Backspace()
		a.historyDirty = true
	case keys.Delete:
		a.editor.Delete()
		a.historyDirty = true
	case keys.Left:
		a.editor.MoveLeft()
	case keys.Right:
		a.editor.MoveRight()
	case keys.Home, keys.CtrlA:
		a.editor.MoveHome()
	case keys.End, keys.CtrlE:
		a.editor.MoveEnd()
	case keys.AltB:
		a.editor.MoveWordLeft()
	case keys.AltF:
		a.editor.MoveWordRight()
	case keys.CtrlW:
		a.editor.DeleteWordBackward()
		a.historyDirty = true
	case keys.CtrlU:
		a.editor.KillLineStart()
		a.historyDirty = true
	case keys.CtrlK:
		a.editor.KillLineEnd()
		a.historyDirty = true
	case keys.Up:
		if a.editor.AtEdge() {
			a.historyUp()
		} else {
			a.editor.MoveUp()
		}
	case keys.Down:
		if a.editor.AtEdge() {
			a.historyDown()
		} else {
			a.editor.MoveDown()
		}
	case keys.PageUp:
		a.scrollBy(a.pageSize())
	case keys.PageDown:
		a.scrollBy(-a.pageSize())
	}
}

// handleCtrlC escalates: the first press cancels or warns, a second press
// inside the force-quit window always quits.
func (a *App) handleCtrlC() {
	now := a.now()
	if !a.lastCtrlC.IsZero() && now.Sub(a.lastCtrlC) <= ctrlCForceQuitWindow {
		a.pushStatus("Force quitting...")
		a.log.Info("tui exit", "reason", "ctrl-c force")
		a.quit = true
		return
	}
	a.lastCtrlC = now
	switch {
	case a.client.Pending.Has(runtime.IntentRunCancel):
		a.pushStatus("Cancellation is still pending. Press Ctrl+C again quickly to force quit.")
	case a.activeRun != "":
		a.cancelRun("user interrupted")
		a.pushStatus("Cancel requested (Ctrl+C again quickly to force quit)")
	case a.client.Pending.Has(runtime.IntentRunStart) || a.isRunning():
		a.pushStatus("Run is starting; Ctrl+C again quickly to force quit.")
	default:
		a.log.Info("tui exit", "reason", "ctrl-c")
		a.quit = true
	}
}

func (a *App) handleEsc() {
	switch {
	case a.scroll > 0:
		a.scroll = 0
	case a.editor.Len() > 0:
		a.editor.Clear()
		a.historyIndex = -1
		a.historyDirty = false
	case a.activeRun != "" && !a.client.Pending.Has(runtime.IntentRunCancel):
		a.cancelRun("user pressed esc")
		a.pushStatus("Cancel requested (Esc)")
	}
}

func (a *App) cancelRun(reason string) {
	if _, err := a.client.RunCancel(a.activeRun, reason); err != nil {
		a.convo.PushErrorReport("send error", err.Error())
		return
	}
	a.runLog().Info("run cancel requested", "reason", reason)
}

// handleOverlayKey feeds k to the open overlay and sends its answer.
func (a *App) handleOverlayKey(o dialog.Overlay, k keys.Key) {
	answer, _ := o.HandleKey(k)
	if answer == nil {
		return
	}
	wasConfirm := a.dialogs.ConfirmActive()
	a.dialogs.Close()
	if wasConfirm {
		a.state.CloseConfirm()
	}

	var err error
	switch ans := answer.(type) {
	case dialog.ConfirmAnswer:
		err = a.client.Confirm(ans.ID, ans.OK, ans.Remember, ans.Reason)
	case dialog.PromptAnswer:
		err = a.client.Prompt(ans.ID, ans.Value)
	case dialog.PickAnswer:
		err = a.client.Pick(ans.ID, ans.IDs)
	case dialog.ResumeAnswer:
		a.resume(ans.SessionID, "Resuming session")
	case dialog.Dismissed:
	}
	if err != nil {
		a.convo.PushErrorReport("send error", err.Error())
	}
	a.openWaiting()
}

// openOverlay shows a prompt or picker now, or after the open one closes.
func (a *App) openOverlay(o dialog.Overlay) {
	if a.dialogs.IsOpen() {
		a.waiting = append(a.waiting, o)
		return
	}
	a.scroll = 0
	a.dialogs.Open(o)
	a.dirty = true
}

func (a *App) openWaiting() {
	if a.dialogs.IsOpen() || len(a.waiting) == 0 {
		return
	}
	next := a.waiting[0]
	a.waiting = a.waiting[1:]
	a.dialogs.Open(next)
}

// openConfirm queues a confirmation for the next frame boundary. A newer
// confirmation supersedes one already shown or queued.
func (a *App) openConfirm(req schema.ConfirmRequest) {
	a.scroll = 0
	wasActive := a.dialogs.ConfirmActive()
	a.dialogs.DropConfirms()
	if wasActive {
		a.log.Debug("tui confirm superseded")
		a.state.CloseConfirm()
	}
	a.dialogs.Queue(dialog.NewConfirm(req))
	a.state.QueueConfirm()
	a.dirty = true
}

func (a *App) pageSize() int {
	return max(a.state.VisibleEnd-a.state.VisibleStart, 1)
}

func (a *App) scrollBy(delta int) {
	a.scroll = max(a.scroll+delta, 0)
}

func (a *App) historyUp() {
	appended := a.saveHistoryDraft()
	if len(a.history) == 0 {
		return
	}
	if a.historyIndex == -1 {
		if appended && len(a.history) > 1 {
			a.historyIndex = len(a.history) - 2
		} else {
			a.historyIndex = len(a.history) - 1
		}
	} else if a.historyIndex > 0 {
		a.historyIndex--
	}
	a.editor.SetString(a.history[a.historyIndex])
	a.historyDirty = false
	a.log.Trace("tui history up", "index", a.historyIndex)
}

func (a *App) historyDown() {
	if len(a.history) == 0 || a.historyIndex == -1 {
		return
	}
	a.saveHistoryDraft()
	if a.historyIndex < len(a.history)-1 {
		a.historyIndex++
		a.editor.SetString(a.history[a.historyIndex])
	} else {
		a.historyIndex = -1
		a.editor.SetString(a.historyDraft)
		a.historyDraft = ""
	}
	a.historyDirty = false
	a.log.Trace("tui history down", "index", a.historyIndex)
}

// saveHistoryDraft keeps an edited composer before history navigation
// replaces it. It reports whether the draft was appended to history.
func (a *App) saveHistoryDraft() bool {
	if a.historyIndex != -1 && !a.historyDirty {
		return false
	}
	entry := a.editor.String()
	if a.historyIndex == -1 {
		a.historyDraft = entry
	}
	if strings.TrimSpace(entry) == "" || a.historyIndex == -1 {
		return false
	}
	return a.appendHistory(entry)
}

func (a *App) appendHistory(entry string) bool {
	if strings.TrimSpace(entry) == "" {
		return false
	}
	if n := len(a.history); n > 0 && a.history[n-1] == entry {
		return false
	}
	a.history = append(a.history, entry)
	return true
}

// saveHistory writes the history file, keeping an unsent composer.
func (a *App) saveHistory() {
	if a.opts.History == nil {
		return
	}
	a.appendHistory(a.editor.String())
	if err := a.opts.History.Save(a.history); err != nil {
		a.log.Warn("tui history save failed", "err", err)
		return
	}
	a.log.Debug("tui history flushed", "entries", len(a.history))
}
