package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/dialog"
	"pkt.systems/codelia/internal/format"
	"pkt.systems/codelia/internal/logx"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

const sessionListLimit = 50

// applyLine decodes one runtime line and applies it.
func (a *App) applyLine(raw string) {
	out := a.decoder.Decode(raw)
	if out.Err != nil {
		a.log.Warn("runtime protocol violation", "err", out.Err)
	}
	a.applyOutput(out)
}

func (a *App) applyOutput(out format.Output) {
	if out.Status != "" {
		if out.Status.Terminal() {
			a.client.Pending.Clear(runtime.IntentRunStart)
			a.client.Pending.Clear(runtime.IntentRunCancel)
			a.activeRun = ""
		} else if out.RunID != "" {
			a.activeRun = out.RunID
		}
		a.setRunStatus(out.Status)
		a.runLog().Debug("run status", "status", out.Status)
	}
	if out.ContextLeft != nil {
		a.contextLeft = out.ContextLeft
	}
	if out.AssistantText != "" {
		a.lastAssistant = out.AssistantText
	}

	lines := out.Lines
	final := out.FinalText != ""
	if final {
		// The final event repeats the last text event verbatim.
		if out.FinalText == a.lastAssistant {
			lines = nil
		} else {
			a.lastAssistant = out.FinalText
		}
		if d, ok := a.runDuration(); ok {
			if !endsWithSpace(lines) {
				lines = append(lines, convo.Blank())
			}
			lines = append(lines, convo.NewToned(convo.KindStatus, convo.Detail, "⏱ Run duration: "+formatDuration(d)))
		}
	}
	if !a.opts.Debug {
		kept := lines[:0:0]
		for _, l := range lines {
			if k := l.Kind(); k != convo.KindRuntime && k != convo.KindRPC {
				kept = append(kept, l)
			}
		}
		lines = kept
	}
	prev, hasPrev := lastSummaryKind(a.convo.Lines(), a.opts.Debug)
	if endsWithSpace(a.convo.Lines()) {
		hasPrev = false
	}
	lines = kindSpacing(lines, prev, hasPrev, a.opts.Debug)
	if final && !endsWithSpace(lines) {
		lines = append(lines, convo.Blank())
	}
	a.push(lines...)

	if out.Response != nil {
		a.handleResponse(*out.Response)
	}
	if out.Confirm != nil {
		a.openConfirm(*out.Confirm)
	}
	if out.Prompt != nil {
		a.openOverlay(dialog.NewPrompt(*out.Prompt))
	}
	if out.Pick != nil {
		a.openOverlay(dialog.NewPick(*out.Pick))
	}
	a.dirty = true
}

func (a *App) runLog() pslog.Logger {
	return logx.WithRun(logx.WithSession(a.log, a.session), a.activeRun)
}

// handleResponse routes a response to the request it answers.
func (a *App) handleResponse(resp schema.Response) {
	intent, err := a.client.Match(resp.ID)
	if err != nil {
		if resp.HasError() {
			a.pushRPCError("rpc", resp.Error)
			return
		}
		if a.opts.Debug && len(resp.Result) > 0 {
			a.push(convo.NewLine(convo.KindRPC, "rpc result: "+string(resp.Result)))
		}
		return
	}
	switch intent {
	case runtime.IntentInitialize:
		if resp.HasError() {
			a.pushRPCError("initialize", resp.Error)
			if a.pendingInit != "" {
				a.pendingInit = ""
				a.pushStatus("Initial prompt not sent: runtime initialize failed.")
			}
			return
		}
		a.initialized = true
		a.log.Debug("runtime initialized")
	case runtime.IntentRunStart:
		a.handleRunStart(resp)
	case runtime.IntentRunCancel:
		if resp.HasError() {
			a.pushRPCError("run.cancel", resp.Error)
		}
	case runtime.IntentSessionList:
		a.handleSessionList(resp)
	case runtime.IntentSessionHistory:
		a.handleSessionHistory(resp)
	}
}

func (a *App) handleRunStart(resp schema.Response) {
	if resp.HasError() {
		a.setRunStatus(schema.RunError)
		a.activeRun = ""
		a.pushRPCError("run.start", resp.Error)
		return
	}
	var res schema.RunStartResult
	if err := json.Unmarshal(resp.Result, &res); err != nil || res.RunID == "" {
		a.setRunStatus(schema.RunError)
		a.push(convo.NewLine(convo.KindError, "run.start returned no run_id"))
		return
	}
	a.activeRun = res.RunID
	if a.session == "" && res.SessionID != "" {
		a.session = res.SessionID
	}
	if a.runStatus == schema.RunStarting {
		a.setRunStatus(schema.RunRunning)
	}
	a.runLog().Info("run started")
}

func (a *App) handleSessionList(resp schema.Response) {
	if resp.HasError() {
		a.pushRPCError("session.list", resp.Error)
		return
	}
	var res schema.SessionListResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		a.convo.PushErrorReport("session.list error: invalid result", err.Error())
		a.dirty = true
		return
	}
	list := dialog.NewSessionList(res.Sessions)
	if list == nil {
		a.pushStatus("No saved sessions found.")
		a.push(convo.Blank())
		return
	}
	a.openOverlay(list)
}

func (a *App) handleSessionHistory(resp schema.Response) {
	if resp.HasError() {
		a.pushRPCError("session.history", resp.Error)
		return
	}
	var res schema.SessionHistoryResult
	_ = json.Unmarshal(resp.Result, &res)
	suffix := ""
	if res.Truncated {
		suffix = " (truncated)"
	}
	a.pushStatus(fmt.Sprintf("History restored: %d events from %d runs%s", res.EventsSent, res.Runs, suffix))
	a.push(convo.Blank())
}

func (a *App) pushRPCError(scope string, raw json.RawMessage) {
	summary, detail := format.FormatRPCError(scope, raw)
	a.convo.PushErrorReport(summary, detail)
	a.dirty = true
}

// resume switches to session id and asks the runtime to replay it.
func (a *App) resume(id schema.SessionID, label string) {
	a.session = id
	a.pushStatus(label + " " + id.Short())
	a.push(convo.Blank())
	logx.WithSession(a.log, id).Info("tui session resume")
	if _, err := a.client.SessionHistory(id, 0, 0); err != nil {
		a.convo.PushErrorReport("send error", err.Error())
	}
}

func (a *App) requestSessionList() {
	if _, err := a.client.SessionList(sessionListLimit); err != nil {
		a.convo.PushErrorReport("send error", err.Error())
		a.dirty = true
	}
}

// isSpacingKind reports whether lines of kind take part in kind spacing.
func isSpacingKind(kind convo.Kind, debug bool) bool {
	switch kind {
	case convo.KindSpace:
		return false
	case convo.KindRuntime, convo.KindRPC:
		return debug
	}
	return true
}

func lastSummaryKind(lines []convo.Line, debug bool) (convo.Kind, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Tone() == convo.Summary && isSpacingKind(lines[i].Kind(), debug) {
			return lines[i].Kind(), true
		}
	}
	return 0, false
}

// kindSpacing inserts a blank line wherever the kind of consecutive summary
// lines changes, and collapses runs of blank lines.
func kindSpacing(lines []convo.Line, prev convo.Kind, hasPrev bool, debug bool) []convo.Line {
	out := make([]convo.Line, 0, len(lines))
	for _, line := range lines {
		if line.Kind() == convo.KindSpace {
			if !endsWithSpace(out) {
				out = append(out, line)
			}
			continue
		}
		if line.Tone() == convo.Summary && isSpacingKind(line.Kind(), debug) {
			if hasPrev && prev != line.Kind() && !endsWithSpace(out) {
				out = append(out, convo.Blank())
			}
			prev, hasPrev = line.Kind(), true
		}
		out = append(out, line)
	}
	return out
}

func endsWithSpace(lines []convo.Line) bool {
	return len(lines) > 0 && lines[len(lines)-1].Kind() == convo.KindSpace
}

func formatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
