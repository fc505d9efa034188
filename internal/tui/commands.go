package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/codelia/schema"
)

const (
	queuePreviewItems = 5
	queuePreviewChars = 60
)

type queuedPrompt struct {
	id       string
	text     string
	queuedAt time.Time
	// waited is set when the prompt could not be dispatched right away.
	waited bool
}

// submit handles one line entered in the composer.
func (a *App) submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") || strings.Contains(trimmed, "\n") {
		a.submitPrompt(text)
		return
	}
	fields, err := shlex.Split(trimmed)
	if err != nil || len(fields) == 0 {
		fields = strings.Fields(trimmed)
	}
	name, args := fields[0], fields[1:]
	a.log.Debug("tui command", "name", name, "args", len(args))
	switch name {
	case "/quit", "/exit":
		a.appendHistory(text)
		a.log.Info("tui exit", "reason", "command")
		a.quit = true
	case "/clear":
		a.clearLog()
	case "/errors":
		a.errorsCommand(args)
	case "/resume":
		a.appendHistory(text)
		if len(args) > 0 {
			a.resume(schema.SessionID(args[0]), "Resume session")
			return
		}
		a.requestSessionList()
	case "/compact":
		a.compactCommand(args)
	case "/queue":
		a.queueCommand(args)
	default:
		a.submitPrompt(text)
	}
}

func (a *App) errorsCommand(args []string) {
	if len(args) == 0 {
		a.pushStatus(fmt.Sprintf("Error detail mode: %s (/errors summary|detail|show)", a.convo.ErrorMode))
		return
	}
	switch strings.ToLower(args[0]) {
	case "summary":
		a.convo.ErrorMode = convo.ErrorsSummary
		a.pushStatus("Error detail mode set to summary.")
	case "detail":
		a.convo.ErrorMode = convo.ErrorsDetail
		a.pushStatus("Error detail mode set to detail.")
	case "show":
		a.convo.ShowLastError()
		a.dirty = true
	default:
		a.push(convo.NewLine(convo.KindError, "usage: /errors [summary|detail|show]"))
	}
}

// compactCommand starts a run that only compacts the session context.
func (a *App) compactCommand(args []string) {
	if len(args) > 0 {
		a.push(convo.NewLine(convo.KindError, "usage: /compact"))
		return
	}
	if a.activeRun != "" || a.isRunning() || a.client.Pending.Has(runtime.IntentRunStart) {
		a.pushStatus("Run is still active; wait for completion before running /compact.")
		return
	}
	a.scroll = 0
	a.push(convo.NewLine(convo.KindUser, "> /compact"))
	a.setRunStatus(schema.RunStarting)
	a.pushStatus("Starting forced compaction ...")
	if _, err := a.client.RunStart("", a.session, true); err != nil {
		a.setRunStatus(schema.RunError)
		a.convo.PushErrorReport("send error", err.Error())
	}
}

func (a *App) queueCommand(args []string) {
	if len(args) == 0 {
		a.showQueue()
		return
	}
	switch strings.ToLower(args[0]) {
	case "cancel":
		a.cancelQueued(args[1:])
	case "clear":
		if len(args) > 1 {
			a.push(convo.NewLine(convo.KindError, "usage: /queue clear"))
			return
		}
		n := len(a.queue)
		a.queue = nil
		a.pushStatus(fmt.Sprintf("Cleared queue (%d items).", n))
	default:
		a.push(convo.NewLine(convo.KindError, "usage: /queue [cancel [id|index]|clear]"))
	}
}

func (a *App) showQueue() {
	if len(a.queue) == 0 {
		a.pushStatus("queue is empty")
		return
	}
	shown := min(len(a.queue), queuePreviewItems)
	lines := []convo.Line{convo.NewLine(convo.KindStatus, fmt.Sprintf("queue: %d pending (showing first %d)", len(a.queue), shown))}
	now := a.now()
	for i, item := range a.queue[:shown] {
		preview := convo.TruncateChars(strings.Join(strings.Fields(item.text), " "), queuePreviewChars)
		lines = append(lines, convo.NewToned(convo.KindStatus, convo.Detail,
			fmt.Sprintf("  %d. %s [%s ago] %s", i+1, item.id, formatAge(now.Sub(item.queuedAt)), preview)))
	}
	if rest := len(a.queue) - shown; rest > 0 {
		lines = append(lines, convo.NewToned(convo.KindStatus, convo.Detail, fmt.Sprintf("  ... %d more", rest)))
	}
	a.push(lines...)
}

// cancelQueued drops a queued prompt by id or 1-based index, defaulting
// to the oldest.
func (a *App) cancelQueued(args []string) {
	if len(a.queue) == 0 {
		a.pushStatus("queue is empty")
		return
	}
	idx := 0
	if len(args) > 0 {
		idx = a.findQueued(args[0])
		if idx < 0 {
			a.push(convo.NewLine(convo.KindError, "Queue item not found: "+args[0]))
			return
		}
	}
	item := a.queue[idx]
	a.queue = append(a.queue[:idx], a.queue[idx+1:]...)
	a.pushStatus(fmt.Sprintf("Cancelled queued prompt %s (queue=%d)", item.id, len(a.queue)))
}

func (a *App) findQueued(ref string) int {
	for i, item := range a.queue {
		if strings.EqualFold(item.id, ref) {
			return i
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.queue) {
		return n - 1
	}
	return -1
}

// submitPrompt queues text and dispatches it at once when nothing blocks.
func (a *App) submitPrompt(text string) {
	a.queueSeq++
	item := queuedPrompt{id: fmt.Sprintf("q%d", a.queueSeq), text: text, queuedAt: a.now()}
	if !a.canDispatch() || len(a.queue) > 0 {
		item.waited = true
		a.queue = append(a.queue, item)
		a.appendHistory(text)
		a.pushStatus(fmt.Sprintf("Queued prompt %s (queue=%d)", item.id, len(a.queue)))
		return
	}
	a.dispatch(item)
}

// tryDispatch starts the oldest queued prompt once the runtime is free.
func (a *App) tryDispatch() {
	if len(a.queue) == 0 || !a.canDispatch() {
		return
	}
	item := a.queue[0]
	a.queue = a.queue[1:]
	a.pushStatus(fmt.Sprintf("Dispatching queued prompt %s (queue=%d)", item.id, len(a.queue)))
	a.dispatch(item)
}

func (a *App) canDispatch() bool {
	return !a.client.Pending.Has(runtime.IntentRunStart) &&
		!a.client.Pending.Has(runtime.IntentRunCancel) &&
		a.activeRun == "" &&
		!a.isRunning() &&
		!a.dialogs.IsOpen() &&
		!a.dialogs.Queued() &&
		len(a.waiting) == 0
}

func (a *App) dispatch(item queuedPrompt) {
	if !item.waited {
		a.appendHistory(item.text)
	}
	a.scroll = 0
	a.lastAssistant = ""
	lines := []convo.Line{convo.NewLine(convo.KindUser, " ")}
	for i, l := range strings.Split(item.text, "\n") {
		prefix := "  "
		if i == 0 {
			prefix = "> "
		}
		lines = append(lines, convo.NewLine(convo.KindUser, prefix+l))
	}
	lines = append(lines, convo.NewLine(convo.KindUser, " "))
	if last, ok := lastSummaryKind(a.convo.Lines(), a.opts.Debug); ok && last != convo.KindUser && !endsWithSpace(a.convo.Lines()) {
		lines = append([]convo.Line{convo.Blank()}, lines...)
	}
	a.push(lines...)
	a.setRunStatus(schema.RunStarting)
	if _, err := a.client.RunStart(item.text, a.session, false); err != nil {
		a.setRunStatus(schema.RunError)
		a.convo.PushErrorReport("send error", err.Error())
		return
	}
	a.log.Debug("tui prompt dispatched", "queue_id", item.id, "len", len(item.text))
}

func formatAge(d time.Duration) string {
	secs := max(int(d/time.Second), 0)
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
