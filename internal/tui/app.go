// Package tui is the inline terminal front end: it owns the conversation
// log, the composer and the overlays, talks to the runtime and keeps the
// viewport and the terminal scrollback in sync.
package tui

import (
	"context"
	"time"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/dialog"
	"pkt.systems/codelia/internal/format"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/internal/logx"
	"pkt.systems/codelia/internal/persist"
	"pkt.systems/codelia/internal/render"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/codelia/internal/terminal"
	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

// Runtime is the child process the app talks to. *runtime.Process
// satisfies it.
type Runtime interface {
	runtime.Sender
	Lines() <-chan string
	Exited() (string, bool)
	Kill() error
}

// Options configures an App.
type Options struct {
	UI    appconfig.UIConfig
	Theme convo.Theme
	// Debug shows runtime and rpc lines and makes invariant checks fatal.
	Debug       bool
	DebugPerf   bool
	Diagnostics bool
	// Resume opens the session picker, or resumes ResumeID when set.
	Resume         bool
	ResumeID       schema.SessionID
	InitialMessage string
	CLIVersion     string
	History        *persist.Store
	Logger         pslog.Logger
}

const (
	ctrlCForceQuitWindow = 2 * time.Second
	// runtimeLineCap is the per-tick line budget when none is configured.
	runtimeLineCap = 300
)

// App is the render loop state. It is not safe for concurrent use; Run
// owns it.
type App struct {
	opts    Options
	ui      appconfig.UIConfig
	theme   convo.Theme
	rt      Runtime
	client  *runtime.Client
	term    *terminal.Terminal
	decoder *format.Decoder
	checker render.Checker
	log     pslog.Logger

	convo   convo.Log
	wrap    convo.WrapCache
	state   render.State
	dialogs dialog.Holder
	// waiting holds prompts and pickers that arrived while another
	// overlay was open.
	waiting []dialog.Overlay

	editor       keys.Editor
	history      []string
	historyIndex int
	historyDraft string
	historyDirty bool

	queue    []queuedPrompt
	queueSeq int

	session       schema.SessionID
	activeRun     schema.RunID
	runStatus     schema.RunStatus
	runStarted    time.Time
	runElapsed    time.Duration
	contextLeft   *int
	lastAssistant string
	initialized   bool
	pendingInit   string

	scroll           int
	lastWrapWidth    int
	lastWrappedTotal int

	spinnerIdx  int
	spinnerLast time.Time
	lastCtrlC   time.Time
	perf        perfStats

	inline    bool
	viewportH int
	screenW   int
	screenH   int

	dirty       bool
	quit        bool
	runtimeGone bool

	now func() time.Time
}

// New builds an App over a started runtime and an inline terminal.
func New(rt Runtime, term *terminal.Terminal, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if opts.Theme.Name == "" {
		opts.Theme, _ = convo.ThemeFor(convo.DefaultTheme)
	}
	a := &App{
		opts:         opts,
		ui:           opts.UI,
		theme:        opts.Theme,
		rt:           rt,
		client:       runtime.NewClient(rt, logger),
		term:         term,
		decoder:      format.NewDecoder(opts.Theme),
		checker:      render.Checker{Strict: opts.Debug || opts.UI.StrictInvariants, Log: logger},
		log:          logger,
		historyIndex: -1,
		pendingInit:  opts.InitialMessage,
		dirty:        true,
		now:          time.Now,
	}
	if opts.History != nil {
		entries, err := opts.History.Load()
		if err != nil {
			logger.Warn("tui history load failed", "err", err)
		}
		a.history = entries
	}
	return a
}

// Run drives the app until the user quits, the runtime exits or ctx is
// done. Keys come from in; resized fires on terminal size changes.
func (a *App) Run(ctx context.Context, in <-chan keys.Key, resized <-chan struct{}) error {
	a.start()
	a.log.Info("tui session start", "debug", a.opts.Debug, "perf", a.opts.DebugPerf)

	ticker := time.NewTicker(a.ui.PollInterval())
	defer ticker.Stop()
	lines := a.rt.Lines()

	for {
		if err := a.step(); err != nil {
			a.log.Error("tui render failed", "err", err)
			return a.finish(err)
		}
		if a.quit {
			return a.finish(nil)
		}
		select {
		case <-ctx.Done():
			a.log.Info("tui exit", "reason", "context")
			return a.finish(nil)
		case k, ok := <-in:
			if !ok {
				a.log.Info("tui exit", "reason", "input closed")
				a.quit = true
				break
			}
			a.handleKey(k)
		case line, ok := <-lines:
			if !ok {
				lines = nil
				break
			}
			a.applyLine(line)
		case <-resized:
			a.dirty = true
		case <-ticker.C:
		}
	}
}

// start sends initialize and fills the log with the welcome banner.
func (a *App) start() {
	if _, err := a.client.Initialize(); err != nil {
		a.convo.PushErrorReport("send error", err.Error())
	}
	a.pushWelcome()
	switch {
	case a.opts.ResumeID != "":
		a.resume(a.opts.ResumeID, "Resume session")
	case a.opts.Resume:
		a.requestSessionList()
	}
}

// step is one pass of the loop body between waits.
func (a *App) step() error {
	a.processRuntime()
	a.maybeStartInitial()
	a.tryDispatch()
	if status, ok := a.rt.Exited(); ok && !a.runtimeGone {
		a.runtimeGone = true
		// Render the runtime's last words before the exit notice.
		for {
			batch, _ := runtime.Drain(a.rt.Lines(), runtimeLineCap)
			if len(batch) == 0 {
				break
			}
			for _, line := range batch {
				a.applyLine(line)
			}
		}
		a.convo.PushText(convo.KindRuntime, "runtime exited: "+status)
		a.log.Info("tui exit", "reason", "runtime exited", "status", status)
		a.dirty = true
		a.quit = true
	}
	if a.updateSpinner(a.now()) {
		a.dirty = true
	}
	if !a.dirty {
		return nil
	}
	return a.redraw()
}

// processRuntime applies up to the per-tick cap of buffered runtime lines.
func (a *App) processRuntime() {
	limit := a.ui.MaxLinesPerTick
	if limit <= 0 {
		limit = runtimeLineCap
	}
	batch, capped := runtime.Drain(a.rt.Lines(), limit)
	for _, line := range batch {
		a.applyLine(line)
	}
	if capped {
		a.dirty = true
	}
}

func (a *App) maybeStartInitial() {
	if a.pendingInit == "" || !a.initialized || a.client.Pending.Len() > 0 || !a.canDispatch() {
		return
	}
	message := a.pendingInit
	a.pendingInit = ""
	a.log.Debug("tui initial prompt start", "len", len(message))
	a.submitPrompt(message)
	a.dirty = true
}

// finish kills the runtime and leaves the cursor below the viewport.
func (a *App) finish(err error) error {
	a.saveHistory()
	if killErr := a.rt.Kill(); killErr != nil {
		a.log.Debug("runtime kill failed", "err", killErr)
	}
	if a.inline {
		if restoreErr := a.term.RestoreBelowViewport(); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}
	logx.WithSession(a.log, a.session).Info("tui session end", "lines", a.convo.Len())
	return err
}

func (a *App) push(lines ...convo.Line) {
	a.convo.Push(lines...)
	a.dirty = true
}

func (a *App) pushStatus(text string) {
	a.push(convo.NewLine(convo.KindStatus, text))
}

func (a *App) isRunning() bool { return a.runStatus.Active() }

// setRunStatus records a status change and times active runs.
func (a *App) setRunStatus(status schema.RunStatus) {
	if status == a.runStatus {
		return
	}
	was := a.runStatus.Active()
	a.runStatus = status
	switch {
	case status.Active() && !was:
		a.runStarted = a.now()
		a.runElapsed = 0
	case status.Terminal() && !a.runStarted.IsZero():
		a.runElapsed = a.now().Sub(a.runStarted)
	}
	a.dirty = true
}

func (a *App) runDuration() (time.Duration, bool) {
	if a.runElapsed > 0 {
		return a.runElapsed, true
	}
	if a.runStarted.IsZero() {
		return 0, false
	}
	return a.now().Sub(a.runStarted), true
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧"}

func (a *App) spinnerFrame() string { return spinnerFrames[a.spinnerIdx%len(spinnerFrames)] }

func (a *App) updateSpinner(now time.Time) bool {
	if !a.isRunning() {
		a.spinnerIdx = 0
		a.spinnerLast = now
		return false
	}
	if now.Sub(a.spinnerLast) >= a.ui.SpinnerInterval() {
		a.spinnerLast = now
		a.spinnerIdx++
		return true
	}
	return false
}

// clearLog empties the log and forgets everything promoted from it.
func (a *App) clearLog() {
	a.convo.Clear()
	a.wrap.Invalidate()
	a.scroll = 0
	a.lastWrappedTotal = 0
	a.state.Reset(a.dialogs.ConfirmActive(), a.dialogs.Queued())
	a.dirty = true
}
