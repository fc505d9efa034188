package tui

import (
	"fmt"
	"strings"
	"testing"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/internal/render"
	"pkt.systems/codelia/schema"
)

func pushNumbered(h *harness, n int) {
	for i := 0; i < n; i++ {
		h.app.push(convo.NewLine(convo.KindStatus, fmt.Sprintf("line %d", i)))
	}
}

func TestDesiredHeight(t *testing.T) {
	h := newHarness(t, Options{})
	// input 1 row + 2 padding, run line 2, status 1
	if got := h.app.DesiredHeight(40, 30); got != 6 {
		t.Fatalf("empty log: %d", got)
	}
	pushNumbered(h, 3)
	if got := h.app.DesiredHeight(40, 30); got != 9 {
		t.Fatalf("three lines: %d", got)
	}
	pushNumbered(h, 100)
	if got := h.app.DesiredHeight(40, 30); got != 30 {
		t.Fatalf("long log should fill the screen: %d", got)
	}
	if got := h.app.DesiredHeight(40, 4); got != 4 {
		t.Fatalf("chrome taller than the screen: %d", got)
	}
	if got := h.app.DesiredHeight(0, 10); got != 0 {
		t.Fatalf("zero width: %d", got)
	}
}

func TestDesiredHeightCountsPerfPanelAndInputRows(t *testing.T) {
	h := newHarness(t, Options{DebugPerf: true})
	if got := h.app.DesiredHeight(40, 30); got != 8 {
		t.Fatalf("perf panel: %d", got)
	}
	h.app.editor.SetString("a\nb\nc\nd\ne\nf\ng\nh")
	// the composer caps at six rows
	if got := h.app.DesiredHeight(40, 30); got != 13 {
		t.Fatalf("multi-line composer: %d", got)
	}
}

func TestModalOverlayHidesChrome(t *testing.T) {
	h := newHarness(t, Options{})
	run, status, debug := h.app.chromeHeights()
	if run != runLineHeight || status != statusLineHeight || debug != 0 {
		t.Fatalf("heights = %d %d %d", run, status, debug)
	}
	h.app.applyLine(`{"jsonrpc":"2.0","id":"p1","method":"ui.prompt.request","params":{"title":"Name"}}`)
	if !h.app.modal() {
		t.Fatalf("prompt should be modal")
	}
	if run, status, debug = h.app.chromeHeights(); run+status+debug != 0 {
		t.Fatalf("modal heights = %d %d %d", run, status, debug)
	}
}

// newInlineHarness places a ten row viewport at the bottom of the 14 row
// screen, leaving four rows for the log.
func newInlineHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, Options{UI: appconfig.UIConfig{MinViewportHeight: 10}})
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if vp := h.app.term.Viewport(); vp.Y != 4 || vp.Height != 10 || !h.app.inline {
		t.Fatalf("viewport = %+v", vp)
	}
	return h
}

func TestViewportHeightIsFixedAfterFirstFrame(t *testing.T) {
	h := newInlineHarness(t)
	pushNumbered(h, 30)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if vp := h.app.term.Viewport(); vp.Y != 4 || vp.Height != 10 {
		t.Fatalf("viewport grew: %+v", vp)
	}
}

func TestRedrawPromotesOverflow(t *testing.T) {
	h := newInlineHarness(t)
	pushNumbered(h, 30)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	st := h.app.state
	if st.WrappedTotal != 30 || st.VisibleStart != 26 || st.VisibleEnd != 30 || st.InsertedUntil != 26 {
		t.Fatalf("state = %+v", st)
	}
	if st.Sync != render.Idle || st.Cursor != render.VisibleAtComposer {
		t.Fatalf("sync = %v cursor = %v", st.Sync, st.Cursor)
	}
	out := h.backend.String()
	if !strings.Contains(out, "line 0") || !strings.Contains(out, "line 25") {
		t.Fatalf("overflow not promoted: %q", out)
	}
	if err := st.Check(false, false); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestScrolledViewHoldsPromotion(t *testing.T) {
	h := newInlineHarness(t)
	pushNumbered(h, 30)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	h.app.handleKey(keys.Key{Kind: keys.PageUp})
	if h.app.scroll == 0 {
		t.Fatalf("page up should scroll")
	}
	pushNumbered(h, 5)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if h.app.state.InsertedUntil != 26 || !h.app.state.PendingPromotion {
		t.Fatalf("promotion should wait while scrolled: %+v", h.app.state)
	}
	h.app.handleKey(keys.Key{Kind: keys.Esc})
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if h.app.scroll != 0 || h.app.state.InsertedUntil != 31 || h.app.state.PendingPromotion {
		t.Fatalf("scroll = %d state = %+v", h.app.scroll, h.app.state)
	}
}

func TestOpenConfirmHoldsPromotion(t *testing.T) {
	h := newInlineHarness(t)
	h.app.applyLine(`{"jsonrpc":"2.0","id":"c1","method":"ui.confirm.request","params":{"title":"Run?"}}`)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if !h.app.dialogs.ConfirmActive() {
		t.Fatalf("confirm should be on screen")
	}
	before := h.app.state.InsertedUntil

	pushNumbered(h, 30)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	if h.app.state.InsertedUntil != before || !h.app.state.PendingPromotion {
		t.Fatalf("promotion ran under the confirm: before=%d state=%+v", before, h.app.state)
	}
	if strings.Contains(h.backend.String(), "line 0") {
		t.Fatalf("held lines reached the terminal")
	}

	h.app.handleKey(keys.Key{Kind: keys.Rune, Rune: 'y'})
	if h.app.dialogs.IsOpen() {
		t.Fatalf("confirm should close on answer")
	}
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	s := h.app.state
	if s.InsertedUntil <= before || s.InsertedUntil != s.VisibleStart || s.PendingPromotion {
		t.Fatalf("promotion did not catch up: before=%d state=%+v", before, s)
	}
	if !strings.Contains(h.backend.String(), "line 0") {
		t.Fatalf("promoted lines missing from output")
	}
}

func TestClearResetsPromotion(t *testing.T) {
	h := newInlineHarness(t)
	pushNumbered(h, 30)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	h.app.submit("/clear")
	if h.app.convo.Len() != 0 || h.app.state.InsertedUntil != 0 || h.app.lastWrappedTotal != 0 {
		t.Fatalf("clear left state behind: %+v", h.app.state)
	}
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
}

func TestRunAndStatusLines(t *testing.T) {
	h := newHarness(t, Options{})
	if got := h.app.runLine().Text(); got != "● idle" {
		t.Fatalf("idle run line = %q", got)
	}
	h.app.setRunStatus(schema.RunRunning)
	if got := h.app.runLine().Text(); got != "● running "+spinnerFrames[0] {
		t.Fatalf("running run line = %q", got)
	}
	pct := 42
	h.app.contextLeft = &pct
	h.app.session = "0123456789"
	h.app.queue = []queuedPrompt{{id: "q1"}}
	want := "session: 01234567  •  context left: 42%  •  queue: 1  •  Ctrl+J newline  •  Ctrl+C cancel/quit"
	if got := h.app.statusText(); got != want {
		t.Fatalf("status = %q", got)
	}
}

func TestPerfLines(t *testing.T) {
	h := newHarness(t, Options{DebugPerf: true})
	pushNumbered(h, 2)
	if err := h.app.redraw(); err != nil {
		t.Fatalf("redraw: %v", err)
	}
	lines := h.app.perfLines()
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "perf frame:") || !strings.Contains(lines[1], "redraw:1") {
		t.Fatalf("perf lines = %q", lines)
	}
}
