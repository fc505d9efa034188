package terminal

import (
	"strings"
	"testing"

	"pkt.systems/codelia/internal/grid"
)

func TestNewAnchorsAtCursorRow(t *testing.T) {
	v := newVT(30, 10)
	v.x, v.y = 4, 6
	term := newTestTerminal(t, v)
	if got, want := term.Viewport(), (grid.Rect{Y: 6}); got != want {
		t.Fatalf("viewport = %+v, want %+v", got, want)
	}
	if got, want := term.LastCursor(), (Position{X: 4, Y: 6}); got != want {
		t.Fatalf("cursor = %+v, want %+v", got, want)
	}
	if w, h := term.ScreenSize(); w != 30 || h != 10 {
		t.Fatalf("screen = %dx%d", w, h)
	}
}

func TestDrawWritesOnlyChanges(t *testing.T) {
	v := newVT(12, 6)
	v.y = 2
	term := newTestTerminal(t, v)
	term.SetViewport(grid.Rect{X: 0, Y: 2, Width: 12, Height: 2})
	if err := term.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	err := term.Draw(func(f *Frame) {
		f.Buffer().SetString(0, 2, "hello", grid.Style{}, 12)
	})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := v.line(2); got != "hello" {
		t.Fatalf("row 2 = %q", got)
	}
	if !v.hidden || !term.CursorHidden() {
		t.Fatalf("cursor should be hidden without SetCursor")
	}

	v.resetOutput()
	err = term.Draw(func(f *Frame) {
		f.Buffer().SetString(0, 2, "help", grid.Style{}, 12)
		f.SetCursor(4, 2)
	})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	out := v.output()
	if strings.Contains(out, "hel") {
		t.Fatalf("unchanged prefix was redrawn: %q", out)
	}
	if !strings.Contains(out, "\x1b[3;4Hp") {
		t.Fatalf("changed cell not written: %q", out)
	}
	if got := v.line(2); got != "help" {
		t.Fatalf("row 2 = %q", got)
	}
	if v.hidden {
		t.Fatalf("cursor should be visible")
	}
	if v.x != 4 || v.y != 2 {
		t.Fatalf("cursor at (%d,%d), want (4,2)", v.x, v.y)
	}
	if got, want := term.LastCursor(), (Position{X: 4, Y: 2}); got != want {
		t.Fatalf("LastCursor = %+v, want %+v", got, want)
	}
}

func TestDrawIdenticalFrameIsQuiet(t *testing.T) {
	v := newVT(10, 4)
	term := newTestTerminal(t, v)
	term.SetViewport(grid.Rect{Y: 2, Width: 10, Height: 1})
	render := func(f *Frame) { f.Buffer().SetString(0, 2, "same", grid.Style{}, 10) }
	if err := term.Draw(render); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	v.resetOutput()
	if err := term.Draw(render); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if strings.Contains(v.output(), "same") {
		t.Fatalf("identical frame repainted text: %q", v.output())
	}
}

func TestClearForgetsPreviousFrame(t *testing.T) {
	v := newVT(10, 4)
	term := newTestTerminal(t, v)
	term.SetViewport(grid.Rect{Y: 1, Width: 10, Height: 2})
	render := func(f *Frame) { f.Buffer().SetString(0, 1, "keep", grid.Style{}, 10) }
	if err := term.Draw(render); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	v.resetOutput()
	if err := term.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !strings.HasPrefix(v.output(), "\x1b[2;1H\x1b[J") {
		t.Fatalf("Clear wrote %q", v.output())
	}
	if got := v.line(1); got != "" {
		t.Fatalf("row 1 not erased: %q", got)
	}
	if err := term.Draw(render); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := v.line(1); got != "keep" {
		t.Fatalf("frame after Clear not fully repainted: %q", got)
	}
}

func TestSetViewportClampsArea(t *testing.T) {
	v := newVT(10, 4)
	term := newTestTerminal(t, v)
	term.SetViewport(grid.Rect{Width: 1000, Height: 1000})
	if got := term.Viewport().Height; got != grid.MaxCells/1000 {
		t.Fatalf("height = %d", got)
	}
}

func TestComputeInlineArea(t *testing.T) {
	v := newVT(20, 8)
	v.y = 6
	term := newTestTerminal(t, v)
	area, pos, err := term.ComputeInlineArea(4)
	if err != nil {
		t.Fatalf("ComputeInlineArea: %v", err)
	}
	if want := (grid.Rect{X: 0, Y: 4, Width: 20, Height: 4}); area != want {
		t.Fatalf("area = %+v, want %+v", area, want)
	}
	if want := (Position{X: 0, Y: 7}); pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
	if len(v.scrollback) != 2 {
		t.Fatalf("expected two rows pushed to scrollback, got %d", len(v.scrollback))
	}

	area, _, err = term.ComputeInlineArea(20)
	if err != nil {
		t.Fatalf("ComputeInlineArea: %v", err)
	}
	if want := (grid.Rect{Width: 20, Height: 8}); area != want {
		t.Fatalf("tall area = %+v, want %+v", area, want)
	}
}

func TestRestoreBelowViewport(t *testing.T) {
	cases := []struct {
		name       string
		viewport   grid.Rect
		wantY      int
		wantPushed int
	}{
		{name: "room below", viewport: grid.Rect{Y: 2, Width: 20, Height: 3}, wantY: 5},
		{name: "bottom edge", viewport: grid.Rect{Y: 4, Width: 20, Height: 4}, wantY: 7, wantPushed: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newVT(20, 8)
			term := newTestTerminal(t, v)
			term.SetViewport(tc.viewport)
			if err := term.RestoreBelowViewport(); err != nil {
				t.Fatalf("RestoreBelowViewport: %v", err)
			}
			if v.x != 0 || v.y != tc.wantY {
				t.Fatalf("cursor at (%d,%d), want (0,%d)", v.x, v.y, tc.wantY)
			}
			if len(v.scrollback) != tc.wantPushed {
				t.Fatalf("scrollback grew by %d, want %d", len(v.scrollback), tc.wantPushed)
			}
		})
	}
}
