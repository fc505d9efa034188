package grid

import (
	"bytes"
	"errors"
	"testing"
)

func TestDrawSkipsAdjacentCursorMoves(t *testing.T) {
	var out bytes.Buffer
	cmds := []Command{
		{Kind: Put, X: 0, Y: 0, Cell: Cell{Symbol: "a"}},
		{Kind: Put, X: 1, Y: 0, Cell: Cell{Symbol: "b"}},
		{Kind: Put, X: 4, Y: 0, Cell: Cell{Symbol: "c"}},
	}
	x, y, ok, err := Draw(&out, cmds)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	want := "\x1b[1;1Hab\x1b[1;5Hc\x1b[39m\x1b[49m\x1b[0m"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !ok || x != 4 || y != 0 {
		t.Fatalf("unexpected last put (%d,%d,%v)", x, y, ok)
	}
}

func TestDrawOnlyEmitsStyleChanges(t *testing.T) {
	var out bytes.Buffer
	red := Cell{Symbol: "r", FG: Red, Mod: Bold}
	cmds := []Command{
		{Kind: Put, X: 0, Y: 2, Cell: red},
		{Kind: Put, X: 1, Y: 2, Cell: red},
		{Kind: Put, X: 2, Y: 2, Cell: Cell{Symbol: "n"}},
	}
	if _, _, _, err := Draw(&out, cmds); err != nil {
		t.Fatalf("draw: %v", err)
	}
	want := "\x1b[3;1H\x1b[1m\x1b[38;5;1;49mrr\x1b[22m\x1b[39;49mn\x1b[39m\x1b[49m\x1b[0m"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDrawClearToEndResetsPen(t *testing.T) {
	var out bytes.Buffer
	cmds := []Command{
		{Kind: ClearToEnd, X: 3, Y: 1, BG: Blue},
		{Kind: Put, X: 0, Y: 0, Cell: Cell{Symbol: "x", BG: Blue}},
	}
	if _, _, _, err := Draw(&out, cmds); err != nil {
		t.Fatalf("draw: %v", err)
	}
	want := "\x1b[2;4H\x1b[0m\x1b[48;5;4m\x1b[K\x1b[1;1Hx\x1b[39m\x1b[49m\x1b[0m"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDrawEmptyWritesNothing(t *testing.T) {
	var out bytes.Buffer
	if _, _, ok, err := Draw(&out, nil); err != nil || ok || out.Len() != 0 {
		t.Fatalf("expected no output, got %q ok=%v err=%v", out.String(), ok, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("device gone") }

func TestDrawPropagatesWriteErrors(t *testing.T) {
	_, _, _, err := Draw(failingWriter{}, []Command{{Kind: Put, Cell: Blank}})
	if err == nil || err.Error() != "device gone" {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestModifierDiff(t *testing.T) {
	tests := []struct {
		name     string
		from, to Modifier
		want     string
	}{
		{"add bold", 0, Bold, "\x1b[1m"},
		{"drop bold keep dim", Bold | Dim, Dim, "\x1b[22m\x1b[2m"},
		{"swap italic for underline", Italic, Underline, "\x1b[23m\x1b[4m"},
		{"drop reverse and blink", Reverse | SlowBlink, 0, "\x1b[27m\x1b[25m"},
		{"add crossed out", Bold, Bold | CrossedOut, "\x1b[9m"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := string(AppendModifierDiff(nil, tc.from, tc.to))
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
