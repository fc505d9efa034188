package grid

import (
	"math/rand/v2"
	"testing"
)

// screen replays positioned commands the way a terminal would.
type screen struct {
	area  Rect
	cells []Cell
}

func newScreen(from *Buffer) *screen {
	cells := make([]Cell, len(from.Cells))
	copy(cells, from.Cells)
	return &screen{area: from.Area, cells: cells}
}

func (s *screen) index(x, y int) int {
	return (y-s.area.Y)*s.area.Width + (x - s.area.X)
}

func (s *screen) apply(cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case Put:
			s.cells[s.index(cmd.X, cmd.Y)] = cmd.Cell
			for i := 1; i < cmd.Cell.Width() && cmd.X+i < s.area.Right(); i++ {
				s.cells[s.index(cmd.X+i, cmd.Y)] = Blank
			}
		case ClearToEnd:
			for x := cmd.X; x < s.area.Right(); x++ {
				s.cells[s.index(x, cmd.Y)] = Cell{Symbol: " ", BG: cmd.BG}
			}
		}
	}
}

func looksSame(a, b Cell) bool {
	if a.Symbol == " " && b.Symbol == " " && a.Mod == 0 && b.Mod == 0 {
		return a.BG == b.BG
	}
	a.Skip, b.Skip = false, false
	return a == b
}

func assertReplay(t *testing.T, prev, cur *Buffer) {
	t.Helper()
	s := newScreen(prev)
	s.apply(Diff(prev, cur))
	for i := range cur.Cells {
		if !looksSame(s.cells[i], cur.Cells[i]) {
			x, y := cur.Pos(i)
			t.Fatalf("cell (%d,%d): got %#v want %#v", x, y, s.cells[i], cur.Cells[i])
		}
	}
}

func TestDiffEqualBuffersOnlyClearsTrailingBlanks(t *testing.T) {
	area := Rect{Y: 4, Width: 10, Height: 2}
	prev := NewBuffer(area)
	cur := NewBuffer(area)
	prev.SetString(0, 4, "hello", Style{}, 10)
	cur.SetString(0, 4, "hello", Style{}, 10)
	cmds := Diff(prev, cur)
	for _, cmd := range cmds {
		if cmd.Kind == Put {
			t.Fatalf("unexpected put for unchanged buffer: %#v", cmd)
		}
	}
	if len(cmds) != 2 || cmds[0].X != 5 || cmds[0].Y != 4 || cmds[1].X != 1 || cmds[1].Y != 5 {
		t.Fatalf("unexpected clear commands: %#v", cmds)
	}
}

func TestDiffSkipsWidePlaceholder(t *testing.T) {
	area := Rect{Width: 6, Height: 1}
	prev := NewBuffer(area)
	cur := NewBuffer(area)
	cur.SetString(0, 0, "a世b", Style{}, 6)
	var puts []Command
	for _, cmd := range Diff(prev, cur) {
		if cmd.Kind == Put {
			puts = append(puts, cmd)
		}
	}
	if len(puts) != 3 {
		t.Fatalf("expected 3 puts, got %#v", puts)
	}
	if puts[1].X != 1 || puts[1].Cell.Symbol != "世" || puts[2].X != 3 {
		t.Fatalf("unexpected puts: %#v", puts)
	}
	assertReplay(t, prev, cur)
}

func TestDiffInvalidatesCellsAfterWideGlyph(t *testing.T) {
	area := Rect{Width: 4, Height: 1}
	prev := NewBuffer(area)
	cur := NewBuffer(area)
	prev.SetString(0, 0, "世x", Style{}, 4)
	cur.SetString(0, 0, "abx", Style{}, 4)
	assertReplay(t, prev, cur)
}

func TestDiffTrailingBlankRowUsesRowBackground(t *testing.T) {
	area := Rect{Width: 5, Height: 1}
	prev := NewBuffer(area)
	prev.SetString(0, 0, "abcde", Style{}, 5)
	cur := NewBuffer(area)
	cur.SetStyle(area, Style{BG: RGB(40, 40, 40)})
	cur.SetString(0, 0, "ab", Style{}, 5)
	cmds := Diff(prev, cur)
	if cmds[0].Kind != ClearToEnd || cmds[0].X != 2 || cmds[0].BG != RGB(40, 40, 40) {
		t.Fatalf("expected clear from column 2 with row bg, got %#v", cmds[0])
	}
	assertReplay(t, prev, cur)
}

func TestDiffHonorsSkip(t *testing.T) {
	area := Rect{Width: 3, Height: 1}
	prev := NewBuffer(area)
	cur := NewBuffer(area)
	cur.SetString(0, 0, "abc", Style{}, 3)
	cur.Cells[1].Skip = true
	for _, cmd := range Diff(prev, cur) {
		if cmd.Kind == Put && cmd.X == 1 {
			t.Fatalf("skipped cell was emitted")
		}
	}
}

func TestDiffZeroAreaYieldsNothing(t *testing.T) {
	for _, area := range []Rect{{Width: 0, Height: 3}, {Width: 3, Height: 0}} {
		if cmds := Diff(NewBuffer(area), NewBuffer(area)); len(cmds) != 0 {
			t.Fatalf("expected no commands for %v, got %#v", area, cmds)
		}
	}
}

func TestDiffReplayRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	words := []string{"a", "bc", "世界", "hé", "  ", "x y", "🙂", "日本語", "zz"}
	styles := []Style{
		{},
		{FG: Red},
		{BG: Blue},
		{Mod: Bold},
		{FG: RGB(1, 2, 3), Mod: Italic | Underline},
		{BG: RGB(40, 40, 40)},
	}
	fill := func(b *Buffer) {
		for y := b.Area.Y; y < b.Area.Bottom(); y++ {
			if rng.IntN(3) == 0 {
				b.SetStyle(Rect{X: b.Area.X, Y: y, Width: b.Area.Width, Height: 1}, styles[rng.IntN(len(styles))])
			}
			if rng.IntN(4) == 0 {
				continue
			}
			text := ""
			for n := rng.IntN(6); n >= 0; n-- {
				text += words[rng.IntN(len(words))]
			}
			x := b.Area.X + rng.IntN(b.Area.Width)
			b.SetString(x, y, text, styles[rng.IntN(len(styles))], b.Area.Width)
		}
	}
	for iter := 0; iter < 500; iter++ {
		area := Rect{Y: rng.IntN(5), Width: 1 + rng.IntN(12), Height: 1 + rng.IntN(5)}
		prev := NewBuffer(area)
		cur := NewBuffer(area)
		fill(prev)
		fill(cur)
		assertReplay(t, prev, cur)
	}
}

func TestClampArea(t *testing.T) {
	tests := []struct {
		in   Rect
		want Rect
	}{
		{Rect{Width: 100, Height: 1000}, Rect{Width: 100, Height: 655}},
		{Rect{Width: 80, Height: 24}, Rect{Width: 80, Height: 24}},
		{Rect{Width: 70000, Height: 3}, Rect{Width: 70000, Height: 1}},
		{Rect{Width: 0, Height: 5}, Rect{Width: 0, Height: 5}},
		{Rect{Y: 3, Width: 10, Height: 0}, Rect{Y: 3, Width: 10, Height: 0}},
	}
	for _, tc := range tests {
		if got := ClampArea(tc.in); got != tc.want {
			t.Fatalf("ClampArea(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
