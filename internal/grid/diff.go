package grid

// MaxCells bounds width*height so every cell stays addressable.
const MaxCells = 65535

// ClampArea limits r so that its cell count never exceeds MaxCells.
// Degenerate rects are returned unchanged.
func ClampArea(r Rect) Rect {
	if r.Width <= 0 || r.Height <= 0 {
		return r
	}
	r.Height = min(r.Height, max(MaxCells/r.Width, 1))
	return r
}

// CommandKind discriminates draw commands.
type CommandKind uint8

const (
	// Put writes one cell at X, Y.
	Put CommandKind = iota
	// ClearToEnd blanks X..end of row Y with BG.
	ClearToEnd
)

// Command is one positioned terminal write.
type Command struct {
	Kind CommandKind
	X, Y int
	Cell Cell
	BG   Color
}

// Diff returns the commands that turn a terminal showing prev into cur.
// Both buffers must cover the same area. Trailing blank runs are emitted as
// one ClearToEnd per row, ahead of every Put.
func Diff(prev, cur *Buffer) []Command {
	area := cur.Area
	if area.Empty() || prev.Area != area {
		return nil
	}
	w := area.Width
	var cmds []Command
	lastNonBlank := make([]int, area.Height)
	for row := 0; row < area.Height; row++ {
		cells := cur.Cells[row*w : (row+1)*w]
		bg := cells[len(cells)-1].BG
		last := 0
		for col := 0; col < len(cells); {
			c := cells[col]
			cw := c.Width()
			if c.Symbol != " " || c.BG != bg || c.Mod != 0 {
				last = col + max(cw-1, 0)
			}
			col += max(cw, 1)
		}
		if last+1 < len(cells) {
			x, y := cur.Pos(row*w + last + 1)
			cmds = append(cmds, Command{Kind: ClearToEnd, X: x, Y: y, BG: bg})
		}
		lastNonBlank[row] = last
	}

	invalidated, toSkip := 0, 0
	for i := range cur.Cells {
		c, p := cur.Cells[i], prev.Cells[i]
		if !c.Skip && (c != p || invalidated > 0) && toSkip == 0 {
			if i%w <= lastNonBlank[i/w] {
				x, y := cur.Pos(i)
				cmds = append(cmds, Command{Kind: Put, X: x, Y: y, Cell: c})
			}
		}
		cw, pw := c.Width(), p.Width()
		toSkip = max(cw-1, 0)
		invalidated = max(max(cw, pw), invalidated) - 1
		if invalidated < 0 {
			invalidated = 0
		}
	}
	return cmds
}
