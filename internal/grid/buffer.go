package grid

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Cell is one terminal character position.
type Cell struct {
	Symbol string
	FG     Color
	BG     Color
	Mod    Modifier
	// Skip excludes the cell from diffing; something else owns that column.
	Skip bool
}

// Blank is the empty cell.
var Blank = Cell{Symbol: " "}

// Width returns the number of columns the symbol occupies.
func (c Cell) Width() int {
	return runewidth.StringWidth(c.Symbol)
}

// SetStyle patches the cell colors and modifiers.
func (c *Cell) SetStyle(s Style) {
	if !s.FG.IsDefault() {
		c.FG = s.FG
	}
	if !s.BG.IsDefault() {
		c.BG = s.BG
	}
	c.Mod |= s.Mod
}

// Rect is an area in absolute screen coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Area returns the number of cells covered.
func (r Rect) Area() int { return r.Width * r.Height }

// Empty reports whether the rect covers no cells.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Bottom returns the first row below the rect.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Right returns the first column right of the rect.
func (r Rect) Right() int { return r.X + r.Width }

// Rows splits r into consecutive horizontal bands of the given heights.
// Bands that would fall below r are clipped to zero height.
func (r Rect) Rows(heights ...int) []Rect {
	out := make([]Rect, len(heights))
	y := r.Y
	for i, h := range heights {
		if h < 0 {
			h = 0
		}
		if y+h > r.Bottom() {
			h = max(r.Bottom()-y, 0)
		}
		out[i] = Rect{X: r.X, Y: y, Width: r.Width, Height: h}
		y += h
	}
	return out
}

// Inset shrinks r by dx columns on each side and dy rows top and bottom.
func (r Rect) Inset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	r.Width = max(r.Width-2*dx, 0)
	r.Height = max(r.Height-2*dy, 0)
	return r
}

// Span is a run of text painted with one style.
type Span struct {
	Text  string
	Style Style
}

// Line is a row of spans with a base style applied underneath them.
type Line struct {
	Spans []Span
	Style Style
}

// Plain returns an unstyled single-span line.
func Plain(text string) Line {
	return Line{Spans: []Span{{Text: text}}}
}

// Text returns the concatenated span text.
func (l Line) Text() string {
	switch len(l.Spans) {
	case 0:
		return ""
	case 1:
		return l.Spans[0].Text
	}
	n := 0
	for _, s := range l.Spans {
		n += len(s.Text)
	}
	b := make([]byte, 0, n)
	for _, s := range l.Spans {
		b = append(b, s.Text...)
	}
	return string(b)
}

// Width returns the display width of the line.
func (l Line) Width() int {
	w := 0
	for _, s := range l.Spans {
		w += runewidth.StringWidth(s.Text)
	}
	return w
}

// Buffer is a rectangular grid of cells covering Area.
type Buffer struct {
	Area  Rect
	Cells []Cell
}

// NewBuffer returns a blank buffer covering area.
func NewBuffer(area Rect) *Buffer {
	b := &Buffer{}
	b.Resize(area)
	return b
}

// Resize reallocates the buffer for area and blanks it.
func (b *Buffer) Resize(area Rect) {
	n := max(area.Area(), 0)
	if cap(b.Cells) >= n {
		b.Cells = b.Cells[:n]
	} else {
		b.Cells = make([]Cell, n)
	}
	b.Area = area
	b.Reset()
}

// Reset blanks every cell.
func (b *Buffer) Reset() {
	for i := range b.Cells {
		b.Cells[i] = Blank
	}
}

// Index returns the slice index of absolute position (x, y).
func (b *Buffer) Index(x, y int) int {
	return (y-b.Area.Y)*b.Area.Width + (x - b.Area.X)
}

// Pos returns the absolute position of slice index i.
func (b *Buffer) Pos(i int) (x, y int) {
	if b.Area.Width == 0 {
		return b.Area.X, b.Area.Y
	}
	return b.Area.X + i%b.Area.Width, b.Area.Y + i/b.Area.Width
}

// Contains reports whether (x, y) lies in the buffer.
func (b *Buffer) Contains(x, y int) bool {
	return x >= b.Area.X && x < b.Area.Right() && y >= b.Area.Y && y < b.Area.Bottom()
}

// Cell returns the cell at (x, y), or nil when outside the buffer.
func (b *Buffer) Cell(x, y int) *Cell {
	if !b.Contains(x, y) {
		return nil
	}
	return &b.Cells[b.Index(x, y)]
}

// SetStyle patches style over every cell in r.
func (b *Buffer) SetStyle(r Rect, s Style) {
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			if c := b.Cell(x, y); c != nil {
				c.SetStyle(s)
			}
		}
	}
}

// SetString writes s at (x, y) one grapheme cluster per cell, stopping at
// maxWidth columns or the buffer edge. Cells hidden behind a wide cluster
// are blanked. It returns the column after the last cluster written.
func (b *Buffer) SetString(x, y int, s string, style Style, maxWidth int) int {
	if y < b.Area.Y || y >= b.Area.Bottom() || x < b.Area.X {
		return x
	}
	limit := min(b.Area.Right(), x+max(maxWidth, 0))
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		w := runewidth.StringWidth(cluster)
		if w == 0 {
			continue
		}
		if x+w > limit {
			break
		}
		c := &b.Cells[b.Index(x, y)]
		c.Symbol = cluster
		c.SetStyle(style)
		for i := 1; i < w; i++ {
			b.Cells[b.Index(x+i, y)] = Blank
		}
		x += w
	}
	return x
}

// SetLine paints a line at (x, y) within maxWidth columns. The line's base
// style is applied to the whole band before the spans are written.
func (b *Buffer) SetLine(x, y int, line Line, maxWidth int) int {
	if line.Style != (Style{}) {
		b.SetStyle(Rect{X: x, Y: y, Width: min(maxWidth, b.Area.Right()-x), Height: 1}, line.Style)
	}
	end := x + maxWidth
	for _, span := range line.Spans {
		if x >= end {
			break
		}
		x = b.SetString(x, y, span.Text, line.Style.Patch(span.Style), end-x)
	}
	return x
}
