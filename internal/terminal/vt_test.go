package terminal

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// vt is a tiny VT100 model used as a Backend in tests. It understands the
// subset the terminal package writes: CUP, DECSTBM, RI, EL, ED, CR, LF and
// printable text. SGR and private modes are accepted and ignored.
type vt struct {
	cols, rows int
	screen     [][]rune
	scrollback []string
	x, y       int
	top, bot   int
	hidden     bool
	raw        strings.Builder
}

func newVT(cols, rows int) *vt {
	v := &vt{cols: cols, rows: rows, top: 0, bot: rows - 1}
	v.screen = make([][]rune, rows)
	for i := range v.screen {
		v.screen[i] = blankRow(cols)
	}
	return v
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for i := range row {
		row[i] = ' '
	}
	return row
}

func (v *vt) Flush() error { return nil }

func (v *vt) Size() (int, int, error) { return v.cols, v.rows, nil }

func (v *vt) CursorPosition() (int, int, error) { return v.x, v.y, nil }

func (v *vt) line(y int) string { return strings.TrimRight(string(v.screen[y]), " ") }

func (v *vt) setLine(y int, s string) {
	v.screen[y] = blankRow(v.cols)
	copy(v.screen[y], []rune(s))
}

func (v *vt) output() string { return v.raw.String() }

func (v *vt) resetOutput() { v.raw.Reset() }

func (v *vt) Write(p []byte) (int, error) {
	v.raw.Write(p)
	s := string(p)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == 0x1b:
			i += v.escape(s[i:])
		case c == '\r':
			v.x = 0
			i++
		case c == '\n':
			v.lineFeed()
			i++
		default:
			r, n := utf8.DecodeRuneInString(s[i:])
			if v.x < v.cols {
				v.screen[v.y][v.x] = r
			}
			v.x = min(v.x+1, v.cols-1)
			i += n
		}
	}
	return len(p), nil
}

func (v *vt) lineFeed() {
	if v.y == v.bot {
		if v.top == 0 {
			v.scrollback = append(v.scrollback, strings.TrimRight(string(v.screen[0]), " "))
		}
		copy(v.screen[v.top:v.bot], v.screen[v.top+1:v.bot+1])
		v.screen[v.bot] = blankRow(v.cols)
		return
	}
	if v.y < v.rows-1 {
		v.y++
	}
}

func (v *vt) reverseIndex() {
	if v.y == v.top {
		copy(v.screen[v.top+1:v.bot+1], v.screen[v.top:v.bot])
		v.screen[v.top] = blankRow(v.cols)
		return
	}
	if v.y > 0 {
		v.y--
	}
}

func (v *vt) escape(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	if s[1] == 'M' {
		v.reverseIndex()
		return 2
	}
	if s[1] != '[' {
		return 2
	}
	i := 2
	private := false
	if i < len(s) && s[i] == '?' {
		private = true
		i++
	}
	start := i
	for i < len(s) && (s[i] == ';' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i >= len(s) {
		return len(s)
	}
	params := strings.Split(s[start:i], ";")
	num := func(idx, def int) int {
		if idx >= len(params) || params[idx] == "" {
			return def
		}
		n, _ := strconv.Atoi(params[idx])
		return n
	}
	final := s[i]
	if private {
		if final == 'l' && num(0, 0) == 25 {
			v.hidden = true
		}
		if final == 'h' && num(0, 0) == 25 {
			v.hidden = false
		}
		return i + 1
	}
	switch final {
	case 'H':
		v.y = min(max(num(0, 1)-1, 0), v.rows-1)
		v.x = min(max(num(1, 1)-1, 0), v.cols-1)
	case 'r':
		v.top = max(num(0, 1)-1, 0)
		v.bot = min(num(1, v.rows)-1, v.rows-1)
		v.x, v.y = 0, 0
	case 'K':
		for x := v.x; x < v.cols; x++ {
			v.screen[v.y][x] = ' '
		}
	case 'J':
		for x := v.x; x < v.cols; x++ {
			v.screen[v.y][x] = ' '
		}
		for y := v.y + 1; y < v.rows; y++ {
			v.screen[y] = blankRow(v.cols)
		}
	}
	return i + 1
}
