package keys

import (
	"github.com/mattn/go-runewidth"
)

// Editor is a rune buffer with a cursor. Newlines are allowed and the
// vertical moves work line by line.
type Editor struct {
	buf    []rune
	cursor int
}

func (e *Editor) String() string { return string(e.buf) }

// Len returns the length in runes.
func (e *Editor) Len() int { return len(e.buf) }

// Cursor returns the cursor offset in runes.
func (e *Editor) Cursor() int { return e.cursor }

// AtEdge reports whether the cursor sits at the start or end, where
// up and down walk history instead of lines.
func (e *Editor) AtEdge() bool { return e.cursor == 0 || e.cursor == len(e.buf) }

func (e *Editor) Clear() {
	e.buf = nil
	e.cursor = 0
}

// SetString replaces the content and puts the cursor at the end.
func (e *Editor) SetString(value string) {
	if value == "" {
		e.Clear()
		return
	}
	e.buf = []rune(value)
	e.cursor = len(e.buf)
}

func (e *Editor) clampCursor() {
	e.cursor = min(max(e.cursor, 0), len(e.buf))
}

func (e *Editor) InsertRune(r rune) {
	e.clampCursor()
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
}

// Insert adds text at the cursor, as for a paste.
func (e *Editor) Insert(text string) {
	if text == "" {
		return
	}
	e.clampCursor()
	rs := []rune(text)
	e.buf = append(e.buf[:e.cursor], append(rs, e.buf[e.cursor:]...)...)
	e.cursor += len(rs)
}

func (e *Editor) Backspace() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *Editor) Delete() {
	if e.cursor < 0 || e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *Editor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *Editor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

// MoveHome goes to the start of the current line.
func (e *Editor) MoveHome() { e.cursor = e.lineStart() }

// MoveEnd goes to the end of the current line.
func (e *Editor) MoveEnd() { e.cursor = e.lineEnd() }

func (e *Editor) MoveWordLeft() {
	i := e.cursor
	for i > 0 && isSpace(e.buf[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.buf[i-1]) {
		i--
	}
	e.cursor = i
}

func (e *Editor) MoveWordRight() {
	i := e.cursor
	for i < len(e.buf) && isSpace(e.buf[i]) {
		i++
	}
	for i < len(e.buf) && !isSpace(e.buf[i]) {
		i++
	}
	e.cursor = i
}

func (e *Editor) DeleteWordBackward() {
	if e.cursor <= 0 {
		return
	}
	start := e.cursor
	for start > 0 && isSpace(e.buf[start-1]) {
		start--
	}
	for start > 0 && !isSpace(e.buf[start-1]) {
		start--
	}
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

func (e *Editor) MoveUp() {
	start := e.lineStart()
	if start == 0 {
		return
	}
	col := e.cursor - start
	prevEnd := start - 1
	prevStart := 0
	for i := prevEnd - 1; i >= 0; i-- {
		if e.buf[i] == '\n' {
			prevStart = i + 1
			break
		}
	}
	e.cursor = prevStart + min(col, prevEnd-prevStart)
}

func (e *Editor) MoveDown() {
	end := e.lineEnd()
	if end >= len(e.buf) {
		return
	}
	col := e.cursor - e.lineStart()
	nextStart := end + 1
	nextEnd := len(e.buf)
	for i := nextStart; i < len(e.buf); i++ {
		if e.buf[i] == '\n' {
			nextEnd = i
			break
		}
	}
	e.cursor = nextStart + min(col, nextEnd-nextStart)
}

// KillLineStart deletes from the line start to the cursor.
func (e *Editor) KillLineStart() {
	start := e.lineStart()
	if start >= e.cursor {
		return
	}
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

// KillLineEnd deletes from the cursor to the line end.
func (e *Editor) KillLineEnd() {
	end := e.lineEnd()
	if end <= e.cursor {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[end:]...)
}

func (e *Editor) lineStart() int {
	for i := e.cursor - 1; i >= 0; i-- {
		if e.buf[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func (e *Editor) lineEnd() int {
	for i := e.cursor; i < len(e.buf); i++ {
		if e.buf[i] == '\n' {
			return i
		}
	}
	return len(e.buf)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

// Layout wraps text into rows of at most width display cells. The first
// row starts after a prefix prefixWidth cells wide and later rows are
// indented by the same amount. It returns the rows and the cursor's row
// and column, where the column counts the prefix.
func Layout(text []rune, cursor, prefixWidth, width int) (rows []string, row, col int) {
	avail := max(width-prefixWidth, 1)
	cursor = min(max(cursor, 0), len(text))
	var line []rune
	lineWidth := 0
	row, col = -1, prefixWidth
	flush := func() {
		rows = append(rows, string(line))
		line = line[:0]
		lineWidth = 0
	}
	for i, r := range text {
		w := runewidth.RuneWidth(r)
		if r != '\n' && lineWidth+w > avail && lineWidth > 0 {
			flush()
		}
		if i == cursor {
			row, col = len(rows), prefixWidth+lineWidth
		}
		if r == '\n' {
			flush()
			continue
		}
		line = append(line, r)
		lineWidth += w
	}
	if row < 0 {
		if lineWidth >= avail {
			flush()
		}
		row, col = len(rows), prefixWidth+lineWidth
	}
	flush()
	return rows, row, min(col, max(width-1, 0))
}

// Runes exposes the buffer for Layout.
func (e *Editor) Runes() []rune { return e.buf }
