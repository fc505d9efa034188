package grid

import (
	"io"
	"strconv"
)

// SGR fragments used by the pen.
const (
	sgrReset    = "\x1b[0m"
	eraseLineRt = "\x1b[K"
)

// MoveTo returns the cursor position sequence for zero-based (x, y).
func MoveTo(x, y int) string {
	return "\x1b[" + strconv.Itoa(y+1) + ";" + strconv.Itoa(x+1) + "H"
}

// Pen tracks the attributes last sent to the terminal so that only changes
// are written.
type Pen struct {
	FG  Color
	BG  Color
	Mod Modifier
}

// AppendModifierDiff appends the SGR sequences that move from the from set
// to the to set.
func AppendModifierDiff(dst []byte, from, to Modifier) []byte {
	removed := from &^ to
	if removed.Has(Reverse) {
		dst = append(dst, "\x1b[27m"...)
	}
	if removed.Has(Bold) {
		dst = append(dst, "\x1b[22m"...)
		if to.Has(Dim) {
			dst = append(dst, "\x1b[2m"...)
		}
	}
	if removed.Has(Italic) {
		dst = append(dst, "\x1b[23m"...)
	}
	if removed.Has(Underline) {
		dst = append(dst, "\x1b[24m"...)
	}
	if removed.Has(Dim) {
		dst = append(dst, "\x1b[22m"...)
	}
	if removed.Has(CrossedOut) {
		dst = append(dst, "\x1b[29m"...)
	}
	if removed.Has(SlowBlink) || removed.Has(RapidBlink) {
		dst = append(dst, "\x1b[25m"...)
	}

	added := to &^ from
	if added.Has(Reverse) {
		dst = append(dst, "\x1b[7m"...)
	}
	if added.Has(Bold) {
		dst = append(dst, "\x1b[1m"...)
	}
	if added.Has(Italic) {
		dst = append(dst, "\x1b[3m"...)
	}
	if added.Has(Underline) {
		dst = append(dst, "\x1b[4m"...)
	}
	if added.Has(Dim) {
		dst = append(dst, "\x1b[2m"...)
	}
	if added.Has(CrossedOut) {
		dst = append(dst, "\x1b[9m"...)
	}
	if added.Has(SlowBlink) {
		dst = append(dst, "\x1b[5m"...)
	}
	if added.Has(RapidBlink) {
		dst = append(dst, "\x1b[6m"...)
	}
	return dst
}

// AppendColors appends a combined foreground/background SGR.
func AppendColors(dst []byte, fg, bg Color) []byte {
	dst = append(dst, "\x1b["...)
	dst = fg.appendSGR(dst, true)
	dst = append(dst, ';')
	dst = bg.appendSGR(dst, false)
	return append(dst, 'm')
}

// AppendBackground appends a background-only SGR.
func AppendBackground(dst []byte, bg Color) []byte {
	dst = append(dst, "\x1b["...)
	dst = bg.appendSGR(dst, false)
	return append(dst, 'm')
}

// AppendPenReset appends the sequences that return the terminal to default
// colors and no attributes.
func AppendPenReset(dst []byte) []byte {
	return append(dst, "\x1b[39m\x1b[49m\x1b[0m"...)
}

// Apply appends the SGR changes needed to paint with fg, bg and mod and
// records them as the new pen state.
func (p *Pen) Apply(dst []byte, fg, bg Color, mod Modifier) []byte {
	if mod != p.Mod {
		dst = AppendModifierDiff(dst, p.Mod, mod)
		p.Mod = mod
	}
	if fg != p.FG || bg != p.BG {
		dst = AppendColors(dst, fg, bg)
		p.FG, p.BG = fg, bg
	}
	return dst
}

// Draw writes cmds to w in a single write. The cursor is only repositioned
// when a command is not directly right of the previous one. It returns the
// position of the last Put, if any.
func Draw(w io.Writer, cmds []Command) (lastX, lastY int, ok bool, err error) {
	if len(cmds) == 0 {
		return 0, 0, false, nil
	}
	var pen Pen
	buf := make([]byte, 0, len(cmds)*8)
	px, py, moved := 0, 0, false
	for _, cmd := range cmds {
		if !moved || cmd.X != px+1 || cmd.Y != py {
			buf = append(buf, MoveTo(cmd.X, cmd.Y)...)
		}
		px, py, moved = cmd.X, cmd.Y, true
		switch cmd.Kind {
		case Put:
			buf = pen.Apply(buf, cmd.Cell.FG, cmd.Cell.BG, cmd.Cell.Mod)
			buf = append(buf, cmd.Cell.Symbol...)
			lastX, lastY, ok = cmd.X, cmd.Y, true
		case ClearToEnd:
			buf = append(buf, sgrReset...)
			pen = Pen{}
			buf = AppendBackground(buf, cmd.BG)
			pen.BG = cmd.BG
			buf = append(buf, eraseLineRt...)
		}
	}
	buf = AppendPenReset(buf)
	_, err = w.Write(buf)
	return lastX, lastY, ok, err
}
