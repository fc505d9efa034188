package grid

import "strconv"

// ColorMode selects how a Color is encoded in SGR sequences.
type ColorMode uint8

const (
	// ColorDefault is the terminal's default color (SGR 39/49).
	ColorDefault ColorMode = iota
	// ColorIndexed is a 256-color palette entry.
	ColorIndexed
	// ColorRGB is a 24-bit color.
	ColorRGB
)

// Color is a foreground or background color. The zero value is the
// terminal default.
type Color struct {
	Mode    ColorMode
	Index   uint8
	R, G, B uint8
}

// Reset is the terminal default color.
var Reset = Color{}

// Indexed returns a 256-color palette color.
func Indexed(n uint8) Color { return Color{Mode: ColorIndexed, Index: n} }

// RGB returns a true color.
func RGB(r, g, b uint8) Color { return Color{Mode: ColorRGB, R: r, G: g, B: b} }

// Named palette colors.
var (
	Black        = Indexed(0)
	Red          = Indexed(1)
	Green        = Indexed(2)
	Yellow       = Indexed(3)
	Blue         = Indexed(4)
	Magenta      = Indexed(5)
	Cyan         = Indexed(6)
	Gray         = Indexed(7)
	DarkGray     = Indexed(8)
	LightRed     = Indexed(9)
	LightGreen   = Indexed(10)
	LightYellow  = Indexed(11)
	LightBlue    = Indexed(12)
	LightMagenta = Indexed(13)
	LightCyan    = Indexed(14)
	White        = Indexed(15)
)

// IsDefault reports whether c is the terminal default.
func (c Color) IsDefault() bool { return c.Mode == ColorDefault }

func (c Color) appendSGR(dst []byte, fg bool) []byte {
	switch c.Mode {
	case ColorIndexed:
		if fg {
			dst = append(dst, "38;5;"...)
		} else {
			dst = append(dst, "48;5;"...)
		}
		return strconv.AppendUint(dst, uint64(c.Index), 10)
	case ColorRGB:
		if fg {
			dst = append(dst, "38;2;"...)
		} else {
			dst = append(dst, "48;2;"...)
		}
		dst = strconv.AppendUint(dst, uint64(c.R), 10)
		dst = append(dst, ';')
		dst = strconv.AppendUint(dst, uint64(c.G), 10)
		dst = append(dst, ';')
		return strconv.AppendUint(dst, uint64(c.B), 10)
	default:
		if fg {
			return append(dst, "39"...)
		}
		return append(dst, "49"...)
	}
}

// Modifier is a set of text attributes.
type Modifier uint16

const (
	Bold Modifier = 1 << iota
	Dim
	Italic
	Underline
	SlowBlink
	RapidBlink
	Reverse
	CrossedOut
)

// Has reports whether all bits of o are set in m.
func (m Modifier) Has(o Modifier) bool { return m&o == o }

// Style is the paint applied to a span or a cell. Colors left at their zero
// value inherit from whatever style they are patched over.
type Style struct {
	FG  Color
	BG  Color
	Mod Modifier
}

// Patch overlays o on s: non-default colors replace, modifiers accumulate.
func (s Style) Patch(o Style) Style {
	if !o.FG.IsDefault() {
		s.FG = o.FG
	}
	if !o.BG.IsDefault() {
		s.BG = o.BG
	}
	s.Mod |= o.Mod
	return s
}

// Fg returns a copy of s with the foreground set.
func (s Style) Fg(c Color) Style { s.FG = c; return s }

// Bg returns a copy of s with the background set.
func (s Style) Bg(c Color) Style { s.BG = c; return s }

// With returns a copy of s with the modifiers added.
func (s Style) With(m Modifier) Style { s.Mod |= m; return s }
