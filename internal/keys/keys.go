// Package keys decodes raw terminal input into key presses and provides
// the line editor used by the composer and dialogs.
package keys

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies a decoded key.
type Kind int

const (
	Rune Kind = iota
	Enter
	Esc
	Backspace
	Delete
	Left
	Right
	Up
	Down
	Home
	End
	PageUp
	PageDown
	Tab
	ShiftTab
	CtrlA
	CtrlC
	CtrlD
	CtrlE
	CtrlJ
	CtrlK
	CtrlL
	CtrlU
	CtrlW
	AltB
	AltF
	AltEnter
	// Paste carries bracketed paste content in Text.
	Paste
)

var kindNames = map[Kind]string{
	Rune: "rune", Enter: "enter", Esc: "esc", Backspace: "backspace", Delete: "delete",
	Left: "left", Right: "right", Up: "up", Down: "down", Home: "home", End: "end",
	PageUp: "page_up", PageDown: "page_down", Tab: "tab", ShiftTab: "shift_tab",
	CtrlA: "ctrl_a", CtrlC: "ctrl_c", CtrlD: "ctrl_d", CtrlE: "ctrl_e", CtrlJ: "ctrl_j",
	CtrlK: "ctrl_k", CtrlL: "ctrl_l", CtrlU: "ctrl_u", CtrlW: "ctrl_w",
	AltB: "alt_b", AltF: "alt_f", AltEnter: "alt_enter", Paste: "paste",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Key is one decoded key press.
type Key struct {
	Kind Kind
	Rune rune
	Text string
}

const (
	pasteStart = "200~"
	pasteEnd   = "\x1b[201~"
)

// Decoder reads keys from a byte stream.
type Decoder struct {
	br        *bufio.Reader
	lastWasCR bool
}

// NewDecoder returns a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: bufio.NewReader(r)}
}

// Next blocks for the next key. Unrecognised escape sequences are
// swallowed.
func (d *Decoder) Next() (Key, error) {
	for {
		b, err := d.br.ReadByte()
		if err != nil {
			return Key{}, err
		}
		if d.lastWasCR {
			d.lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			k, ok, err := d.escape()
			if err != nil {
				return Key{}, err
			}
			if ok {
				return k, nil
			}
			continue
		case '\r':
			d.lastWasCR = true
			return Key{Kind: Enter}, nil
		case '\n':
			return Key{Kind: CtrlJ}, nil
		case 0x7f, 0x08:
			return Key{Kind: Backspace}, nil
		case 0x01:
			return Key{Kind: CtrlA}, nil
		case 0x03:
			return Key{Kind: CtrlC}, nil
		case 0x04:
			return Key{Kind: CtrlD}, nil
		case 0x05:
			return Key{Kind: CtrlE}, nil
		case 0x09:
			return Key{Kind: Tab}, nil
		case 0x0b:
			return Key{Kind: CtrlK}, nil
		case 0x0c:
			return Key{Kind: CtrlL}, nil
		case 0x15:
			return Key{Kind: CtrlU}, nil
		case 0x17:
			return Key{Kind: CtrlW}, nil
		}
		if b < 0x20 {
			continue
		}
		if b < utf8.RuneSelf {
			return Key{Kind: Rune, Rune: rune(b)}, nil
		}
		_ = d.br.UnreadByte()
		r, _, err := d.br.ReadRune()
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: Rune, Rune: r}, nil
	}
}

// escape decodes what follows ESC. A lone ESC with nothing buffered
// behind it is the Esc key.
func (d *Decoder) escape() (Key, bool, error) {
	if d.br.Buffered() == 0 {
		return Key{Kind: Esc}, true, nil
	}
	b, err := d.br.ReadByte()
	if err != nil {
		return Key{}, false, err
	}
	switch b {
	case '[':
		return d.csi()
	case 'O':
		return d.ss3()
	case 0x1b:
		_ = d.br.UnreadByte()
		return Key{Kind: Esc}, true, nil
	case '\r':
		return Key{Kind: AltEnter}, true, nil
	case 'b', 'B':
		return Key{Kind: AltB}, true, nil
	case 'f', 'F':
		return Key{Kind: AltF}, true, nil
	}
	return Key{}, false, nil
}

func (d *Decoder) csi() (Key, bool, error) {
	var seq []byte
	for {
		b, err := d.br.ReadByte()
		if err != nil {
			return Key{}, false, err
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return Key{}, false, nil
		}
	}
	switch string(seq) {
	case "A":
		return Key{Kind: Up}, true, nil
	case "B":
		return Key{Kind: Down}, true, nil
	case "C":
		return Key{Kind: Right}, true, nil
	case "D":
		return Key{Kind: Left}, true, nil
	case "H", "1~", "7~":
		return Key{Kind: Home}, true, nil
	case "F", "4~", "8~":
		return Key{Kind: End}, true, nil
	case "5~":
		return Key{Kind: PageUp}, true, nil
	case "6~":
		return Key{Kind: PageDown}, true, nil
	case "3~":
		return Key{Kind: Delete}, true, nil
	case "Z", "1;2Z":
		return Key{Kind: ShiftTab}, true, nil
	case pasteStart:
		text, err := d.paste()
		if err != nil {
			return Key{}, false, err
		}
		return Key{Kind: Paste, Text: text}, true, nil
	}
	return Key{}, false, nil
}

func (d *Decoder) ss3() (Key, bool, error) {
	b, err := d.br.ReadByte()
	if err != nil {
		return Key{}, false, err
	}
	switch b {
	case 'H':
		return Key{Kind: Home}, true, nil
	case 'F':
		return Key{Kind: End}, true, nil
	case 'A':
		return Key{Kind: Up}, true, nil
	case 'B':
		return Key{Kind: Down}, true, nil
	case 'C':
		return Key{Kind: Right}, true, nil
	case 'D':
		return Key{Kind: Left}, true, nil
	}
	return Key{}, false, nil
}

// paste reads up to the bracketed paste terminator.
func (d *Decoder) paste() (string, error) {
	var b strings.Builder
	for {
		c, err := d.br.ReadByte()
		if err != nil {
			return b.String(), err
		}
		b.WriteByte(c)
		if c == '~' && strings.HasSuffix(b.String(), pasteEnd) {
			return strings.TrimSuffix(b.String(), pasteEnd), nil
		}
	}
}

// Read decodes keys from r into out until r fails, then closes out.
func Read(r io.Reader, out chan<- Key) {
	defer close(out)
	d := NewDecoder(r)
	for {
		k, err := d.Next()
		if err != nil {
			return
		}
		out <- k
	}
}
