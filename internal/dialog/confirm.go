package dialog

import (
	"fmt"
	"strings"

	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/schema"
)

// ConfirmMode is whether the confirm is choosing an option or typing a
// deny reason.
type ConfirmMode uint8

const (
	SelectMode ConfirmMode = iota
	ReasonMode
)

// Confirm asks the user to allow or deny a runtime action.
type Confirm struct {
	req      schema.ConfirmRequest
	selected int
	mode     ConfirmMode
	reason   keys.Editor
}

// NewConfirm builds the overlay for req. Empty labels default to Yes and No.
func NewConfirm(req schema.ConfirmRequest) *Confirm {
	if strings.TrimSpace(req.ConfirmLabel) == "" {
		req.ConfirmLabel = "Yes"
	}
	if strings.TrimSpace(req.CancelLabel) == "" {
		req.CancelLabel = "No"
	}
	return &Confirm{req: req}
}

func (*Confirm) overlay() {}

// ID is the request being answered.
func (c *Confirm) ID() schema.RequestID { return c.req.ID }

// Selected is the highlighted option index.
func (c *Confirm) Selected() int { return c.selected }

// Mode is the current input mode.
func (c *Confirm) Mode() ConfirmMode { return c.mode }

func (c *Confirm) options() int {
	if c.req.AllowRemember {
		return 3
	}
	return 2
}

func (c *Confirm) cancelIndex() int { return c.options() - 1 }

func (c *Confirm) View() Panel {
	title := c.req.Title
	if c.req.DangerLevel == "danger" {
		title = "DANGER: " + title
	}
	lines := messageLines(c.req.Message)
	preview := ""
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			preview = l
			break
		}
	}
	lines = append(lines, "")
	if preview != "" {
		lines = append(lines, "Command: "+preview, "")
	}
	start := len(lines)
	cancel := c.req.CancelLabel
	if c.req.AllowReason {
		cancel += " (Tab to add reason)"
	}
	lines = append(lines, "1. "+c.req.ConfirmLabel)
	if c.req.AllowRemember {
		lines = append(lines, "2. "+c.req.ConfirmLabel+" (don't ask again)")
	}
	lines = append(lines, fmt.Sprintf("%d. %s", c.options(), cancel))
	p := Panel{
		Title:    title,
		Header:   -1,
		Selected: start + min(c.selected, c.cancelIndex()),
		TailFrom: start,
		Hint:     "Enter to choose, y/n, Esc to deny",
	}
	if preview != "" {
		p.TailFrom = start - 2
	}
	if c.mode == ReasonMode {
		lines = append(lines, "", "Reason input active (Enter to deny, Tab to return)")
		p.Input = &c.reason
		p.Hint = "Enter to deny with reason, Tab or Esc to return"
	}
	p.Lines = lines
	return p
}

func (c *Confirm) HandleKey(k keys.Key) (Answer, bool) {
	if c.mode == ReasonMode {
		return c.reasonKey(k)
	}
	switch k.Kind {
	case keys.Up:
		c.selected = max(c.selected-1, 0)
	case keys.Down:
		c.selected = min(c.selected+1, c.cancelIndex())
	case keys.Tab:
		if !c.req.AllowReason {
			return nil, false
		}
		c.selected = c.cancelIndex()
		c.mode = ReasonMode
	case keys.Enter:
		switch {
		case c.selected == 0:
			return c.answer(true, false, ""), true
		case c.selected == 1 && c.req.AllowRemember:
			return c.answer(true, true, ""), true
		default:
			return c.answer(false, false, ""), true
		}
	case keys.Esc:
		return c.answer(false, false, ""), true
	case keys.Rune:
		switch k.Rune {
		case '1':
			c.selected = 0
		case '2':
			c.selected = 1
		case '3':
			if c.req.AllowRemember {
				c.selected = 2
			}
		case 'y', 'Y':
			return c.answer(true, false, ""), true
		case 'n', 'N':
			return c.answer(false, false, ""), true
		default:
			return nil, false
		}
	default:
		return nil, false
	}
	return nil, true
}

func (c *Confirm) reasonKey(k keys.Key) (Answer, bool) {
	switch k.Kind {
	case keys.Esc, keys.Tab:
		c.mode = SelectMode
	case keys.Enter:
		reason := c.reason.String()
		if strings.TrimSpace(reason) == "" {
			reason = ""
		}
		return c.answer(false, false, reason), true
	default:
		return nil, editKey(&c.reason, k, false)
	}
	return nil, true
}

func (c *Confirm) answer(ok, remember bool, reason string) Answer {
	return ConfirmAnswer{ID: c.req.ID, OK: ok, Remember: remember, Reason: reason}
}

// editKey applies the shared line editing keys. Newlines are only
// inserted when multiline is set.
func editKey(e *keys.Editor, k keys.Key, multiline bool) bool {
	switch k.Kind {
	case keys.Rune:
		e.InsertRune(k.Rune)
	case keys.Paste:
		text := k.Text
		if !multiline {
			text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", " "), "\n", " ")
		}
		e.Insert(text)
	case keys.CtrlJ, keys.AltEnter:
		if !multiline {
			return false
		}
		e.InsertRune('\n')
	case keys.Backspace:
		e.Backspace()
	case keys.Delete:
		e.Delete()
	case keys.Left:
		e.MoveLeft()
	case keys.Right:
		e.MoveRight()
	case keys.Home, keys.CtrlA:
		e.MoveHome()
	case keys.End, keys.CtrlE:
		e.MoveEnd()
	case keys.AltB:
		e.MoveWordLeft()
	case keys.AltF:
		e.MoveWordRight()
	case keys.CtrlW:
		e.DeleteWordBackward()
	case keys.CtrlU:
		e.KillLineStart()
	case keys.CtrlK:
		e.KillLineEnd()
	case keys.Up:
		if !multiline {
			return false
		}
		e.MoveUp()
	case keys.Down:
		if !multiline {
			return false
		}
		e.MoveDown()
	default:
		return false
	}
	return true
}
