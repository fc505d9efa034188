package dialog

import (
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/schema"
)

// Prompt collects a text value for the runtime.
type Prompt struct {
	req   schema.PromptRequest
	input keys.Editor
}

// NewPrompt builds the overlay for req, seeded with its default value.
func NewPrompt(req schema.PromptRequest) *Prompt {
	p := &Prompt{req: req}
	if req.DefaultValue != nil {
		p.input.SetString(*req.DefaultValue)
	}
	return p
}

func (*Prompt) overlay() {}

// ID is the request being answered.
func (p *Prompt) ID() schema.RequestID { return p.req.ID }

func (p *Prompt) View() Panel {
	lines := append(messageLines(p.req.Message), "")
	hint := "Enter to submit"
	if p.req.Multiline {
		hint = "Enter to submit, Alt+Enter newline"
	}
	return Panel{
		Title:    p.req.Title,
		Lines:    append(lines, hint),
		Header:   -1,
		Selected: -1,
		TailFrom: -1,
		Input:    &p.input,
		Secret:   p.req.Secret,
		Hint:     hint + ", Esc to cancel",
	}
}

func (p *Prompt) HandleKey(k keys.Key) (Answer, bool) {
	switch k.Kind {
	case keys.Esc:
		return PromptAnswer{ID: p.req.ID}, true
	case keys.Enter:
		value := p.input.String()
		return PromptAnswer{ID: p.req.ID, Value: &value}, true
	}
	return nil, editKey(&p.input, k, p.req.Multiline)
}

// Pick lets the user choose one or several items.
type Pick struct {
	req      schema.PickRequest
	selected int
	chosen   []bool
}

// NewPick builds the overlay for req.
func NewPick(req schema.PickRequest) *Pick {
	return &Pick{req: req, chosen: make([]bool, len(req.Items))}
}

func (*Pick) overlay() {}

// ID is the request being answered.
func (p *Pick) ID() schema.RequestID { return p.req.ID }

func (p *Pick) View() Panel {
	lines := make([]string, 0, len(p.req.Items))
	for i, item := range p.req.Items {
		check := "   "
		if p.req.Multi {
			check = "[ ]"
			if p.chosen[i] {
				check = "[x]"
			}
		}
		line := check + " " + item.Label
		if item.Detail != "" {
			line += " - " + item.Detail
		}
		lines = append(lines, line)
	}
	hint := "Enter to choose, Esc to cancel"
	if p.req.Multi {
		hint = "Space to toggle, Enter to submit, Esc to cancel"
	}
	return Panel{
		Title:    p.req.Title,
		Lines:    lines,
		Header:   -1,
		Selected: p.selected,
		TailFrom: -1,
		Hint:     hint,
	}
}

func (p *Pick) HandleKey(k keys.Key) (Answer, bool) {
	switch k.Kind {
	case keys.Esc:
		return PickAnswer{ID: p.req.ID, IDs: []string{}}, true
	case keys.Up:
		p.selected = max(p.selected-1, 0)
	case keys.Down:
		if p.selected+1 < len(p.req.Items) {
			p.selected++
		}
	case keys.Rune:
		if k.Rune != ' ' || !p.req.Multi || p.selected >= len(p.chosen) {
			return nil, false
		}
		p.chosen[p.selected] = !p.chosen[p.selected]
	case keys.Enter:
		ids := []string{}
		if p.req.Multi {
			for i, item := range p.req.Items {
				if p.chosen[i] {
					ids = append(ids, item.ID)
				}
			}
		} else if p.selected < len(p.req.Items) {
			ids = append(ids, p.req.Items[p.selected].ID)
		}
		return PickAnswer{ID: p.req.ID, IDs: ids}, true
	default:
		return nil, false
	}
	return nil, true
}
