package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/schema"
)

const sessionListHeader = "Updated (UTC)       | Msgs | Session | Preview"

// SessionList picks a saved session to resume.
type SessionList struct {
	rows     []string
	ids      []schema.SessionID
	selected int
}

// NewSessionList builds the picker. Sessions without an id are skipped;
// nil is returned when none remain.
func NewSessionList(sessions []schema.SessionSummary) *SessionList {
	s := &SessionList{}
	for _, sess := range sessions {
		id := strings.TrimSpace(string(sess.SessionID))
		if id == "" {
			continue
		}
		updated := "-"
		if sess.UpdatedAt != "" {
			updated = convo.TruncateChars(strings.ReplaceAll(strings.TrimRight(sess.UpdatedAt, "Z"), "T", " "), 19)
		}
		count := "-"
		if sess.MessageCount != nil {
			count = strconv.Itoa(*sess.MessageCount)
		}
		preview := convo.TruncateChars(strings.TrimSpace(strings.ReplaceAll(sess.LastUserMessage, "\n", " ")), 72)
		s.rows = append(s.rows, fmt.Sprintf("%s | %4s | %s | %s", updated, count, ShortID(id), preview))
		s.ids = append(s.ids, schema.SessionID(id))
	}
	if len(s.rows) == 0 {
		return nil
	}
	return s
}

// ShortID is the first eight characters of an id.
func ShortID(id string) string {
	rs := []rune(id)
	return string(rs[:min(len(rs), 8)])
}

func (*SessionList) overlay() {}

func (s *SessionList) View() Panel {
	return Panel{
		Title:    "Resume session",
		Lines:    append([]string{sessionListHeader}, s.rows...),
		Header:   0,
		Selected: s.selected + 1,
		TailFrom: -1,
		Hint:     "Enter to resume, Esc to close",
	}
}

func (s *SessionList) HandleKey(k keys.Key) (Answer, bool) {
	switch k.Kind {
	case keys.Esc:
		return Dismissed{}, true
	case keys.Enter:
		return ResumeAnswer{SessionID: s.ids[s.selected]}, true
	case keys.Up:
		s.selected = max(s.selected-1, 0)
	case keys.Down:
		s.selected = min(s.selected+1, len(s.rows)-1)
	case keys.PageUp:
		s.selected = max(s.selected-5, 0)
	case keys.PageDown:
		s.selected = min(s.selected+5, len(s.rows)-1)
	default:
		return nil, false
	}
	return nil, true
}
