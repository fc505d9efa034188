// Package convo holds the conversation log shown above the composer: typed
// lines, error reports and the wrapped view of the log at a given width.
package convo

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"pkt.systems/codelia/internal/grid"
)

// Kind classifies a span for styling.
type Kind uint8

const (
	KindSystem Kind = iota
	KindUser
	KindAssistant
	KindAssistantCode
	KindReasoning
	KindToolCall
	KindToolResult
	KindDiffMeta
	KindDiffContext
	KindDiffAdded
	KindDiffRemoved
	KindStatus
	KindRPC
	KindRuntime
	KindSpace
	KindError
)

var kindNames = [...]string{
	KindSystem:        "system",
	KindUser:          "user",
	KindAssistant:     "assistant",
	KindAssistantCode: "assistant_code",
	KindReasoning:     "reasoning",
	KindToolCall:      "tool_call",
	KindToolResult:    "tool_result",
	KindDiffMeta:      "diff_meta",
	KindDiffContext:   "diff_context",
	KindDiffAdded:     "diff_added",
	KindDiffRemoved:   "diff_removed",
	KindStatus:        "status",
	KindRPC:           "rpc",
	KindRuntime:       "runtime",
	KindSpace:         "space",
	KindError:         "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Tone selects the summary or detail variant of a kind's style.
type Tone uint8

const (
	Summary Tone = iota
	Detail
)

// Span is a run of sanitized text. A non-default FG overrides the theme.
type Span struct {
	Kind Kind
	Tone Tone
	Text string
	FG   grid.Color
}

// NewSpan sanitizes text.
func NewSpan(kind Kind, tone Tone, text string) Span {
	return Span{Kind: kind, Tone: tone, Text: Sanitize(text)}
}

// WithTone returns a copy of s with tone replaced.
func (s Span) WithTone(tone Tone) Span {
	s.Tone = tone
	return s
}

// Line is one logical log entry; it may wrap to several rows.
type Line struct {
	Spans []Span
}

// NewLine returns a single-span summary line.
func NewLine(kind Kind, text string) Line {
	return NewToned(kind, Summary, text)
}

// NewToned returns a single-span line with the given tone.
func NewToned(kind Kind, tone Tone, text string) Line {
	return Line{Spans: []Span{NewSpan(kind, tone, text)}}
}

// FromSpans builds a line from already sanitized spans.
func FromSpans(spans ...Span) Line {
	return Line{Spans: spans}
}

// Blank is the spacer line placed between conversation turns.
func Blank() Line { return NewLine(KindSpace, "") }

func (l Line) first() (Kind, Tone) {
	if len(l.Spans) == 0 {
		return KindSystem, Summary
	}
	return l.Spans[0].Kind, l.Spans[0].Tone
}

// Kind is the kind of the first span.
func (l Line) Kind() Kind {
	k, _ := l.first()
	return k
}

// Tone is the tone of the first span.
func (l Line) Tone() Tone {
	_, t := l.first()
	return t
}

// Text returns the concatenated span text.
func (l Line) Text() string {
	if len(l.Spans) == 1 {
		return l.Spans[0].Text
	}
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// WithText keeps the first span's style and replaces the content.
func (l Line) WithText(text string) Line {
	k, t := l.first()
	return NewToned(k, t, text)
}

const tabWidth = 4

// Sanitize makes child output safe to paint into a cell grid: escape
// sequences are removed, tabs expand to the next 4-column stop, carriage
// returns are dropped and other control characters become spaces.
func Sanitize(value string) string {
	if value == "" {
		return ""
	}
	value = ansi.Strip(value)
	clean := true
	for i := 0; i < len(value); i++ {
		if c := value[i]; c < 0x20 || c == 0x7f {
			clean = false
			break
		}
	}
	if clean {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	col := 0
	for _, r := range value {
		switch {
		case r == '\t':
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case r == '\r':
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
			col++
		default:
			b.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
	}
	return b.String()
}

// SanitizePaste normalizes pasted text for the composer. Line breaks are
// kept (CR and CRLF become LF), tabs become four spaces and other control
// characters become spaces.
func SanitizePaste(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	rs := []rune(value)
	for i, r := range rs {
		switch {
		case r == '\r':
			if i+1 >= len(rs) || rs[i+1] != '\n' {
				b.WriteByte('\n')
			}
		case r == '\t':
			b.WriteString("    ")
		case r == '\n':
			b.WriteByte('\n')
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
