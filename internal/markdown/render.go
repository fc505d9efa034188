package markdown

import (
	"strings"
	"unicode"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/grid"
)

// Renderer converts assistant markdown into log lines for one theme.
type Renderer struct {
	theme       convo.Theme
	highlighter *Highlighter
}

// NewRenderer returns a renderer painting with theme.
func NewRenderer(theme convo.Theme) *Renderer {
	return &Renderer{theme: theme, highlighter: NewHighlighter(theme)}
}

// Highlighter exposes the renderer's code highlighter.
func (r *Renderer) Highlighter() *Highlighter { return r.highlighter }

// Render handles the line-level subset the agent emits: fenced code,
// headings, bullets, quotes and inline bold/italic/code. Every source
// line yields exactly one log line, so wrapping and continuation
// prefixes stay with the log. An empty document yields one empty
// assistant line.
func (r *Renderer) Render(text string) []convo.Line {
	var out []convo.Line
	inCode := false
	lang := ""
	var code []string
	for raw := range strings.SplitSeq(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				out = append(out, r.CodeLines(lang, code)...)
				code, lang, inCode = nil, "", false
			} else {
				inCode, lang = true, fenceLanguage(trimmed)
			}
			continue
		}
		if inCode {
			code = append(code, raw)
			continue
		}
		out = append(out, r.textLine(raw))
	}
	if inCode {
		out = append(out, r.CodeLines(lang, code)...)
	}
	if len(out) == 0 {
		out = append(out, convo.NewLine(convo.KindAssistant, ""))
	}
	return out
}

// CodeLines renders the body of a fenced block as AssistantCode lines.
func (r *Renderer) CodeLines(lang string, lines []string) []convo.Line {
	out := make([]convo.Line, 0, len(lines))
	rows, ok := r.highlighter.Lines(lang, lines, convo.KindAssistantCode, convo.Summary)
	for i, line := range lines {
		if !ok || len(rows[i]) == 0 {
			out = append(out, convo.NewLine(convo.KindAssistantCode, line))
			continue
		}
		out = append(out, convo.FromSpans(rows[i]...))
	}
	return out
}

func (r *Renderer) textLine(raw string) convo.Line {
	line := raw
	heading := false
	left := strings.TrimLeftFunc(raw, unicode.IsSpace)
	switch {
	case strings.HasPrefix(left, "> "):
		line = "│ " + left[2:]
	case strings.HasPrefix(left, "- "), strings.HasPrefix(left, "* "):
		line = "• " + left[2:]
	case strings.HasPrefix(left, "#"):
		line = strings.TrimLeftFunc(strings.TrimLeft(left, "#"), unicode.IsSpace)
		heading = true
	}
	spans := r.inlineSpans(line)
	if len(spans) == 0 {
		return convo.NewLine(convo.KindAssistant, "")
	}
	if heading {
		for i := range spans {
			if spans[i].FG.IsDefault() {
				spans[i].FG = r.theme.Heading
			}
		}
	}
	return convo.FromSpans(spans...)
}

func (r *Renderer) inlineSpans(text string) []convo.Span {
	parsed := ParseInline(text)
	spans := make([]convo.Span, 0, len(parsed))
	for _, p := range parsed {
		s := convo.NewSpan(convo.KindAssistant, convo.Summary, p.Text)
		if s.Text == "" {
			continue
		}
		switch {
		case p.Code:
			s.FG = r.theme.InlineCode
		case p.Bold:
			s.FG = r.theme.Bold
		case p.Italic:
			s.FG = grid.Gray
		}
		spans = append(spans, s)
	}
	return spans
}

func fenceLanguage(trimmed string) string {
	fields := strings.Fields(strings.TrimPrefix(trimmed, "```"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
