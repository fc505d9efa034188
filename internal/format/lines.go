package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pkt.systems/codelia/internal/convo"
)

const detailIndent = "  "

const (
	readPreviewLines      = 2
	skillLoadPreviewLines = 3
	bashErrorLines        = 5
	defaultPreviewLines   = 3
	maxDiffLines          = 200
	maxArgLength          = 160
	maxHeaderLength       = 200
)

var numbers = message.NewPrinter(language.English)

func splitLines(value string) []string {
	parts := strings.Split(value, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func summaryLine(icon, label string, kind convo.Kind) convo.Line {
	switch {
	case label == "":
		return convo.NewLine(kind, icon)
	case icon == "":
		return convo.NewLine(kind, label)
	default:
		return convo.NewLine(kind, icon+" "+label)
	}
}

// summaryAndDetail puts icon, label and a detail tail on one line.
func summaryAndDetail(icon, label, detail string, summaryKind, detailKind convo.Kind) convo.Line {
	var spans []convo.Span
	detail = strings.TrimSpace(detail)
	if icon != "" {
		spans = append(spans, convo.NewSpan(summaryKind, convo.Summary, icon))
		if label != "" || detail != "" {
			spans = append(spans, convo.NewSpan(summaryKind, convo.Summary, " "))
		}
	}
	if label != "" {
		spans = append(spans, convo.NewSpan(summaryKind, convo.Summary, label))
	}
	if detail != "" {
		if label != "" {
			spans = append(spans, convo.NewSpan(summaryKind, convo.Summary, " "))
		}
		spans = append(spans, convo.NewSpan(detailKind, convo.Detail, detail))
	}
	if len(spans) == 0 {
		return convo.NewLine(summaryKind, "")
	}
	return convo.FromSpans(spans...)
}

func detailLine(kind convo.Kind, text string) convo.Line {
	return convo.NewToned(kind, convo.Detail, text)
}

// prefixBlock splits content into lines, the first led by prefix and the
// rest by indent.
func prefixBlock(prefix, indent string, kind convo.Kind, tone convo.Tone, content string) []convo.Line {
	lines := splitLines(content)
	out := make([]convo.Line, 0, len(lines))
	for i, line := range lines {
		lead := indent
		if i == 0 {
			lead = prefix
		}
		out = append(out, convo.NewToned(kind, tone, lead+line))
	}
	return out
}

// prefixRendered indents already styled lines and retones them.
func prefixRendered(prefix, indent string, rendered []convo.Line, tone convo.Tone) []convo.Line {
	out := make([]convo.Line, 0, len(rendered))
	for i, line := range rendered {
		lead := indent
		if i == 0 {
			lead = prefix
		}
		spans := make([]convo.Span, 0, len(line.Spans)+1)
		spans = append(spans, convo.NewSpan(line.Kind(), tone, lead))
		for _, s := range line.Spans {
			spans = append(spans, s.WithTone(tone))
		}
		out = append(out, convo.FromSpans(spans...))
	}
	return out
}

func previewLines(text string, limit int) ([]string, bool) {
	var lines []string
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= limit {
		return lines, false
	}
	return lines[:limit], true
}

func formatPreview(lines []string, truncated bool) string {
	if len(lines) == 0 {
		return ""
	}
	if truncated {
		lines = append(lines, "...")
	}
	return strings.Join(lines, "\n")
}

// previewBlock renders the first non-blank lines of text below a result.
func previewBlock(text string, limit int, kind convo.Kind) []convo.Line {
	preview := formatPreview(previewLines(text, limit))
	if preview == "" {
		return nil
	}
	return prefixBlock(detailIndent, detailIndent, kind, convo.Detail, preview)
}

var refMarkers = [][2]string{
	{"[tool output truncated; ref=", "[tool output truncated]"},
	{"[tool output trimmed; ref=", "[tool output trimmed]"},
}

// redactRefMarkers drops ref: lines and hides cache refs inside markers.
func redactRefMarkers(text string) string {
	var b strings.Builder
	for _, line := range splitLines(text) {
		if strings.HasPrefix(line, "ref:") {
			continue
		}
		for _, m := range refMarkers {
			line = replaceMarker(line, m[0], m[1])
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func replaceMarker(text, marker, replacement string) string {
	for {
		start := strings.Index(text, marker)
		if start < 0 {
			return text
		}
		end := strings.IndexByte(text[start:], ']')
		if end < 0 {
			return text
		}
		text = text[:start] + replacement + text[start+end+1:]
	}
}

func commas(n uint64) string {
	return numbers.Sprintf("%d", n)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func ratio(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
