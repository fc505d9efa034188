package convo

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"pkt.systems/codelia/internal/grid"
)

// WrapLine breaks one logical line into rows of at most width columns.
// Continuation rows repeat a list, quote or diff-gutter indent when the
// line has one. User lines are inset by two columns on each side.
func WrapLine(line Line, width int, theme Theme) []grid.Line {
	if width <= 0 {
		return nil
	}
	base := rowStyle(line, theme)
	if line.Text() == "" {
		return []grid.Line{{Style: base}}
	}
	if line.Kind() == KindUser {
		inner := max(width-4, 1)
		rows := wrapSpans(line.Spans, inner, "")
		out := make([]grid.Line, 0, len(rows))
		k, t := line.first()
		for _, row := range rows {
			spans := append([]Span{{Kind: k, Tone: t, Text: " "}}, row...)
			out = append(out, toGridLine(spans, base, theme))
		}
		return out
	}
	prefix := diffContinuationPrefix(line)
	if prefix == "" {
		prefix = ContinuationPrefix(line.Text())
	}
	rows := wrapSpans(line.Spans, width, prefix)
	out := make([]grid.Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, toGridLine(row, base, theme))
	}
	return out
}

func rowStyle(line Line, theme Theme) grid.Style {
	switch line.Kind() {
	case KindUser:
		return grid.Style{BG: theme.InputBG}
	case KindDiffAdded:
		return grid.Style{BG: theme.AddedBG}
	case KindDiffRemoved:
		return grid.Style{BG: theme.RemovedBG}
	case KindAssistantCode:
		for _, s := range line.Spans {
			switch s.Kind {
			case KindDiffAdded:
				return grid.Style{BG: theme.AddedBG}
			case KindDiffRemoved:
				return grid.Style{BG: theme.RemovedBG}
			}
		}
		return grid.Style{BG: theme.CodeBG}
	}
	return grid.Style{}
}

func toGridLine(spans []Span, base grid.Style, theme Theme) grid.Line {
	out := grid.Line{Style: base, Spans: make([]grid.Span, 0, len(spans))}
	for _, s := range spans {
		out.Spans = append(out.Spans, grid.Span{Text: s.Text, Style: theme.SpanStyle(s)})
	}
	return out
}

func wrapSpans(spans []Span, width int, prefix string) [][]Span {
	pw := runewidth.StringWidth(prefix)
	usePrefix := prefix != "" && width > pw
	var (
		rows [][]Span
		row  []Span
		used int
		base int
	)
	for _, span := range spans {
		var piece strings.Builder
		state := -1
		rest := span.Text
		for len(rest) > 0 {
			var cluster string
			cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
			w := runewidth.StringWidth(cluster)
			if used+w > width && used > base {
				if piece.Len() > 0 {
					row = append(row, Span{Kind: span.Kind, Tone: span.Tone, FG: span.FG, Text: piece.String()})
					piece.Reset()
				}
				rows = append(rows, row)
				row, used, base = nil, 0, 0
				if usePrefix {
					k, t := spans[0].Kind, spans[0].Tone
					row = append(row, Span{Kind: k, Tone: t, Text: prefix})
					used, base = pw, pw
				}
			}
			piece.WriteString(cluster)
			used += w
		}
		if piece.Len() > 0 {
			row = append(row, Span{Kind: span.Kind, Tone: span.Tone, FG: span.FG, Text: piece.String()})
		}
	}
	return append(rows, row)
}

var taskPrefixes = []string{"- [ ] ", "- [x] ", "- [X] ", "* [ ] ", "* [x] ", "* [X] "}

// ContinuationPrefix returns the indent that wrapped rows of text should
// carry: leading spaces plus room for a bullet, ordered-list marker, task
// box or the quote markers themselves.
func ContinuationPrefix(text string) string {
	if text == "" {
		return ""
	}
	rest := strings.TrimLeft(text, " ")
	indent := text[:len(text)-len(rest)]
	if rest == "" {
		return indent
	}

	var quote strings.Builder
	for {
		r, size := firstRune(rest)
		if r != '>' && r != '│' {
			break
		}
		quote.WriteString(rest[:size])
		rest = rest[size:]
		if strings.HasPrefix(rest, " ") {
			quote.WriteByte(' ')
			rest = rest[1:]
		}
	}
	if quote.Len() > 0 {
		return indent + quote.String()
	}
	for _, p := range taskPrefixes {
		if strings.HasPrefix(rest, p) {
			return indent + strings.Repeat(" ", len(p))
		}
	}
	if len(rest) >= 2 && strings.ContainsRune("-*+", rune(rest[0])) && rest[1] == ' ' {
		return indent + "  "
	}
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 && len(rest) >= digits+2 && (rest[digits] == '.' || rest[digits] == ')') && rest[digits+1] == ' ' {
		return indent + strings.Repeat(" ", digits+2)
	}
	return indent
}

func firstRune(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}

// diffContinuationPrefix blanks out the "  12 + " gutter of diff rows.
func diffContinuationPrefix(line Line) string {
	switch line.Kind() {
	case KindDiffAdded, KindDiffRemoved, KindDiffContext:
	default:
		return ""
	}
	text := line.Text()
	i := 0
	for i < len(text) && text[i] == ' ' {
		i++
	}
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	for i < len(text) && text[i] == ' ' {
		i++
	}
	if i >= len(text) || !strings.ContainsRune("+-|", rune(text[i])) {
		return ""
	}
	i++
	if i < len(text) && text[i] == ' ' {
		i++
	}
	return strings.Repeat(" ", i)
}

// WrapStats counts cache behaviour for the perf overlay.
type WrapStats struct {
	Hits     uint64
	Misses   uint64
	LastWrap time.Duration
	Total    int
}

// WrapCache keeps the wrapped rows of a Log for one width and theme.
// Lines appended since the last call are wrapped incrementally; a width,
// theme or generation change rewraps everything.
type WrapCache struct {
	generation uint64
	version    uint64
	width      int
	theme      string
	source     int
	valid      bool
	rows       []grid.Line

	Stats WrapStats
}

// Rows returns the wrapped rows of log at width.
func (c *WrapCache) Rows(log *Log, width int, theme Theme) []grid.Line {
	if width <= 0 {
		return nil
	}
	if c.valid && c.width == width && c.theme == theme.Name && c.generation == log.Generation() {
		if c.version == log.Version() {
			c.Stats.Hits++
			c.Stats.Total = len(c.rows)
			return c.rows
		}
		if c.source <= log.Len() {
			started := time.Now()
			for _, line := range log.Lines()[c.source:] {
				c.rows = append(c.rows, WrapLine(line, width, theme)...)
			}
			c.finish(log, started)
			return c.rows
		}
	}
	started := time.Now()
	c.rows = nil
	for _, line := range log.Lines() {
		c.rows = append(c.rows, WrapLine(line, width, theme)...)
	}
	c.width, c.theme, c.generation, c.valid = width, theme.Name, log.Generation(), true
	c.finish(log, started)
	return c.rows
}

func (c *WrapCache) finish(log *Log, started time.Time) {
	c.source = log.Len()
	c.version = log.Version()
	c.Stats.Misses++
	c.Stats.LastWrap = time.Since(started)
	c.Stats.Total = len(c.rows)
}

// Invalidate forces the next Rows call to rewrap everything.
func (c *WrapCache) Invalidate() { c.valid = false }
