// Package markdown turns assistant markdown into conversation log lines.
package markdown

import "strings"

// Span is a run of text with uniform emphasis.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
}

// ParseInline splits one line into emphasis runs. It knows **bold**,
// *italic* and `code`. Markers without a closing partner stay literal, and
// nothing inside a code span is interpreted.
func ParseInline(input string) []Span {
	p := inlineParser{src: input}
	p.run()
	return p.spans
}

type inlineParser struct {
	src   string
	pos   int
	text  strings.Builder
	cur   Span
	spans []Span
}

func (p *inlineParser) run() {
	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		switch {
		case p.cur.Code:
			p.codeBody(rest)
		case rest[0] == '\\' && len(rest) > 1 && isMarker(rest[1]):
			p.text.WriteByte(rest[1])
			p.pos += 2
		case rest[0] == '`' && strings.Contains(rest[1:], "`"):
			p.emit()
			p.cur.Code = true
			p.pos++
		case strings.HasPrefix(rest, "**"):
			p.emphasis(&p.cur.Bold, "**", rest)
		case rest[0] == '*':
			p.emphasis(&p.cur.Italic, "*", rest)
		default:
			p.text.WriteByte(rest[0])
			p.pos++
		}
	}
	p.emit()
}

// codeBody copies verbatim up to the closing backtick.
func (p *inlineParser) codeBody(rest string) {
	end := strings.IndexByte(rest, '`')
	if end < 0 {
		p.text.WriteString(rest)
		p.pos += len(rest)
		return
	}
	p.text.WriteString(rest[:end])
	p.emit()
	p.cur.Code = false
	p.pos += end + 1
}

func (p *inlineParser) emphasis(on *bool, marker, rest string) {
	p.pos += len(marker)
	if *on {
		p.emit()
		*on = false
		return
	}
	after := rest[len(marker):]
	opens := strings.Contains(after, marker)
	if marker == "*" {
		// "2 * 3" is arithmetic, not emphasis.
		opens = opens && after[0] != ' '
	}
	if !opens {
		p.text.WriteString(marker)
		return
	}
	p.emit()
	*on = true
}

func (p *inlineParser) emit() {
	if p.text.Len() == 0 {
		return
	}
	s := p.cur
	s.Text = p.text.String()
	p.spans = append(p.spans, s)
	p.text.Reset()
}

func isMarker(ch byte) bool {
	return ch == '*' || ch == '`' || ch == '\\'
}
