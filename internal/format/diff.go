package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/grid"
	"pkt.systems/codelia/internal/markdown"
)

var (
	diffNumberFG        = grid.RGB(143, 161, 179)
	diffAddedMarkerFG   = grid.RGB(163, 190, 140)
	diffRemovedMarkerFG = grid.RGB(191, 97, 106)
)

type pendingLine struct {
	text   string
	inCode bool
	lang   string
}

// fenceState follows ``` fences inside a diffed markdown file so code
// inside them can be highlighted.
type fenceState struct {
	open bool
	lang string
}

// step reports whether text belongs to a code block, the fence itself
// included.
func (f *fenceState) step(text string) bool {
	trimmed := strings.TrimLeft(text, " \t")
	fence := strings.HasPrefix(trimmed, "```")
	inCode := f.open || fence
	if fence {
		if f.open {
			f.open, f.lang = false, ""
		} else {
			f.open = true
			if fields := strings.Fields(strings.TrimPrefix(trimmed, "```")); len(fields) > 0 {
				f.lang = markdown.NormalizeLanguage(fields[0])
			}
		}
	}
	return inCode
}

type diffRenderer struct {
	hl       *markdown.Highlighter
	out      []convo.Line
	removed  []pendingLine
	added    []pendingLine
	oldLine  int
	newLine  int
	oldFence fenceState
	newFence fenceState
	oldLang  string
	newLang  string
}

// renderDiff turns a unified diff into numbered, colored rows. lang is
// the fallback language when the file headers carry none.
func renderDiff(hl *markdown.Highlighter, diff, lang string) []convo.Line {
	d := &diffRenderer{hl: hl, oldLang: lang, newLang: lang}
	for _, line := range splitLines(strings.TrimRight(diff, "\r\n")) {
		switch {
		case strings.HasPrefix(line, "--- "):
			d.flush()
			if l := languageFromHeader(line); l != "" {
				d.oldLang = l
			}
		case strings.HasPrefix(line, "+++ "):
			d.flush()
			if l := languageFromHeader(line); l != "" {
				d.newLang = l
			}
		case strings.HasPrefix(line, "-"):
			text := line[1:]
			inCode := d.oldFence.step(text)
			d.removed = append(d.removed, pendingLine{text: text, inCode: inCode, lang: firstNonEmpty(d.oldFence.lang, d.oldLang)})
		case strings.HasPrefix(line, "+"):
			text := line[1:]
			inCode := d.newFence.step(text)
			d.added = append(d.added, pendingLine{text: text, inCode: inCode, lang: firstNonEmpty(d.newFence.lang, d.newLang)})
		case strings.HasPrefix(line, "@@"):
			d.flush()
			if o, n, ok := parseHunkStart(line); ok {
				d.oldLine, d.newLine = o, n
			}
		case strings.HasPrefix(line, " "):
			d.flush()
			text := line[1:]
			inOld := d.oldFence.step(text)
			inNew := d.newFence.step(text)
			lang := firstNonEmpty(d.newFence.lang, d.oldFence.lang, d.newLang, d.oldLang)
			d.out = append(d.out, d.content(convo.KindDiffContext, " ", text, d.newLine, inOld || inNew, lang))
			d.advance(true, true)
		default:
			d.flush()
			d.out = append(d.out, detailLine(convo.KindDiffMeta, detailIndent+line))
		}
	}
	d.flush()
	return d.out
}

// flush writes the pending -/+ run. Plain-text replacements are
// re-diffed line by line so unchanged lines inside the run drop out.
func (d *diffRenderer) flush() {
	if len(d.removed) == 0 && len(d.added) == 0 {
		return
	}
	hinted := false
	for _, l := range append(append([]pendingLine(nil), d.removed...), d.added...) {
		if l.inCode || l.lang != "" {
			hinted = true
			break
		}
	}
	if len(d.removed) > 0 && len(d.added) > 0 && !hinted {
		a := texts(d.removed)
		b := texts(d.added)
		for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
			switch op.Tag {
			case 'e':
				for range a[op.I1:op.I2] {
					d.advance(true, true)
				}
			case 'd', 'r', 'i':
				for _, text := range a[op.I1:op.I2] {
					d.out = append(d.out, d.content(convo.KindDiffRemoved, "-", text, d.oldLine, false, ""))
					d.advance(true, false)
				}
				for _, text := range b[op.J1:op.J2] {
					d.out = append(d.out, d.content(convo.KindDiffAdded, "+", text, d.newLine, false, ""))
					d.advance(false, true)
				}
			}
		}
	} else {
		for _, l := range d.removed {
			d.out = append(d.out, d.content(convo.KindDiffRemoved, "-", l.text, d.oldLine, l.inCode, l.lang))
			d.advance(true, false)
		}
		for _, l := range d.added {
			d.out = append(d.out, d.content(convo.KindDiffAdded, "+", l.text, d.newLine, l.inCode, l.lang))
			d.advance(false, true)
		}
	}
	d.removed = d.removed[:0]
	d.added = d.added[:0]
}

func (d *diffRenderer) advance(oldSide, newSide bool) {
	if oldSide && d.oldLine > 0 {
		d.oldLine++
	}
	if newSide && d.newLine > 0 {
		d.newLine++
	}
}

// content renders one numbered diff row. A zero line number leaves the
// gutter blank.
func (d *diffRenderer) content(kind convo.Kind, marker, text string, lineNo int, inCode bool, lang string) convo.Line {
	number := detailIndent + "    " + " "
	if lineNo > 0 {
		number = fmt.Sprintf("%s%4d ", detailIndent, lineNo)
	}
	markerText := marker
	if text != "" {
		markerText = marker + " "
	}
	var markerFG grid.Color
	switch kind {
	case convo.KindDiffAdded:
		markerFG = diffAddedMarkerFG
	case convo.KindDiffRemoved:
		markerFG = diffRemovedMarkerFG
	}
	numberKind := kind
	if kind == convo.KindDiffContext {
		numberKind = convo.KindDiffMeta
	}
	// The empty lead span gives the row its kind.
	spans := []convo.Span{
		{Kind: kind, Tone: convo.Detail},
		{Kind: numberKind, Tone: convo.Detail, Text: number, FG: diffNumberFG},
		{Kind: kind, Tone: convo.Detail, Text: markerText, FG: markerFG},
	}
	if (inCode || lang != "") && d.hl != nil {
		if code, ok := d.hl.Line(lang, text, kind, convo.Detail); ok && len(code) > 0 {
			return convo.FromSpans(append(spans, code...)...)
		}
	}
	return convo.FromSpans(append(spans, convo.NewSpan(kind, convo.Detail, text))...)
}

func texts(lines []pendingLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func languageFromHeader(line string) string {
	fields := strings.Fields(line[4:])
	if len(fields) == 0 {
		return ""
	}
	return markdown.LanguageFromPath(fields[0])
}

// parseHunkStart reads the old and new start lines of "@@ -a,b +c,d @@".
func parseHunkStart(line string) (int, int, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, 0, false
	}
	start := func(value string, prefix byte) (int, bool) {
		if value == "" || value[0] != prefix {
			return 0, false
		}
		head, _, _ := strings.Cut(value[1:], ",")
		n, err := strconv.Atoi(head)
		return n, err == nil
	}
	o, ok := start(fields[1], '-')
	if !ok {
		return 0, 0, false
	}
	n, ok := start(fields[2], '+')
	if !ok {
		return 0, 0, false
	}
	return o, n, true
}

// looksLikeUnifiedDiff requires both file headers or a hunk header.
func looksLikeUnifiedDiff(value string) bool {
	var oldHeader, newHeader, hunk bool
	for _, line := range splitLines(value) {
		switch {
		case strings.HasPrefix(line, "--- "):
			oldHeader = true
		case strings.HasPrefix(line, "+++ "):
			newHeader = true
		case strings.HasPrefix(line, "@@"):
			hunk = true
		}
	}
	return (oldHeader && newHeader) || hunk
}

// limitedDiff renders diff and caps it at maxDiffLines rows.
func limitedDiff(hl *markdown.Highlighter, diff, lang string) ([]convo.Line, bool) {
	lines := renderDiff(hl, diff, lang)
	if len(lines) <= maxDiffLines {
		return lines, false
	}
	return lines[:maxDiffLines], true
}
