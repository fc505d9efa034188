package dialog

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/codelia/internal/grid"
	"pkt.systems/codelia/internal/keys"
)

// Panel is the rendering model of an overlay. Index fields are -1 when
// unused.
type Panel struct {
	Title string
	Lines []string
	// Header is dimmed.
	Header int
	// Selected is bolded and marked with "> ".
	Selected int
	// TailFrom keeps lines from this index on screen when the panel is
	// too tall, so the options stay visible under a long message.
	TailFrom int
	// Input, when set, replaces the composer editor.
	Input  *keys.Editor
	Secret bool
	// Hint is shown in the status line.
	Hint string
}

type panelRow struct {
	index int
	text  string
}

// Render lays p out in at most maxLines rows of width cells.
func Render(p Panel, maxLines, width int) []grid.Line {
	if maxLines <= 0 {
		return nil
	}
	var out []grid.Line
	if p.Title != "" {
		out = append(out, grid.Line{Spans: []grid.Span{{Text: runewidth.Truncate(p.Title, width, ""), Style: grid.Style{Mod: grid.Dim}}}})
		maxLines--
	}
	if maxLines == 0 || len(p.Lines) == 0 {
		return out
	}

	contentWidth := max(width-2, 1)
	var rows []panelRow
	for i, line := range p.Lines {
		if line == "" {
			rows = append(rows, panelRow{index: i})
			continue
		}
		for _, w := range wrapText(line, contentWidth) {
			rows = append(rows, panelRow{index: i, text: w})
		}
	}

	total := len(rows)
	visible := min(total, maxLines)
	selected := 0
	for i, r := range rows {
		if r.index == p.Selected {
			selected = i
			break
		}
	}
	start := 0
	if total > visible {
		tailStart := -1
		if p.TailFrom >= 0 {
			for i, r := range rows {
				if r.index >= p.TailFrom {
					tailStart = i
					break
				}
			}
		}
		switch {
		case tailStart >= 0 && total-tailStart >= visible:
			start = tailStart
		case tailStart >= 0:
			start = total - visible
		case selected >= visible:
			start = selected + 1 - visible
		}
		start = min(start, total-visible)
	}

	prev := -1
	for _, r := range rows[start : start+visible] {
		var style grid.Style
		if r.index == p.Header {
			style = style.With(grid.Dim)
		}
		marker := "  "
		if r.index == p.Selected {
			style = style.With(grid.Bold)
			if prev != r.index {
				marker = "> "
			}
		}
		out = append(out, grid.Line{Spans: []grid.Span{{Text: marker + r.text, Style: style}}})
		prev = r.index
	}
	return out
}

// wrapText breaks text on spaces into rows of at most width cells. Words
// longer than a row are split.
func wrapText(text string, width int) []string {
	var rows []string
	var line strings.Builder
	lineWidth := 0
	for _, word := range strings.SplitAfter(text, " ") {
		w := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+runewidth.StringWidth(strings.TrimRight(word, " ")) > width {
			rows = append(rows, strings.TrimRight(line.String(), " "))
			line.Reset()
			lineWidth = 0
		}
		for w > width {
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				break
			}
			rows = append(rows, head)
			word = word[len(head):]
			w = runewidth.StringWidth(word)
		}
		line.WriteString(word)
		lineWidth += w
	}
	if line.Len() > 0 || len(rows) == 0 {
		rows = append(rows, strings.TrimRight(line.String(), " "))
	}
	return rows
}

// Height returns how many rows Render would use without a limit.
func Height(p Panel, width int) int {
	n := 0
	if p.Title != "" {
		n++
	}
	for _, line := range p.Lines {
		if line == "" {
			n++
			continue
		}
		n += len(wrapText(line, max(width-2, 1)))
	}
	return n
}

func messageLines(message string) []string {
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
}
