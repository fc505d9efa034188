package convo

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// ErrorSummaryMax caps the characters taken from an error detail into
	// its one-line summary.
	ErrorSummaryMax = 180
	// ErrorDetailMaxLines caps how many detail lines are printed.
	ErrorDetailMaxLines = 24
)

// ErrorMode selects whether error reports print their detail inline.
type ErrorMode uint8

const (
	ErrorsSummary ErrorMode = iota
	ErrorsDetail
)

func (m ErrorMode) String() string {
	if m == ErrorsDetail {
		return "detail"
	}
	return "summary"
}

// Log is the append-only conversation log. Every mutation bumps Version;
// Clear additionally bumps Generation so cached wraps are discarded.
type Log struct {
	lines      []Line
	version    uint64
	generation uint64
	changed    bool

	ErrorMode  ErrorMode
	lastDetail string
}

// Len returns the number of logical lines.
func (l *Log) Len() int { return len(l.lines) }

// Lines returns the logical lines. The slice must not be modified.
func (l *Log) Lines() []Line { return l.lines }

// Version increases on every change.
func (l *Log) Version() uint64 { return l.version }

// Generation increases when lines are removed.
func (l *Log) Generation() uint64 { return l.generation }

// TakeChanged reports whether the log changed since the last call.
func (l *Log) TakeChanged() bool {
	c := l.changed
	l.changed = false
	return c
}

func (l *Log) touch() {
	l.version++
	l.changed = true
}

// Push appends lines.
func (l *Log) Push(lines ...Line) {
	if len(lines) == 0 {
		return
	}
	l.lines = append(l.lines, lines...)
	l.touch()
}

// PushText appends one summary line of kind.
func (l *Log) PushText(kind Kind, text string) {
	l.Push(NewLine(kind, text))
}

// Clear removes every line. The stored error detail survives.
func (l *Log) Clear() {
	l.lines = nil
	l.generation++
	l.touch()
}

// PushErrorReport appends a one-line summary for a failure. The detail is
// kept for ShowLastError and printed inline in detail mode.
func (l *Log) PushErrorReport(summary, detail string) {
	detail = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(detail, "\r\n", "\n"), "\r", "\n"))
	first := TruncateChars(firstNonEmptyLine(detail), ErrorSummaryMax)

	text := strings.TrimSpace(summary)
	switch {
	case first != "" && text == "":
		text = first
	case first != "" && !strings.Contains(text, ":") && !containsFold(text, first):
		text = text + ": " + first
	case first == "" && text == "":
		text = "error"
	}
	if hint := errorHint(detail); hint != "" {
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "retry") && !strings.Contains(lower, "check ") &&
			!strings.Contains(lower, "wait ") && !strings.Contains(lower, "review ") {
			text = text + " (" + hint + ")"
		}
	}

	stored := detail
	if first != "" && containsFold(text, first) {
		rows := strings.Split(detail, "\n")
		stored = strings.TrimSpace(strings.Join(rows[1:], "\n"))
	}
	l.lastDetail = stored

	lines := []Line{NewLine(KindError, text)}
	switch {
	case stored == "":
	case l.ErrorMode == ErrorsDetail:
		lines = appendDetailLines(lines, stored)
	case strings.Contains(stored, "\n") || utf8.RuneCountInString(stored) > ErrorSummaryMax:
		lines = append(lines, NewToned(KindStatus, Detail, "  details hidden; run /errors show"))
	}
	l.Push(lines...)
}

// LastErrorDetail returns the detail kept from the latest error report.
func (l *Log) LastErrorDetail() string { return l.lastDetail }

// ShowLastError prints the stored detail and reports whether there was one.
func (l *Log) ShowLastError() bool {
	if l.lastDetail == "" {
		l.PushText(KindStatus, "No stored error details.")
		return false
	}
	l.Push(appendDetailLines([]Line{NewLine(KindStatus, "Last error details:")}, l.lastDetail)...)
	return true
}

func appendDetailLines(lines []Line, detail string) []Line {
	rows := strings.Split(detail, "\n")
	extra := len(rows) - ErrorDetailMaxLines
	if extra > 0 {
		rows = rows[:ErrorDetailMaxLines]
	}
	for _, row := range rows {
		lines = append(lines, NewToned(KindError, Detail, "  "+strings.TrimRight(row, "\r")))
	}
	if extra > 0 {
		lines = append(lines, NewToned(KindError, Detail, fmt.Sprintf("  ... (%d more lines)", extra)))
	}
	return lines
}

func errorHint(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "runtime busy"):
		return "wait for the active run to finish, then retry"
	case strings.Contains(lower, "invalid params"), strings.Contains(lower, "usage:"):
		return "check command arguments and retry"
	case strings.Contains(lower, "method not found"):
		return "runtime may be outdated; check supported commands"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return "retry after a short wait"
	case strings.Contains(lower, "auth"), strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "forbidden"), strings.Contains(lower, "api key"):
		return "check authentication/API key settings"
	case strings.Contains(lower, "permission"), strings.Contains(lower, "denied"),
		strings.Contains(lower, "eacces"), strings.Contains(lower, "security error"):
		return "review sandbox/permission settings"
	}
	return ""
}

func firstNonEmptyLine(text string) string {
	for row := range strings.SplitSeq(text, "\n") {
		if row = strings.TrimSpace(row); row != "" {
			return row
		}
	}
	return ""
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// TruncateChars shortens text to limit runes, ending in "..." when cut.
func TruncateChars(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	rs := []rune(text)
	return string(rs[:max(limit-3, 0)]) + "..."
}
