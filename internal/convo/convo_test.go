package convo

import (
	"reflect"
	"strings"
	"testing"

	"pkt.systems/codelia/internal/grid"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\tb", "a   b"},
		{"abcd\tx", "abcd    x"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"title\x1b]0;x\x07 done", "title done"},
		{"x\ry", "xy"},
		{"a\x07b", "a b"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePaste(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"line1\n\nline2", "line1\n\nline2"},
		{"a\r\n\r\nb\tc\x07\r\n", "a\n\nb    c \n"},
		{"line1\rline2\r\rline3", "line1\nline2\n\nline3"},
	}
	for _, tc := range cases {
		if got := SanitizePaste(tc.in); got != tc.want {
			t.Fatalf("SanitizePaste(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContinuationPrefix(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"- item", "  "},
		{"  * item", "    "},
		{"12. item", "    "},
		{"3) item", "   "},
		{"> quote", "> "},
		{"│ quote", "│ "},
		{"- [ ] task item", "      "},
		{"  * [x] nested", "        "},
		{"    indented", "    "},
		{"plain", ""},
		{"-nospace", ""},
	}
	for _, tc := range cases {
		if got := ContinuationPrefix(tc.in); got != tc.want {
			t.Fatalf("ContinuationPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func rowTexts(rows []grid.Line) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text()
	}
	return out
}

func TestWrapLineUsesContinuationPrefix(t *testing.T) {
	theme, _ := ThemeFor("")
	rows := WrapLine(NewLine(KindAssistant, "- abcdefghij"), 8, theme)
	if got, want := rowTexts(rows), []string{"- abcdef", "  ghij"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
}

func TestWrapLineWideRunes(t *testing.T) {
	theme, _ := ThemeFor("")
	rows := WrapLine(NewLine(KindAssistant, "日本語日本"), 5, theme)
	if got, want := rowTexts(rows), []string{"日本", "語日", "本"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	for _, r := range rows {
		if r.Width() > 5 {
			t.Fatalf("row %q wider than 5", r.Text())
		}
	}
}

func TestWrapLineKeepsSpanColors(t *testing.T) {
	theme, _ := ThemeFor("")
	red, green := grid.RGB(200, 10, 10), grid.RGB(10, 200, 10)
	line := FromSpans(
		Span{Kind: KindAssistantCode, Tone: Detail, Text: "fn main", FG: red},
		Span{Kind: KindAssistantCode, Tone: Detail, Text: "() {}", FG: green},
	)
	rows := WrapLine(line, 5, theme)
	if got, want := rowTexts(rows), []string{"fn ma", "in() ", "{}"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	if rows[1].Spans[0].Style.FG != red || rows[1].Spans[1].Style.FG != green {
		t.Fatalf("span colors lost: %+v", rows[1].Spans)
	}
	if rows[0].Style.BG != theme.CodeBG {
		t.Fatalf("code row background = %+v", rows[0].Style.BG)
	}
}

func TestWrapLineDiffGutter(t *testing.T) {
	theme, _ := ThemeFor("")
	line := NewToned(KindDiffAdded, Detail, "  12 + abcdefgh")
	rows := WrapLine(line, 12, theme)
	if got, want := rowTexts(rows), []string{"  12 + abcde", "       fgh"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	if rows[1].Style.BG != theme.AddedBG {
		t.Fatalf("diff row background = %+v", rows[1].Style.BG)
	}
}

func TestWrapLineUserInset(t *testing.T) {
	theme, _ := ThemeFor("")
	rows := WrapLine(NewLine(KindUser, "> hello world"), 10, theme)
	if got, want := rowTexts(rows), []string{" > hell", " o worl", " d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	if rows[0].Style.BG != theme.InputBG {
		t.Fatalf("user background = %+v", rows[0].Style.BG)
	}
}

func TestWrapLineEmpty(t *testing.T) {
	theme, _ := ThemeFor("")
	if rows := WrapLine(Blank(), 10, theme); len(rows) != 1 || rows[0].Text() != "" {
		t.Fatalf("blank rows = %+v", rows)
	}
	if rows := WrapLine(NewLine(KindStatus, "x"), 0, theme); rows != nil {
		t.Fatalf("zero width rows = %+v", rows)
	}
}

func TestWrapCache(t *testing.T) {
	theme, _ := ThemeFor("")
	var log Log
	var cache WrapCache
	log.PushText(KindStatus, "one")
	log.PushText(KindStatus, "two two two")

	if got := len(cache.Rows(&log, 5, theme)); got != 4 {
		t.Fatalf("rows = %d", got)
	}
	cache.Rows(&log, 5, theme)
	if cache.Stats.Hits != 1 || cache.Stats.Misses != 1 {
		t.Fatalf("stats = %+v", cache.Stats)
	}

	log.PushText(KindStatus, "three")
	rows := cache.Rows(&log, 5, theme)
	if got, want := rowTexts(rows), []string{"one", "two t", "wo tw", "o", "three"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	if cache.Stats.Misses != 2 || cache.Stats.Total != 5 {
		t.Fatalf("stats = %+v", cache.Stats)
	}

	if got := len(cache.Rows(&log, 20, theme)); got != 3 {
		t.Fatalf("rows at width 20 = %d", got)
	}
	log.Clear()
	if got := len(cache.Rows(&log, 20, theme)); got != 0 {
		t.Fatalf("rows after clear = %d", got)
	}
}

func TestLogVersionAndChanged(t *testing.T) {
	var log Log
	if log.TakeChanged() {
		t.Fatalf("fresh log reports a change")
	}
	log.Push()
	if log.Version() != 0 {
		t.Fatalf("empty push bumped version")
	}
	log.PushText(KindSystem, "hi")
	if log.Version() != 1 || !log.TakeChanged() || log.TakeChanged() {
		t.Fatalf("version=%d", log.Version())
	}
	gen := log.Generation()
	log.Clear()
	if log.Len() != 0 || log.Generation() != gen+1 {
		t.Fatalf("Clear: len=%d gen=%d", log.Len(), log.Generation())
	}
}

func TestPushErrorReportCompactSummary(t *testing.T) {
	var log Log
	log.PushErrorReport("run.start error", "runtime busy")
	if log.Len() != 1 {
		t.Fatalf("lines = %d", log.Len())
	}
	line := log.Lines()[0]
	if line.Kind() != KindError {
		t.Fatalf("kind = %s", line.Kind())
	}
	want := "run.start error: runtime busy (wait for the active run to finish, then retry)"
	if line.Text() != want {
		t.Fatalf("text = %q", line.Text())
	}
	if log.LastErrorDetail() != "" {
		t.Fatalf("detail = %q", log.LastErrorDetail())
	}
}

func TestPushErrorReportDetailMode(t *testing.T) {
	var log Log
	log.ErrorMode = ErrorsDetail
	log.PushErrorReport("rpc error", "invalid params\npath: input.text\nexpected string")
	texts := make([]string, 0, log.Len())
	for _, l := range log.Lines() {
		texts = append(texts, l.Text())
	}
	want := []string{
		"rpc error: invalid params (check command arguments and retry)",
		"  path: input.text",
		"  expected string",
	}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("lines = %q, want %q", texts, want)
	}
}

func TestPushErrorReportHidesLongDetail(t *testing.T) {
	var log Log
	log.PushErrorReport("rpc error", "first\nsecond\nthird")
	if log.Len() != 2 || !strings.Contains(log.Lines()[1].Text(), "/errors show") {
		t.Fatalf("lines = %+v", log.Lines())
	}
	if !log.ShowLastError() {
		t.Fatalf("ShowLastError returned false")
	}
	last := log.Lines()[log.Len()-1].Text()
	if last != "  third" {
		t.Fatalf("last line = %q", last)
	}
}

func TestShowLastErrorWithoutDetail(t *testing.T) {
	var log Log
	if log.ShowLastError() {
		t.Fatalf("ShowLastError returned true")
	}
	if log.Lines()[0].Text() != "No stored error details." {
		t.Fatalf("line = %q", log.Lines()[0].Text())
	}
}

func TestErrorDetailTruncated(t *testing.T) {
	var log Log
	log.ErrorMode = ErrorsDetail
	detail := "head\n" + strings.Repeat("row\n", 30) + "tail"
	log.PushErrorReport("boom", detail)
	last := log.Lines()[log.Len()-1].Text()
	if last != "  ... (7 more lines)" {
		t.Fatalf("last = %q", last)
	}
	if got := log.Len(); got != 1+ErrorDetailMaxLines+1 {
		t.Fatalf("lines = %d", got)
	}
}

func TestThemeFor(t *testing.T) {
	if th, ok := ThemeFor("AMBER"); !ok || th.Name != "codelia" {
		t.Fatalf("alias = %q, %t", th.Name, ok)
	}
	if th, ok := ThemeFor("nope"); ok || th.Name != DefaultTheme {
		t.Fatalf("unknown = %q, %t", th.Name, ok)
	}
	th, _ := ThemeFor("ocean")
	if s := th.Style(KindError, Detail); s.Mod != grid.Bold|grid.Dim || s.FG != grid.Red {
		t.Fatalf("error detail style = %+v", s)
	}
	if s := th.Style(KindToolCall, Detail); s.FG != grid.White {
		t.Fatalf("tool call detail style = %+v", s)
	}
}
