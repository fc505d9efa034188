package markdown

import (
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/grid"
)

var languageHints = map[string]string{
	"yml":     "yaml",
	"mjs":     "javascript",
	"cjs":     "javascript",
	"node":    "javascript",
	"mts":     "typescript",
	"cts":     "typescript",
	"ts-node": "typescript",
	"deno":    "typescript",
	"py":      "python",
	"python3": "python",
	"rb":      "ruby",
	"zsh":     "bash",
	"sh":      "bash",
	"shell":   "bash",
	"ps1":     "powershell",
	"golang":  "go",
	"rs":      "rust",
	"text":    "",
	"txt":     "",
	"plain":   "",
}

// NormalizeLanguage maps fence and file-extension hints onto lexer names.
// It returns "" for plain text.
func NormalizeLanguage(hint string) string {
	lang := strings.ToLower(strings.TrimSpace(hint))
	if mapped, ok := languageHints[lang]; ok {
		return mapped
	}
	return lang
}

// LanguageFromPath guesses the language of a diff or file path.
func LanguageFromPath(p string) string {
	p = strings.Trim(p, `"`)
	if p == "" || p == "/dev/null" {
		return ""
	}
	if rest, ok := strings.CutPrefix(p, "a/"); ok {
		p = rest
	} else if rest, ok := strings.CutPrefix(p, "b/"); ok {
		p = rest
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return ""
	}
	return NormalizeLanguage(ext)
}

func lexerFor(lang string) chroma.Lexer {
	lang = NormalizeLanguage(lang)
	if lang == "" {
		return nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil
	}
	if cfg := lexer.Config(); cfg != nil && strings.EqualFold(cfg.Name, "plaintext") {
		return nil
	}
	return chroma.Coalesce(lexer)
}

// Highlighter colors code with one chroma style.
type Highlighter struct {
	style *chroma.Style
}

// NewHighlighter returns a highlighter for the theme's syntax style.
func NewHighlighter(theme convo.Theme) *Highlighter {
	return &Highlighter{style: styles.Get(theme.Syntax)}
}

// Lines highlights a block of code. Each input line yields one row of
// spans of the given kind and tone; ok is false when the language is
// unknown and the caller should render plain text.
func (h *Highlighter) Lines(lang string, lines []string, kind convo.Kind, tone convo.Tone) ([][]convo.Span, bool) {
	lexer := lexerFor(lang)
	if lexer == nil || len(lines) == 0 {
		return nil, false
	}
	clean := make([]string, len(lines))
	for i, line := range lines {
		clean[i] = convo.Sanitize(line)
	}
	iter, err := lexer.Tokenise(nil, strings.Join(clean, "\n")+"\n")
	if err != nil {
		return nil, false
	}
	rows := make([][]convo.Span, len(lines))
	row := 0
	for tok := iter(); tok != chroma.EOF; tok = iter() {
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				row++
			}
			if row >= len(rows) {
				break
			}
			if part == "" {
				continue
			}
			rows[row] = appendSpan(rows[row], convo.Span{
				Kind: kind,
				Tone: tone,
				Text: part,
				FG:   h.color(tok.Type),
			})
		}
	}
	return rows, true
}

// Line highlights a single line, as used for diff rows.
func (h *Highlighter) Line(lang, line string, kind convo.Kind, tone convo.Tone) ([]convo.Span, bool) {
	rows, ok := h.Lines(lang, []string{line}, kind, tone)
	if !ok {
		return nil, false
	}
	return rows[0], true
}

func (h *Highlighter) color(t chroma.TokenType) grid.Color {
	if h.style == nil {
		return grid.Color{}
	}
	entry := h.style.Get(t)
	if !entry.Colour.IsSet() {
		return grid.Color{}
	}
	return grid.RGB(entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue())
}

func appendSpan(spans []convo.Span, s convo.Span) []convo.Span {
	if n := len(spans); n > 0 && spans[n-1].FG == s.FG {
		spans[n-1].Text += s.Text
		return spans
	}
	return append(spans, s)
}
