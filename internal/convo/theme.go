package convo

import (
	"sort"
	"strings"

	"pkt.systems/codelia/internal/grid"
)

// Theme holds the accent palette used by markdown and the chrome around
// the log. Log kinds map onto fixed terminal colors; the theme only
// supplies accents and panel backgrounds.
type Theme struct {
	Name       string
	Heading    grid.Color
	Bold       grid.Color
	InlineCode grid.Color
	Accent     grid.Color
	InputBG    grid.Color
	CodeBG     grid.Color
	AddedBG    grid.Color
	RemovedBG  grid.Color
	// Syntax names the chroma style used for fenced code.
	Syntax     string
}

// DefaultTheme is used when no theme or an unknown theme is configured.
const DefaultTheme = "codelia"

var themes = map[string]Theme{
	"codelia": {
		Name:       "codelia",
		Heading:    grid.RGB(229, 192, 123),
		Bold:       grid.RGB(240, 214, 160),
		InlineCode: grid.RGB(214, 196, 168),
		Accent:     grid.RGB(229, 192, 123),
		InputBG:    grid.RGB(40, 40, 40),
		CodeBG:     grid.RGB(24, 30, 36),
		AddedBG:    grid.RGB(21, 45, 33),
		RemovedBG:  grid.RGB(53, 28, 31),
		Syntax:     "solarized-dark",
	},
	"ocean": {
		Name:       "ocean",
		Heading:    grid.RGB(124, 193, 255),
		Bold:       grid.RGB(169, 218, 255),
		InlineCode: grid.RGB(165, 205, 219),
		Accent:     grid.RGB(124, 193, 255),
		InputBG:    grid.RGB(34, 40, 48),
		CodeBG:     grid.RGB(20, 28, 38),
		AddedBG:    grid.RGB(21, 45, 33),
		RemovedBG:  grid.RGB(53, 28, 31),
		Syntax:     "nord",
	},
	"forest": {
		Name:       "forest",
		Heading:    grid.RGB(149, 208, 146),
		Bold:       grid.RGB(186, 230, 173),
		InlineCode: grid.RGB(167, 206, 188),
		Accent:     grid.RGB(149, 208, 146),
		InputBG:    grid.RGB(36, 42, 36),
		CodeBG:     grid.RGB(22, 32, 26),
		AddedBG:    grid.RGB(21, 45, 33),
		RemovedBG:  grid.RGB(53, 28, 31),
		Syntax:     "solarized-dark",
	},
	"rose": {
		Name:       "rose",
		Heading:    grid.RGB(201, 112, 130),
		Bold:       grid.RGB(222, 161, 175),
		InlineCode: grid.RGB(207, 188, 202),
		Accent:     grid.RGB(201, 112, 130),
		InputBG:    grid.RGB(44, 36, 38),
		CodeBG:     grid.RGB(34, 26, 30),
		AddedBG:    grid.RGB(21, 45, 33),
		RemovedBG:  grid.RGB(53, 28, 31),
		Syntax:     "solarized-dark",
	},
	"sakura":  pastel("sakura", grid.RGB(232, 152, 176), grid.RGB(244, 193, 210), grid.RGB(232, 208, 220)),
	"mauve":   pastel("mauve", grid.RGB(195, 144, 201), grid.RGB(218, 182, 224), grid.RGB(208, 193, 217)),
	"plum":    pastel("plum", grid.RGB(165, 118, 173), grid.RGB(191, 156, 199), grid.RGB(186, 174, 197)),
	"iris":    pastel("iris", grid.RGB(157, 140, 214), grid.RGB(188, 176, 234), grid.RGB(190, 186, 221)),
	"crimson": pastel("crimson", grid.RGB(200, 107, 123), grid.RGB(217, 138, 154), grid.RGB(193, 176, 205)),
	"wine":    pastel("wine", grid.RGB(176, 122, 143), grid.RGB(199, 154, 170), grid.RGB(187, 178, 202)),
}

// pastel builds the muted variants that share the rose backgrounds.
func pastel(name string, heading, bold, code grid.Color) Theme {
	return Theme{
		Name:       name,
		Heading:    heading,
		Bold:       bold,
		InlineCode: code,
		Accent:     heading,
		InputBG:    grid.RGB(44, 36, 38),
		CodeBG:     grid.RGB(34, 26, 30),
		AddedBG:    grid.RGB(21, 45, 33),
		RemovedBG:  grid.RGB(53, 28, 31),
		Syntax:     "solarized-dark",
	}
}

var themeAliases = map[string]string{
	"amber":     "codelia",
	"rose-gold": "rose",
	"rosegold":  "rose",
}

// ThemeFor returns the named theme, falling back to the default. The
// second result reports whether the name was recognized.
func ThemeFor(name string) (Theme, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return themes[DefaultTheme], true
	}
	if alias, ok := themeAliases[key]; ok {
		key = alias
	}
	t, ok := themes[key]
	if !ok {
		return themes[DefaultTheme], false
	}
	return t, true
}

// ThemeNames lists the known theme names.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Style returns the paint for a span of the given kind and tone.
func (t Theme) Style(kind Kind, tone Tone) grid.Style {
	var s grid.Style
	detailDim := false
	switch kind {
	case KindSystem:
		s, detailDim = grid.Style{FG: grid.Cyan}, true
	case KindUser:
		s = grid.Style{FG: grid.White, BG: t.InputBG}
	case KindAssistant:
		s = grid.Style{FG: grid.White}
	case KindAssistantCode:
		s, detailDim = grid.Style{FG: grid.LightGreen, BG: t.CodeBG}, true
	case KindReasoning:
		s, detailDim = grid.Style{FG: grid.Gray, Mod: grid.Italic}, true
	case KindToolCall:
		if tone == Detail {
			return grid.Style{FG: grid.White}
		}
		s = grid.Style{FG: grid.LightBlue}
	case KindToolResult:
		s, detailDim = grid.Style{FG: grid.Green}, true
	case KindDiffMeta:
		s = grid.Style{FG: grid.DarkGray}
	case KindDiffContext:
		s = grid.Style{FG: grid.Gray}
	case KindDiffAdded:
		s = grid.Style{FG: grid.Green, BG: t.AddedBG}
	case KindDiffRemoved:
		s = grid.Style{FG: grid.Red, BG: t.RemovedBG}
	case KindStatus:
		s = grid.Style{FG: grid.Blue}
	case KindRPC, KindRuntime:
		s = grid.Style{Mod: grid.Dim}
	case KindSpace:
		s = grid.Style{FG: grid.Black}
	case KindError:
		s, detailDim = grid.Style{FG: grid.Red, Mod: grid.Bold}, true
	}
	if tone == Detail && detailDim {
		s.Mod |= grid.Dim
	}
	return s
}

// SpanStyle applies the span's color override on top of its kind style.
func (t Theme) SpanStyle(s Span) grid.Style {
	style := t.Style(s.Kind, s.Tone)
	if !s.FG.IsDefault() {
		style.FG = s.FG
	}
	return style
}
