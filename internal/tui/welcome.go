package tui

import (
	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/version"
)

var logo = []string{
	"┌─────────────────────────────────────┐",
	"│                                     │",
	"│     █▀▀ █▀█ █▀▄ █▀▀ █░░ █ ▄▀█       │",
	"│     █▄▄ █▄█ █▄▀ ██▄ █▄▄ █ █▀█       │",
	"│                                     │",
	"│       Your Coding Companion         │",
	"└─────────────────────────────────────┘",
}

func (a *App) pushWelcome() {
	for _, line := range logo {
		a.convo.PushText(convo.KindSystem, line)
	}
	a.push(
		convo.Blank(),
		convo.NewLine(convo.KindSystem, "Welcome to Codelia!"),
		convo.NewLine(convo.KindSystem, "Version: "+version.Label(a.opts.CLIVersion)),
		convo.Blank(),
	)
	notes := []struct {
		on   bool
		text string
	}{
		{a.opts.InitialMessage != "", "Queued initial prompt (`--initial-message`)."},
		{a.opts.Debug, "Debug logs enabled (`--debug` or CODELIA_DEBUG=1)"},
		{a.opts.DebugPerf, "Debug perf panel enabled (`--debug-perf` or CODELIA_DEBUG_PERF=1)"},
		{a.opts.Diagnostics, "Run diagnostics enabled (`--diagnostics` or CODELIA_DIAGNOSTICS=1)"},
	}
	for _, n := range notes {
		if n.on {
			a.push(convo.NewLine(convo.KindStatus, n.text), convo.Blank())
		}
	}
}
