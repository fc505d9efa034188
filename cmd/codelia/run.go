package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/keys"
	"pkt.systems/codelia/internal/logx"
	"pkt.systems/codelia/internal/persist"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/codelia/internal/terminal"
	"pkt.systems/codelia/internal/tui"
	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

func runTUI(ctx context.Context, opts runOptions) error {
	cfg, err := appconfig.Load(opts.configPath, pslog.Ctx(ctx))
	if err != nil {
		return err
	}
	opts.apply(&cfg)

	logger, closer, err := logx.OpenFile(cfg.Logging.File, opts.logLevel(cfg.Logging.Level))
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = closer.Close() }()
	ctx = pslog.ContextWithLogger(ctx, logger)

	var history *persist.Store
	if cfg.UI.HistoryFile != "" {
		history, err = persist.NewStore(cfg.UI.HistoryFile, logger)
		if err != nil {
			logger.Warn("history disabled", "err", err)
		}
	}

	rt, err := runtime.Spawn(ctx, cfg.RuntimeConfig())
	if err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}

	tty := terminal.NewTTY()
	if err := tty.Start(); err != nil {
		_ = rt.Kill()
		return err
	}
	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		if err := tty.Restore(); err != nil {
			logger.Warn("terminal restore failed", "err", err)
		}
	}
	defer restore()

	term, err := terminal.New(tty, logger)
	if err != nil {
		_ = rt.Kill()
		return err
	}

	in := make(chan keys.Key, 64)
	go keys.Read(tty.Input(), in)

	app := tui.New(rt, term, tui.Options{
		UI:             cfg.UI,
		Debug:          opts.debug,
		DebugPerf:      opts.debugPerf,
		Diagnostics:    cfg.Runtime.Diagnostics,
		Resume:         opts.pickSession,
		ResumeID:       schema.SessionID(opts.resumeID),
		InitialMessage: strings.TrimSpace(opts.initialMessage),
		CLIVersion:     strings.TrimSpace(os.Getenv(appconfig.EnvCLIVersion)),
		History:        history,
		Logger:         logger,
	})
	runErr := app.Run(ctx, in, tty.Resized())
	restore()
	if err := rt.Wait(); err != nil {
		logger.Debug("runtime wait", "err", err)
	}
	logger.Info("runtime stopped", "code", rt.ExitCode())
	return runErr
}
