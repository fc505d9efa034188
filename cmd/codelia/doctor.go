package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/format"
	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var opts runOptions
	var timeout time.Duration
	var skipProbe bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the config and that the runtime answers initialize",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(opts.configPath, logger)
			if err != nil {
				return err
			}
			opts.apply(&cfg)
			configPath := opts.configPath
			if configPath == "" {
				if configPath, err = appconfig.DefaultConfigPath(); err != nil {
					return err
				}
			}
			rtCfg := cfg.RuntimeConfig()
			logger.Info("doctor start", "config", configPath, "transport", rtCfg.Transport)

			if err := checkWritableDir(filepath.Dir(cfg.Logging.File)); err != nil {
				return fmt.Errorf("log dir: %w", err)
			}
			if cfg.UI.HistoryFile != "" {
				if err := checkWritableDir(filepath.Dir(cfg.UI.HistoryFile)); err != nil {
					return fmt.Errorf("history dir: %w", err)
				}
			}
			logger.Info("doctor paths ok", "log", cfg.Logging.File, "history", cfg.UI.HistoryFile)

			if err := checkTransport(rtCfg, logger); err != nil {
				return err
			}
			logger.Info("doctor transport ok")

			if skipProbe {
				logger.Info("doctor complete", "probe", false)
				return nil
			}
			elapsed, err := probeRuntime(cmd.Context(), rtCfg, timeout)
			if err != nil {
				return err
			}
			logger.Info("doctor complete", "initialize", elapsed.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.codelia/config.yaml)")
	cmd.Flags().StringVar(&opts.ssh, "ssh", "", "check an ssh runtime on [user@]host")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for initialize")
	cmd.Flags().BoolVar(&skipProbe, "no-probe", false, "skip starting the runtime")
	return cmd
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func checkTransport(cfg runtime.Config, logger pslog.Logger) error {
	if cfg.Transport != runtime.TransportSSH {
		path, err := exec.LookPath(cfg.Command)
		if err != nil {
			return fmt.Errorf("runtime command %q: %w", cfg.Command, err)
		}
		logger.Info("doctor runtime command", "path", path, "args", cfg.Args)
		return nil
	}
	if cfg.SSH.Host == "" {
		return errors.New("ssh transport needs a host")
	}
	remote, err := runtime.RemoteCommand(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("doctor remote command", "host", cfg.SSH.Host, "cmd", remote)
	if cfg.SSH.Native {
		if _, err := os.Stat(cfg.SSH.KnownHosts); err != nil {
			return fmt.Errorf("known_hosts: %w", err)
		}
		return nil
	}
	if _, err := exec.LookPath("ssh"); err != nil {
		return fmt.Errorf("ssh client: %w", err)
	}
	return nil
}

// probeRuntime starts the runtime, sends initialize and waits for the answer.
func probeRuntime(ctx context.Context, cfg runtime.Config, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	started := time.Now()
	proc, err := runtime.Spawn(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = proc.Kill() }()

	logger := pslog.Ctx(ctx)
	client := runtime.NewClient(proc, logger)
	id, err := client.Initialize()
	if err != nil {
		return 0, err
	}
	theme, _ := convo.ThemeFor(convo.DefaultTheme)
	decoder := format.NewDecoder(theme)
	lines := proc.Lines()
	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("runtime did not answer initialize: %w", ctx.Err())
		case line, ok := <-lines:
			if !ok {
				status, _ := proc.Exited()
				return 0, fmt.Errorf("runtime exited before initialize: %s", status)
			}
			out := decoder.Decode(line)
			if out.Response == nil || out.Response.ID != id {
				logger.Debug("doctor runtime line", "line", line)
				continue
			}
			if out.Response.HasError() {
				summary, _ := format.FormatRPCError("initialize", out.Response.Error)
				return 0, errors.New(summary)
			}
			return time.Since(started), nil
		}
	}
}
