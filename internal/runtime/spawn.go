package runtime

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"

	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

// DiagnosticsEnv is set to 1 for the runtime when diagnostics are enabled.
const DiagnosticsEnv = "CODELIA_DIAGNOSTICS"

// Spawn starts the runtime over the configured transport.
func Spawn(ctx context.Context, cfg Config) (*Process, error) {
	cfg = cfg.Normalized()
	log := pslog.Ctx(ctx)
	if cfg.Transport == TransportSSH {
		if cfg.SSH.Host == "" {
			return nil, schema.ErrSSHHostRequired
		}
		remote, err := RemoteCommand(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.SSH.Native {
			return startNativeSSH(ctx, cfg, remote, log)
		}
		cmd := exec.CommandContext(ctx, "ssh", SSHArgs(cfg, remote)...)
		cmd.Env = childEnv(cfg)
		return startCmd(cmd, TransportSSH, log)
	}
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = childEnv(cfg)
	return startCmd(cmd, TransportLocal, log)
}

// RemoteCommand builds the single command string run on the ssh host.
func RemoteCommand(cfg Config, log pslog.Logger) (string, error) {
	parts := SplitArgs(cfg.SSH.RemoteCmd, log)
	if len(parts) == 0 {
		return "", schema.ErrEmptyRemoteCommand
	}
	script := BootstrapScript(ShellJoin(parts), cfg.SSH.RemoteCwd, cfg.SSH.CLIVersion, cfg.SSH.ReadyTimeout)
	remote := "sh -lc " + ShellQuote(script)
	if cfg.Diagnostics {
		remote = DiagnosticsEnv + "=1 " + remote
	}
	return remote, nil
}

// SSHArgs returns the argument list for the ssh binary.
func SSHArgs(cfg Config, remote string) []string {
	args := []string{"-T"}
	args = append(args, cfg.SSH.Opts...)
	if cfg.SSH.User != "" {
		args = append(args, "-l", cfg.SSH.User)
	}
	if cfg.SSH.Port > 0 && cfg.SSH.Port != DefaultSSHPort {
		args = append(args, "-p", strconv.Itoa(cfg.SSH.Port))
	}
	if cfg.SSH.IdentityFile != "" {
		args = append(args, "-i", cfg.SSH.IdentityFile)
	}
	if cfg.SSH.KnownHosts != "" {
		args = append(args, "-o", "UserKnownHostsFile="+cfg.SSH.KnownHosts)
	}
	return append(args, cfg.SSH.Host, remote)
}

func childEnv(cfg Config) []string {
	env := append(os.Environ(), cfg.Env...)
	if cfg.Diagnostics {
		env = append(env, DiagnosticsEnv+"=1")
	}
	return env
}

func startCmd(cmd *exec.Cmd, transport string, log pslog.Logger) (*Process, error) {
	if log != nil {
		log.Info("runtime start", "transport", transport, "command", cmd.Path, "args_len", len(cmd.Args)-1)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		if log != nil {
			log.Error("runtime start failed", "err", err)
		}
		return nil, err
	}
	if log != nil && cmd.Process != nil {
		log.Info("runtime started", "pid", cmd.Process.Pid)
	}
	kill := func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	wait := func() (string, int, error) {
		err := cmd.Wait()
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				return err.Error(), -1, err
			}
		}
		state := cmd.ProcessState
		if state == nil {
			return "unknown", -1, err
		}
		return state.String(), state.ExitCode(), nil
	}
	return newProcess(stdin, stdout, stderr, kill, wait, log), nil
}
