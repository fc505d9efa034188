package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/runtime"
)

const (
	envDebug       = "CODELIA_DEBUG"
	envDebugPerf   = "CODELIA_DEBUG_PERF"
	envDiagnostics = "CODELIA_DIAGNOSTICS"
)

// resumePicker is what a bare --resume parses to.
const resumePicker = " "

type runOptions struct {
	configPath     string
	resume         string
	resumeID       string
	pickSession    bool
	initialMessage string
	debug          bool
	debugPerf      bool
	diagnostics    bool

	ssh         string
	sshPort     int
	sshIdentity string
	sshOptions  []string
	remoteCmd   string
	remoteCwd   string
}

func (o *runOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.configPath, "config", "c", "", "config file (default ~/.codelia/config.yaml)")
	flags.StringVarP(&o.resume, "resume", "r", "", "resume a session; without an id, pick from the saved sessions")
	flags.Lookup("resume").NoOptDefVal = resumePicker
	flags.StringVarP(&o.initialMessage, "initial-message", "m", "", "prompt to send once the runtime is ready")
	flags.StringVar(&o.initialMessage, "initial-user-message", "", "alias of --initial-message")
	flags.BoolVar(&o.debug, "debug", false, "show runtime and rpc lines")
	flags.BoolVar(&o.debugPerf, "debug-perf", false, "show the render perf panel")
	flags.BoolVar(&o.diagnostics, "diagnostics", false, "enable per-call runtime diagnostics")

	flags.StringVar(&o.ssh, "ssh", "", "run the runtime on [user@]host over ssh")
	flags.IntVar(&o.sshPort, "ssh-port", 0, "ssh port")
	flags.StringVar(&o.sshIdentity, "ssh-identity", "", "ssh private key path")
	flags.StringArrayVar(&o.sshOptions, "ssh-option", nil, "extra ssh option (key=value), repeatable")
	flags.StringVar(&o.remoteCmd, "remote-command", "", "runtime command on the ssh host")
	flags.StringVar(&o.remoteCwd, "remote-cwd", "", "runtime working directory on the ssh host")
}

// resolve settles the resume mode and folds in the environment switches.
// A bare --resume followed by a positional argument resumes that id.
func (o *runOptions) resolve(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("resume") {
		id := strings.TrimSpace(o.resume)
		if id == "" && len(args) == 1 {
			id = strings.TrimSpace(args[0])
			args = nil
		}
		o.resumeID = id
		o.pickSession = id == ""
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q", args[0])
	}
	o.debug = o.debug || envTruthy(envDebug)
	o.debugPerf = o.debugPerf || envTruthy(envDebugPerf)
	o.diagnostics = o.diagnostics || envTruthy(envDiagnostics)
	return nil
}

// apply overlays the command line on a loaded config.
func (o *runOptions) apply(cfg *appconfig.Config) {
	if o.diagnostics {
		cfg.Runtime.Diagnostics = true
	}
	sshMode := false
	if target := strings.TrimSpace(o.ssh); target != "" {
		sshMode = true
		if user, host, ok := strings.Cut(target, "@"); ok {
			cfg.SSH.User = user
			target = host
		}
		cfg.SSH.Host = target
	}
	if o.sshPort > 0 {
		sshMode = true
		cfg.SSH.Port = o.sshPort
	}
	if o.sshIdentity != "" {
		sshMode = true
		cfg.SSH.IdentityFile = o.sshIdentity
	}
	if len(o.sshOptions) > 0 {
		sshMode = true
		opts := append([]string(nil), runtime.DefaultSSHOpts...)
		for _, opt := range o.sshOptions {
			opts = append(opts, "-o", opt)
		}
		cfg.SSH.Opts = opts
	}
	if o.remoteCmd != "" {
		sshMode = true
		cfg.SSH.RemoteCmd = o.remoteCmd
	}
	if o.remoteCwd != "" {
		sshMode = true
		cfg.SSH.RemoteCwd = o.remoteCwd
	}
	if sshMode {
		cfg.Runtime.Transport = runtime.TransportSSH
	}
}

// logLevel raises an info level to debug under --debug.
func (o *runOptions) logLevel(configured string) string {
	level := strings.ToLower(strings.TrimSpace(configured))
	if o.debug && (level == "" || level == "info") {
		return "debug"
	}
	return configured
}

func envTruthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
