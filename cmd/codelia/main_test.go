package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/runtime"
)

func parseRun(t *testing.T, args ...string) runOptions {
	t.Helper()
	var opts runOptions
	cmd := &cobra.Command{Use: "codelia"}
	opts.bind(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%q): %v", args, err)
	}
	if err := opts.resolve(cmd, cmd.Flags().Args()); err != nil {
		t.Fatalf("resolve(%q): %v", args, err)
	}
	return opts
}

func TestResumeModes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		pick bool
		id   string
	}{
		{name: "none", args: nil},
		{name: "picker", args: []string{"--resume"}, pick: true},
		{name: "short picker", args: []string{"-r"}, pick: true},
		{name: "equals", args: []string{"--resume=abc"}, id: "abc"},
		{name: "separate", args: []string{"--resume", "abc"}, id: "abc"},
		{name: "short separate", args: []string{"-r", "xyz"}, id: "xyz"},
	}
	for _, tc := range tests {
		opts := parseRun(t, tc.args...)
		if opts.pickSession != tc.pick || opts.resumeID != tc.id {
			t.Fatalf("%s: pick=%v id=%q, want pick=%v id=%q", tc.name, opts.pickSession, opts.resumeID, tc.pick, tc.id)
		}
	}
}

func TestStrayArgumentIsRejected(t *testing.T) {
	var opts runOptions
	cmd := &cobra.Command{Use: "codelia"}
	opts.bind(cmd)
	if err := opts.resolve(cmd, []string{"hello"}); err == nil {
		t.Fatalf("expected error for positional argument without --resume")
	}
}

func TestInitialMessageAlias(t *testing.T) {
	if got := parseRun(t, "-m", "hi").initialMessage; got != "hi" {
		t.Fatalf("initial message = %q", got)
	}
	if got := parseRun(t, "--initial-user-message", "there").initialMessage; got != "there" {
		t.Fatalf("alias = %q", got)
	}
}

func TestEnvSwitches(t *testing.T) {
	t.Setenv(envDebug, "1")
	t.Setenv(envDebugPerf, "yes")
	t.Setenv(envDiagnostics, "0")
	opts := parseRun(t)
	if !opts.debug || !opts.debugPerf || opts.diagnostics {
		t.Fatalf("debug=%v perf=%v diagnostics=%v", opts.debug, opts.debugPerf, opts.diagnostics)
	}
}

func TestEnvTruthy(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {" ON ", true}, {"yes", true},
		{"", false}, {"0", false}, {"false", false}, {"nope", false},
	}
	for _, tc := range tests {
		t.Setenv("CODELIA_TEST_TRUTHY", tc.value)
		if got := envTruthy("CODELIA_TEST_TRUTHY"); got != tc.want {
			t.Fatalf("envTruthy(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestApplySSHFlags(t *testing.T) {
	opts := parseRun(t,
		"--ssh", "dev@build.example",
		"--ssh-port", "2222",
		"--ssh-identity", "/keys/id",
		"--ssh-option", "ConnectTimeout=5",
		"--remote-command", "bun run rt",
		"--remote-cwd", "/srv/app",
		"--diagnostics",
	)
	var cfg appconfig.Config
	opts.apply(&cfg)
	if cfg.Runtime.Transport != runtime.TransportSSH || !cfg.Runtime.Diagnostics {
		t.Fatalf("runtime = %+v", cfg.Runtime)
	}
	if cfg.SSH.User != "dev" || cfg.SSH.Host != "build.example" || cfg.SSH.Port != 2222 {
		t.Fatalf("ssh = %+v", cfg.SSH)
	}
	if cfg.SSH.IdentityFile != "/keys/id" || cfg.SSH.RemoteCmd != "bun run rt" || cfg.SSH.RemoteCwd != "/srv/app" {
		t.Fatalf("ssh = %+v", cfg.SSH)
	}
	want := append(append([]string(nil), runtime.DefaultSSHOpts...), "-o", "ConnectTimeout=5")
	if !reflect.DeepEqual(cfg.SSH.Opts, want) {
		t.Fatalf("opts = %q, want %q", cfg.SSH.Opts, want)
	}
}

func TestApplyWithoutSSHFlagsKeepsTransport(t *testing.T) {
	opts := parseRun(t)
	cfg := appconfig.Config{Runtime: appconfig.RuntimeConfig{Transport: runtime.TransportLocal}}
	opts.apply(&cfg)
	if cfg.Runtime.Transport != runtime.TransportLocal || cfg.SSH.Host != "" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLogLevel(t *testing.T) {
	quiet := runOptions{}
	loud := runOptions{debug: true}
	if got := quiet.logLevel("info"); got != "info" {
		t.Fatalf("quiet = %q", got)
	}
	if got := loud.logLevel("info"); got != "debug" {
		t.Fatalf("debug = %q", got)
	}
	if got := loud.logLevel("off"); got != "off" {
		t.Fatalf("debug must not re-enable logging: %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv(appconfig.EnvCLIVersion, "1.2.3")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "codelia 1.2.3 (") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	run := func(args ...string) error {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs(append([]string{"config", "init", "--config", path}, args...))
		return root.Execute()
	}
	if err := run(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if err := run(); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if err := run("--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestCheckWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := checkWritableDir(dir); err != nil {
		t.Fatalf("checkWritableDir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("probe file left behind: %v %v", entries, err)
	}
}
