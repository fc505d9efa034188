package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/codelia/internal/runtime"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Runtime       RuntimeConfig `mapstructure:"runtime" yaml:"runtime"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	UI            UIConfig      `mapstructure:"ui" yaml:"ui"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// RuntimeConfig selects how the agent runtime is started.
type RuntimeConfig struct {
	Transport   string   `mapstructure:"transport" yaml:"transport"`
	Command     string   `mapstructure:"command" yaml:"command"`
	Args        []string `mapstructure:"args" yaml:"args"`
	// Env holds KEY=value entries. A list keeps key case, which viper
	// would fold in a map.
	Env         []string `mapstructure:"env" yaml:"env"`
	Diagnostics bool     `mapstructure:"diagnostics" yaml:"diagnostics"`
}

// SSHConfig configures the ssh transport.
type SSHConfig struct {
	Host                string   `mapstructure:"host" yaml:"host"`
	User                string   `mapstructure:"user" yaml:"user"`
	Port                int      `mapstructure:"port" yaml:"port"`
	RemoteCmd           string   `mapstructure:"remote_cmd" yaml:"remote_cmd"`
	RemoteCwd           string   `mapstructure:"remote_cwd" yaml:"remote_cwd"`
	Opts                []string `mapstructure:"opts" yaml:"opts"`
	CLIVersion          string   `mapstructure:"cli_version" yaml:"cli_version"`
	ReadyTimeoutSeconds int      `mapstructure:"ready_timeout_seconds" yaml:"ready_timeout_seconds"`
	KnownHosts          string   `mapstructure:"known_hosts" yaml:"known_hosts"`
	IdentityFile        string   `mapstructure:"identity_file" yaml:"identity_file"`
	Native              bool     `mapstructure:"native" yaml:"native"`
}

// UIConfig tunes the terminal front end.
type UIConfig struct {
	MinViewportHeight int    `mapstructure:"min_viewport_height" yaml:"min_viewport_height"`
	PollIntervalMS    int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	SpinnerIntervalMS int    `mapstructure:"spinner_interval_ms" yaml:"spinner_interval_ms"`
	MaxLinesPerTick   int    `mapstructure:"max_lines_per_tick" yaml:"max_lines_per_tick"`
	StrictInvariants  bool   `mapstructure:"strict_invariants" yaml:"strict_invariants"`
	HistoryFile       string `mapstructure:"history_file" yaml:"history_file"`
}

// LoggingConfig controls the TUI log file.
type LoggingConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Runtime: RuntimeConfig{
			Transport: runtime.TransportLocal,
			Command:   runtime.DefaultCommand,
			Args:      append([]string(nil), runtime.DefaultArgs...),
			Env:       []string{},
		},
		SSH: SSHConfig{
			Port:                runtime.DefaultSSHPort,
			RemoteCmd:           runtime.DefaultRemoteCmd,
			Opts:                append([]string(nil), runtime.DefaultSSHOpts...),
			ReadyTimeoutSeconds: int(runtime.DefaultReadyTimeout / time.Second),
			KnownHosts:          filepath.Join(home, ".ssh", "known_hosts"),
		},
		UI: UIConfig{
			MinViewportHeight: 12,
			PollIntervalMS:    50,
			SpinnerIntervalMS: 120,
			MaxLinesPerTick:   300,
			HistoryFile:       filepath.Join(home, ".codelia", "history.json"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(home, ".codelia", "logs", "tui.log"),
			Level: "info",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codelia", "config.yaml"), nil
}

// RuntimeConfig converts the runtime and ssh sections for runtime.Spawn.
func (c Config) RuntimeConfig() runtime.Config {
	env := make([]string, 0, len(c.Runtime.Env))
	for _, kv := range c.Runtime.Env {
		if strings.Contains(kv, "=") {
			env = append(env, kv)
		}
	}
	return runtime.Config{
		Transport:   c.Runtime.Transport,
		Command:     c.Runtime.Command,
		Args:        append([]string(nil), c.Runtime.Args...),
		Env:         env,
		Diagnostics: c.Runtime.Diagnostics,
		SSH: runtime.SSHConfig{
			Host:         c.SSH.Host,
			User:         c.SSH.User,
			Port:         c.SSH.Port,
			RemoteCmd:    c.SSH.RemoteCmd,
			RemoteCwd:    c.SSH.RemoteCwd,
			Opts:         append([]string(nil), c.SSH.Opts...),
			CLIVersion:   c.SSH.CLIVersion,
			ReadyTimeout: time.Duration(c.SSH.ReadyTimeoutSeconds) * time.Second,
			Native:       c.SSH.Native,
			KnownHosts:   c.SSH.KnownHosts,
			IdentityFile: c.SSH.IdentityFile,
		},
	}.Normalized()
}

// PollInterval is the key poll timeout.
func (u UIConfig) PollInterval() time.Duration {
	return clampMillis(u.PollIntervalMS, 50)
}

// SpinnerInterval is the spinner frame period.
func (u UIConfig) SpinnerInterval() time.Duration {
	return clampMillis(u.SpinnerIntervalMS, 120)
}

func clampMillis(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}
