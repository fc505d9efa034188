package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/codelia/internal/runtime"
	"pkt.systems/pslog"
)

// Environment variables that override the config file.
const (
	EnvTransport    = "CODELIA_RUNTIME_TRANSPORT"
	EnvCommand      = "CODELIA_RUNTIME_CMD"
	EnvArgs         = "CODELIA_RUNTIME_ARGS"
	EnvSSHHost      = "CODELIA_RUNTIME_SSH_HOST"
	EnvSSHOpts      = "CODELIA_RUNTIME_SSH_OPTS"
	EnvRemoteCmd    = "CODELIA_RUNTIME_REMOTE_CMD"
	EnvRemoteCwd    = "CODELIA_RUNTIME_REMOTE_CWD"
	EnvReadyTimeout = "CODELIA_RUNTIME_REMOTE_READY_TIMEOUT_SEC"
	EnvCLIVersion   = "CODELIA_CLI_VERSION"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string, logger pslog.Logger) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("runtime.transport", cfg.Runtime.Transport)
	v.SetDefault("runtime.command", cfg.Runtime.Command)
	v.SetDefault("runtime.args", cfg.Runtime.Args)
	v.SetDefault("runtime.env", cfg.Runtime.Env)
	v.SetDefault("runtime.diagnostics", cfg.Runtime.Diagnostics)
	v.SetDefault("ssh.host", cfg.SSH.Host)
	v.SetDefault("ssh.user", cfg.SSH.User)
	v.SetDefault("ssh.port", cfg.SSH.Port)
	v.SetDefault("ssh.remote_cmd", cfg.SSH.RemoteCmd)
	v.SetDefault("ssh.remote_cwd", cfg.SSH.RemoteCwd)
	v.SetDefault("ssh.opts", cfg.SSH.Opts)
	v.SetDefault("ssh.cli_version", cfg.SSH.CLIVersion)
	v.SetDefault("ssh.ready_timeout_seconds", cfg.SSH.ReadyTimeoutSeconds)
	v.SetDefault("ssh.known_hosts", cfg.SSH.KnownHosts)
	v.SetDefault("ssh.identity_file", cfg.SSH.IdentityFile)
	v.SetDefault("ssh.native", cfg.SSH.Native)
	v.SetDefault("ui.min_viewport_height", cfg.UI.MinViewportHeight)
	v.SetDefault("ui.poll_interval_ms", cfg.UI.PollIntervalMS)
	v.SetDefault("ui.spinner_interval_ms", cfg.UI.SpinnerIntervalMS)
	v.SetDefault("ui.max_lines_per_tick", cfg.UI.MaxLinesPerTick)
	v.SetDefault("ui.strict_invariants", cfg.UI.StrictInvariants)
	v.SetDefault("ui.history_file", cfg.UI.HistoryFile)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)

	// Scalar overrides go through viper so they win over the file.
	_ = v.BindEnv("runtime.transport", EnvTransport)
	_ = v.BindEnv("runtime.command", EnvCommand)
	_ = v.BindEnv("ssh.host", EnvSSHHost)
	_ = v.BindEnv("ssh.remote_cmd", EnvRemoteCmd)
	_ = v.BindEnv("ssh.remote_cwd", EnvRemoteCwd)
	_ = v.BindEnv("ssh.ready_timeout_seconds", EnvReadyTimeout)
	_ = v.BindEnv("ssh.cli_version", EnvCLIVersion)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	applyListEnv(&cfg, logger)
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile reports a missing explicit path as a plain fs error.
	return errors.Is(err, fs.ErrNotExist)
}

// applyListEnv handles the overrides that carry shell-quoted word lists.
func applyListEnv(cfg *Config, logger pslog.Logger) {
	if raw, ok := os.LookupEnv(EnvArgs); ok {
		cfg.Runtime.Args = runtime.SplitArgs(raw, logger)
	}
	if raw, ok := os.LookupEnv(EnvSSHOpts); ok {
		cfg.SSH.Opts = runtime.SplitArgs(raw, logger)
	}
	cfg.SSH.CLIVersion = runtime.SanitizeCLIVersion(cfg.SSH.CLIVersion)
}

func validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Runtime.Transport)) {
	case runtime.TransportLocal, "":
	case runtime.TransportSSH:
		if strings.TrimSpace(cfg.SSH.Host) == "" {
			return fmt.Errorf("ssh.host is required when runtime.transport is ssh")
		}
	default:
		return fmt.Errorf("unsupported runtime.transport %q", cfg.Runtime.Transport)
	}
	if cfg.UI.MaxLinesPerTick < 0 {
		return fmt.Errorf("ui.max_lines_per_tick must not be negative")
	}
	if cfg.UI.MinViewportHeight < 0 {
		return fmt.Errorf("ui.min_viewport_height must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Runtime.Command = expandEnv(cfg.Runtime.Command)
	cfg.SSH.KnownHosts = expandEnv(cfg.SSH.KnownHosts)
	cfg.SSH.IdentityFile = expandEnv(cfg.SSH.IdentityFile)
	cfg.UI.HistoryFile = expandEnv(cfg.UI.HistoryFile)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
