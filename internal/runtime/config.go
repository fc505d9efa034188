// Package runtime starts the agent runtime process and carries its
// newline-delimited JSON traffic.
package runtime

import (
	"strings"
	"time"

	"github.com/google/shlex"

	"pkt.systems/pslog"
)

// Transport names.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
)

// Defaults used when the configuration leaves a field empty.
const (
	DefaultCommand      = "bun"
	DefaultRemoteCmd    = "bun packages/runtime/src/index.ts"
	DefaultReadyTimeout = 120 * time.Second
	DefaultSSHPort      = 22
)

// DefaultArgs is the local runtime entry point.
var DefaultArgs = []string{"packages/runtime/src/index.ts"}

// DefaultSSHOpts are passed to the ssh binary when none are configured.
var DefaultSSHOpts = []string{
	"-o", "BatchMode=yes",
	"-o", "StrictHostKeyChecking=yes",
	"-o", "ServerAliveInterval=15",
	"-o", "ServerAliveCountMax=3",
}

// Config selects and parameterises the runtime transport.
type Config struct {
	Transport   string
	Command     string
	Args        []string
	Env         []string
	Diagnostics bool
	SSH         SSHConfig
}

// SSHConfig controls the ssh transport.
type SSHConfig struct {
	Host         string
	User         string
	Port         int
	RemoteCmd    string
	RemoteCwd    string
	Opts         []string
	CLIVersion   string
	ReadyTimeout time.Duration
	// Native dials with the built-in client instead of the ssh binary.
	Native       bool
	KnownHosts   string
	IdentityFile string
}

// Normalized fills defaults.
func (c Config) Normalized() Config {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport != TransportSSH {
		c.Transport = TransportLocal
	}
	if strings.TrimSpace(c.Command) == "" {
		c.Command = DefaultCommand
		if len(c.Args) == 0 {
			c.Args = append([]string(nil), DefaultArgs...)
		}
	}
	if strings.TrimSpace(c.SSH.RemoteCmd) == "" {
		c.SSH.RemoteCmd = DefaultRemoteCmd
	}
	if c.SSH.ReadyTimeout <= 0 {
		c.SSH.ReadyTimeout = DefaultReadyTimeout
	}
	if c.SSH.Port <= 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if len(c.SSH.Opts) == 0 {
		c.SSH.Opts = append([]string(nil), DefaultSSHOpts...)
	}
	c.SSH.Host = strings.TrimSpace(c.SSH.Host)
	c.SSH.CLIVersion = SanitizeCLIVersion(c.SSH.CLIVersion)
	return c
}

// SplitArgs splits a shell-style argument string. Unbalanced quoting falls
// back to a whitespace split and is logged.
func SplitArgs(value string, log pslog.Logger) []string {
	parts, err := shlex.Split(value)
	if err != nil {
		if log != nil {
			log.Warn("runtime args parse warning, falling back to whitespace split", "err", err)
		}
		return strings.Fields(value)
	}
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SanitizeCLIVersion returns the trimmed version when it is safe to splice
// into an npm package spec, or "" otherwise.
func SanitizeCLIVersion(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == '_':
		default:
			return ""
		}
	}
	return value
}
