package runtime

import (
	"fmt"
	"strings"
	"time"
)

const cliPackage = "@codelia/cli"

// BootstrapScript returns the remote shell program that installs the CLI
// when missing, waits for it to answer --version and then execs remoteExec.
// The result is meant to be run as `sh -lc <quoted script>`.
func BootstrapScript(remoteExec, remoteCwd, cliVersion string, ready time.Duration) string {
	lines := []string{
		"set -eu",
		`log_bootstrap() { printf '%s\n' "[bootstrap] $1" >&2; }`,
	}
	if remoteCwd != "" {
		lines = append(lines,
			fmt.Sprintf(`log_bootstrap "changing directory: %s"`, strings.ReplaceAll(remoteCwd, `"`, `\"`)),
			"cd "+ShellQuote(remoteCwd),
		)
	}
	target := cliPackage
	if v := SanitizeCLIVersion(cliVersion); v != "" {
		target += "@" + v
	}
	seconds := int64(ready / time.Second)
	if seconds <= 0 {
		seconds = int64(DefaultReadyTimeout / time.Second)
	}
	lines = append(lines,
		"if command -v codelia >/dev/null 2>&1; then",
		`  log_bootstrap "found codelia on remote host"`,
		"else",
		"  if ! command -v npm >/dev/null 2>&1; then",
		`    log_bootstrap "npm is required to install `+cliPackage+`"`,
		"    exit 1",
		"  fi",
		fmt.Sprintf(`  log_bootstrap "installing %s"`, strings.ReplaceAll(target, `"`, `\"`)),
		"  npm install -g "+ShellQuote(target),
		"fi",
		fmt.Sprintf("deadline=$(( $(date +%%s) + %d ))", seconds),
		"while true; do",
		"  if command -v codelia >/dev/null 2>&1 && codelia --version >/dev/null 2>&1; then",
		`    log_bootstrap "codelia ready"`,
		"    break",
		"  fi",
		`  if [ "$(date +%s)" -ge "$deadline" ]; then`,
		`    log_bootstrap "timed out waiting for codelia command"`,
		"    exit 1",
		"  fi",
		"  sleep 1",
		"done",
		`log_bootstrap "starting runtime command"`,
		"exec "+remoteExec,
	)
	return strings.Join(lines, "\n")
}

// ShellJoin quotes each part for a POSIX shell and joins them with spaces.
func ShellJoin(parts []string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = ShellQuote(part)
	}
	return strings.Join(quoted, " ")
}

// ShellQuote returns s unchanged when it contains only shell-safe bytes and
// single-quoted otherwise.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("_-./:=@%+,", c) >= 0:
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
