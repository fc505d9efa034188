// Package version reports what the binary was built from.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/codelia"

// buildVersion is set via -ldflags "-X pkt.systems/codelia/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module   string
	Version  string
	Revision string
	Modified bool
}

// Read collects Info from the linker flag and the embedded build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

func fromBuildInfo(info *debug.BuildInfo, stamped string) Info {
	out := Info{Module: defaultModule, Version: strings.TrimSpace(stamped)}
	if info == nil {
		if out.Version == "" {
			out.Version = "v0.0.0-unknown"
		}
		return out
	}
	if p := strings.TrimSpace(info.Main.Path); p != "" {
		out.Module = p
	}
	var vcsTime time.Time
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Revision = s.Value
		case "vcs.time":
			vcsTime, _ = time.Parse(time.RFC3339, s.Value)
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	if out.Version == "" {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = v
		}
	}
	if out.Version == "" && out.Revision != "" && !vcsTime.IsZero() {
		// Same shape as a Go module pseudo-version.
		out.Version = fmt.Sprintf("v0.0.0-%s-%s", vcsTime.UTC().Format("20060102150405"), shortRev(out.Revision))
	}
	if out.Version == "" {
		out.Version = "v0.0.0-unknown"
	}
	out.Version = strings.TrimSuffix(out.Version, "+dirty")
	return out
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String is "module version", with +dirty for a modified checkout.
func (i Info) String() string {
	s := i.Module + " " + i.Version
	if i.Modified {
		s += "+dirty"
	}
	return s
}

// Current returns the best available version string.
func Current() string { return Read().Version }

// Module returns the main module path.
func Module() string { return Read().Module }

// Label is the banner name. A runtime CLI version, when known, is shown
// instead of the client build.
func Label(cliVersion string) string {
	if v := strings.TrimSpace(cliVersion); v != "" {
		return "codelia " + v
	}
	return "codelia"
}
