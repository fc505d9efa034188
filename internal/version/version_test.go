package version

import (
	"runtime/debug"
	"testing"
)

func TestStampedVersionWins(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Path: "example.com/x", Version: "v9.9.9"}}
	got := fromBuildInfo(info, " v1.2.3 ")
	if got.Version != "v1.2.3" || got.Module != "example.com/x" {
		t.Fatalf("got %+v", got)
	}
}

func TestVersionSources(t *testing.T) {
	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "1234567890abcdef"},
		{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	}
	tests := []struct {
		name string
		info *debug.BuildInfo
		want Info
	}{
		{
			name: "no build info",
			want: Info{Module: defaultModule, Version: "v0.0.0-unknown"},
		},
		{
			name: "module version",
			info: &debug.BuildInfo{Main: debug.Module{Path: "pkt.systems/codelia", Version: "v0.3.0"}},
			want: Info{Module: "pkt.systems/codelia", Version: "v0.3.0"},
		},
		{
			name: "pseudo from vcs",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: vcs},
			want: Info{
				Module:   defaultModule,
				Version:  "v0.0.0-20250102030405-1234567890ab",
				Revision: "1234567890abcdef",
				Modified: true,
			},
		},
		{
			name: "devel without vcs",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: Info{Module: defaultModule, Version: "v0.0.0-unknown"},
		},
	}
	for _, tc := range tests {
		if got := fromBuildInfo(tc.info, ""); got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestInfoString(t *testing.T) {
	i := Info{Module: "m", Version: "v1"}
	if got := i.String(); got != "m v1" {
		t.Fatalf("got %q", got)
	}
	i.Modified = true
	if got := i.String(); got != "m v1+dirty" {
		t.Fatalf("got %q", got)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"":        "codelia",
		"  ":      "codelia",
		" 0.4.1 ": "codelia 0.4.1",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}
