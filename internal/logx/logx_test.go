package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/pslog"
)

func TestWithSessionAndRunAddFields(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	log := WithRun(WithSession(logger, "sess-1"), "run-9")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "sess-1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
	if entry["run"] != "run-9" {
		t.Fatalf("expected run field, got %+v", entry)
	}
}

func TestWithSessionSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	WithRun(WithSession(newCaptureLogger(capture), ""), "").Info("hello")
	entry := capture.firstEntry(t)
	if _, ok := entry["session"]; ok {
		t.Fatalf("did not expect session field")
	}
	if _, ok := entry["run"]; ok {
		t.Fatalf("did not expect run field")
	}
}

func TestSessionCtxDeduplicates(t *testing.T) {
	capture := &logCapture{}
	base := WithSession(newCaptureLogger(capture), "s1")
	ctx := ContextWithSessionLogger(context.Background(), base, "s1")
	SessionCtx(ctx, "s1").Info("hello")

	line := bytes.TrimSpace(capture.buf.Bytes())
	if n := bytes.Count(line, []byte(`"session"`)); n != 1 {
		t.Fatalf("expected one session field, got %d in %s", n, line)
	}
}

func TestRunContext(t *testing.T) {
	ctx := ContextWithRun(context.Background(), "r1")
	if got := RunFromContext(ctx); got != "r1" {
		t.Fatalf("run = %q", got)
	}
	if got := RunFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty run, got %q", got)
	}
}

func TestOptionsLevels(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
	}{
		{"trace", true},
		{"DEBUG", true},
		{"", true},
		{"off", false},
	}
	for _, tc := range cases {
		opts, enabled := Options(tc.name)
		if enabled != tc.enabled {
			t.Fatalf("%q: enabled = %v", tc.name, enabled)
		}
		if opts.Mode != pslog.ModeStructured {
			t.Fatalf("%q: expected structured mode", tc.name)
		}
	}
	if opts, _ := Options("trace"); opts.MinLevel != pslog.TraceLevel {
		t.Fatalf("trace level not mapped")
	}
}

func TestOpenFileWritesStructuredLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tui.log")
	logger, closer, err := OpenFile(path, "debug")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	logger.Debug("runtime start", "cmd", "bun")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	entry := map[string]any{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("parse %q: %v", data, err)
	}
	if entry["cmd"] != "bun" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestOpenFileOffWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	logger, closer, err := OpenFile(path, "off")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	logger.Info("hidden")
	_ = closer.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no log file, got %v", err)
	}
}

func newCaptureLogger(c *logCapture) pslog.Logger {
	return pslog.NewWithOptions(c, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
