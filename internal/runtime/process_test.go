package runtime

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"testing"
	"time"

	"pkt.systems/codelia/schema"
)

type pipeProcess struct {
	proc    *Process
	stdin   *bufio.Reader
	stdoutW *io.PipeWriter
	stderrW *io.PipeWriter
}

func newPipeProcess(t *testing.T) *pipeProcess {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	killed := make(chan struct{})
	kill := func() error {
		close(killed)
		_ = outW.Close()
		_ = errW.Close()
		return nil
	}
	wait := func() (string, int, error) { return "exit status 0", 0, nil }
	p := &pipeProcess{
		proc:    newProcess(inW, outR, errR, kill, wait, nil),
		stdin:   bufio.NewReader(inR),
		stdoutW: outW,
		stderrW: errW,
	}
	t.Cleanup(func() { _ = p.proc.Kill() })
	return p
}

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, line)
		case <-timeout:
			t.Fatalf("timed out after %d lines: %v", len(out), out)
		}
	}
}

func TestProcessMergesStreams(t *testing.T) {
	p := newPipeProcess(t)
	go func() {
		_, _ = fmt.Fprint(p.stdoutW, "{\"id\":\"1\"}  \n\n   \n{\"method\":\"run.status\"}\n")
		_ = p.stdoutW.Close()
	}()
	go func() {
		_, _ = fmt.Fprint(p.stderrW, "boom\n[runtime] already tagged\n")
		_ = p.stderrW.Close()
	}()

	lines := collect(t, p.proc.Lines())
	var stdout, stderr []string
	for _, line := range lines {
		if len(line) > 0 && line[0] == '[' {
			stderr = append(stderr, line)
		} else {
			stdout = append(stdout, line)
		}
	}
	if want := []string{`{"id":"1"}`, `{"method":"run.status"}`}; !reflect.DeepEqual(stdout, want) {
		t.Fatalf("stdout = %#v, want %#v", stdout, want)
	}
	if want := []string{"[runtime] boom", "[runtime] already tagged"}; !reflect.DeepEqual(stderr, want) {
		t.Fatalf("stderr = %#v, want %#v", stderr, want)
	}
	if err := p.proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	status, ok := p.proc.Exited()
	if !ok || status != "exit status 0" {
		t.Fatalf("Exited = %q, %t", status, ok)
	}
}

func TestProcessExitedIsNonBlocking(t *testing.T) {
	p := newPipeProcess(t)
	if _, ok := p.proc.Exited(); ok {
		t.Fatalf("process reported exit while streams are open")
	}
}

func TestKillReleasesReadersOnFullChannel(t *testing.T) {
	p := newPipeProcess(t)
	go func() {
		for i := 0; i < LineBuffer+10; i++ {
			if _, err := fmt.Fprintf(p.stdoutW, "line %d\n", i); err != nil {
				return
			}
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for len(p.proc.Lines()) < LineBuffer {
		if time.Now().After(deadline) {
			t.Fatalf("channel never filled: %d queued", len(p.proc.Lines()))
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.proc.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	waited := make(chan error, 1)
	go func() { waited <- p.proc.Wait() }()
	select {
	case err := <-waited:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait blocked after Kill with %d lines queued", len(p.proc.Lines()))
	}
	if _, ok := p.proc.Exited(); !ok {
		t.Fatalf("process not reported as exited")
	}
}

func TestProcessSendWritesOneLine(t *testing.T) {
	p := newPipeProcess(t)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.proc.Send(schema.Request{JSONRPC: "2.0", ID: "7", Method: "run.cancel", Params: schema.RunCancelParams{RunID: "r1"}})
	}()
	line, err := p.stdin.ReadString('\n')
	if err != nil {
		t.Fatalf("read stdin: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := `{"jsonrpc":"2.0","id":"7","method":"run.cancel","params":{"run_id":"r1"}}` + "\n"
	if line != want {
		t.Fatalf("line = %q, want %q", line, want)
	}

	if err := p.proc.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if err := p.proc.Send(map[string]any{}); !errors.Is(err, schema.ErrRuntimeClosed) {
		t.Fatalf("Send after Kill = %v", err)
	}
	if err := p.proc.Kill(); err != nil {
		t.Fatalf("second Kill: %v", err)
	}
}

func TestDrainCapsPerTick(t *testing.T) {
	ch := make(chan string, 1000)
	for i := range 1000 {
		ch <- fmt.Sprintf("line %d", i)
	}
	lines, capped := Drain(ch, 300)
	if len(lines) != 300 || !capped {
		t.Fatalf("Drain = %d lines, capped=%t", len(lines), capped)
	}
	if lines[0] != "line 0" || lines[299] != "line 299" {
		t.Fatalf("order lost: %q .. %q", lines[0], lines[299])
	}
	if len(ch) != 700 {
		t.Fatalf("remaining = %d", len(ch))
	}

	close(ch)
	total := 300
	for {
		batch, capped := Drain(ch, 300)
		total += len(batch)
		if !capped {
			break
		}
	}
	if total != 1000 {
		t.Fatalf("drained %d lines", total)
	}
	if lines, capped := Drain(ch, 300); len(lines) != 0 || capped {
		t.Fatalf("closed channel yielded %d, %t", len(lines), capped)
	}
}

func TestDrainEmptyDoesNotBlock(t *testing.T) {
	ch := make(chan string)
	done := make(chan struct{})
	go func() {
		lines, capped := Drain(ch, 300)
		if len(lines) != 0 || capped {
			t.Errorf("Drain = %v, %t", lines, capped)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Drain blocked on an empty channel")
	}
}

func TestPendingMatchClearsExactlyOneSlot(t *testing.T) {
	var p Pending
	p.Set(IntentInitialize, "1")
	p.Set(IntentRunStart, "2")
	p.Set(IntentSessionList, "3")

	if _, err := p.Match("9"); !errors.Is(err, schema.ErrUnknownResponse) {
		t.Fatalf("unknown id err = %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("unknown id cleared a slot")
	}
	intent, err := p.Match("2")
	if err != nil || intent != IntentRunStart {
		t.Fatalf("Match(2) = %q, %v", intent, err)
	}
	if p.Has(IntentRunStart) || !p.Has(IntentInitialize) || !p.Has(IntentSessionList) {
		t.Fatalf("wrong slot cleared: %v", p.slots)
	}
	if _, err := p.Match("2"); !errors.Is(err, schema.ErrUnknownResponse) {
		t.Fatalf("response consumed twice")
	}
	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("Reset left %d slots", p.Len())
	}
}

type recordSender struct {
	sent []string
	err  error
}

func (r *recordSender) Send(v any) error {
	if r.err != nil {
		return r.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.sent = append(r.sent, string(data))
	return nil
}

func TestClientMessages(t *testing.T) {
	out := &recordSender{}
	c := NewClient(out, nil)
	if id, err := c.Initialize(); err != nil || id != "1" {
		t.Fatalf("Initialize = %q, %v", id, err)
	}
	if _, err := c.RunStart("hello", "s-1", false); err != nil {
		t.Fatalf("RunStart: %v", err)
	}
	if _, err := c.RunCancel("run-9", "user"); err != nil {
		t.Fatalf("RunCancel: %v", err)
	}
	if _, err := c.SessionList(50); err != nil {
		t.Fatalf("SessionList: %v", err)
	}
	if _, err := c.SessionHistory("s-1", 200, 1500); err != nil {
		t.Fatalf("SessionHistory: %v", err)
	}
	if err := c.Confirm("x1", false, true, ""); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := c.Prompt("x2", nil); err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if err := c.Pick("x3", nil); err != nil {
		t.Fatalf("Pick: %v", err)
	}

	want := []string{
		`{"jsonrpc":"2.0","id":"1","method":"initialize","params":{"protocol_version":"0","client":{"name":"codelia-tui","version":"0.1.0"},"ui_capabilities":{"supports_confirm":true,"supports_prompt":true,"supports_pick":true,"supports_clipboard_read":true,"supports_permission_preflight_events":true}}}`,
		`{"jsonrpc":"2.0","id":"2","method":"run.start","params":{"input":{"type":"text","text":"hello"},"session_id":"s-1"}}`,
		`{"jsonrpc":"2.0","id":"3","method":"run.cancel","params":{"run_id":"run-9","reason":"user"}}`,
		`{"jsonrpc":"2.0","id":"4","method":"session.list","params":{"limit":50}}`,
		`{"jsonrpc":"2.0","id":"5","method":"session.history","params":{"session_id":"s-1","max_runs":200,"max_events":1500}}`,
		`{"jsonrpc":"2.0","id":"x1","result":{"ok":false,"remember":true,"reason":null}}`,
		`{"jsonrpc":"2.0","id":"x2","result":{"value":null}}`,
		`{"jsonrpc":"2.0","id":"x3","result":{"ids":[]}}`,
	}
	if !reflect.DeepEqual(out.sent, want) {
		t.Fatalf("sent:\n%s\nwant:\n%s", out.sent, want)
	}
	for _, intent := range []Intent{IntentInitialize, IntentRunStart, IntentRunCancel, IntentSessionList, IntentSessionHistory} {
		if !c.Pending.Has(intent) {
			t.Fatalf("missing pending slot %q", intent)
		}
	}
	if intent, err := c.Match("4"); err != nil || intent != IntentSessionList {
		t.Fatalf("Match(4) = %q, %v", intent, err)
	}
}

func TestClientSendFailureClearsSlot(t *testing.T) {
	c := NewClient(&recordSender{err: schema.ErrRuntimeClosed}, nil)
	if _, err := c.RunStart("x", "", false); !errors.Is(err, schema.ErrRuntimeClosed) {
		t.Fatalf("err = %v", err)
	}
	if c.Pending.Has(IntentRunStart) {
		t.Fatalf("failed send left a pending slot")
	}
}

func TestIDsIncrease(t *testing.T) {
	var ids IDs
	got := []schema.RequestID{ids.Next(), ids.Next(), ids.Next()}
	if !slices.Equal(got, []schema.RequestID{"1", "2", "3"}) {
		t.Fatalf("ids = %v", got)
	}
}
