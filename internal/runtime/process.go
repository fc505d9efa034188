package runtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

// LineBuffer bounds how many lines may wait between the readers and the
// render loop before the readers block. Kill releases blocked readers and
// drops what they still hold.
const LineBuffer = 4096

// Process is a running runtime. Lines from its stdout and stderr arrive on
// one channel; stderr lines carry the StderrPrefix tag.
type Process struct {
	lines   chan string
	readers sync.WaitGroup

	mu     sync.Mutex
	w      *bufio.Writer
	stdin  io.WriteCloser
	closed atomic.Bool

	kill     func() error
	killOnce sync.Once
	killErr  error
	// stopped is closed by Kill so readers blocked on a full channel give up.
	stopped chan struct{}

	done     chan struct{}
	status   string
	exitCode int
	waitErr  error

	log     pslog.Logger
	started time.Time
}

// exitFunc blocks until the process is gone and describes how it ended.
type exitFunc func() (status string, code int, err error)

func newProcess(stdin io.WriteCloser, stdout, stderr io.Reader, kill func() error, wait exitFunc, log pslog.Logger) *Process {
	p := &Process{
		lines:   make(chan string, LineBuffer),
		w:       bufio.NewWriter(stdin),
		stdin:   stdin,
		kill:    kill,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
		started: time.Now(),
	}
	p.readers.Add(2)
	go p.readLines(stdout, "stdout", "")
	go p.readLines(stderr, "stderr", StderrPrefix)
	go func() {
		p.readers.Wait()
		close(p.lines)
		p.status, p.exitCode, p.waitErr = wait()
		if p.log != nil {
			fields := []any{
				"exit_code", p.exitCode,
				"status", p.status,
				"duration_ms", time.Since(p.started).Milliseconds(),
			}
			if p.waitErr != nil {
				fields = append(fields, "err", p.waitErr)
			}
			p.log.Info("runtime finished", fields...)
		}
		close(p.done)
	}()
	return p
}

// Lines is closed once both output streams have ended.
func (p *Process) Lines() <-chan string { return p.lines }

// Send encodes v as one JSON line and flushes it to the runtime.
func (p *Process) Send(v any) error {
	if p.closed.Load() {
		return schema.ErrRuntimeClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode runtime message: %w", err)
	}
	data = append(data, '\n')
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(data); err != nil {
		return fmt.Errorf("write runtime input: %w", err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("flush runtime input: %w", err)
	}
	return nil
}

// Kill closes the runtime input and terminates the process. It is safe to
// call more than once.
func (p *Process) Kill() error {
	p.killOnce.Do(func() {
		p.closed.Store(true)
		close(p.stopped)
		if p.kill != nil {
			p.killErr = p.kill()
		}
		_ = p.stdin.Close()
		if p.log != nil {
			p.log.Debug("runtime kill requested", "err", p.killErr)
		}
	})
	return p.killErr
}

// Exited reports, without blocking, whether the process has ended and how.
func (p *Process) Exited() (string, bool) {
	select {
	case <-p.done:
		return p.status, true
	default:
		return "", false
	}
}

// Wait blocks until the process has ended. A non-zero exit is not an error;
// see ExitCode.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// ExitCode is valid after Wait or a true Exited.
func (p *Process) ExitCode() int { return p.exitCode }
