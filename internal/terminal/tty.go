package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TTY is the process terminal backend. Input is read by one goroutine and
// exposed through Input; cursor position replies are filtered out of it.
type TTY struct {
	in      *os.File
	out     *os.File
	w       *bufio.Writer
	state   *term.State
	filter  *cprFilter
	pr      *io.PipeReader
	pw      *io.PipeWriter
	sig     chan os.Signal
	resized chan struct{}
	done    chan struct{}
	// QueryTimeout bounds how long CursorPosition waits for a reply.
	QueryTimeout time.Duration
}

// NewTTY returns a backend over stdin/stdout. Call Start before use.
func NewTTY() *TTY {
	pr, pw := io.Pipe()
	return &TTY{
		in:           os.Stdin,
		out:          os.Stdout,
		w:            bufio.NewWriterSize(os.Stdout, 64*1024),
		filter:       newCPRFilter(),
		pr:           pr,
		pw:           pw,
		sig:          make(chan os.Signal, 1),
		resized:      make(chan struct{}, 1),
		done:         make(chan struct{}),
		QueryTimeout: 2 * time.Second,
	}
}

// Start enters raw mode, enables bracketed paste and begins reading input
// and resize notifications.
func (t *TTY) Start() error {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	t.state = state
	go t.pump()
	signal.Notify(t.sig, unix.SIGWINCH)
	go t.watchResize()
	if _, err := t.w.WriteString(ansi.SetModeBracketedPaste); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *TTY) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			if data := t.filter.feed(buf[:n]); len(data) > 0 {
				chunk := make([]byte, len(data))
				copy(chunk, data)
				if _, werr := t.pw.Write(chunk); werr != nil {
					return
				}
			}
		}
		if err != nil {
			_ = t.pw.CloseWithError(err)
			return
		}
	}
}

func (t *TTY) watchResize() {
	for {
		select {
		case <-t.sig:
			select {
			case t.resized <- struct{}{}:
			default:
			}
		case <-t.done:
			return
		}
	}
}

// Input is the keyboard byte stream.
func (t *TTY) Input() io.Reader { return t.pr }

// Resized fires after SIGWINCH. Notifications coalesce.
func (t *TTY) Resized() <-chan struct{} { return t.resized }

// Restore disables bracketed paste, shows the cursor and leaves raw mode.
func (t *TTY) Restore() error {
	_, _ = t.w.WriteString(ansi.ResetModeBracketedPaste + ansi.ShowCursor)
	flushErr := t.w.Flush()
	signal.Stop(t.sig)
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	if t.state != nil {
		if err := term.Restore(int(t.in.Fd()), t.state); err != nil {
			return err
		}
		t.state = nil
	}
	return flushErr
}

func (t *TTY) Write(p []byte) (int, error) { return t.w.Write(p) }

// Flush pushes buffered output to the terminal.
func (t *TTY) Flush() error { return t.w.Flush() }

// Size returns the terminal dimensions.
func (t *TTY) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd()))
}

// CursorPosition asks the terminal where the cursor is and waits for the
// reply to arrive on the input stream.
func (t *TTY) CursorPosition() (int, int, error) {
	select {
	case <-t.filter.reports:
	default:
	}
	t.filter.expect()
	if _, err := t.w.WriteString(ansi.RequestCursorPositionReport); err != nil {
		return 0, 0, err
	}
	if err := t.w.Flush(); err != nil {
		return 0, 0, err
	}
	select {
	case pos := <-t.filter.reports:
		return pos.X, pos.Y, nil
	case <-time.After(t.QueryTimeout):
		t.filter.release()
		return 0, 0, errors.New("cursor position query timed out")
	}
}
