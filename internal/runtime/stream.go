package runtime

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

// StderrPrefix tags lines read from the runtime's stderr.
const StderrPrefix = "[runtime]"

func (p *Process) readLines(r io.Reader, stream, prefix string) {
	defer p.readers.Done()
	reader := bufio.NewReaderSize(r, 64*1024)
	count := 0
	for {
		line, err := reader.ReadString('\n')
		if text := strings.TrimRightFunc(line, unicode.IsSpace); text != "" {
			if prefix != "" {
				if !strings.HasPrefix(text, prefix) {
					text = prefix + " " + text
				}
				if p.log != nil {
					preview := previewText(text, 200)
					p.log.Trace("runtime stderr", "text_len", len(text), "preview", preview, "truncated", len(preview) < len(text))
				}
			}
			select {
			case p.lines <- text:
				count++
			case <-p.stopped:
				if p.log != nil {
					p.log.Debug("runtime reader dropped output after kill", "stream", stream, "lines", count)
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && p.log != nil {
				p.log.Debug("runtime reader stopped", "stream", stream, "err", err)
			}
			break
		}
	}
	if p.log != nil {
		p.log.Debug("runtime reader completed", "stream", stream, "lines", count)
	}
}

// Drain receives up to max already-queued lines without blocking. capped
// reports that the cap was reached and more may be waiting.
func Drain(ch <-chan string, max int) (lines []string, capped bool) {
	for len(lines) < max {
		select {
		case line, ok := <-ch:
			if !ok {
				return lines, false
			}
			lines = append(lines, line)
		default:
			return lines, false
		}
	}
	return lines, max > 0
}

func previewText(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
