package terminal

import "sync/atomic"

type cprState uint8

const (
	cprNone cprState = iota
	cprPartial
	cprComplete
)

// cprFilter lifts cursor position reports (ESC [ row ; col R) out of the
// input stream while a query is outstanding. Outside a query the bytes pass
// through untouched, since the same shape is also a modified F3 key.
type cprFilter struct {
	pending []byte
	waiting atomic.Int32
	reports chan Position
}

func newCPRFilter() *cprFilter {
	return &cprFilter{reports: make(chan Position, 1)}
}

func (f *cprFilter) expect() { f.waiting.Add(1) }

// release drops one outstanding query, never going below zero.
func (f *cprFilter) release() {
	for {
		n := f.waiting.Load()
		if n <= 0 || f.waiting.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (f *cprFilter) feed(data []byte) []byte {
	if f.waiting.Load() == 0 && len(f.pending) == 0 {
		return data
	}
	buf := append(f.pending, data...)
	f.pending = nil
	out := make([]byte, 0, len(buf))
	for i := 0; i < len(buf); {
		if buf[i] != 0x1b || f.waiting.Load() == 0 {
			out = append(out, buf[i])
			i++
			continue
		}
		n, pos, state := parseCPR(buf[i:])
		switch state {
		case cprComplete:
			f.release()
			select {
			case f.reports <- pos:
			default:
			}
			i += n
		case cprPartial:
			f.pending = append([]byte(nil), buf[i:]...)
			return out
		default:
			out = append(out, buf[i])
			i++
		}
	}
	return out
}

func parseCPR(b []byte) (int, Position, cprState) {
	if len(b) < 2 {
		return 0, Position{}, cprPartial
	}
	if b[1] != '[' {
		return 0, Position{}, cprNone
	}
	var nums [2]int
	field, digits := 0, 0
	for i := 2; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= '0' && c <= '9':
			nums[field] = nums[field]*10 + int(c-'0')
			digits++
		case c == ';' && field == 0 && digits > 0:
			field, digits = 1, 0
		case c == 'R' && field == 1 && digits > 0:
			return i + 1, Position{X: nums[1] - 1, Y: nums[0] - 1}, cprComplete
		default:
			return 0, Position{}, cprNone
		}
	}
	return 0, Position{}, cprPartial
}
