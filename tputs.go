package terminfo

import (
	"time"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/database/program"
)

// Flush registers a callback invoked after the pad characters of a
// delay have been emitted, so buffered writers can push them out before
// the terminal catches up.
func (t *Terminfo) Flush(fn func()) {
	t.flush = fn
}

// Tputs emits an already expanded capability string one byte at a time,
// honoring $<ms> padding directives. affcnt scales directives carrying
// the '*' flag by the number of affected lines. A terminal without a pad
// character (or with npc set) gets a real sleep instead of pad bytes;
// either way a single NUL marks the end of the delay.
func (t *Terminfo) Tputs(s string, affcnt int, putc func(byte)) error {
	data := []byte(s)
	for i := 0; i < len(data); i++ {
		if data[i] == '$' && i+1 < len(data) && data[i+1] == '<' {
			end := -1
			for j := i + 2; j < len(data); j++ {
				if data[j] == '>' {
					end = j
					break
				}
			}
			if end < 0 {
				t.log.Warn("unterminated padding directive")
				putc(data[i])
				continue
			}
			body := data[i+2 : end]
			i = end
			tenths, star, ok := parsePad(body)
			if !ok {
				t.log.Warn("malformed padding directive",
					"directive", string(body))
				continue
			}
			if star {
				tenths *= affcnt
			}
			t.pad(tenths, putc)
			continue
		}
		putc(data[i])
	}
	return nil
}

// parsePad reads the body of a $<...> directive: a millisecond count of
// which only the first decimal digit is kept, then the optional '*' (proportional)
// and '/' (mandatory) flags. The count is returned in tenths of a
// millisecond.
func parsePad(body []byte) (tenths int, star bool, ok bool) {
	i := 0
	if i >= len(body) || body[i] < '0' || body[i] > '9' {
		return 0, false, false
	}
	ms := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		ms = ms*10 + int(body[i]-'0')
		i++
	}
	tenths = ms * 10
	if i < len(body) && body[i] == '.' {
		i++
		if i >= len(body) || body[i] < '0' || body[i] > '9' {
			return 0, false, false
		}
		tenths += int(body[i] - '0')
		i++
		// further decimal digits carry no weight at terminal speeds
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
	}
	for ; i < len(body); i++ {
		switch body[i] {
		case '*':
			star = true
		case '/':
			// mandatory padding: always honored here
		default:
			return 0, false, false
		}
	}
	return tenths, star, true
}

// pad performs one delay: pad characters timed at 9 bits per byte
// (7 data + parity + stop), or a real sleep when the terminal cannot
// absorb pad characters.
func (t *Terminfo) pad(tenths int, putc func(byte)) {
	pc, havePC := t.padChar()
	if !havePC || t.noPadChar() || t.baudrate() <= 0 {
		t.opts.delay(time.Duration(tenths) * time.Millisecond / 10)
	} else {
		count := tenths * t.baudrate() / (9 * 1000 * 10)
		for range count {
			putc(pc)
		}
	}
	putc(0)
	if t.flush != nil {
		t.flush()
	}
}

func (t *Terminfo) padChar() (byte, bool) {
	if t.cur == nil {
		return 0, false
	}
	c, ok := t.cur.Variable["PC"]
	if !ok || c.Kind != database.String {
		return 0, false
	}
	decoded := program.DecodeLiteral(c.Str, t.log)
	if len(decoded) == 0 {
		return 0, false
	}
	return decoded[0], true
}

func (t *Terminfo) noPadChar() bool {
	if t.cur == nil {
		return false
	}
	c, ok := t.cur.Terminfo["npc"]
	return ok && c.Kind == database.Boolean && c.Bool
}

func (t *Terminfo) baudrate() int {
	if t.cur == nil {
		return 0
	}
	return t.cur.Baudrate
}
