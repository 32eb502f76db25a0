package program

import "github.com/hnimtadd/terminfo/logger"

// decodeEscape decodes one literal escape starting at src[i], where
// src[i] is '\' or '^'. It returns the decoded byte, the number of
// source bytes consumed, and whether the escape was recognized. Callers
// skip the consumed bytes either way so an unknown escape is dropped,
// not re-lexed.
func decodeEscape(src []byte, i int) (b byte, n int, ok bool) {
	if i+1 >= len(src) {
		return 0, 1, false
	}
	c := src[i+1]
	if src[i] == '^' {
		switch {
		case c == '?':
			return 0x7F, 2, true
		case c == '@' || (c >= 'A' && c <= '_'):
			return c & 0x1F, 2, true
		case c >= 'a' && c <= 'z':
			return c & 0x1F, 2, true
		}
		return 0, 2, false
	}

	switch c {
	case 'E', 'e':
		return 0x1B, 2, true
	case 'n', 'l':
		return '\n', 2, true
	case 'r':
		return '\r', 2, true
	case 't':
		return '\t', 2, true
	case 'b':
		return '\b', 2, true
	case 'f':
		return '\f', 2, true
	case 's':
		return ' ', 2, true
	case '^', '\\', ',', ':':
		return c, 2, true
	}
	if c >= '0' && c <= '7' {
		v := 0
		n = 1
		for ; n <= 3 && i+n < len(src); n++ {
			d := src[i+n]
			if d < '0' || d > '7' {
				break
			}
			v = v*8 + int(d-'0')
		}
		if v == 0 {
			// the historical "not NUL" convention: \0 and \000 stand
			// for 0x80 so the byte survives C string handling
			v = 0x80
		}
		return byte(v), n, true
	}
	return 0, 2, false
}

// DecodeLiteral expands every backslash and caret escape in src, with no
// '%' processing. Unrecognized escapes are warned about and dropped. This
// is what non-parameterized values (the pad character among them) go
// through before they hit the wire.
func DecodeLiteral(src []byte, log logger.Logger) []byte {
	if log == nil {
		log = logger.Nop
	}
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		c := src[i]
		if c != '\\' && c != '^' {
			out = append(out, c)
			i++
			continue
		}
		b, n, ok := decodeEscape(src, i)
		if !ok {
			log.Warn("unsupported escape in capability value",
				"escape", string(src[i:min(i+n, len(src))]))
			i += n
			continue
		}
		out = append(out, b)
		i += n
	}
	return out
}
