package source

import (
	"fmt"
	"strconv"
	"strings"

	dw "github.com/mattn/go-runewidth"
)

// lineScanner walks one source line. Positions are byte offsets; error
// messages report display columns so wide runes in entry names line up
// with what an editor shows.
type lineScanner struct {
	line []byte
	pos  int
	num  int
}

func (s *lineScanner) errf(format string, args ...any) error {
	col := dw.StringWidth(string(s.line[:s.pos])) + 1
	return fmt.Errorf("%d:%d: %s", s.num, col, fmt.Sprintf(format, args...))
}

func (s *lineScanner) eol() bool {
	return s.pos >= len(s.line)
}

func (s *lineScanner) skipBlank() {
	for !s.eol() && (s.line[s.pos] == ' ' || s.line[s.pos] == '\t') {
		s.pos++
	}
}

// feature scans up to the next separating comma. Backslash escapes keep
// the following byte verbatim, so an escaped comma stays inside the
// feature. The separating comma is consumed, along with the single space
// the comma token may carry.
func (s *lineScanner) feature() ([]byte, error) {
	start := s.pos
	for !s.eol() {
		switch s.line[s.pos] {
		case '\\':
			s.pos++
			if !s.eol() {
				s.pos++
			}
		case ',':
			f := s.line[start:s.pos]
			s.pos++
			if !s.eol() && s.line[s.pos] == ' ' {
				s.pos++
			}
			return f, nil
		default:
			s.pos++
		}
	}
	s.pos = start
	return nil, s.errf("capability not terminated by a comma")
}

// parseNumber handles the C style integer constants a NUMERIC capability
// carries after '#': hex, octal, decimal, or a quoted character, with an
// optional u/l/L integer suffix.
func parseNumber(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	if s[0] == '\'' {
		return parseCharConstant(s)
	}
	core := strings.TrimRight(s, "uUlL")
	if core == "" {
		return 0, fmt.Errorf("bad numeric value %q", s)
	}
	n, err := strconv.ParseInt(core, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric value %q", s)
	}
	return int(n), nil
}

func parseCharConstant(s string) (int, error) {
	if len(s) < 3 || s[len(s)-1] != '\'' {
		return 0, fmt.Errorf("bad character constant %q", s)
	}
	body := s[1 : len(s)-1]
	if body[0] != '\\' {
		if len(body) != 1 {
			return 0, fmt.Errorf("bad character constant %q", s)
		}
		return int(body[0]), nil
	}
	esc := body[1:]
	if len(esc) == 0 {
		return 0, fmt.Errorf("bad character constant %q", s)
	}
	switch esc[0] {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case '\\', '\'':
		return int(esc[0]), nil
	}
	if esc[0] >= '0' && esc[0] <= '7' {
		n, err := strconv.ParseInt(esc, 8, 16)
		if err != nil {
			return 0, fmt.Errorf("bad character constant %q", s)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("bad character constant %q", s)
}

func validAlias(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r == ',' || r == '/' || r == '|' || r == 0x7F {
			return false
		}
	}
	return true
}
