// Package source parses the textual terminfo catalog: a sequence of
// entries, each a header line naming the terminal followed by indented
// capability lines. The token classes follow the historical format; the
// candidate ordering (column-one alias, long name before alias, numeric
// and string before boolean) keeps the grammar unambiguous.
package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/logger"
)

// Parse builds a database from a source buffer. Any structural violation
// is fatal: the partial entry list is not returned.
func Parse(buf []byte, log logger.Logger) (*database.Database, error) {
	if log == nil {
		log = logger.Nop
	}
	text, err := normalize(buf)
	if err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}

	db := &database.Database{}
	var cur *database.Entry

	lines := bytes.Split(text, []byte{'\n'})
	for i, raw := range lines {
		line := bytes.TrimSuffix(raw, []byte{'\r'})
		num := i + 1

		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if cur == nil {
				return nil, fmt.Errorf(
					"%d:1: capability line before any entry header", num)
			}
			if err := parseFeatureLine(cur, line, num); err != nil {
				return nil, err
			}
			continue
		}

		entry, err := parseHeader(line, num)
		if err != nil {
			return nil, err
		}
		db.Entries = append(db.Entries, entry)
		cur = entry
		log.Debug("parsed entry header",
			"primary", entry.Primary(), "line", num)
	}
	return db, nil
}

// ParseString is a convenience over Parse for callers holding a string.
func ParseString(text string, log logger.Logger) (*database.Database, error) {
	return Parse([]byte(text), log)
}

// parseHeader handles `alias (| alias)* (| longname)? ,`. The long name
// is anchored by the final comma on the line, so commas inside it are
// fine; when the header has more than one segment the last one is always
// the long name.
func parseHeader(line []byte, num int) (*database.Entry, error) {
	s := &lineScanner{line: line, num: num}

	content := strings.TrimRight(string(line), " \t")
	if !strings.HasSuffix(content, ",") {
		s.pos = len(line)
		return nil, s.errf("entry header not terminated by a comma")
	}
	body := content[:len(content)-1]

	entry := &database.Entry{Line: num}
	segments := strings.Split(body, "|")
	aliasSegs := segments
	if len(segments) > 1 {
		aliasSegs = segments[:len(segments)-1]
		entry.Longname = segments[len(segments)-1]
	}
	for _, a := range aliasSegs {
		if !validAlias(a) {
			return nil, s.errf("invalid terminal alias %q", a)
		}
		if entry.HasAlias(a) {
			return nil, s.errf("duplicate alias %q in entry", a)
		}
		entry.Aliases = append(entry.Aliases, a)
	}
	if len(entry.Aliases) == 0 {
		return nil, s.errf("entry header without an alias")
	}
	return entry, nil
}

func parseFeatureLine(entry *database.Entry, line []byte, num int) error {
	s := &lineScanner{line: line, num: num}
	s.skipBlank()
	for !s.eol() {
		feat, err := s.feature()
		if err != nil {
			return err
		}
		feat = bytes.TrimLeft(feat, " \t")
		if len(feat) == 0 {
			// a lone comma is a valid, empty capability line
			s.skipBlank()
			continue
		}
		c, err := classify(s, feat, num)
		if err != nil {
			return err
		}
		entry.Caps = append(entry.Caps, c)
		s.skipBlank()
	}
	return nil
}

// classify splits one feature into its capability form. The name runs up
// to the first '=' or '#'; a bare name is a boolean, possibly a
// cancellation when it ends in '@'.
func classify(s *lineScanner, feat []byte, num int) (database.Cap, error) {
	for i := 0; i < len(feat); i++ {
		switch feat[i] {
		case '#':
			name := string(feat[:i])
			if name == "" {
				return database.Cap{}, s.errf("numeric capability without a name")
			}
			n, err := parseNumber(string(feat[i+1:]))
			if err != nil {
				return database.Cap{}, s.errf("capability %s: %v", name, err)
			}
			return database.Cap{
				Name: name, Kind: database.Numeric, Num: n, Line: num,
			}, nil
		case '=':
			name := string(feat[:i])
			if name == "" {
				return database.Cap{}, s.errf("string capability without a name")
			}
			// the value keeps its escapes verbatim; expansion is the
			// string compiler's job
			value := append([]byte(nil), feat[i+1:]...)
			return database.Cap{
				Name: name, Kind: database.String, Str: value, Line: num,
			}, nil
		}
	}
	name := string(feat)
	return database.Cap{
		Name: name,
		Kind: database.Boolean,
		Bool: !strings.HasSuffix(name, "@"),
		Line: num,
	}, nil
}
