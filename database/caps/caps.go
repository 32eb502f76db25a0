// Package caps loads the capability translation table: the line-oriented
// catalog tying every terminfo capability name to its termcap short name
// and long variable name, with its value type.
package caps

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/logger"
)

// Row is one capability in the translation table.
type Row struct {
	Variable string
	Terminfo string
	// Termcap is the two letter short name, or empty when the table names
	// no termcap equivalent ("-" in the source).
	Termcap string
	Kind    database.Kind
	Line    int
}

// Table indexes the rows by each of the three naming schemes.
type Table struct {
	Terminfo map[string]*Row
	Termcap  map[string]*Row
	Variable map[string]*Row
}

type alias struct {
	alias string
	name  string
	line  int
}

// Load parses the translation table. Unknown value types are warned about
// and skipped; capalias/infoalias rows register alternate spellings in the
// termcap and terminfo indexes respectively.
func Load(r io.Reader, log logger.Logger) (*Table, error) {
	if log == nil {
		log = logger.Nop
	}
	t := &Table{
		Terminfo: make(map[string]*Row),
		Termcap:  make(map[string]*Row),
		Variable: make(map[string]*Row),
	}
	var capAliases, infoAliases []alias

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "capalias", "infoalias":
			if len(fields) < 3 {
				log.Warn("short alias row", "line", line)
				continue
			}
			a := alias{alias: fields[1], name: fields[2], line: line}
			if fields[0] == "capalias" {
				capAliases = append(capAliases, a)
			} else {
				infoAliases = append(infoAliases, a)
			}
		default:
			if len(fields) < 4 {
				log.Warn("short capability row", "line", line)
				continue
			}
			var kind database.Kind
			switch fields[2] {
			case "bool":
				kind = database.Boolean
			case "num":
				kind = database.Numeric
			case "str":
				kind = database.String
			default:
				log.Warn("unknown capability type",
					"type", fields[2], "line", line)
				continue
			}
			row := &Row{
				Variable: fields[0],
				Terminfo: fields[1],
				Kind:     kind,
				Line:     line,
			}
			if fields[3] != "-" {
				row.Termcap = fields[3]
			}
			t.Terminfo[row.Terminfo] = row
			t.Variable[row.Variable] = row
			if row.Termcap != "" {
				t.Termcap[row.Termcap] = row
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read translation table: %w", err)
	}

	// Alias rows may appear before the row they point at, so they are
	// applied after the whole table is read.
	for _, a := range capAliases {
		row, ok := t.Termcap[a.name]
		if !ok {
			log.Warn("capalias target not found",
				"alias", a.alias, "target", a.name, "line", a.line)
			continue
		}
		t.Termcap[a.alias] = row
	}
	for _, a := range infoAliases {
		row, ok := t.Terminfo[a.name]
		if !ok {
			log.Warn("infoalias target not found",
				"alias", a.alias, "target", a.name, "line", a.line)
			continue
		}
		t.Terminfo[a.alias] = row
	}
	return t, nil
}

// LoadFile is Load over the contents of path.
func LoadFile(path string, log logger.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, log)
}
