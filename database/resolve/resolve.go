// Package resolve turns one database entry into a queryable terminal
// description: use= inheritance is flattened, cancellations applied, and
// the surviving capabilities indexed under their terminfo, termcap and
// variable names.
package resolve

import (
	"errors"
	"fmt"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/database/caps"
	"github.com/hnimtadd/terminfo/database/program"
	"github.com/hnimtadd/terminfo/logger"
)

var (
	ErrNotFound = errors.New("terminal not found")
	ErrCycle    = errors.New("use= chain forms a cycle")
)

// Entry is a resolved terminal. The three capability maps share the same
// underlying Cap values; Cancelled names appear in none of them. The two
// variable banks belong to the entry: the static one persists across
// expansions, the dynamic one is only meaningful within a single one.
type Entry struct {
	Names    []string
	Longname string

	Terminfo map[string]*database.Cap
	Termcap  map[string]*database.Cap
	Variable map[string]*database.Cap

	Cancelled map[string]struct{}

	Static  program.Bank
	Dynamic program.Bank

	Ospeed   int
	Baudrate int
}

// Options carries the boundary values the resolver cannot learn from the
// source entry itself.
type Options struct {
	Ospeed   int
	Baudrate int
	Logger   logger.Logger
}

// Resolve looks name up in the database and builds the resolved entry.
// A missing alias, directly or through a use= chain, is ErrNotFound; a
// use= chain that revisits an entry is ErrCycle.
func Resolve(db *database.Database, name string, tbl *caps.Table, opts Options) (*Entry, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop
	}

	root := db.Find(name)
	if root == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	flat, cancelled, err := flatten(db, root)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		Names:     append([]string(nil), root.Aliases...),
		Longname:  root.Longname,
		Terminfo:  make(map[string]*database.Cap, len(flat)),
		Termcap:   make(map[string]*database.Cap, len(flat)),
		Variable:  make(map[string]*database.Cap, len(flat)),
		Cancelled: cancelled,
		Ospeed:    opts.Ospeed,
		Baudrate:  opts.Baudrate,
	}

	for i := range flat {
		c := &flat[i]
		e.Terminfo[c.Name] = c
		if tbl == nil {
			continue
		}
		row, ok := tbl.Terminfo[c.Name]
		if !ok {
			log.Debug("capability has no translation",
				"capability", c.Name, "terminal", root.Primary())
			continue
		}
		if row.Kind != c.Kind {
			log.Warn("capability type disagrees with translation table",
				"capability", c.Name,
				"entry", c.Kind.String(), "table", row.Kind.String())
			continue
		}
		if row.Termcap != "" {
			e.Termcap[row.Termcap] = c
		}
		e.Variable[row.Variable] = c
	}

	seedPseudo(e, opts)
	return e, nil
}

// flatten is the single walk over the cloned capability list: it records
// cancellations, splices use= references in place, and keeps the first
// definition of every name. Cancellations accumulate across every
// subsequent use= expansion; they are never reset mid-walk.
func flatten(db *database.Database, root *database.Entry) ([]database.Cap, map[string]struct{}, error) {
	work := append([]database.Cap(nil), root.Caps...)
	visited := map[string]struct{}{root.Primary(): {}}
	featured := make(map[string]struct{}, len(work))
	cancelled := make(map[string]struct{})
	var flat []database.Cap

	for i := 0; i < len(work); i++ {
		c := work[i]

		if c.Cancelled() {
			base := c.BaseName()
			if _, ok := featured[base]; ok {
				// an earlier real definition wins over the marker
				continue
			}
			cancelled[base] = struct{}{}
			continue
		}

		if c.Kind == database.String && c.Name == "use" {
			ref := db.Find(string(c.Str))
			if ref == nil {
				return nil, nil, fmt.Errorf("%w: use=%s from %s",
					ErrNotFound, c.Str, root.Primary())
			}
			if _, ok := visited[ref.Primary()]; ok {
				return nil, nil, fmt.Errorf("%w: use=%s from %s",
					ErrCycle, c.Str, root.Primary())
			}
			visited[ref.Primary()] = struct{}{}
			spliced := make([]database.Cap, 0, len(work)+len(ref.Caps)-1)
			spliced = append(spliced, work[:i]...)
			spliced = append(spliced, ref.Caps...)
			spliced = append(spliced, work[i+1:]...)
			work = spliced
			i--
			continue
		}

		if _, ok := cancelled[c.Name]; ok {
			continue
		}
		if _, ok := featured[c.Name]; ok {
			continue
		}
		// source level comments survive parsing but never resolution
		if len(c.Name) > 0 && c.Name[0] == '.' {
			continue
		}
		featured[c.Name] = struct{}{}
		flat = append(flat, c)
	}
	return flat, cancelled, nil
}

// seedPseudo installs the synthetic variables: PC, UP and BC mirror the
// pad, cursor-up and backspace capabilities; ospeed and baudrate come
// from the terminal line, not the database.
func seedPseudo(e *Entry, opts Options) {
	for _, pv := range []struct {
		name     string
		variable string
		tinfo    string
	}{
		{"PC", "pad_char", "pad"},
		{"UP", "cursor_up", "cuu1"},
		{"BC", "backspace_if_not_bs", "OTbc"},
	} {
		c := e.Variable[pv.variable]
		if c == nil {
			c = e.Terminfo[pv.tinfo]
		}
		if c != nil && c.Kind == database.String {
			e.Variable[pv.name] = c
		}
	}
	e.Variable["ospeed"] = &database.Cap{
		Name: "ospeed", Kind: database.Numeric, Num: opts.Ospeed,
	}
	e.Variable["baudrate"] = &database.Cap{
		Name: "baudrate", Kind: database.Numeric, Num: opts.Baudrate,
	}
}
