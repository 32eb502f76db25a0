// Package terminfo is a terminal capability runtime compatible with the
// X/Open terminfo and termcap interfaces. It loads a textual terminfo
// catalog (or a pre-parsed blob of one), selects a terminal by name, and
// answers capability queries, parameterized string expansion and padding.
package terminfo

import (
	"errors"
	"fmt"
	"os"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/database/caps"
	"github.com/hnimtadd/terminfo/database/program"
	"github.com/hnimtadd/terminfo/database/resolve"
	"github.com/hnimtadd/terminfo/database/source"
	"github.com/hnimtadd/terminfo/database/speed"
	"github.com/hnimtadd/terminfo/logger"
)

// ErrDatabaseUnavailable means no database source could be loaded. The
// termcap-facing Tgetent reports it as -1.
var ErrDatabaseUnavailable = errors.New("terminfo database unavailable")

// Terminfo is one independent runtime: a loaded database, a translation
// table, the currently selected terminal, and the compiled-string cache.
// Instances share nothing; concurrent use of one instance must be
// serialized by the caller.
type Terminfo struct {
	opts  options
	log   logger.Logger
	db    *database.Database
	tbl   *caps.Table
	cur   *resolve.Entry
	cache *program.Cache
	flush func()
}

// New builds a runtime from options and the MARPAX_DATABASE_TERMINFO_*
// environment. Loader failures are warnings: a runtime with no database
// still answers queries with the unavailable sentinels.
func New(opts ...Option) (*Terminfo, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.fromEnv()
	if o.log == nil {
		o.log = logger.Nop
	}

	t := &Terminfo{
		opts:  o,
		log:   o.log,
		cache: program.NewCache(o.log),
	}

	if o.capsPath != "" {
		tbl, err := caps.LoadFile(o.capsPath, o.log)
		if err != nil {
			t.log.Warn("cannot load translation table",
				"path", o.capsPath, "err", err)
		} else {
			t.tbl = tbl
		}
	}

	t.loadDatabase()
	t.loadStubs()
	return t, nil
}

// loadDatabase tries the three sources in precedence order: text file,
// text buffer, blob.
func (t *Terminfo) loadDatabase() {
	o := &t.opts
	if o.databasePath != "" {
		buf, err := os.ReadFile(o.databasePath)
		if err == nil {
			db, perr := source.Parse(buf, t.log)
			if perr == nil {
				t.db = db
				return
			}
			err = perr
		}
		t.log.Warn("cannot load text database",
			"path", o.databasePath, "err", err)
	}
	if o.databaseText != nil {
		db, err := source.Parse(o.databaseText, t.log)
		if err == nil {
			t.db = db
			return
		}
		t.log.Warn("cannot parse database buffer", "err", err)
	}
	if o.blobPath != "" {
		f, err := os.Open(o.blobPath)
		if err == nil {
			db, berr := database.ReadBlob(f)
			f.Close()
			if berr == nil {
				t.db = db
				return
			}
			err = berr
		}
		t.log.Warn("cannot load database blob",
			"path", o.blobPath, "err", err)
	}
}

func (t *Terminfo) loadStubs() {
	o := &t.opts
	if !o.cacheStubs {
		return
	}
	path, asText := o.stubsBinPath, false
	if o.stubsAsText {
		path, asText = o.stubsTxtPath, true
	}
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("cannot open stubs", "path", path, "err", err)
		}
		return
	}
	defer f.Close()
	if err := t.cache.ReadStubs(f, asText); err != nil {
		t.log.Warn("cannot load stubs", "path", path, "err", err)
	}
}

// SaveStubs persists the compiled-string cache to the configured stub
// file so a later run skips recompilation.
func (t *Terminfo) SaveStubs() error {
	o := &t.opts
	if !o.cacheStubs {
		return nil
	}
	path, asText := o.stubsBinPath, false
	if o.stubsAsText {
		path, asText = o.stubsTxtPath, true
	}
	if path == "" {
		return fmt.Errorf("no stub path configured")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.cache.WriteStubs(f, asText)
}

// Database exposes the loaded entry list, nil when unavailable. Useful
// for precompiling a blob with WriteBlob.
func (t *Terminfo) Database() *database.Database {
	return t.db
}

// SelectTerminal resolves name against the database and makes it the
// current terminal. An empty name selects the configured TERM. The
// optional fd overrides the descriptor used for output speed detection.
func (t *Terminfo) SelectTerminal(name string, fd ...uintptr) error {
	if t.db == nil {
		return ErrDatabaseUnavailable
	}
	if name == "" {
		name = t.opts.term
	}

	ospeed, baudrate := t.speeds(fd...)
	ent, err := resolve.Resolve(t.db, name, t.tbl, resolve.Options{
		Ospeed:   ospeed,
		Baudrate: baudrate,
		Logger:   t.log,
	})
	if err != nil {
		return err
	}
	t.cur = ent
	return nil
}

func (t *Terminfo) speeds(fd ...uintptr) (int, int) {
	o := &t.opts

	var ospeed int
	switch {
	case o.ospeed != nil:
		ospeed = *o.ospeed
	case len(fd) > 0:
		ospeed = speed.Ospeed(fd[0])
	default:
		ospeed = speed.Ospeed(o.fd)
	}

	if o.baudrate != nil {
		return ospeed, *o.baudrate
	}
	baudrate, ok := speed.Baudrate(ospeed)
	if !ok {
		t.log.Warn("unknown ospeed", "ospeed", ospeed)
		baudrate = 0
	}
	return ospeed, baudrate
}

// Tgetent is the termcap entry point: 1 on success, 0 when the terminal
// is not described, -1 when no database could be loaded.
func (t *Terminfo) Tgetent(name string) int {
	err := t.SelectTerminal(name)
	switch {
	case err == nil:
		return 1
	case errors.Is(err, ErrDatabaseUnavailable):
		return -1
	case errors.Is(err, resolve.ErrNotFound):
		return 0
	default:
		t.log.Warn("cannot select terminal", "name", name, "err", err)
		return 0
	}
}

// Tparm expands a parameterized capability string. Parameters are ints,
// strings or []byte. The compiled form is cached by the raw bytes of s;
// the current terminal's static bank persists across calls while the
// dynamic bank is reset per call.
func (t *Terminfo) Tparm(s string, params ...any) (string, error) {
	p, err := t.cache.Compile([]byte(s))
	if err != nil {
		return "", err
	}
	vals := make([]program.Value, len(params))
	for i, a := range params {
		switch v := a.(type) {
		case int:
			vals[i] = program.IntVal(v)
		case byte:
			vals[i] = program.IntVal(int(v))
		case rune:
			vals[i] = program.IntVal(int(v))
		case string:
			vals[i] = program.StrVal([]byte(v))
		case []byte:
			vals[i] = program.StrVal(v)
		default:
			return "", fmt.Errorf("unsupported parameter type %T", a)
		}
	}

	dyn, stat := t.banks()
	dyn.Reset()
	out, err := p.Run(vals, dyn, stat, t.log)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// banks returns the current entry's variable banks, or a scratch pair
// when no terminal is selected.
func (t *Terminfo) banks() (*program.Bank, *program.Bank) {
	if t.cur != nil {
		return &t.cur.Dynamic, &t.cur.Static
	}
	var scratch struct{ dyn, stat program.Bank }
	return &scratch.dyn, &scratch.stat
}

// Tgoto is the classic cursor-addressing entry point: the capability is
// expanded with the destination line first, and termcap style templates
// without %p directives consume the parameters in order.
func (t *Terminfo) Tgoto(s string, col, row int) string {
	out, err := t.Tparm(s, row, col)
	if err != nil {
		t.log.Warn("tgoto expansion failed", "err", err)
		return "OOPS"
	}
	return out
}
