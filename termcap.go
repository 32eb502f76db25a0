package terminfo

import "github.com/hnimtadd/terminfo/database"

// Area is the classic tgetstr output area: a buffer plus a write
// cursor. Returned strings are spliced in at the cursor, which then
// advances past them.
type Area struct {
	Buf []byte
	Pos int
}

func (a *Area) insert(s []byte) {
	tail := append([]byte(nil), a.Buf[a.Pos:]...)
	a.Buf = append(a.Buf[:a.Pos], s...)
	a.Buf = append(a.Buf, tail...)
	a.Pos += len(s)
}

func (t *Terminfo) termcap(id string, kind database.Kind) *database.Cap {
	if t.cur == nil {
		return nil
	}
	c, ok := t.cur.Termcap[id]
	if !ok || c.Kind != kind {
		return nil
	}
	return c
}

// Tgetflag reports a boolean capability by its termcap name. Absent,
// cancelled or differently typed names are simply false.
func (t *Terminfo) Tgetflag(id string) bool {
	c := t.termcap(id, database.Boolean)
	return c != nil && c.Bool
}

// Tgetnum returns a numeric capability by its termcap name, -1 when it
// is absent or not numeric.
func (t *Terminfo) Tgetnum(id string) int {
	c := t.termcap(id, database.Numeric)
	if c == nil {
		return -1
	}
	return c.Num
}

// Tgetstr returns the raw value of a string capability by its termcap
// name, "" when absent. Escapes are not expanded; that is Tparm's job.
// When area is non-nil the value is also spliced in at the area cursor.
func (t *Terminfo) Tgetstr(id string, area *Area) string {
	c := t.termcap(id, database.String)
	if c == nil {
		return ""
	}
	if area != nil {
		area.insert(c.Str)
	}
	return string(c.Str)
}
