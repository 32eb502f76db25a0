package terminfo

import "github.com/hnimtadd/terminfo/database"

// The terminfo-facing getters keep the classic tri-state sentinels.

// Tigetflag returns 1 for a set flag, 0 when the name is absent or
// cancelled, -1 when the name exists with a different type.
func (t *Terminfo) Tigetflag(id string) int {
	return flagOf(t.index(), id)
}

// Tigetnum returns the value of a numeric capability, -1 when absent or
// cancelled, -2 when the name exists with a different type.
func (t *Terminfo) Tigetnum(id string) int {
	return numOf(t.index(), id)
}

// Tigetstr returns the raw value of a string capability plus a status:
// 1 found, 0 absent, -1 wrong type.
func (t *Terminfo) Tigetstr(id string) (string, int) {
	return strOf(t.index(), id)
}

// FlagVariable, NumVariable and StrVariable are the same tri-state
// getters over the variable index, which also carries the synthetic
// names PC, UP, BC, ospeed and baudrate.

func (t *Terminfo) FlagVariable(id string) int {
	return flagOf(t.variables(), id)
}

func (t *Terminfo) NumVariable(id string) int {
	return numOf(t.variables(), id)
}

func (t *Terminfo) StrVariable(id string) (string, int) {
	return strOf(t.variables(), id)
}

func (t *Terminfo) index() map[string]*database.Cap {
	if t.cur == nil {
		return nil
	}
	return t.cur.Terminfo
}

func (t *Terminfo) variables() map[string]*database.Cap {
	if t.cur == nil {
		return nil
	}
	return t.cur.Variable
}

func flagOf(m map[string]*database.Cap, id string) int {
	c, ok := m[id]
	if !ok {
		return 0
	}
	if c.Kind != database.Boolean {
		return -1
	}
	if c.Bool {
		return 1
	}
	return 0
}

func numOf(m map[string]*database.Cap, id string) int {
	c, ok := m[id]
	if !ok {
		return -1
	}
	if c.Kind != database.Numeric {
		return -2
	}
	return c.Num
}

func strOf(m map[string]*database.Cap, id string) (string, int) {
	c, ok := m[id]
	if !ok {
		return "", 0
	}
	if c.Kind != database.String {
		return "", -1
	}
	return string(c.Str), 1
}
