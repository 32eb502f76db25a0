package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnimtadd/terminfo/database"
	"github.com/hnimtadd/terminfo/database/caps"
	"github.com/hnimtadd/terminfo/database/source"
)

const table = `
auto_right_margin	am	bool	am	-	-	YB	terminal has automatic margins
auto_left_margin	bw	bool	bw	-	-	YA	cub1 wraps
columns	cols	num	co	-	-	YC	number of columns
lines	lines	num	li	-	-	YD	number of lines
bell	bel	str	bl	-	-	-	audible signal
cursor_up	cuu1	str	up	-	-	-	up one line
pad_char	pad	str	pc	-	-	-	pad character
backspace_if_not_bs	OTbc	str	bc	-	-	-	backspace if not ^H
`

const catalog = `base|the base entry,
	am, bw,
	cols#80, lines#24,
	bel=^G, cuu1=\E[A, pad=\0,

child|inherits from base,
	bw@,
	lines#50,
	.bel=commented out,
	use=base,

shadow|first definition wins,
	cols#10, cols#20,
	use=base,

loop-a|half of a cycle,
	use=loop-b,

loop-b|other half,
	use=loop-a,

dangling|references nothing,
	use=no-such-entry,

mistyped|capability kind fights the table,
	bel#7,
`

func fixtures(t *testing.T) (*caps.Table, *database.Database) {
	t.Helper()
	tbl, err := caps.Load(strings.NewReader(table), nil)
	require.NoError(t, err)
	db, err := source.ParseString(catalog, nil)
	require.NoError(t, err)
	return tbl, db
}

func TestResolveInheritance(t *testing.T) {
	tbl, db := fixtures(t)

	e, err := Resolve(db, "child", tbl, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"child"}, e.Names)
	assert.Equal(t, "inherits from base", e.Longname)

	// inherited flag
	require.Contains(t, e.Terminfo, "am")
	assert.True(t, e.Terminfo["am"].Bool)

	// local definition shadows the inherited one
	assert.Equal(t, 50, e.Terminfo["lines"].Num)
	assert.Equal(t, 80, e.Terminfo["cols"].Num)

	// the cancellation suppresses the inherited bw everywhere
	_, cancelled := e.Cancelled["bw"]
	assert.True(t, cancelled)
	assert.NotContains(t, e.Terminfo, "bw")
	assert.NotContains(t, e.Termcap, "bw")
	assert.NotContains(t, e.Variable, "auto_left_margin")

	// source level comments never resolve
	assert.NotContains(t, e.Terminfo, ".bel")

	// the use marker itself is consumed
	assert.NotContains(t, e.Terminfo, "use")

	// all three indexes point at the same capability
	assert.Same(t, e.Terminfo["bel"], e.Termcap["bl"])
	assert.Same(t, e.Terminfo["bel"], e.Variable["bell"])
}

func TestResolveFirstDefinitionWins(t *testing.T) {
	tbl, db := fixtures(t)
	e, err := Resolve(db, "shadow", tbl, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, e.Terminfo["cols"].Num)
}

func TestResolveFailureModes(t *testing.T) {
	tbl, db := fixtures(t)

	_, err := Resolve(db, "no-such", tbl, Options{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(db, "dangling", tbl, Options{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(db, "loop-a", tbl, Options{})
	assert.ErrorIs(t, err, ErrCycle)
}

func TestResolveTypeMismatchSkipsMapping(t *testing.T) {
	tbl, db := fixtures(t)
	e, err := Resolve(db, "mistyped", tbl, Options{})
	require.NoError(t, err)

	// the capability stays visible under its terminfo name but the
	// termcap/variable mappings are skipped
	require.Contains(t, e.Terminfo, "bel")
	assert.NotContains(t, e.Termcap, "bl")
	assert.NotContains(t, e.Variable, "bell")
}

func TestResolvePseudoVariables(t *testing.T) {
	tbl, db := fixtures(t)
	e, err := Resolve(db, "base", tbl, Options{Ospeed: 13, Baudrate: 9600})
	require.NoError(t, err)

	require.Contains(t, e.Variable, "PC")
	assert.Equal(t, []byte(`\0`), e.Variable["PC"].Str)
	require.Contains(t, e.Variable, "UP")
	assert.Equal(t, []byte(`\E[A`), e.Variable["UP"].Str)
	// base has no backspace capability
	assert.NotContains(t, e.Variable, "BC")

	assert.Equal(t, 13, e.Variable["ospeed"].Num)
	assert.Equal(t, 9600, e.Variable["baudrate"].Num)
}

func TestResolveUntranslatedStaysInTerminfoIndex(t *testing.T) {
	db, err := source.ParseString("x|test,\n\tmystery=zz,\n", nil)
	require.NoError(t, err)
	tbl, err := caps.Load(strings.NewReader(table), nil)
	require.NoError(t, err)

	e, err := Resolve(db, "x", tbl, Options{})
	require.NoError(t, err)
	require.Contains(t, e.Terminfo, "mystery")
	assert.NotContains(t, e.Variable, "mystery")
}
