package terminfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCaps = `
# variable	terminfo	type	termcap	keyname	keyvalue	translation	description
auto_right_margin	am	bool	am	-	-	YB	terminal has automatic margins
auto_left_margin	bw	bool	bw	-	-	YA	cub1 wraps from column 0
no_pad_char	npc	bool	NP	-	-	-	pad character does not exist
columns	cols	num	co	-	-	YC	number of columns in a line
width_status_line	wsl	num	ws	-	-	-	number of columns in status line
bell	bel	str	bl	-	-	-	audible signal
carriage_return	cr	str	cr	-	-	-	carriage return
cursor_address	cup	str	cm	-	-	-	move to row #1 columns #2
cursor_down	cud1	str	do	-	-	-	down one line
cursor_up	cuu1	str	up	-	-	-	up one line
from_status_line	fsl	str	fs	-	-	-	return from status line
to_status_line	tsl	str	ts	-	-	-	move to status line
scroll_forward	ind	str	sf	-	-	-	scroll forward
pad_char	pad	str	pc	-	-	-	padding char
backspace_if_not_bs	OTbc	str	bc	-	-	-	move left, if not ^H
`

const testSource = `# test catalog
dumb|80-column dumb tty,
	am,
	cols#80,
	bel=^G, cr=\r, cud1=\n, ind=\n,

nsterm-base|AppKit Terminal.app base,
	am, bw,
	cols#80,
	cup=\E[%i%p1%d;%p2%dH,

nsterm-16color|AppKit Terminal.app v41+ with 16 colors,
	bw@,
	wsl#50,
	fsl=^G, tsl=\E]2;,
	use=nsterm-base,

ibcs2|Intel Binary Compatibility Standard 2,
	cols#80,
	cup=\E[%i%p1%d;%p2%dH,

dm2500|datamedia 2500,
	cols#80,
	pad=\377,
	cup=\014%p2%{96}%^%c%p1%{96}%^%c,
`

func newTestRuntime(t *testing.T, opts ...Option) *Terminfo {
	t.Helper()
	capsPath := filepath.Join(t.TempDir(), "caps")
	require.NoError(t, os.WriteFile(capsPath, []byte(testCaps), 0o644))
	all := append([]Option{
		WithDatabaseText(testSource),
		WithCapsPath(capsPath),
	}, opts...)
	ti, err := New(all...)
	require.NoError(t, err)
	return ti
}

func TestTgetentResultCodes(t *testing.T) {
	ti := newTestRuntime(t)
	assert.Equal(t, 1, ti.Tgetent("dumb"))
	assert.Equal(t, 0, ti.Tgetent("no-such-terminal"))

	empty, err := New()
	require.NoError(t, err)
	empty.db = nil
	assert.Equal(t, -1, empty.Tgetent("dumb"))
}

func TestDumbBellAsTermcap(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("dumb"))

	area := &Area{}
	got := ti.Tgetstr("bl", area)
	assert.Equal(t, "^G", got)
	assert.Equal(t, []byte("^G"), area.Buf)
	assert.Equal(t, 2, area.Pos)

	// a second insert advances past the first
	ti.Tgetstr("cr", area)
	assert.Equal(t, []byte(`^G\r`), area.Buf)
	assert.Equal(t, 4, area.Pos)
}

func TestDumbColumns(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("dumb"))
	assert.Equal(t, 80, ti.Tgetnum("co"))
	assert.Equal(t, -1, ti.Tgetnum("ws"))
	assert.True(t, ti.Tgetflag("am"))
	assert.False(t, ti.Tgetflag("bw"))

	// the termcap and terminfo indexes answer from the same capability
	assert.Equal(t, ti.Tigetnum("cols"), ti.Tgetnum("co"))
	bel, _ := ti.Tigetstr("bel")
	assert.Equal(t, bel, ti.Tgetstr("bl", nil))
}

func TestNstermTriStates(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("nsterm-16color"))

	assert.Equal(t, 1, ti.Tigetflag("am"))
	assert.Equal(t, -1, ti.Tigetflag("cols"))
	assert.Equal(t, 0, ti.Tigetflag("absentcap"))
	assert.Equal(t, 0, ti.Tigetflag("bw")) // cancelled

	assert.Equal(t, 50, ti.Tigetnum("wsl"))
	assert.Equal(t, -2, ti.Tigetnum("fsl"))
	assert.Equal(t, -1, ti.Tigetnum("absentcap"))
	assert.Equal(t, -1, ti.Tigetnum("bw")) // cancelled

	fsl, status := ti.Tigetstr("fsl")
	assert.Equal(t, 1, status)
	assert.Equal(t, "^G", fsl)

	_, status = ti.Tigetstr("absentcap")
	assert.Equal(t, 0, status)
	_, status = ti.Tigetstr("wsl")
	assert.Equal(t, -1, status)
}

func TestCursorAddressExpansion(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("ibcs2"))

	cup, status := ti.Tigetstr("cup")
	require.Equal(t, 1, status)

	got, err := ti.Tparm(cup, 18, 40)
	require.NoError(t, err)
	assert.Equal(t, "\x1b[19;41H", got)
}

func TestPaddingWithoutPadChar(t *testing.T) {
	var slept []time.Duration
	ti := newTestRuntime(t, WithDelay(func(d time.Duration) {
		slept = append(slept, d)
	}))
	require.Equal(t, 1, ti.Tgetent("ibcs2"))

	cup, _ := ti.Tigetstr("cup")
	expanded, err := ti.Tparm(cup, 18, 40)
	require.NoError(t, err)

	var out []byte
	require.NoError(t, ti.Tputs(expanded+"$<1000>", 1, func(b byte) {
		out = append(out, b)
	}))

	// ibcs2 has no pad character, so the delay is a real sleep followed
	// by the end-of-delay marker
	assert.Equal(t, []byte{
		0x1B, 0x5B, 0x31, 0x39, 0x3B, 0x34, 0x31, 0x48, 0x00,
	}, out)
	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestPaddingWithPadChar(t *testing.T) {
	flushed := 0
	ti := newTestRuntime(t, WithBaudrate(45000))
	ti.Flush(func() { flushed++ })
	require.Equal(t, 1, ti.Tgetent("dm2500"))

	cup, status := ti.Tigetstr("cup")
	require.Equal(t, 1, status)
	expanded, err := ti.Tparm(cup, 18, 40)
	require.NoError(t, err)
	assert.Equal(t, "\x0CHr", expanded)

	var out []byte
	require.NoError(t, ti.Tputs(expanded+"$<1>", 1, func(b byte) {
		out = append(out, b)
	}))

	// 1ms at 45000 baud and 9 bits per byte is five pad characters
	assert.Equal(t, []byte{
		0x0C, 0x48, 0x72, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00,
	}, out)
	assert.Equal(t, 1, flushed)
}

func TestPaddingProportional(t *testing.T) {
	ti := newTestRuntime(t, WithBaudrate(45000))
	require.Equal(t, 1, ti.Tgetent("dm2500"))

	var out []byte
	require.NoError(t, ti.Tputs("$<1*>", 4, func(b byte) {
		out = append(out, b)
	}))
	// four affected lines scale the delay to 4ms: twenty pad bytes
	assert.Len(t, out, 21)
}

func TestMalformedPaddingSkipped(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("dumb"))

	var out []byte
	require.NoError(t, ti.Tputs("a$<oops>b", 1, func(b byte) {
		out = append(out, b)
	}))
	assert.Equal(t, []byte("ab"), out)
}

func TestVariableGetters(t *testing.T) {
	ti := newTestRuntime(t, WithOspeed(13))
	require.Equal(t, 1, ti.Tgetent("dm2500"))

	pc, status := ti.StrVariable("PC")
	assert.Equal(t, 1, status)
	assert.Equal(t, `\377`, pc)

	assert.Equal(t, 13, ti.NumVariable("ospeed"))
	assert.Equal(t, 9600, ti.NumVariable("baudrate"))
	assert.Equal(t, -1, ti.NumVariable("UP"))
	_, status = ti.StrVariable("UP")
	assert.Equal(t, 0, status) // dm2500 defines no cursor up
}

func TestTgoto(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("ibcs2"))

	cup, _ := ti.Tigetstr("cup")
	assert.Equal(t, "\x1b[19;41H", ti.Tgoto(cup, 40, 18))

	// termcap style capability without %p directives: parameters are
	// consumed in order, line first
	assert.Equal(t, "\x1b[18;40H", ti.Tgoto(`\E[%d;%dH`, 40, 18))
}

func TestStaticBankPersistsAcrossExpansions(t *testing.T) {
	ti := newTestRuntime(t)
	require.Equal(t, 1, ti.Tgetent("dumb"))

	_, err := ti.Tparm(`%p1%PA`, 7)
	require.NoError(t, err)
	got, err := ti.Tparm(`%gA%d`)
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	// selecting a terminal again resets the bank
	require.Equal(t, 1, ti.Tgetent("dumb"))
	got, err = ti.Tparm(`%gA%d`)
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestBlobPrecedenceAndLoading(t *testing.T) {
	dir := t.TempDir()
	ti := newTestRuntime(t)
	require.NotNil(t, ti.Database())

	blobPath := filepath.Join(dir, "terminfo.bin")
	f, err := os.Create(blobPath)
	require.NoError(t, err)
	require.NoError(t, ti.Database().WriteBlob(f))
	require.NoError(t, f.Close())

	capsPath := filepath.Join(dir, "caps")
	require.NoError(t, os.WriteFile(capsPath, []byte(testCaps), 0o644))

	fromBlob, err := New(WithDatabaseBlob(blobPath), WithCapsPath(capsPath))
	require.NoError(t, err)
	require.Equal(t, 1, fromBlob.Tgetent("dumb"))
	assert.Equal(t, 80, fromBlob.Tgetnum("co"))

	// the text buffer outranks the blob
	mixed, err := New(
		WithDatabaseText("tiny|just one,\n\tcols#12,\n"),
		WithDatabaseBlob(blobPath),
		WithCapsPath(capsPath),
	)
	require.NoError(t, err)
	assert.Equal(t, 0, mixed.Tgetent("dumb"))
	require.Equal(t, 1, mixed.Tgetent("tiny"))
	assert.Equal(t, 12, mixed.Tgetnum("co"))
}

func TestEnvironmentConfiguration(t *testing.T) {
	capsPath := filepath.Join(t.TempDir(), "caps")
	require.NoError(t, os.WriteFile(capsPath, []byte(testCaps), 0o644))
	t.Setenv(EnvText, testSource)
	t.Setenv(EnvCaps, capsPath)
	t.Setenv(EnvTerm, "dumb")
	t.Setenv(EnvOspeed, "13")

	ti, err := New()
	require.NoError(t, err)

	// an empty name falls back to TERM
	require.Equal(t, 1, ti.Tgetent(""))
	assert.Equal(t, 80, ti.Tgetnum("co"))
	assert.Equal(t, 13, ti.NumVariable("ospeed"))
	assert.Equal(t, 9600, ti.NumVariable("baudrate"))

	// a raw baudrate override bypasses the ospeed table
	t.Setenv(EnvBaudrate, "1200")
	over, err := New()
	require.NoError(t, err)
	require.Equal(t, 1, over.Tgetent("dumb"))
	assert.Equal(t, 1200, over.NumVariable("baudrate"))
}

func TestStubsPersistence(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "stubs.txt")
	bin := filepath.Join(dir, "stubs.bin")

	ti := newTestRuntime(t, WithStubs(txt, bin, true))
	require.Equal(t, 1, ti.Tgetent("ibcs2"))
	cup, _ := ti.Tigetstr("cup")
	_, err := ti.Tparm(cup, 1, 2)
	require.NoError(t, err)
	require.NoError(t, ti.SaveStubs())

	warm := newTestRuntime(t, WithStubs(txt, bin, true))
	assert.Equal(t, 1, warm.cache.Len())
}
