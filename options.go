package terminfo

import (
	"os"
	"strconv"
	"time"

	"github.com/hnimtadd/terminfo/logger"
)

// Environment variables recognized by New. An explicit option of the
// same meaning always wins over the variable.
const (
	EnvFile            = "MARPAX_DATABASE_TERMINFO_FILE"
	EnvText            = "MARPAX_DATABASE_TERMINFO_TXT"
	EnvBlob            = "MARPAX_DATABASE_TERMINFO_BIN"
	EnvCaps            = "MARPAX_DATABASE_TERMINFO_CAPS"
	EnvStubsTxt        = "MARPAX_DATABASE_TERMINFO_STUBS_TXT"
	EnvStubsBin        = "MARPAX_DATABASE_TERMINFO_STUBS_BIN"
	EnvCacheStubs      = "MARPAX_DATABASE_TERMINFO_CACHE_STUBS"
	EnvCacheStubsAsTxt = "MARPAX_DATABASE_TERMINFO_CACHE_STUBS_AS_TXT"
	EnvTerm            = "TERM"
	EnvOspeed          = "TERMINFO_OSPEED"
	EnvBaudrate        = "TERMINFO_BAUDRATE"
)

type options struct {
	databasePath string
	databaseText []byte
	blobPath     string
	capsPath     string

	term     string
	ospeed   *int
	baudrate *int

	fd    uintptr
	hasFd bool

	stubsTxtPath string
	stubsBinPath string
	cacheStubs   bool
	stubsAsText  bool

	log   logger.Logger
	delay func(time.Duration)
}

type Option func(*options)

// WithDatabasePath points at a parseable text database. Highest
// precedence of the three database sources.
func WithDatabasePath(path string) Option {
	return func(o *options) { o.databasePath = path }
}

// WithDatabaseText supplies the database as an in-memory buffer.
func WithDatabaseText(text string) Option {
	return func(o *options) { o.databaseText = []byte(text) }
}

// WithDatabaseBlob points at a pre-parsed blob written by
// Database.WriteBlob. Lowest precedence.
func WithDatabaseBlob(path string) Option {
	return func(o *options) { o.blobPath = path }
}

// WithCapsPath points at the capability translation table.
func WithCapsPath(path string) Option {
	return func(o *options) { o.capsPath = path }
}

// WithTerm sets the terminal selected when Tgetent is given an empty
// name.
func WithTerm(term string) Option {
	return func(o *options) { o.term = term }
}

// WithOspeed pins the encoded output speed instead of querying the
// terminal.
func WithOspeed(ospeed int) Option {
	return func(o *options) { o.ospeed = &ospeed }
}

// WithBaudrate pins the raw baud rate, bypassing the ospeed table.
func WithBaudrate(baudrate int) Option {
	return func(o *options) { o.baudrate = &baudrate }
}

// WithFd names the descriptor whose termios settings supply ospeed.
// Standard input is the default.
func WithFd(fd uintptr) Option {
	return func(o *options) { o.fd = fd; o.hasFd = true }
}

// WithStubs configures the compiled-string cache files and turns
// persistence on.
func WithStubs(txtPath, binPath string, asText bool) Option {
	return func(o *options) {
		o.stubsTxtPath = txtPath
		o.stubsBinPath = binPath
		o.stubsAsText = asText
		o.cacheStubs = true
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithDelay replaces the sleep used for padding on terminals without a
// pad character. Schedulers that cannot block supply their own.
func WithDelay(fn func(time.Duration)) Option {
	return func(o *options) { o.delay = fn }
}

func defaultOptions() options {
	return options{
		fd:    os.Stdin.Fd(),
		log:   logger.Nop,
		delay: time.Sleep,
	}
}

// fromEnv fills every field the caller left unset from the environment.
func (o *options) fromEnv() {
	if o.databasePath == "" {
		o.databasePath = os.Getenv(EnvFile)
	}
	if o.databaseText == nil {
		if txt := os.Getenv(EnvText); txt != "" {
			o.databaseText = []byte(txt)
		}
	}
	if o.blobPath == "" {
		o.blobPath = os.Getenv(EnvBlob)
	}
	if o.capsPath == "" {
		o.capsPath = os.Getenv(EnvCaps)
	}
	if o.term == "" {
		o.term = os.Getenv(EnvTerm)
	}
	if o.term == "" {
		o.term = "unknown"
	}
	if o.ospeed == nil {
		if v, err := strconv.Atoi(os.Getenv(EnvOspeed)); err == nil {
			o.ospeed = &v
		}
	}
	if o.baudrate == nil {
		if v, err := strconv.Atoi(os.Getenv(EnvBaudrate)); err == nil {
			o.baudrate = &v
		}
	}
	if o.stubsTxtPath == "" {
		o.stubsTxtPath = os.Getenv(EnvStubsTxt)
	}
	if o.stubsBinPath == "" {
		o.stubsBinPath = os.Getenv(EnvStubsBin)
	}
	if !o.cacheStubs {
		if v, err := strconv.ParseBool(os.Getenv(EnvCacheStubs)); err == nil {
			o.cacheStubs = v
		}
	}
	if !o.stubsAsText {
		if v, err := strconv.ParseBool(os.Getenv(EnvCacheStubsAsTxt)); err == nil {
			o.stubsAsText = v
		}
	}
}
