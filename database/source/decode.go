package source

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// normalize decodes the raw buffer to UTF-8 before lexing, tolerating a
// byte order mark and UTF-16 encoded catalogs.
func normalize(buf []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, buf)
	return out, err
}
