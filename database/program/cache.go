package program

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/hnimtadd/terminfo/logger"
)

// Cache memoizes compiled capability strings by their raw source bytes.
// A cache belongs to one runtime; callers sharing a runtime across
// goroutines serialize externally.
type Cache struct {
	programs map[uint64]*Program
	sources  map[uint64][]byte
	log      logger.Logger
}

func NewCache(log logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop
	}
	return &Cache{
		programs: make(map[uint64]*Program),
		sources:  make(map[uint64][]byte),
		log:      log,
	}
}

// Compile returns the compiled form of src, reusing an earlier compile
// of the same bytes when present.
func (c *Cache) Compile(src []byte) (*Program, error) {
	key := xxhash.Sum64(src)
	if p, ok := c.programs[key]; ok {
		return p, nil
	}
	p, err := Compile(src, c.log)
	if err != nil {
		return nil, err
	}
	c.programs[key] = p
	c.sources[key] = append([]byte(nil), src...)
	return p, nil
}

func (c *Cache) Len() int {
	return len(c.programs)
}

// snapshot returns the cached sources in a stable order so the stub
// files are reproducible.
func (c *Cache) snapshot() [][]byte {
	srcs := make([][]byte, 0, len(c.sources))
	for _, s := range c.sources {
		srcs = append(srcs, s)
	}
	sort.Slice(srcs, func(i, j int) bool {
		return bytes.Compare(srcs[i], srcs[j]) < 0
	})
	return srcs
}

// WriteStubs persists the cached capability strings. The textual form is
// one quoted source per line; the binary form is a snappy framed gob of
// the source list. Either way the sources are recompiled on load, so the
// stub format never has to encode a Program.
func (c *Cache) WriteStubs(w io.Writer, asText bool) error {
	srcs := c.snapshot()
	if asText {
		bw := bufio.NewWriter(w)
		for _, s := range srcs {
			if _, err := fmt.Fprintf(bw, "%s\n", strconv.Quote(string(s))); err != nil {
				return err
			}
		}
		return bw.Flush()
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(srcs); err != nil {
		return fmt.Errorf("encode stubs: %w", err)
	}
	_, err := w.Write(snappy.Encode(nil, payload.Bytes()))
	return err
}

// ReadStubs pre-warms the cache from a stub file written by WriteStubs.
// A source that no longer compiles is warned about and skipped.
func (c *Cache) ReadStubs(r io.Reader, asText bool) error {
	var srcs [][]byte
	if asText {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			s, err := strconv.Unquote(line)
			if err != nil {
				return fmt.Errorf("bad stub line %q: %w", line, err)
			}
			srcs = append(srcs, []byte(s))
		}
		if err := sc.Err(); err != nil {
			return err
		}
	} else {
		compressed, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		payload, err := snappy.Decode(nil, compressed)
		if err != nil {
			return fmt.Errorf("decompress stubs: %w", err)
		}
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&srcs); err != nil {
			return fmt.Errorf("decode stubs: %w", err)
		}
	}
	for _, s := range srcs {
		if _, err := c.Compile(s); err != nil {
			c.log.Warn("stub no longer compiles", "source", string(s), "err", err)
		}
	}
	return nil
}
