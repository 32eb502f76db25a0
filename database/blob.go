package database

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/mitchellh/hashstructure/v2"
)

// The pre-parsed blob is a snappy block framing a gob stream of the entry
// list, prefixed by a fixed header carrying a format version and a
// structural fingerprint of the entries. The fingerprint lets the loader
// reject a blob that was produced by a different parse than the one it
// claims to be.

const blobVersion uint32 = 1

var blobMagic = [4]byte{'t', 'i', 'd', 'b'}

type blobHeader struct {
	Magic   [4]byte
	Version uint32
	Hash    uint64
}

// WriteBlob serializes the database so it can be reloaded with ReadBlob
// without re-parsing the source text.
func (d *Database) WriteBlob(w io.Writer) error {
	hash, err := hashstructure.Hash(d.Entries, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("fingerprint entries: %w", err)
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(d.Entries); err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	hdr := blobHeader{Magic: blobMagic, Version: blobVersion, Hash: hash}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err = w.Write(snappy.Encode(nil, payload.Bytes()))
	return err
}

// ReadBlob loads a database previously written with WriteBlob. The header
// fingerprint is recomputed over the decoded entries and must match.
func ReadBlob(r io.Reader) (*Database, error) {
	var hdr blobHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read blob header: %w", err)
	}
	if hdr.Magic != blobMagic {
		return nil, fmt.Errorf("not a terminfo blob")
	}
	if hdr.Version != blobVersion {
		return nil, fmt.Errorf("unsupported blob version %d", hdr.Version)
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress blob: %w", err)
	}
	var entries []*Entry
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	hash, err := hashstructure.Hash(entries, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, err
	}
	if hash != hdr.Hash {
		return nil, fmt.Errorf("blob fingerprint mismatch")
	}
	return &Database{Entries: entries}, nil
}
