package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the file layout changes.
const schemaVersion uint16 = 2

// fileMagic prefixes every corpus file.
var fileMagic = []byte("MLCP")

var (
	// ErrSchemaMismatch reports a corpus file written by an incompatible version.
	ErrSchemaMismatch = errors.New("corpus: schema mismatch")
	// ErrNotCorpus reports a file without the corpus header.
	ErrNotCorpus = errors.New("corpus: not a corpus file")
	// ErrChecksum reports an entry whose data does not match its stored sum.
	ErrChecksum = errors.New("corpus: checksum mismatch")
)

type filePayload struct {
	Schema  uint16  `msgpack:"schema"`
	Count   uint32  `msgpack:"count"`
	Entries []Entry `msgpack:"entries"`
}

// Save writes the corpus to path atomically (temp file + rename).
func (c *Corpus) Save(path string) error {
	count, err := safecast.Conv[uint32](len(c.entries))
	if err != nil {
		return fmt.Errorf("corpus: entry count overflow: %w", err)
	}
	raw, err := msgpack.Marshal(&filePayload{Schema: schemaVersion, Count: count, Entries: c.entries})
	if err != nil {
		return fmt.Errorf("corpus: encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".corpus-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	// после успешного Rename удалять уже нечего
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(fileMagic); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(snappy.Encode(nil, raw)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a corpus written by Save. A missing file yields an error
// matching os.ErrNotExist.
func Load(path string) (*Corpus, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, fileMagic) {
		return nil, fmt.Errorf("%w: %s", ErrNotCorpus, path)
	}
	raw, err := snappy.Decode(nil, data[len(fileMagic):])
	if err != nil {
		return nil, fmt.Errorf("corpus: decompress %s: %w", path, err)
	}

	var payload filePayload
	if err := msgpack.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("corpus: decode %s: %w", path, err)
	}
	if payload.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: %s has schema %d, want %d", ErrSchemaMismatch, path, payload.Schema, schemaVersion)
	}
	n, err := safecast.Conv[int](payload.Count)
	if err != nil || n != len(payload.Entries) {
		return nil, fmt.Errorf("corpus: %s declares %d entries, found %d", path, payload.Count, len(payload.Entries))
	}

	c := New()
	for _, e := range payload.Entries {
		if sum := Checksum(e.Data); sum != e.Sum {
			return nil, fmt.Errorf("%w: %s entry %q has %08x, stored %08x", ErrChecksum, path, e.Name, sum, e.Sum)
		}
		if err := c.Add(e); err != nil {
			return nil, fmt.Errorf("corpus: %s: %w", path, err)
		}
	}
	return c, nil
}

// LoadOrNew behaves like Load but returns an empty corpus for a missing file.
func LoadOrNew(path string) (*Corpus, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return c, err
}

// ImportDir adds every regular file under dir as an entry named by its
// slash-separated path relative to dir. A file larger than MaxEntrySize
// stops the import with ErrEntryTooLarge; entries added before it stay.
// It returns the number of files imported.
func (c *Corpus) ImportDir(dir string) (int, error) {
	imported := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// #nosec G304 -- path comes from walking a caller-provided directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := c.Add(Entry{Name: filepath.ToSlash(rel), Data: data, Note: "imported"}); err != nil {
			return err
		}
		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("corpus: import %s: %w", dir, err)
	}
	return imported, nil
}
