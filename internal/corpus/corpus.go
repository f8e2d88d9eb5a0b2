// Package corpus stores named byte inputs for the buffer and parser: fuzz
// seeds, regression inputs and hand-written cases. A corpus is persisted as a
// single snappy-compressed msgpack file; every entry carries a murmur3
// checksum of its data that Load verifies.
package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// MaxEntrySize bounds a single entry, matching the fuzz harness input cap.
const MaxEntrySize = 64 << 10 // 64 KiB

var (
	ErrEmptyName     = errors.New("corpus: entry name is empty")
	ErrEntryTooLarge = errors.New("corpus: entry too large")
)

// Entry is one stored input.
type Entry struct {
	Name  string    `msgpack:"name"`
	Data  []byte    `msgpack:"data"`
	Note  string    `msgpack:"note,omitempty"`
	Added time.Time `msgpack:"added"`
	Sum   uint32    `msgpack:"sum"` // murmur3 of Data, set by Add
}

// Checksum returns the murmur3 hash stored in Entry.Sum.
func Checksum(data []byte) uint32 {
	return murmur3.Sum32(data)
}

// Corpus is an ordered set of entries keyed by name.
// It is not safe for concurrent mutation.
type Corpus struct {
	entries []Entry
	index   map[string]int // name -> position in entries
}

// New returns an empty corpus.
func New() *Corpus {
	return &Corpus{index: make(map[string]int)}
}

// Add stores e, replacing an existing entry with the same name in place.
// Data is copied; a nil Data is stored as an empty input.
func (c *Corpus) Add(e Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return ErrEmptyName
	}
	if len(e.Data) > MaxEntrySize {
		return fmt.Errorf("%w: %q is %d bytes (max %d)", ErrEntryTooLarge, e.Name, len(e.Data), MaxEntrySize)
	}
	e.Data = append([]byte{}, e.Data...)
	e.Sum = Checksum(e.Data)
	if e.Added.IsZero() {
		e.Added = time.Now().UTC()
	}
	if i, ok := c.index[e.Name]; ok {
		c.entries[i] = e
		return nil
	}
	c.index[e.Name] = len(c.entries)
	c.entries = append(c.entries, e)
	return nil
}

// Get looks an entry up by name.
func (c *Corpus) Get(name string) (Entry, bool) {
	i, ok := c.index[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Remove deletes the named entry and reports whether it existed.
func (c *Corpus) Remove(name string) bool {
	i, ok := c.index[name]
	if !ok {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, name)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].Name] = j
	}
	return true
}

// Entries returns the entries in insertion order. The slice is a copy; the
// Data slices are shared.
func (c *Corpus) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the entry names sorted lexically.
func (c *Corpus) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}
