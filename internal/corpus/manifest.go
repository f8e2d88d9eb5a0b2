package corpus

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ManifestEntry is the YAML form of an Entry. Data is stored as Text when it
// is valid UTF-8 and as Base64 otherwise; exactly one of them is set.
type ManifestEntry struct {
	Name   string    `yaml:"name"`
	Text   *string   `yaml:"text,omitempty"`
	Base64 string    `yaml:"base64,omitempty"`
	Note   string    `yaml:"note,omitempty"`
	Added  time.Time `yaml:"added,omitempty"`
	Sum    string    `yaml:"sum"`
}

// Manifest is a human-editable corpus listing.
type Manifest struct {
	Entries []ManifestEntry `yaml:"entries"`
}

// ErrBadManifest reports an entry that cannot be turned back into data.
var ErrBadManifest = errors.New("corpus: bad manifest entry")

// Manifest returns the entries in insertion order.
func (c *Corpus) Manifest() Manifest {
	m := Manifest{Entries: make([]ManifestEntry, 0, len(c.entries))}
	for _, e := range c.entries {
		me := ManifestEntry{
			Name:  e.Name,
			Note:  e.Note,
			Added: e.Added,
			Sum:   fmt.Sprintf("%08x", e.Sum),
		}
		if utf8.Valid(e.Data) {
			text := string(e.Data)
			me.Text = &text
		} else {
			me.Base64 = base64.StdEncoding.EncodeToString(e.Data)
		}
		m.Entries = append(m.Entries, me)
	}
	return m
}

// ExportYAML writes the manifest to w.
func (c *Corpus) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Manifest()); err != nil {
		return fmt.Errorf("corpus: yaml encode: %w", err)
	}
	return enc.Close()
}

// ImportYAML adds every manifest entry read from r. Sums in the manifest are
// informational; they are recomputed from the data.
func (c *Corpus) ImportYAML(r io.Reader) (int, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("corpus: yaml decode: %w", err)
	}
	for i, me := range m.Entries {
		var data []byte
		switch {
		case me.Text != nil && me.Base64 != "":
			return i, fmt.Errorf("%w: %q has both text and base64", ErrBadManifest, me.Name)
		case me.Text != nil:
			data = []byte(*me.Text)
		default:
			var err error
			if data, err = base64.StdEncoding.DecodeString(me.Base64); err != nil {
				return i, fmt.Errorf("%w: %q: %w", ErrBadManifest, me.Name, err)
			}
		}
		if err := c.Add(Entry{Name: me.Name, Data: data, Note: me.Note, Added: me.Added}); err != nil {
			return i, err
		}
	}
	return len(m.Entries), nil
}
