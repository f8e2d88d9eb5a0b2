package fuzztests

import (
	"os"
	"path/filepath"
	"testing"

	"mocklib/internal/corpus"
)

const (
	maxFuzzInput = 1 << 16 // 64 KiB
	maxSeedBytes = 64 << 10
)

// builtinSeeds covers the cases the harnesses must always see.
var builtinSeeds = [][]byte{
	{},
	[]byte("hello"),
	[]byte("Hello World"),
	[]byte("a"),
	[]byte(" ~"),
	{0x01},
	{0x7f},
	[]byte("mixed\x00nul"),
	[]byte("0123456789abcdefghijklmnopqrstuvwxyz"),
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range builtinSeeds {
		f.Add(s)
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds feeds testdata/seeds through the corpus importer, the
// same path `mocklib corpus import` uses.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata", "seeds")
	if _, err := os.Stat(root); err != nil {
		return
	}
	c := corpus.New()
	if _, err := c.ImportDir(root); err != nil {
		f.Fatalf("import seeds: %v", err)
	}
	for _, e := range c.Entries() {
		f.Add(clamp(e.Data, maxSeedBytes))
	}
}

// clamp copies at most limit bytes of src so the harness owns its input.
func clamp(src []byte, limit int) []byte {
	if len(src) > limit {
		src = src[:limit]
	}
	return append([]byte(nil), src...)
}
