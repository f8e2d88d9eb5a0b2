// Package config loads mocklib.toml, the optional settings file for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"mocklib/internal/trace"
)

// FileName is the settings file looked up from the working directory upward.
const FileName = "mocklib.toml"

// Config is the decoded settings file.
type Config struct {
	Buffer BufferConfig `toml:"buffer"`
	Replay ReplayConfig `toml:"replay"`
	Trace  TraceConfig  `toml:"trace"`
	Corpus CorpusConfig `toml:"corpus"`

	// Path is where the config was read from; empty for defaults.
	Path string `toml:"-"`
}

// BufferConfig limits the allocator shared by buffers and parsers.
type BufferConfig struct {
	// MaxBytes caps outstanding bytes; 0 means unlimited.
	MaxBytes int `toml:"max_bytes"`
}

// ReplayConfig tunes corpus replay.
type ReplayConfig struct {
	Jobs int    `toml:"jobs"`
	UI   string `toml:"ui"`
}

// TraceConfig selects the tracer built by the CLI.
type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// CorpusConfig names the default corpus file.
type CorpusConfig struct {
	Path string `toml:"path"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Replay: ReplayConfig{UI: "auto"},
		Trace:  TraceConfig{Level: "off", Mode: "stream", Output: "-", Format: "auto"},
		Corpus: CorpusConfig{Path: "corpus.mp"},
	}
}

// Find walks from startDir up to the filesystem root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest mocklib.toml above startDir, or defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes path on top of Default and validates the result.
// Relative corpus paths are resolved against the config file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("corpus", "path") && !filepath.IsAbs(cfg.Corpus.Path) {
		cfg.Corpus.Path = filepath.Join(filepath.Dir(path), cfg.Corpus.Path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Buffer.MaxBytes < 0 {
		return fmt.Errorf("[buffer].max_bytes must be >= 0, got %d", c.Buffer.MaxBytes)
	}
	if c.Replay.Jobs < 0 {
		return fmt.Errorf("[replay].jobs must be >= 0, got %d", c.Replay.Jobs)
	}
	switch strings.ToLower(strings.TrimSpace(c.Replay.UI)) {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("[replay].ui must be auto|on|off, got %q", c.Replay.UI)
	}
	if _, err := c.TraceConfig(); err != nil {
		return fmt.Errorf("[trace]: %w", err)
	}
	if strings.TrimSpace(c.Corpus.Path) == "" {
		return fmt.Errorf("[corpus].path must not be empty")
	}
	return nil
}

// TraceConfig converts the [trace] section into a trace.Config.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:  level,
		Mode:   mode,
		Format: format,
		Path:   c.Trace.Output,
	}, nil
}
