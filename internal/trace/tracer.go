package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives events from spans and points. Implementations must be
// safe for concurrent Emit.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// gate holds the level shared by every concrete tracer.
type gate struct{ level Level }

func (g gate) Level() Level { return g.level }
func (g gate) Enabled() bool { return g.level > LevelOff }
func (g gate) admits(ev *Event) bool {
	return ev != nil && g.level.ShouldEmit(ev.Scope, ev.Failed)
}

// StorageMode selects where events go: written out, kept in memory, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = map[StorageMode]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both; empty means stream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config is the [trace] section in resolved form.
type Config struct {
	Level    Level
	Mode     StorageMode
	Format   Format // FormatAuto picks NDJSON for .ndjson/.jsonl paths
	Path     string // "" or "-" is stderr
	RingSize int    // default 4096
}

const defaultRingSize = 4096

// New builds the tracer described by cfg. LevelOff yields Nop and opens
// nothing.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}

	w, closer, err := openSink(cfg.Path)
	if err != nil {
		return nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, resolveFormat(cfg.Format, cfg.Path))
	stream.closer = closer
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func resolveFormat(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".jsonl") {
		return FormatNDJSON
	}
	return FormatText
}

// openSink returns a buffered writer for path and what must be closed after
// it is flushed. stderr is never closed.
func openSink(path string) (io.Writer, io.Closer, error) {
	if path == "" || path == "-" {
		return os.Stderr, nil, nil
	}
	// #nosec G304 -- path is provided by the user via flag or config
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return bufio.NewWriter(f), f, nil
}
