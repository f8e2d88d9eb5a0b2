package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota // no tracing
	LevelError               // only failed operations
	LevelOp                  // command boundaries
	LevelDetail              // parse spans
	LevelDebug               // everything including buffer growth
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelOp:
		return "op"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "op":
		return LevelOp, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|op|detail|debug)", s)
	}
}

// ShouldEmit reports whether an event of the given scope passes this level.
// Failed events pass every level except LevelOff.
func (l Level) ShouldEmit(scope Scope, failed bool) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return failed
	case LevelOp:
		return failed || scope <= ScopeCommand
	case LevelDetail:
		return failed || scope <= ScopeParse
	case LevelDebug:
		return true
	}
	return false
}
