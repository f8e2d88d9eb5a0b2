// Package trace records what the buffer, the parser and the CLI commands do
// while they run.
//
// The core packages never open files: they emit through whatever Tracer they
// were handed (Nop by default). The CLI builds a concrete tracer from flags or
// mocklib.toml and threads it through Options and context.
//
// # Implementations
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory for post-mortem dumps
//   - MultiTracer: fans events out to several tracers
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: failed operations only
//   - LevelOp: CLI command boundaries
//   - LevelDetail: adds parse spans
//   - LevelDebug: adds buffer growth and resize events
//
// # Usage
//
//	mocklib parse --trace=- --trace-level=debug "hello"
//
//	span := trace.Begin(t, trace.ScopeParse, "parser.parse", 0)
//	defer span.End("")
package trace
