// Package parser validates printable-ASCII input and stores an upper-cased
// copy of it.
//
// Each Parse call builds the result in a transient buffer.Buffer sized to
// twice the input, appending one transformed byte at a time, then copies the
// finished content into storage owned by the Parser. The transient buffer is
// closed on every return path and never escapes Parse.
//
// State moves Initial -> Parsed on the first successful Parse and never moves
// back. A failed Parse leaves State, Output and the previous storage exactly
// as they were and records the failure in Code. Each successful Parse
// replaces the stored output; nothing accumulates across calls.
package parser
