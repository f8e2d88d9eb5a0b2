// Package buffer implements a growable byte buffer that always keeps a zero
// terminator after its content.
//
// # Invariants
//
//   - Cap() >= Len()+1 for every live buffer
//   - Data()[Len()] == 0 after every successful operation
//   - a failed Append or Resize leaves the buffer exactly as it was
//
// Storage comes from an Allocator so that callers (tests, fuzz harnesses,
// the replay command) can cap memory and observe every allocation and
// release. A Buffer is single-owner: do not call its methods concurrently.
package buffer
