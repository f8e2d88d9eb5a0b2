package buffer

import (
	"errors"
	"fmt"
	"strconv"

	"mocklib/internal/trace"
)

// Options configures a Buffer.
type Options struct {
	Allocator Allocator    // nil means DefaultAllocator
	Tracer    trace.Tracer // nil means trace.Nop
}

// Buffer is a growable byte buffer with a trailing zero terminator.
type Buffer struct {
	data   []byte // len(data) == capacity; nil once closed
	length int
	alloc  Allocator
	tracer trace.Tracer
}

// New allocates a buffer able to hold max(capacity, 1) bytes including the
// terminator. It never returns a buffer without backing storage.
func New(capacity int, opts Options) (*Buffer, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", ErrInvalidArgument, capacity)
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = DefaultAllocator
	}
	capacity = max(capacity, 1)

	data, err := alloc.Alloc(capacity)
	if err != nil {
		return nil, wrapAlloc(err)
	}
	if len(data) != capacity {
		alloc.Free(data)
		return nil, fmt.Errorf("%w: allocator returned %d bytes, want %d", ErrAllocationFailed, len(data), capacity)
	}
	data[0] = 0

	return &Buffer{
		data:   data,
		alloc:  alloc,
		tracer: trace.OrNop(opts.Tracer),
	}, nil
}

// Append copies p after the current content, growing the storage if needed.
// A nil p is rejected; an empty non-nil p is a successful no-op.
func (b *Buffer) Append(p []byte) error {
	if !b.live() || p == nil {
		return ErrInvalidArgument
	}
	if len(p) == 0 {
		return nil
	}

	capacity, err := NextCapacity(len(b.data), b.length, len(p))
	if err != nil {
		return err
	}
	if capacity != len(b.data) {
		old := len(b.data)
		if err := b.realloc(capacity); err != nil {
			return err
		}
		trace.Point(b.tracer, trace.ScopeBuffer, "buffer.grow", "", map[string]string{
			"from": strconv.Itoa(old),
			"to":   strconv.Itoa(capacity),
			"need": strconv.Itoa(b.length + len(p) + 1),
		})
	}

	copy(b.data[b.length:], p)
	b.length += len(p)
	b.data[b.length] = 0
	return nil
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) error {
	return b.Append([]byte{c})
}

// Resize sets the capacity to exactly n. Requests that would not leave room
// for the stored bytes plus terminator (n <= Len()) are rejected; the buffer
// never truncates.
func (b *Buffer) Resize(n int) error {
	if !b.live() {
		return ErrInvalidArgument
	}
	if n <= b.length {
		return fmt.Errorf("%w: resize to %d would drop %d stored bytes", ErrInvalidArgument, n, b.length)
	}
	if n == len(b.data) {
		return nil
	}
	old := len(b.data)
	if err := b.realloc(n); err != nil {
		return err
	}
	trace.Point(b.tracer, trace.ScopeBuffer, "buffer.resize", "", map[string]string{
		"from": strconv.Itoa(old),
		"to":   strconv.Itoa(n),
	})
	return nil
}

// realloc moves content and terminator into fresh storage of size n.
// On failure the buffer is untouched.
func (b *Buffer) realloc(n int) error {
	next, err := b.alloc.Alloc(n)
	if err != nil {
		return wrapAlloc(err)
	}
	if len(next) != n {
		b.alloc.Free(next)
		return fmt.Errorf("%w: allocator returned %d bytes, want %d", ErrAllocationFailed, len(next), n)
	}
	copy(next, b.data[:b.length+1])
	b.alloc.Free(b.data)
	b.data = next
	return nil
}

// Data returns the content followed by the terminator. The slice aliases the
// backing storage; treat it as read-only and do not keep it across Append or
// Resize. It is nil for a nil or closed buffer.
func (b *Buffer) Data() []byte {
	if !b.live() {
		return nil
	}
	return b.data[: b.length+1 : b.length+1]
}

// Bytes returns the content without the terminator, with the same aliasing
// rules as Data.
func (b *Buffer) Bytes() []byte {
	if !b.live() {
		return nil
	}
	return b.data[:b.length:b.length]
}

// Len returns the number of stored bytes, terminator excluded.
func (b *Buffer) Len() int {
	if !b.live() {
		return 0
	}
	return b.length
}

// Cap returns the allocated capacity.
func (b *Buffer) Cap() int {
	if !b.live() {
		return 0
	}
	return len(b.data)
}

// Close releases the storage. It is safe to call on a nil buffer and more
// than once; storage is returned to the allocator exactly once.
func (b *Buffer) Close() error {
	if !b.live() {
		return nil
	}
	b.alloc.Free(b.data)
	b.data = nil
	b.length = 0
	return nil
}

func (b *Buffer) live() bool {
	return b != nil && b.data != nil
}

func wrapAlloc(err error) error {
	if errors.Is(err, ErrAllocationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
}
