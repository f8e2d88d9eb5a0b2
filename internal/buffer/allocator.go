package buffer

import (
	"fmt"
	"sync"
	"unsafe"
)

// Allocator hands out and takes back backing storage.
// Alloc must return a slice with len == cap == size or an error.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// HeapAllocator delegates to the Go runtime; Free is a no-op.
type HeapAllocator struct{}

// Alloc returns a zeroed slice of the requested size.
func (HeapAllocator) Alloc(size int) ([]byte, error) {
	return makeSlice(size)
}

// makeSlice turns the runtime's "len out of range" panic into an error.
func makeSlice(size int) (buf []byte, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrAllocationFailed, size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%w: size %d: %v", ErrAllocationFailed, size, r)
		}
	}()
	return make([]byte, size), nil
}

// Free does nothing.
func (HeapAllocator) Free([]byte) {}

// DefaultAllocator is used when Options.Allocator is nil.
var DefaultAllocator Allocator = HeapAllocator{}

// TrackingAllocator accounts for every live allocation and optionally
// enforces a ceiling on outstanding bytes. It is safe for concurrent use, so
// one instance can be shared by buffers owned by different goroutines.
type TrackingAllocator struct {
	// Limit caps the outstanding bytes; 0 means unlimited.
	Limit int

	mu          sync.Mutex
	live        map[*byte]int
	outstanding int
	allocs      int
	frees       int
	failures    int
	doubleFrees int
}

// NewTrackingAllocator creates an allocator with the given ceiling (0 = unlimited).
func NewTrackingAllocator(limit int) *TrackingAllocator {
	return &TrackingAllocator{Limit: limit}
}

// Alloc hands out size bytes unless that would exceed Limit.
func (a *TrackingAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size <= 0 || (a.Limit > 0 && size > a.Limit-a.outstanding) {
		a.failures++
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrAllocationFailed, size, a.outstanding, a.Limit)
	}
	buf, err := makeSlice(size)
	if err != nil {
		a.failures++
		return nil, err
	}
	if a.live == nil {
		a.live = make(map[*byte]int)
	}
	a.live[unsafe.SliceData(buf)] = size
	a.outstanding += size
	a.allocs++
	return buf, nil
}

// Free releases buf. Releasing a slice that is not live (already freed or
// never handed out) is counted in DoubleFrees and otherwise ignored.
func (a *TrackingAllocator) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	key := unsafe.SliceData(buf)
	size, ok := a.live[key]
	if !ok {
		a.doubleFrees++
		return
	}
	delete(a.live, key)
	a.outstanding -= size
	a.frees++
}

// Stats is a point-in-time view of a TrackingAllocator.
type Stats struct {
	Live        int // allocations not yet freed
	Outstanding int // bytes not yet freed
	Allocs      int
	Frees       int
	Failures    int
	DoubleFrees int
}

// Stats returns the current counters.
func (a *TrackingAllocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Live:        len(a.live),
		Outstanding: a.outstanding,
		Allocs:      a.allocs,
		Frees:       a.frees,
		Failures:    a.failures,
		DoubleFrees: a.doubleFrees,
	}
}
