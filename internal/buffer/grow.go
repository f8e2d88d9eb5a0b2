package buffer

import (
	"fmt"
	"math"
)

// NextCapacity returns the capacity needed to append count bytes to a buffer
// holding length bytes in capacity, keeping room for the terminator.
//
// The current capacity is returned unchanged when it already fits. Otherwise
// it is doubled (starting from max(capacity, 1)) until it holds
// length+count+1, so a single large append costs one reallocation.
func NextCapacity(capacity, length, count int) (int, error) {
	if capacity < 0 || length < 0 || count < 0 {
		return 0, fmt.Errorf("%w: capacity=%d length=%d count=%d", ErrInvalidArgument, capacity, length, count)
	}
	if length > math.MaxInt-1-count {
		return 0, fmt.Errorf("%w: %d+%d bytes overflow", ErrAllocationFailed, length, count)
	}
	need := length + count + 1
	if need <= capacity {
		return capacity, nil
	}

	next := max(capacity, 1)
	for next < need {
		if next > math.MaxInt/2 {
			return 0, fmt.Errorf("%w: cannot grow past %d bytes", ErrAllocationFailed, next)
		}
		next *= 2
	}
	return next, nil
}
