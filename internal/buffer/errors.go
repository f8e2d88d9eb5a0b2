package buffer

import "errors"

var (
	// ErrInvalidArgument reports a nil or closed buffer, absent input or a
	// resize that would drop stored bytes.
	ErrInvalidArgument = errors.New("buffer: invalid argument")
	// ErrAllocationFailed reports that storage could not be obtained.
	ErrAllocationFailed = errors.New("buffer: allocation failed")
)
