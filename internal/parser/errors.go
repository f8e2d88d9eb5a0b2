package parser

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the last Parse failure. The numeric values are stable
// and shared with corpus reports.
type ErrorCode uint8

const (
	CodeNone                   ErrorCode = iota // no failure recorded
	CodeNullOrEmptyInput                        // nil or zero-length input
	CodeValidationFailed                        // byte outside [32,126]
	CodeBufferAllocationFailed                  // transient buffer could not be created
	CodeAppendFailed                            // appending to the transient buffer failed
	CodeOutputAllocationFailed                  // owned output storage could not be allocated
)

var (
	// ErrInvalidArgument reports a nil or closed Parser.
	ErrInvalidArgument = errors.New("parser: invalid argument")

	ErrNullOrEmptyInput       = errors.New("parser: null or empty input")
	ErrValidationFailed       = errors.New("parser: input validation failed")
	ErrBufferAllocationFailed = errors.New("parser: buffer allocation failed")
	ErrAppendFailed           = errors.New("parser: append failed")
	ErrOutputAllocationFailed = errors.New("parser: output allocation failed")
)

// String returns the stable name of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeNullOrEmptyInput:
		return "null_or_empty_input"
	case CodeValidationFailed:
		return "validation_failed"
	case CodeBufferAllocationFailed:
		return "buffer_allocation_failed"
	case CodeAppendFailed:
		return "append_failed"
	case CodeOutputAllocationFailed:
		return "output_allocation_failed"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// Sentinel returns the package error matching the code, or nil for CodeNone.
func (c ErrorCode) Sentinel() error {
	switch c {
	case CodeNullOrEmptyInput:
		return ErrNullOrEmptyInput
	case CodeValidationFailed:
		return ErrValidationFailed
	case CodeBufferAllocationFailed:
		return ErrBufferAllocationFailed
	case CodeAppendFailed:
		return ErrAppendFailed
	case CodeOutputAllocationFailed:
		return ErrOutputAllocationFailed
	default:
		return nil
	}
}

// Error is returned by Parse. errors.Is matches both the code's sentinel and
// the underlying cause.
type Error struct {
	Code ErrorCode
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := "parser: " + e.Code.String()
	if s := e.Code.Sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the sentinel and the cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if s := e.Code.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// CodeOf extracts the ErrorCode from an error returned by Parse.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeNone
}
