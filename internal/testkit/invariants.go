// Package testkit holds invariant checks shared by unit tests and fuzz
// harnesses.
package testkit

import (
	"bytes"
	"fmt"

	"mocklib/internal/buffer"
	"mocklib/internal/parser"
)

// CheckBufferInvariants verifies the structural invariants of a live buffer:
// 1) Cap() >= Len()+1
// 2) Data() is Len()+1 bytes long and ends with the terminator
// 3) Bytes() is Data() without the terminator
func CheckBufferInvariants(b *buffer.Buffer) error {
	if b == nil {
		return fmt.Errorf("nil buffer")
	}
	if b.Cap() < b.Len()+1 {
		return fmt.Errorf("capacity %d cannot hold %d bytes plus terminator", b.Cap(), b.Len())
	}
	data := b.Data()
	if len(data) != b.Len()+1 {
		return fmt.Errorf("Data() has %d bytes, want %d", len(data), b.Len()+1)
	}
	if data[b.Len()] != 0 {
		return fmt.Errorf("missing terminator at offset %d: 0x%02x", b.Len(), data[b.Len()])
	}
	if !bytes.Equal(b.Bytes(), data[:b.Len()]) {
		return fmt.Errorf("Bytes() disagrees with Data()")
	}
	return nil
}

// CheckBufferContent verifies that b holds exactly want.
func CheckBufferContent(b *buffer.Buffer, want []byte) error {
	if err := CheckBufferInvariants(b); err != nil {
		return err
	}
	if !bytes.Equal(b.Bytes(), want) {
		return fmt.Errorf("content mismatch: got %d bytes, want %d", b.Len(), len(want))
	}
	return nil
}

// ExpectedOutput returns what a successful parse of input must store.
func ExpectedOutput(input []byte) []byte {
	out := make([]byte, len(input))
	for i, c := range input {
		out[i] = parser.Transform(c)
	}
	return out
}

// ParserSnapshot captures the observable state of a parser.
type ParserSnapshot struct {
	State  parser.State
	Output []byte
}

// Snapshot copies p's observable state.
func Snapshot(p *parser.Parser) ParserSnapshot {
	return ParserSnapshot{
		State:  p.State(),
		Output: append([]byte(nil), p.Output()...),
	}
}

// CheckParseOutcome verifies the contract of a single Parse call given the
// parser state before it and the error it returned:
// 1) the error classification agrees with Validate
// 2) on success state is Parsed and Output is the transform of input
// 3) on failure state and output are unchanged and Code matches the error
func CheckParseOutcome(p *parser.Parser, before ParserSnapshot, input []byte, err error) error {
	valid := parser.Validate(input)
	after := Snapshot(p)

	if err == nil {
		if !valid {
			return fmt.Errorf("parse accepted input rejected by Validate")
		}
		if after.State != parser.StateParsed {
			return fmt.Errorf("state %s after success", after.State)
		}
		if !bytes.Equal(after.Output, ExpectedOutput(input)) {
			return fmt.Errorf("output %q does not match transformed input", after.Output)
		}
		return nil
	}

	code := parser.CodeOf(err)
	if p.Code() != code {
		return fmt.Errorf("Code() = %s, error carries %s", p.Code(), code)
	}
	switch {
	case len(input) == 0 && code != parser.CodeNullOrEmptyInput:
		return fmt.Errorf("empty input classified as %s", code)
	case len(input) > 0 && !valid && code != parser.CodeValidationFailed:
		return fmt.Errorf("invalid input classified as %s", code)
	}
	if after.State != before.State {
		return fmt.Errorf("state moved %s -> %s on failure", before.State, after.State)
	}
	if !bytes.Equal(after.Output, before.Output) {
		return fmt.Errorf("output changed on failure")
	}
	return nil
}
