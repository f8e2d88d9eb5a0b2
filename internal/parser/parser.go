package parser

import (
	"fmt"
	"math"
	"strconv"

	"mocklib/internal/buffer"
	"mocklib/internal/trace"
)

// State is the parse lifecycle position.
type State uint8

const (
	StateInitial State = iota
	StateParsed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateParsed:
		return "parsed"
	default:
		return "unknown"
	}
}

// Options configures a Parser.
type Options struct {
	// Allocator backs both the transient buffer and the stored output.
	// nil means buffer.DefaultAllocator.
	Allocator buffer.Allocator
	// Tracer receives parser.parse spans and the transient buffer's events.
	Tracer trace.Tracer
	// ParentSpan links parse spans under a caller's span.
	ParentSpan uint64
}

// Parser владеет результатом последнего успешного разбора.
type Parser struct {
	state  State
	code   ErrorCode
	output []byte // content + terminator; nil until the first success
	alloc  buffer.Allocator
	tracer trace.Tracer
	parent uint64
	closed bool

	// workCap sizes the transient buffer; nil means twice the input.
	workCap func(size int) int
}

// New returns a Parser in StateInitial with no stored output.
func New(opts Options) *Parser {
	alloc := opts.Allocator
	if alloc == nil {
		alloc = buffer.DefaultAllocator
	}
	return &Parser{
		alloc:  alloc,
		tracer: trace.OrNop(opts.Tracer),
		parent: opts.ParentSpan,
	}
}

// Parse validates input, upper-cases it through a transient buffer and
// replaces the stored output with the result. Failures return *Error and
// leave state and output untouched.
func (p *Parser) Parse(input []byte) (err error) {
	if !p.live() {
		return ErrInvalidArgument
	}

	span := trace.Begin(p.tracer, trace.ScopeParse, "parser.parse", p.parent).
		WithExtra("size", strconv.Itoa(len(input)))
	defer func() {
		span.WithExtra("code", CodeOf(err).String())
		if err != nil {
			span.Fail()
		}
		span.End(p.state.String())
	}()

	if len(input) == 0 {
		return p.fail(CodeNullOrEmptyInput, nil)
	}
	if i := FirstInvalid(input); i >= 0 {
		return p.fail(CodeValidationFailed, fmt.Errorf("byte 0x%02x at offset %d", input[i], i))
	}

	if len(input) > math.MaxInt/2 {
		return p.fail(CodeBufferAllocationFailed, fmt.Errorf("%w: input of %d bytes", buffer.ErrAllocationFailed, len(input)))
	}
	workCap := 2 * len(input)
	if p.workCap != nil {
		workCap = p.workCap(len(input))
	}
	work, err := buffer.New(workCap, buffer.Options{Allocator: p.alloc, Tracer: p.tracer})
	if err != nil {
		return p.fail(CodeBufferAllocationFailed, err)
	}
	// transient: released on every path below
	defer func() { _ = work.Close() }()

	for i, c := range input {
		if appendErr := work.AppendByte(Transform(c)); appendErr != nil {
			return p.fail(CodeAppendFailed, fmt.Errorf("byte %d: %w", i, appendErr))
		}
	}

	// new storage first, so a failure here keeps the previous output
	size := work.Len() + 1
	out, err := p.alloc.Alloc(size)
	if err != nil {
		return p.fail(CodeOutputAllocationFailed, err)
	}
	if len(out) != size {
		p.alloc.Free(out)
		return p.fail(CodeOutputAllocationFailed, fmt.Errorf("allocator returned %d bytes, want %d", len(out), size))
	}
	copy(out, work.Data())

	p.releaseOutput()
	p.output = out
	p.state = StateParsed
	return nil
}

func (p *Parser) fail(code ErrorCode, cause error) error {
	p.code = code
	return &Error{Code: code, Err: cause}
}

// State returns the current lifecycle state.
func (p *Parser) State() State {
	if p == nil {
		return StateInitial
	}
	return p.state
}

// Code returns the classification of the most recent failure. A later
// success does not reset it.
func (p *Parser) Code() ErrorCode {
	if p == nil {
		return CodeNone
	}
	return p.code
}

// Output returns the stored result without its terminator. The slice aliases
// parser-owned storage and is replaced by the next successful Parse.
func (p *Parser) Output() []byte {
	if !p.live() || len(p.output) == 0 {
		return nil
	}
	n := len(p.output) - 1
	return p.output[:n:n]
}

// OutputLen returns len(Output()).
func (p *Parser) OutputLen() int {
	return len(p.Output())
}

// Close releases the stored output. Safe on nil and idempotent.
func (p *Parser) Close() error {
	if !p.live() {
		return nil
	}
	p.releaseOutput()
	p.closed = true
	return nil
}

func (p *Parser) releaseOutput() {
	if p.output != nil {
		p.alloc.Free(p.output)
		p.output = nil
	}
}

func (p *Parser) live() bool {
	return p != nil && !p.closed
}
