package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"mocklib/internal/buffer"
	"mocklib/internal/trace"
)

func TestNewParser(t *testing.T) {
	p := New(Options{})
	defer p.Close()

	if p.State() != StateInitial || p.Code() != CodeNone || p.Output() != nil {
		t.Fatalf("fresh parser: state=%s code=%s output=%q", p.State(), p.Code(), p.Output())
	}
}

func TestParseHello(t *testing.T) {
	p := New(Options{})
	defer p.Close()

	if err := p.Parse([]byte("hello")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.State() != StateParsed {
		t.Fatalf("state = %s, want parsed", p.State())
	}
	if got := string(p.Output()); got != "HELLO" {
		t.Fatalf("output = %q, want HELLO", got)
	}
	if p.OutputLen() != 5 {
		t.Fatalf("OutputLen = %d, want 5", p.OutputLen())
	}
}

func TestParseTransformsOnlyLowercase(t *testing.T) {
	p := New(Options{})
	defer p.Close()

	in := "Mixed Case 123 {a-z} ~`!"
	if err := p.Parse([]byte(in)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := string(p.Output()), strings.ToUpper(in); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestParseNullOrEmpty(t *testing.T) {
	for _, in := range [][]byte{nil, {}} {
		p := New(Options{})
		err := p.Parse(in)
		if !errors.Is(err, ErrNullOrEmptyInput) {
			t.Fatalf("Parse(%v): expected ErrNullOrEmptyInput, got %v", in, err)
		}
		if p.Code() != CodeNullOrEmptyInput || p.State() != StateInitial {
			t.Fatalf("after empty input: code=%s state=%s", p.Code(), p.State())
		}
		_ = p.Close()
	}
}

func TestParseValidationFailure(t *testing.T) {
	p := New(Options{})
	defer p.Close()

	err := p.Parse([]byte("ab\x01cd"))
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if CodeOf(err) != CodeValidationFailed || p.Code() != CodeValidationFailed {
		t.Fatalf("code = %s", p.Code())
	}
	if p.State() != StateInitial || p.Output() != nil {
		t.Fatalf("failed parse changed state")
	}
}

func TestFailureAfterSuccessKeepsParsedState(t *testing.T) {
	p := New(Options{})
	defer p.Close()

	if err := p.Parse([]byte("first")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := p.Parse([]byte{0x7f}); err == nil {
		t.Fatalf("expected failure for DEL byte")
	}
	if err := p.Parse(nil); err == nil {
		t.Fatalf("expected failure for nil input")
	}
	if p.State() != StateParsed || string(p.Output()) != "FIRST" {
		t.Fatalf("state=%s output=%q, want parsed/FIRST", p.State(), p.Output())
	}
	if p.Code() != CodeNullOrEmptyInput {
		t.Fatalf("code = %s, want last failure", p.Code())
	}
}

func TestSequentialParsesReplaceOutput(t *testing.T) {
	alloc := buffer.NewTrackingAllocator(0)
	p := New(Options{Allocator: alloc})

	if err := p.Parse([]byte("abc")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := p.Parse([]byte("xy")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := string(p.Output()); got != "XY" {
		t.Fatalf("output = %q, want XY (no accumulation)", got)
	}
	if st := alloc.Stats(); st.Live != 1 || st.Outstanding != 3 {
		t.Fatalf("only the current output should be live: %+v", st)
	}

	_ = p.Close()
	if st := alloc.Stats(); st.Live != 0 || st.DoubleFrees != 0 {
		t.Fatalf("after Close: %+v", st)
	}
}

func TestBufferAllocationFailure(t *testing.T) {
	alloc := buffer.NewTrackingAllocator(9)
	p := New(Options{Allocator: alloc})
	defer p.Close()

	err := p.Parse([]byte("hello"))
	if !errors.Is(err, ErrBufferAllocationFailed) || !errors.Is(err, buffer.ErrAllocationFailed) {
		t.Fatalf("expected buffer allocation failure, got %v", err)
	}
	if p.Code() != CodeBufferAllocationFailed || p.State() != StateInitial {
		t.Fatalf("code=%s state=%s", p.Code(), p.State())
	}
}

func TestAppendFailureReleasesTransientBuffer(t *testing.T) {
	alloc := buffer.NewTrackingAllocator(4)
	p := New(Options{Allocator: alloc})
	p.workCap = func(int) int { return 1 }
	defer p.Close()

	err := p.Parse([]byte("hello"))
	if !errors.Is(err, ErrAppendFailed) {
		t.Fatalf("expected ErrAppendFailed, got %v", err)
	}
	if p.Code() != CodeAppendFailed || p.Output() != nil {
		t.Fatalf("code=%s output=%q", p.Code(), p.Output())
	}
	if st := alloc.Stats(); st.Live != 0 {
		t.Fatalf("transient buffer leaked: %+v", st)
	}
}

func TestOutputAllocationFailureKeepsPriorOutput(t *testing.T) {
	alloc := buffer.NewTrackingAllocator(0)
	p := New(Options{Allocator: alloc})
	defer p.Close()

	if err := p.Parse([]byte("ab")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// 3 bytes held by "AB", 10 for the transient buffer, 6 needed for "HELLO"
	alloc.Limit = 18

	err := p.Parse([]byte("hello"))
	if !errors.Is(err, ErrOutputAllocationFailed) {
		t.Fatalf("expected ErrOutputAllocationFailed, got %v", err)
	}
	if p.State() != StateParsed || string(p.Output()) != "AB" {
		t.Fatalf("prior output lost: state=%s output=%q", p.State(), p.Output())
	}
	if st := alloc.Stats(); st.Live != 1 || st.Outstanding != 3 {
		t.Fatalf("transient buffer leaked: %+v", st)
	}
}

func TestNilAndClosedParser(t *testing.T) {
	var nilParser *Parser
	if err := nilParser.Parse([]byte("x")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil Parse: %v", err)
	}
	if err := nilParser.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}

	p := New(Options{})
	_ = p.Close()
	_ = p.Close()
	if err := p.Parse([]byte("x")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("closed Parse: %v", err)
	}
}

func TestCreateCloseCycles(t *testing.T) {
	alloc := buffer.NewTrackingAllocator(0)
	for i := 0; i < 50; i++ {
		p := New(Options{Allocator: alloc})
		if i%2 == 0 {
			_ = p.Parse([]byte("cycle"))
		}
		_ = p.Close()
	}
	if st := alloc.Stats(); st.Live != 0 || st.DoubleFrees != 0 || st.Allocs != st.Frees {
		t.Fatalf("leak or double release: %+v", st)
	}
}

func TestParseIsTraced(t *testing.T) {
	var out bytes.Buffer
	tr := trace.NewStreamTracer(&out, trace.LevelDetail, trace.FormatText)
	p := New(Options{Tracer: tr})
	defer p.Close()

	_ = p.Parse([]byte("ok"))
	_ = p.Parse([]byte("\x00"))

	text := out.String()
	if !strings.Contains(text, "code=none") || !strings.Contains(text, "FAILED") || !strings.Contains(text, "code=validation_failed") {
		t.Fatalf("unexpected trace:\n%s", text)
	}
}

func TestErrorWithoutSentinel(t *testing.T) {
	err := &Error{Code: CodeNone}
	if got := err.Error(); got != "parser: none" {
		t.Fatalf("Error() = %q", got)
	}
	if errs := err.Unwrap(); len(errs) != 0 {
		t.Fatalf("Unwrap() = %v, want no errors", errs)
	}
	withCause := &Error{Code: ErrorCode(9), Err: errors.New("boom")}
	if got := withCause.Error(); got != "parser: code(9): boom" {
		t.Fatalf("Error() = %q", got)
	}
}
