package trace

import (
	"io"
	"sync"
)

// StreamTracer formats each admitted event and writes it straight away.
type StreamTracer struct {
	gate
	format Format

	mu     sync.Mutex
	w      io.Writer
	closer io.Closer // set by New for files it opened
}

// NewStreamTracer writes to w. The caller keeps ownership of w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{gate: gate{level}, format: format, w: w}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = NextSeq()
	// write errors are dropped: a broken trace sink must not fail a parse
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and releases the file opened by New, if any.
func (t *StreamTracer) Close() error {
	err := t.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
		t.closer = nil
	}
	return err
}
