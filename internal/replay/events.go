package replay

import "time"

// Status captures the progress state of one corpus entry.
type Status string

const (
	// StatusQueued indicates the entry is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the entry is being parsed.
	StatusWorking Status = "parsing"
	// StatusDone indicates the parse succeeded.
	StatusDone Status = "done"
	// StatusRejected indicates the parser reported a failure.
	StatusRejected Status = "rejected"
)

// Event reports progress for an entry (or for the whole run when Entry is empty).
type Event struct {
	Entry   string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel. Once Done is closed events
// are dropped instead of blocking, so a consumer that went away cannot
// stall the workers.
type ChannelSink struct {
	Ch   chan<- Event
	Done <-chan struct{}
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	select {
	case s.Ch <- evt:
	case <-s.Done:
	}
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}
