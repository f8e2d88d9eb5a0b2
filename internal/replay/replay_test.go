package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mocklib/internal/buffer"
	"mocklib/internal/corpus"
	"mocklib/internal/parser"
)

func sampleEntries() []corpus.Entry {
	return []corpus.Entry{
		{Name: "hello", Data: []byte("hello")},
		{Name: "empty", Data: nil},
		{Name: "ctrl", Data: []byte("a\x01b")},
		{Name: "mixed", Data: []byte("Go 1.25!")},
	}
}

func TestRunClassifiesEntries(t *testing.T) {
	report, err := Run(context.Background(), sampleEntries(), Options{Jobs: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("got %d results", len(report.Results))
	}

	want := []struct {
		code   parser.ErrorCode
		output string
	}{
		{parser.CodeNone, "HELLO"},
		{parser.CodeNullOrEmptyInput, ""},
		{parser.CodeValidationFailed, ""},
		{parser.CodeNone, "GO 1.25!"},
	}
	for i, w := range want {
		r := report.Results[i]
		if r.Code != w.code || string(r.Output) != w.output {
			t.Errorf("%s: code=%s output=%q, want %s/%q", r.Name, r.Code, r.Output, w.code, w.output)
		}
	}
	if report.Passed() != 2 || report.Failed() != 2 {
		t.Fatalf("passed=%d failed=%d", report.Passed(), report.Failed())
	}
	if report.Leaked != 0 {
		t.Fatalf("leaked %d allocations", report.Leaked)
	}
	codes := report.Codes()
	if len(codes) != 3 || codes[0] != parser.CodeNone {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRunSharedAllocatorLimit(t *testing.T) {
	// "hello" needs 10 bytes of transient buffer; the ceiling forbids it
	alloc := buffer.NewTrackingAllocator(8)
	report, err := Run(context.Background(), sampleEntries()[:1], Options{Allocator: alloc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := report.Results[0]
	if r.Code != parser.CodeBufferAllocationFailed || !errors.Is(r.Err, parser.ErrBufferAllocationFailed) {
		t.Fatalf("code=%s err=%v", r.Code, r.Err)
	}
}

func TestRunEmitsProgress(t *testing.T) {
	var mu sync.Mutex
	seen := map[Status]int{}
	sink := FuncSink(func(ev Event) {
		mu.Lock()
		seen[ev.Status]++
		mu.Unlock()
	})

	if _, err := Run(context.Background(), sampleEntries(), Options{Progress: sink}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen[StatusQueued] != 4 || seen[StatusWorking] != 4 || seen[StatusDone] != 2 || seen[StatusRejected] != 2 {
		t.Fatalf("unexpected progress counts: %v", seen)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, sampleEntries(), Options{Jobs: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	report, err := Run(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 0 || report.Failed() != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSummarizeLatency(t *testing.T) {
	var results []Result
	for i := 1; i <= 100; i++ {
		results = append(results, Result{Elapsed: time.Duration(i) * time.Microsecond})
	}
	results = append(results, Result{Elapsed: 2 * time.Minute})

	lat := summarizeLatency(results)
	if lat.Min < 990*time.Nanosecond || lat.Min > time.Microsecond {
		t.Fatalf("Min = %v", lat.Min)
	}
	if lat.P50 < 49*time.Microsecond || lat.P50 > 52*time.Microsecond {
		t.Fatalf("P50 = %v", lat.P50)
	}
	if lat.Max < 59*time.Second || lat.Max > 61*time.Second {
		t.Fatalf("Max = %v, want the clamped minute", lat.Max)
	}
	if (summarizeLatency(nil) != Latency{}) {
		t.Fatalf("empty results must give zero latency")
	}
}

func TestRunDoesNotBlockOnAbandonedChannel(t *testing.T) {
	entries := make([]corpus.Entry, 100)
	for i := range entries {
		entries[i] = corpus.Entry{Name: fmt.Sprintf("e%03d", i), Data: []byte("abc")}
	}
	ch := make(chan Event, 4) // nobody reads
	done := make(chan struct{})
	close(done)

	finished := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), entries, Options{Jobs: 4, Progress: ChannelSink{Ch: ch, Done: done}})
		finished <- err
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run blocked on a full progress channel after its consumer left")
	}
}
