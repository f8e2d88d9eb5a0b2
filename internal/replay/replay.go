// Package replay runs every entry of a corpus through its own parser.
//
// Entries are independent: each gets a fresh parser.Parser, so they can be
// processed in parallel without sharing handles. All parsers share one
// allocator, which lets a replay enforce a global memory ceiling and check
// afterwards that nothing leaked.
package replay

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/sync/errgroup"

	"mocklib/internal/buffer"
	"mocklib/internal/corpus"
	"mocklib/internal/parser"
	"mocklib/internal/trace"
)

// Options configures a run.
type Options struct {
	Jobs      int              // worker limit; <= 0 means GOMAXPROCS
	Allocator buffer.Allocator // shared by all parsers; nil means a fresh TrackingAllocator
	Progress  ProgressSink     // optional
}

// Result is the outcome for one entry.
type Result struct {
	Name    string
	Input   []byte
	Code    parser.ErrorCode
	Output  []byte // copy of the stored output, nil on failure
	Err     error
	Elapsed time.Duration
}

// OK reports whether the parse succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report aggregates a run.
type Report struct {
	Results []Result // same order as the corpus entries
	Counts  map[parser.ErrorCode]int
	Elapsed time.Duration
	// Leaked is the number of allocations still live after every parser
	// was closed; always 0 unless the allocator is shared with other users.
	Leaked int
	// Latency summarises per-entry parse times.
	Latency Latency
}

// Latency holds per-entry timing percentiles.
type Latency struct {
	Min, P50, P95, P99, Max time.Duration
}

// maxRecorded caps histogram values; slower entries are recorded as this.
const maxRecorded = int64(time.Minute)

func summarizeLatency(results []Result) Latency {
	if len(results) == 0 {
		return Latency{}
	}
	hist := hdrhistogram.New(1, maxRecorded, 3)
	for _, r := range results {
		v := min(max(int64(r.Elapsed), 1), maxRecorded)
		_ = hist.RecordValue(v) // v is within range
	}
	return Latency{
		Min: time.Duration(hist.Min()),
		P50: time.Duration(hist.ValueAtQuantile(50.)),
		P95: time.Duration(hist.ValueAtQuantile(95.)),
		P99: time.Duration(hist.ValueAtQuantile(99.)),
		Max: time.Duration(hist.Max()),
	}
}

// Passed returns the number of successful entries.
func (r Report) Passed() int { return r.Counts[parser.CodeNone] }

// Failed returns the number of rejected entries.
func (r Report) Failed() int { return len(r.Results) - r.Passed() }

// Codes returns the codes present in Counts in numeric order.
func (r Report) Codes() []parser.ErrorCode {
	codes := make([]parser.ErrorCode, 0, len(r.Counts))
	for c := range r.Counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Run parses each entry with a dedicated parser. It stops early only when
// ctx is cancelled; parse failures are recorded in the report, not returned.
func Run(ctx context.Context, entries []corpus.Entry, opts Options) (Report, error) {
	start := time.Now()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeCommand, "replay", trace.CurrentSpan(ctx))
	defer span.End("")

	alloc := opts.Allocator
	tracking, _ := alloc.(*buffer.TrackingAllocator)
	if alloc == nil {
		tracking = buffer.NewTrackingAllocator(0)
		alloc = tracking
	}
	var liveBefore int
	if tracking != nil {
		liveBefore = tracking.Stats().Live
	}

	sink := opts.Progress
	if sink == nil {
		sink = FuncSink(nil)
	}
	for _, e := range entries {
		sink.OnEvent(Event{Entry: e.Name, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]Result, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(entries))))

	for i, e := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			sink.OnEvent(Event{Entry: e.Name, Status: StatusWorking})
			results[i] = runOne(e, alloc, tracer, span.ID())
			status := StatusDone
			if !results[i].OK() {
				status = StatusRejected
			}
			sink.OnEvent(Event{Entry: e.Name, Status: status, Err: results[i].Err, Elapsed: results[i].Elapsed})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.Fail()
		return Report{}, err
	}

	report := Report{
		Results: results,
		Counts:  make(map[parser.ErrorCode]int),
		Elapsed: time.Since(start),
	}
	for _, r := range results {
		report.Counts[r.Code]++
	}
	report.Latency = summarizeLatency(results)
	if tracking != nil {
		report.Leaked = tracking.Stats().Live - liveBefore
	}
	span.WithExtra("entries", strconv.Itoa(len(results))).WithExtra("passed", strconv.Itoa(report.Passed()))
	return report, nil
}

func runOne(e corpus.Entry, alloc buffer.Allocator, tracer trace.Tracer, parent uint64) Result {
	start := time.Now()
	p := parser.New(parser.Options{Allocator: alloc, Tracer: tracer, ParentSpan: parent})
	defer func() { _ = p.Close() }()

	err := p.Parse(e.Data)
	res := Result{
		Name:  e.Name,
		Input: e.Data,
		Code:  parser.CodeOf(err),
		Err:   err,
	}
	if err == nil {
		res.Output = append([]byte(nil), p.Output()...)
	}
	res.Elapsed = time.Since(start)
	return res
}
