package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"mocklib/internal/corpus"
	"mocklib/internal/replay"
	"mocklib/internal/ui"
)

type replayEntryPayload struct {
	Name      string `json:"name"`
	Code      int    `json:"code"`
	CodeName  string `json:"code_name"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedUS int64  `json:"elapsed_us"`
}

type replayPayload struct {
	Corpus    string               `json:"corpus"`
	Entries   []replayEntryPayload `json:"entries"`
	Passed    int                  `json:"passed"`
	Failed    int                  `json:"failed"`
	Counts    map[string]int       `json:"counts"`
	Leaked    int                  `json:"leaked"`
	ElapsedMS int64                `json:"elapsed_ms"`
	Latency   latencyPayload       `json:"latency_us"`
}

type latencyPayload struct {
	Min int64 `json:"min"`
	P50 int64 `json:"p50"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
	Max int64 `json:"max"`
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [flags] [name...]",
		Short: "Parse corpus entries, each with a fresh parser",
		Long: `Replay runs corpus entries through their own parser in parallel and
reports the outcome per entry and per error code. With names given only
those entries are replayed.`,
		RunE: runReplay,
	}
	cmd.Flags().String("corpus", "", "corpus file (default: [corpus].path from mocklib.toml)")
	cmd.Flags().Int("jobs", 0, "max parallel parsers (0 = [replay].jobs or GOMAXPROCS)")
	cmd.Flags().String("ui", "", "progress UI mode (auto|on|off, default: [replay].ui)")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Bool("verbose", false, "list every entry, not only rejected ones")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	s := currentSession()

	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	if !cmd.Flags().Changed("jobs") {
		jobs = s.cfg.Replay.Jobs
	}
	uiValue, _ := cmd.Flags().GetString("ui")
	if !cmd.Flags().Changed("ui") {
		uiValue = s.cfg.Replay.UI
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	endLoad := s.timer.Begin("load")
	c, err := corpus.Load(path)
	if err != nil {
		return err
	}
	entries, err := selectEntries(c, args)
	if err != nil {
		return err
	}
	endLoad(fmt.Sprintf("%d entries", len(entries)))
	if len(entries) == 0 {
		notef(cmd, "corpus %s is empty\n", path)
		return nil
	}

	opts := replay.Options{Jobs: jobs, Allocator: s.alloc}
	endRun := s.timer.Begin("replay")
	var report replay.Report
	if shouldUseTUI(mode, s.quiet, format) {
		report, err = runReplayWithUI(cmd.Context(), "replay "+path, entries, opts)
	} else {
		report, err = replay.Run(cmd.Context(), entries, opts)
	}
	if err != nil {
		return err
	}
	endRun(fmt.Sprintf("%d passed", report.Passed()))

	if format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), buildReplayPayload(path, report)); err != nil {
			return err
		}
	} else {
		renderReplay(cmd.OutOrStdout(), report, verbose)
	}
	if report.Leaked > 0 {
		return fmt.Errorf("replay leaked %d allocations", report.Leaked)
	}
	return nil
}

// selectEntries returns all entries, or the named ones in argument order.
func selectEntries(c *corpus.Corpus, names []string) ([]corpus.Entry, error) {
	if len(names) == 0 {
		return c.Entries(), nil
	}
	out := make([]corpus.Entry, 0, len(names))
	for _, name := range names {
		e, ok := c.Get(name)
		if !ok {
			return nil, fmt.Errorf("no entry named %q", name)
		}
		out = append(out, e)
	}
	return out, nil
}

type replayOutcome struct {
	report replay.Report
	err    error
}

var errReplayInterrupted = errors.New("replay interrupted")

func runReplayWithUI(ctx context.Context, title string, entries []corpus.Entry, opts replay.Options) (replay.Report, error) {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return replayWithView(ctx, entries, opts, func(events <-chan replay.Event) error {
		model := ui.NewProgressModel(title, names, events)
		_, err := tea.NewProgram(model, tea.WithOutput(os.Stdout)).Run()
		return err
	})
}

// replayWithView runs the replay while view consumes its progress events.
// If view returns before the replay is done (the user quit the TUI), the
// replay is cancelled and the remaining events are drained.
func replayWithView(ctx context.Context, entries []corpus.Entry, opts replay.Options, view func(<-chan replay.Event) error) (replay.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan replay.Event, 256)
	outcomeCh := make(chan replayOutcome, 1)
	go func() {
		optsCopy := opts
		optsCopy.Progress = replay.ChannelSink{Ch: events, Done: ctx.Done()}
		report, err := replay.Run(ctx, entries, optsCopy)
		outcomeCh <- replayOutcome{report: report, err: err}
		close(events)
	}()

	viewErr := view(events)
	cancel()
	for range events {
	}
	outcome := <-outcomeCh
	if viewErr != nil {
		return outcome.report, viewErr
	}
	if errors.Is(outcome.err, context.Canceled) {
		return outcome.report, errReplayInterrupted
	}
	return outcome.report, outcome.err
}

func buildReplayPayload(path string, report replay.Report) replayPayload {
	payload := replayPayload{
		Corpus:    path,
		Entries:   make([]replayEntryPayload, 0, len(report.Results)),
		Passed:    report.Passed(),
		Failed:    report.Failed(),
		Counts:    make(map[string]int, len(report.Counts)),
		Leaked:    report.Leaked,
		ElapsedMS: report.Elapsed.Milliseconds(),
		Latency: latencyPayload{
			Min: report.Latency.Min.Microseconds(),
			P50: report.Latency.P50.Microseconds(),
			P95: report.Latency.P95.Microseconds(),
			P99: report.Latency.P99.Microseconds(),
			Max: report.Latency.Max.Microseconds(),
		},
	}
	for _, r := range report.Results {
		item := replayEntryPayload{
			Name:      r.Name,
			Code:      int(r.Code),
			CodeName:  r.Code.String(),
			Output:    string(r.Output),
			ElapsedUS: r.Elapsed.Microseconds(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		payload.Entries = append(payload.Entries, item)
	}
	for code, n := range report.Counts {
		payload.Counts[code.String()] = n
	}
	return payload
}

func renderReplay(out io.Writer, report replay.Report, verbose bool) {
	nameWidth := 4
	for _, r := range report.Results {
		if verbose || !r.OK() {
			nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
		}
	}
	nameWidth = min(nameWidth, 40)

	for _, r := range report.Results {
		if !verbose && r.OK() {
			continue
		}
		name := runewidth.FillRight(runewidth.Truncate(r.Name, nameWidth, "..."), nameWidth)
		if r.OK() {
			fmt.Fprintf(out, "%s  %s  %s\n", name, color.GreenString("ok"), string(r.Output))
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", name, color.RedString(r.Code.String()), r.Err)
	}

	parts := make([]string, 0, len(report.Counts))
	for _, code := range report.Codes() {
		parts = append(parts, fmt.Sprintf("%s=%d", code, report.Counts[code]))
	}
	summary := fmt.Sprintf("%d entries, %d passed, %d failed in %s",
		len(report.Results), report.Passed(), report.Failed(), report.Elapsed.Round(time.Microsecond))
	if report.Failed() > 0 {
		summary = color.YellowString(summary)
	} else {
		summary = color.GreenString(summary)
	}
	fmt.Fprintf(out, "%s (%s)\n", summary, strings.Join(parts, " "))
	lat := report.Latency
	fmt.Fprintf(out, "latency p50 %s  p95 %s  p99 %s  max %s\n",
		lat.P50.Round(time.Microsecond), lat.P95.Round(time.Microsecond),
		lat.P99.Round(time.Microsecond), lat.Max.Round(time.Microsecond))
}
