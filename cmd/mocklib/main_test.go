package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mocklib/internal/corpus"
	"mocklib/internal/parser"
	"mocklib/internal/replay"
)

// writeTestConfig creates a mocklib.toml whose corpus lives next to it.
func writeTestConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "mocklib.toml")
	data := `[trace]
level = "off"

[replay]
ui = "off"

[corpus]
path = "corpus.mp"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write mocklib.toml: %v", err)
	}
	return dir, path
}

// execute runs the CLI in-process the way main does, minus os.Exit.
func execute(t *testing.T, cfgPath string, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath, "--color", "off"}, args...))
	err := root.Execute()
	finishSession(root, err)
	return stdout.String(), stderr.String(), err
}

func TestParseCommand(t *testing.T) {
	_, cfg := writeTestConfig(t)

	out, _, err := execute(t, cfg, "", "parse", "hello", "world")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "HELLO WORLD\n" {
		t.Fatalf("parse output = %q, want %q", out, "HELLO WORLD\n")
	}

	out, _, err = execute(t, cfg, "from stdin", "parse", "--quiet")
	if err != nil {
		t.Fatalf("parse stdin: %v", err)
	}
	if out != "FROM STDIN\n" {
		t.Fatalf("parse stdin output = %q", out)
	}
}

func TestParseCommandJSONReportsFailure(t *testing.T) {
	_, cfg := writeTestConfig(t)

	out, _, err := execute(t, cfg, "", "parse", "--format", "json", "tab\there")
	if !errors.Is(err, parser.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	var payload parsePayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode payload: %v\n%s", err, out)
	}
	if payload.Code != "validation_failed" || payload.CodeValue != 2 {
		t.Fatalf("payload code = %s/%d", payload.Code, payload.CodeValue)
	}
	if payload.State != "initial" || payload.Output != "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestParseCommandHonoursMaxBytes(t *testing.T) {
	_, cfg := writeTestConfig(t)

	_, _, err := execute(t, cfg, "", "--max-bytes", "4", "parse", "hello")
	if !errors.Is(err, parser.ErrBufferAllocationFailed) {
		t.Fatalf("expected ErrBufferAllocationFailed, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	_, cfg := writeTestConfig(t)

	out, _, err := execute(t, cfg, "", "validate", "Hello, World!")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.HasPrefix(out, "valid (13 bytes)") {
		t.Fatalf("validate output = %q", out)
	}

	out, _, err = execute(t, cfg, "", "validate", "ab\x7fc")
	if !errors.Is(err, errInvalidInput) {
		t.Fatalf("expected errInvalidInput, got %v", err)
	}
	if !strings.Contains(out, "0x7f at offset 2") {
		t.Fatalf("validate output = %q", out)
	}
}

func TestSimulateGrowth(t *testing.T) {
	steps, err := simulateGrowth(1, []string{"abc", "defgh", ""}, 4)
	if err != nil {
		t.Fatalf("simulateGrowth: %v", err)
	}
	want := []struct {
		op       string
		len, cap int
		grew     bool
		failed   bool
	}{
		{"create", 0, 1, false, false},
		{"append", 3, 4, true, false},
		{"append", 8, 16, true, false},
		{"append", 8, 16, false, false},
		{"resize", 8, 16, false, true},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d: %+v", len(steps), len(want), steps)
	}
	for i, w := range want {
		st := steps[i]
		if st.Op != w.op || st.Len != w.len || st.Cap != w.cap || st.Grew != w.grew || (st.Error != "") != w.failed {
			t.Fatalf("step %d = %+v, want %+v", i, st, w)
		}
	}
}

func TestGrowCommandJSON(t *testing.T) {
	_, cfg := writeTestConfig(t)

	out, _, err := execute(t, cfg, "", "grow", "--initial", "2", "--resize", "32", "--format", "json", "abcd")
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	var steps []growStep
	if err := json.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatalf("decode steps: %v\n%s", err, out)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps: %+v", len(steps), steps)
	}
	if steps[1].Cap != 8 || steps[2].Cap != 32 || !steps[2].Grew {
		t.Fatalf("unexpected growth: %+v", steps)
	}
}

func TestCorpusAndReplay(t *testing.T) {
	dir, cfg := writeTestConfig(t)

	if _, _, err := execute(t, cfg, "", "corpus", "add", "greeting", "hello", "world"); err != nil {
		t.Fatalf("corpus add: %v", err)
	}
	badPath := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(badPath, []byte("bad\x01"), 0o600); err != nil {
		t.Fatalf("write bad.bin: %v", err)
	}
	if _, _, err := execute(t, cfg, "", "corpus", "add", "--file", badPath, "--note", "control byte", "bad"); err != nil {
		t.Fatalf("corpus add --file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "corpus.mp")); err != nil {
		t.Fatalf("corpus file not written: %v", err)
	}

	out, _, err := execute(t, cfg, "", "corpus", "list", "--format", "json")
	if err != nil {
		t.Fatalf("corpus list: %v", err)
	}
	var listed []corpusEntryPayload
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(listed) != 2 || listed[0].Name != "greeting" || !listed[0].Valid || listed[0].Size != 11 {
		t.Fatalf("unexpected list: %+v", listed)
	}
	if listed[1].Name != "bad" || listed[1].Valid || listed[1].Note != "control byte" {
		t.Fatalf("unexpected list: %+v", listed)
	}

	out, _, err = execute(t, cfg, "", "replay", "--format", "json", "--jobs", "2")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var report replayPayload
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode replay: %v\n%s", err, out)
	}
	if report.Passed != 1 || report.Failed != 1 || report.Leaked != 0 {
		t.Fatalf("unexpected replay summary: %+v", report)
	}
	if report.Counts["none"] != 1 || report.Counts["validation_failed"] != 1 {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}
	for _, e := range report.Entries {
		if e.Name == "greeting" && e.Output != "HELLO WORLD" {
			t.Fatalf("greeting output = %q", e.Output)
		}
	}

	if _, _, err := execute(t, cfg, "", "corpus", "rm", "bad"); err != nil {
		t.Fatalf("corpus rm: %v", err)
	}
	if _, _, err := execute(t, cfg, "", "corpus", "rm", "bad"); err == nil {
		t.Fatalf("expected error removing a missing entry")
	}
	if _, _, err := execute(t, cfg, "", "replay", "--format", "json", "missing"); err == nil {
		t.Fatalf("expected error replaying an unknown entry")
	}
}

func TestCorpusImport(t *testing.T) {
	dir, cfg := writeTestConfig(t)
	seeds := filepath.Join(dir, "seeds")
	if err := os.Mkdir(seeds, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, data := range map[string]string{"a.txt": "alpha", "b.txt": "beta"} {
		if err := os.WriteFile(filepath.Join(seeds, name), []byte(data), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if _, _, err := execute(t, cfg, "", "corpus", "import", seeds); err != nil {
		t.Fatalf("corpus import: %v", err)
	}
	out, _, err := execute(t, cfg, "", "replay", "--verbose")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "ALPHA") || !strings.Contains(out, "BETA") {
		t.Fatalf("replay output missing entries:\n%s", out)
	}
	if !strings.Contains(out, "2 entries, 2 passed, 0 failed") {
		t.Fatalf("replay summary missing:\n%s", out)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	_, cfg := writeTestConfig(t)

	out, _, err := execute(t, cfg, "", "version", "--format", "json", "--hash")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode version: %v\n%s", err, out)
	}
	if payload.Tool != "mocklib" || payload.Library != "1.0.0" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.GitCommit == "" {
		t.Fatalf("expected git_commit with --hash")
	}
	if payload.BuildDate != "" {
		t.Fatalf("build_date should be omitted without --date")
	}
}

func TestResolveColor(t *testing.T) {
	if on, err := resolveColor("on"); err != nil || !on {
		t.Fatalf("resolveColor(on) = %v, %v", on, err)
	}
	if on, err := resolveColor(" OFF "); err != nil || on {
		t.Fatalf("resolveColor(OFF) = %v, %v", on, err)
	}
	if _, err := resolveColor("sometimes"); err == nil {
		t.Fatalf("expected error for invalid color mode")
	}
}

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{"": uiModeAuto, "Auto": uiModeAuto, "on": uiModeOn, " off": uiModeOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := readUIMode("tui"); err == nil {
		t.Fatalf("expected error for invalid ui mode")
	}
	if shouldUseTUI(uiModeOn, false, "json") || shouldUseTUI(uiModeOn, true, "pretty") {
		t.Fatalf("json output and quiet runs must not use the TUI")
	}
}

func TestReadInputRejectsFileAndArgs(t *testing.T) {
	root := newRootCmd()
	if _, err := readInput(root, []string{"x"}, "some.txt"); err == nil {
		t.Fatalf("expected error when both --file and args are given")
	}
}

func TestTimingsAndProfiling(t *testing.T) {
	dir, cfg := writeTestConfig(t)
	memPath := filepath.Join(dir, "mem.pprof")

	_, stderr, err := execute(t, cfg, "", "--timings", "--mem-profile", memPath, "parse", "abc")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(stderr, "timings:") || !strings.Contains(stderr, "parse") {
		t.Fatalf("timings missing from stderr:\n%s", stderr)
	}
	if _, err := os.Stat(memPath); err != nil {
		t.Fatalf("heap profile not written: %v", err)
	}
}

func TestCorpusExportImportYAML(t *testing.T) {
	dir, cfg := writeTestConfig(t)
	if _, _, err := execute(t, cfg, "", "corpus", "add", "--note", "seed", "hello", "hello there"); err != nil {
		t.Fatalf("corpus add: %v", err)
	}
	manifest := filepath.Join(dir, "corpus.yaml")
	if _, _, err := execute(t, cfg, "", "corpus", "export", "--out", manifest); err != nil {
		t.Fatalf("corpus export: %v", err)
	}
	if _, _, err := execute(t, cfg, "", "corpus", "rm", "hello"); err != nil {
		t.Fatalf("corpus rm: %v", err)
	}
	if _, _, err := execute(t, cfg, "", "corpus", "import", manifest); err != nil {
		t.Fatalf("corpus import: %v", err)
	}
	out, _, err := execute(t, cfg, "", "corpus", "list", "--format", "json")
	if err != nil {
		t.Fatalf("corpus list: %v", err)
	}
	var listed []corpusEntryPayload
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Name != "hello" || listed[0].Note != "seed" || listed[0].Size != 11 {
		t.Fatalf("unexpected list after manifest import: %+v", listed)
	}
}

func TestReplayWithViewStopsWhenViewQuits(t *testing.T) {
	entries := make([]corpus.Entry, 1000)
	for i := range entries {
		entries[i] = corpus.Entry{Name: fmt.Sprintf("e%04d", i), Data: []byte("abc")}
	}
	finished := make(chan error, 1)
	go func() {
		// the view returns at once without reading, like ctrl+c in the TUI
		_, err := replayWithView(context.Background(), entries, replay.Options{Jobs: 2},
			func(<-chan replay.Event) error { return nil })
		finished <- err
	}()
	select {
	case err := <-finished:
		if !errors.Is(err, errReplayInterrupted) {
			t.Fatalf("expected errReplayInterrupted, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("replay did not stop after the view quit")
	}
}

func TestReplayWithViewReportsCompletedRun(t *testing.T) {
	entries := []corpus.Entry{{Name: "a", Data: []byte("abc")}, {Name: "b", Data: nil}}
	seen := 0
	report, err := replayWithView(context.Background(), entries, replay.Options{},
		func(events <-chan replay.Event) error {
			for range events {
				seen++
			}
			return nil
		})
	if err != nil {
		t.Fatalf("replayWithView: %v", err)
	}
	if report.Passed() != 1 || report.Failed() != 1 || seen == 0 {
		t.Fatalf("passed=%d failed=%d events=%d", report.Passed(), report.Failed(), seen)
	}
}

func TestBadColorFlagOpensNoTraceFile(t *testing.T) {
	dir, cfg := writeTestConfig(t)
	tracePath := filepath.Join(dir, "trace.log")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfg, "--color", "sometimes", "--trace", tracePath, "parse", "abc"})
	err := root.Execute()
	finishSession(root, err)
	if err == nil {
		t.Fatalf("expected an error for an invalid --color value")
	}
	if _, statErr := os.Stat(tracePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("trace file opened before flag validation failed: %v", statErr)
	}
}
