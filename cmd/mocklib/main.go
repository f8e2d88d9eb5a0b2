package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mocklib/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mocklib",
		Short: "Growable buffer and printable-text parser toolkit",
		Long: `mocklib drives a growable byte buffer and the parser built on it.
It parses and validates input, shows the buffer growth policy step by step,
and keeps a corpus of inputs that can be replayed through fresh parsers.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: startSession,
	}
	root.Version = version.Version

	root.AddCommand(newParseCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newGrowCmd())
	root.AddCommand(newCorpusCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newVersionCmd())

	// Глобальные флаги
	pf := root.PersistentFlags()
	pf.String("config", "", "path to mocklib.toml (default: search upward from the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Int("max-bytes", 0, "cap outstanding buffer/parser allocations in bytes (0 = unlimited)")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "", "trace level (off|error|op|detail|debug)")
	pf.String("trace-mode", "", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "", "trace format (auto|text|ndjson)")
	pf.Bool("timings", false, "print phase timings to stderr")
	pf.String("cpu-profile", "", "write CPU profile to file")
	pf.String("mem-profile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write Go runtime trace to file")
	return root
}

// main builds the command tree and executes it. Any command error is printed
// once and the process exits with status 1.
func main() {
	root := newRootCmd()
	err := root.Execute()
	finishSession(root, err)
	if err != nil {
		errColor := color.New(color.FgRed, color.Bold)
		_, _ = errColor.Fprint(os.Stderr, "error: ")
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
