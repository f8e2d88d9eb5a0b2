package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"mocklib/internal/buffer"
)

type growStep struct {
	Op    string `json:"op"`
	Bytes int    `json:"bytes"`
	Len   int    `json:"len"`
	Cap   int    `json:"cap"`
	Grew  bool   `json:"grew"`
	Error string `json:"error,omitempty"`
}

func newGrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grow [flags] chunk...",
		Short: "Append chunks to a buffer and show how its capacity grows",
		Long: `Grow creates a buffer with --initial capacity, appends each argument in
order and prints length and capacity after every step. --resize applies an
explicit resize after the appends; requests at or below the stored length
are rejected and reported.`,
		RunE: runGrow,
	}
	cmd.Flags().Int("initial", 1, "initial capacity (0 is treated as 1)")
	cmd.Flags().Int("resize", 0, "resize to this capacity after appending (0 = skip)")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runGrow(cmd *cobra.Command, args []string) error {
	initial, err := cmd.Flags().GetInt("initial")
	if err != nil {
		return fmt.Errorf("failed to get initial flag: %w", err)
	}
	resize, err := cmd.Flags().GetInt("resize")
	if err != nil {
		return fmt.Errorf("failed to get resize flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	steps, err := simulateGrowth(initial, args, resize)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), steps)
	}
	renderGrowth(cmd.OutOrStdout(), steps)
	return nil
}

// simulateGrowth records the buffer state after creation and after every
// operation. Operation failures are recorded in the step, not returned.
func simulateGrowth(initial int, chunks []string, resize int) ([]growStep, error) {
	s := currentSession()
	b, err := buffer.New(initial, buffer.Options{Allocator: s.alloc, Tracer: s.tracer})
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	steps := []growStep{{Op: "create", Bytes: initial, Len: b.Len(), Cap: b.Cap()}}
	for _, chunk := range chunks {
		before := b.Cap()
		step := growStep{Op: "append", Bytes: len(chunk)}
		if err := b.Append([]byte(chunk)); err != nil {
			step.Error = err.Error()
		}
		step.Len, step.Cap, step.Grew = b.Len(), b.Cap(), b.Cap() != before
		steps = append(steps, step)
	}
	if resize > 0 {
		before := b.Cap()
		step := growStep{Op: "resize", Bytes: resize}
		if err := b.Resize(resize); err != nil {
			step.Error = err.Error()
		}
		step.Len, step.Cap, step.Grew = b.Len(), b.Cap(), b.Cap() > before
		steps = append(steps, step)
	}
	return steps, nil
}

func renderGrowth(out io.Writer, steps []growStep) {
	header := []string{"#", "op", "bytes", "len", "cap", ""}
	widths := []int{4, 8, 8, 8, 8, 0}
	row := func(cols []string) string {
		line := ""
		for i, c := range cols {
			if widths[i] > 0 {
				c = runewidth.FillRight(c, widths[i])
			}
			line += c
		}
		return line
	}

	fmt.Fprintln(out, color.New(color.Bold).Sprint(row(header)))
	for i, st := range steps {
		note := ""
		switch {
		case st.Error != "":
			note = color.RedString(st.Error)
		case st.Grew:
			note = color.YellowString("grew")
		}
		fmt.Fprintln(out, row([]string{
			strconv.Itoa(i),
			st.Op,
			strconv.Itoa(st.Bytes),
			strconv.Itoa(st.Len),
			strconv.Itoa(st.Cap),
			note,
		}))
	}
}
