package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mocklib/internal/parser"
	"mocklib/internal/trace"
)

type parsePayload struct {
	InputSize int    `json:"input_size"`
	State     string `json:"state"`
	Code      string `json:"code"`
	CodeValue uint8  `json:"code_value"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [flags] [text...]",
		Short: "Validate input and print its upper-cased form",
		Long: `Parse runs the input through a fresh parser. Input comes from --file,
from the arguments joined by spaces, or from stdin. Only printable ASCII
(32..126) is accepted; lowercase letters are upper-cased.`,
		RunE: runParse,
	}
	cmd.Flags().String("file", "", "read input from file")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to get file flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	s := currentSession()
	endRead := s.timer.Begin("read")
	input, err := readInput(cmd, args, file)
	if err != nil {
		return err
	}
	endRead(fmt.Sprintf("%d bytes", len(input)))
	p := parser.New(parser.Options{
		Allocator:  s.alloc,
		Tracer:     s.tracer,
		ParentSpan: trace.CurrentSpan(cmd.Context()),
	})
	defer func() { _ = p.Close() }()

	endParse := s.timer.Begin("parse")
	parseErr := p.Parse(input)
	endParse(parser.CodeOf(parseErr).String())

	if format == "json" {
		payload := parsePayload{
			InputSize: len(input),
			State:     p.State().String(),
			Code:      parser.CodeOf(parseErr).String(),
			CodeValue: uint8(parser.CodeOf(parseErr)),
			Output:    string(p.Output()),
		}
		if parseErr != nil {
			payload.Error = parseErr.Error()
		}
		if err := writeJSON(cmd.OutOrStdout(), payload); err != nil {
			return err
		}
		return parseErr
	}

	if parseErr != nil {
		return parseErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(p.Output()))
	notef(cmd, "%s %d bytes\n", color.GreenString("parsed"), p.OutputLen())
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
