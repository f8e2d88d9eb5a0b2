package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mocklib/internal/parser"
)

var errInvalidInput = errors.New("input is not printable ASCII")

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [flags] [text...]",
		Short: "Check that input is non-empty printable ASCII",
		RunE:  runValidate,
	}
	cmd.Flags().String("file", "", "read input from file")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to get file flag: %w", err)
	}
	input, err := readInput(cmd, args, file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if parser.Validate(input) {
		fmt.Fprintf(out, "%s (%d bytes)\n", color.GreenString("valid"), len(input))
		return nil
	}
	if len(input) == 0 {
		fmt.Fprintf(out, "%s: empty input\n", color.RedString("invalid"))
		return errInvalidInput
	}
	i := parser.FirstInvalid(input)
	fmt.Fprintf(out, "%s: byte 0x%02x at offset %d\n", color.RedString("invalid"), input[i], i)
	return errInvalidInput
}
