package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readInput returns the bytes a command operates on: the --file contents,
// the joined positional arguments, or stdin when neither is given.
// Arguments are taken verbatim, so `mocklib parse ""` yields an empty input.
func readInput(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either --file or text arguments, not both")
		}
		// #nosec G304 -- path is provided by the user
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		return data, nil
	}
	if len(args) > 0 {
		return []byte(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}
