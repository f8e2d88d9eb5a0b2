package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"mocklib/internal/corpus"
	"mocklib/internal/parser"
)

type corpusEntryPayload struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Valid bool   `json:"valid"`
	Note  string `json:"note,omitempty"`
	Added string `json:"added"`
	Sum   string `json:"sum"`
}

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage the stored input corpus",
	}
	cmd.PersistentFlags().String("corpus", "", "corpus file (default: [corpus].path from mocklib.toml)")

	add := &cobra.Command{
		Use:   "add [flags] name [text...]",
		Short: "Add or replace an entry",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCorpusAdd,
	}
	add.Flags().String("file", "", "read entry data from file")
	add.Flags().String("note", "", "free-form note stored with the entry")

	list := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE:  runCorpusList,
	}
	list.Flags().String("format", "pretty", "output format (pretty|json)")

	importCmd := &cobra.Command{
		Use:   "import dir|manifest.yaml",
		Short: "Add every file under dir, or every entry of a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE:  runCorpusImport,
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the corpus as a YAML manifest",
		Args:  cobra.NoArgs,
		RunE:  runCorpusExport,
	}
	export.Flags().String("out", "", "write to file instead of stdout")

	rm := &cobra.Command{
		Use:   "rm name...",
		Short: "Remove entries",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCorpusRemove,
	}

	cmd.AddCommand(add, list, importCmd, export, rm)
	return cmd
}

// corpusPath resolves --corpus against the session config.
func corpusPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("corpus")
	if err != nil {
		return "", fmt.Errorf("failed to get corpus flag: %w", err)
	}
	if path == "" {
		path = currentSession().cfg.Corpus.Path
	}
	return path, nil
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	note, _ := cmd.Flags().GetString("note")

	name, rest := args[0], args[1:]
	var data []byte
	if file != "" || len(rest) > 0 {
		data, err = readInput(cmd, rest, file)
		if err != nil {
			return err
		}
	}

	c, err := corpus.LoadOrNew(path)
	if err != nil {
		return err
	}
	if err := c.Add(corpus.Entry{Name: name, Data: data, Note: note}); err != nil {
		return err
	}
	if err := c.Save(path); err != nil {
		return err
	}
	notef(cmd, "%s %s (%d bytes) -> %s\n", color.GreenString("added"), name, len(data), path)
	return nil
}

func runCorpusList(cmd *cobra.Command, _ []string) error {
	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	c, err := corpus.LoadOrNew(path)
	if err != nil {
		return err
	}
	payload := make([]corpusEntryPayload, 0, c.Len())
	for _, e := range c.Entries() {
		payload = append(payload, corpusEntryPayload{
			Name:  e.Name,
			Size:  len(e.Data),
			Valid: parser.Validate(e.Data),
			Note:  e.Note,
			Added: e.Added.Format(time.RFC3339),
			Sum:   fmt.Sprintf("%08x", e.Sum),
		})
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), payload)
	}

	out := cmd.OutOrStdout()
	if len(payload) == 0 {
		notef(cmd, "corpus %s is empty\n", path)
		return nil
	}
	nameWidth := 4
	for _, p := range payload {
		nameWidth = max(nameWidth, runewidth.StringWidth(p.Name))
	}
	nameWidth = min(nameWidth, 40)
	for _, p := range payload {
		valid := color.GreenString("valid  ")
		if !p.Valid {
			valid = color.YellowString("invalid")
		}
		line := runewidth.FillRight(runewidth.Truncate(p.Name, nameWidth, "..."), nameWidth) +
			"  " + runewidth.FillLeft(strconv.Itoa(p.Size), 6) + "  " + valid
		if p.Note != "" {
			line += "  " + p.Note
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	c, err := corpus.LoadOrNew(path)
	if err != nil {
		return err
	}
	n, err := importSource(c, args[0])
	if err != nil {
		return err
	}
	if err := c.Save(path); err != nil {
		return err
	}
	notef(cmd, "%s %d entries from %s -> %s\n", color.GreenString("imported"), n, args[0], path)
	return nil
}

// importSource picks the importer by what src is: a .yaml/.yml file is read
// as a manifest, anything else as a directory of raw inputs.
func importSource(c *corpus.Corpus, src string) (int, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if ext != ".yaml" && ext != ".yml" {
		return c.ImportDir(src)
	}
	// #nosec G304 -- path is provided by the user
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return c.ImportYAML(f)
}

func runCorpusExport(cmd *cobra.Command, _ []string) error {
	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")

	c, err := corpus.Load(path)
	if err != nil {
		return err
	}
	if out == "" {
		return c.ExportYAML(cmd.OutOrStdout())
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := c.ExportYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	notef(cmd, "%s %d entries -> %s\n", color.GreenString("exported"), c.Len(), out)
	return nil
}

func runCorpusRemove(cmd *cobra.Command, args []string) error {
	path, err := corpusPath(cmd)
	if err != nil {
		return err
	}
	c, err := corpus.Load(path)
	if err != nil {
		return err
	}
	for _, name := range args {
		if !c.Remove(name) {
			return fmt.Errorf("no entry named %q in %s", name, path)
		}
	}
	return c.Save(path)
}
