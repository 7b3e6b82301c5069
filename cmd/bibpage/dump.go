package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/matsen/bibpage/internal/record"
	"github.com/matsen/bibpage/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dumpBibtex  string
	dumpFormat  string
	dumpWorkers int
	dumpOutput  string
)

func init() {
	dumpCmd.Flags().StringVar(&dumpBibtex, "bibtex", "", "BibTeX/BibLaTeX file to read (required)")
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", storage.FormatJSON, "Output format: json, jsonl, yaml")
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Write to FILE instead of stdout")
	dumpCmd.Flags().IntVar(&dumpWorkers, "workers", 0, "Normalize on N goroutines (0: sequential)")
	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the normalized collection",
	Long: `Print the normalized collection in JSON, JSONL or YAML.

This is exactly what templates receive as "biblio". Absent optional
fields are omitted.

Examples:
  bibpage dump --bibtex refs.bib
  bibpage dump --bibtex refs.bib --format yaml
  bibpage dump --bibtex refs.bib -f jsonl -o refs.jsonl`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(dumpFormat)
	if format == "yml" {
		format = storage.FormatYAML
	}
	if !slices.Contains(storage.ValidFormats, format) {
		exitWithError(ExitError, "invalid format %q (valid: %v)", dumpFormat, storage.ValidFormats)
	}

	cfg := mustLoadConfig()
	log := newLogger(cfg)
	workers := effectiveWorkers(dumpWorkers, cmd.Flags().Changed("workers"), cfg)
	l := mustLoadBibliography(cmd.Context(), dumpBibtex, workers, log)

	if dumpOutput == "" || dumpOutput == "-" {
		if err := storage.Encode(os.Stdout, l.Collection, format); err != nil {
			exitWithError(ExitError, "writing output: %v", err)
		}
		return nil
	}

	if err := writeDump(dumpOutput, l.Collection, format); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	log.Info(cmd.Context(), "wrote collection", "path", dumpOutput, "format", format)
	if humanOutput {
		fmt.Printf("Wrote %d entries to %s\n", len(l.Collection), dumpOutput)
	} else {
		outputJSON(StatusResponse{Status: "written", Path: dumpOutput})
	}
	return nil
}

// writeDump writes coll to path in format, replacing existing content.
func writeDump(path string, coll record.Collection, format string) error {
	if format == storage.FormatJSONL {
		return storage.WriteJSONLFile(path, coll)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := storage.Encode(f, coll, format); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
