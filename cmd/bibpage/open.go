package main

import (
	"fmt"

	"github.com/matsen/bibpage/internal/pdf"
	"github.com/matsen/bibpage/internal/record"
	"github.com/spf13/cobra"
)

var openDB string

func init() {
	openCmd.Flags().StringVar(&openDB, "db", "", "SQLite cache path (default: db_path config or ~/.cache/bibpage/entries.db)")
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open KEY",
	Short: "Open an entry's linked PDF",
	Long: `Open the PDF linked from an entry's file field.

The entry is looked up in the search cache (run 'bibpage index' first).
Relative paths are resolved against pdf_root; the viewer is chosen by
pdf_reader.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]
	cfg := mustLoadConfig()
	log := newLogger(cfg)

	db := mustOpenDatabase(firstNonEmpty(openDB, cfg.ResolvedDBPath()))
	defer db.Close()

	matches, err := db.GetByKey(key)
	if err != nil {
		exitWithError(ExitError, "looking up %s: %v", key, err)
	}

	path, err := linkedFile(matches, key, cfg.PDFRoot)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if len(matches) > 1 {
		log.Warn(ctx, "duplicate key, opening first entry", "key", key, "entries", len(matches))
	}

	if err := pdf.NewOpener(cfg.PDFReader).Open(path); err != nil {
		exitWithError(ExitError, "opening PDF: %v", err)
	}

	if humanOutput {
		fmt.Printf("Opened %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "opened", Path: path})
	}
	return nil
}

// linkedFile returns the resolved file of the first entry in matches.
func linkedFile(matches record.Collection, key, pdfRoot string) (string, error) {
	if len(matches) == 0 {
		return "", fmt.Errorf("entry not found: %s (run 'bibpage index' to refresh the cache)", key)
	}
	if matches[0].File == nil {
		return "", fmt.Errorf("entry %s has no linked file", key)
	}
	return pdf.ResolvePath(pdfRoot, *matches[0].File), nil
}
