package main

import (
	"fmt"

	"github.com/matsen/bibpage/internal/storage"
	"github.com/spf13/cobra"
)

var (
	indexBibtex    string
	indexFromJSONL string
	indexFromYAML  string
	indexDB        string
)

func init() {
	indexCmd.Flags().StringVar(&indexBibtex, "bibtex", "", "BibTeX/BibLaTeX file to index")
	indexCmd.Flags().StringVar(&indexFromJSONL, "from-jsonl", "", "Index a collection previously written with 'dump --format jsonl'")
	indexCmd.Flags().StringVar(&indexFromYAML, "from-yaml", "", "Index a collection previously written with 'dump --format yaml'")
	indexCmd.Flags().StringVar(&indexDB, "db", "", "SQLite cache path (default: db_path config or ~/.cache/bibpage/entries.db)")
	indexCmd.MarkFlagsMutuallyExclusive("bibtex", "from-jsonl", "from-yaml")
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search cache",
	Long: `Rebuild the SQLite search cache from a bibliography.

The cache is replaced wholesale; it is only used by 'search' and 'open'.

Examples:
  bibpage index --bibtex refs.bib
  bibpage dump --bibtex refs.bib -f jsonl -o refs.jsonl && bibpage index --from-jsonl refs.jsonl
  bibpage index --from-yaml refs.yaml`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	log := newLogger(cfg)

	if indexBibtex == "" && indexFromJSONL == "" && indexFromYAML == "" {
		exitWithError(ExitError, "one of --bibtex, --from-jsonl or --from-yaml is required")
	}

	dbPath := firstNonEmpty(indexDB, cfg.ResolvedDBPath())
	db := mustOpenDatabase(dbPath)
	defer db.Close()

	var count, rejected int
	var err error
	switch {
	case indexFromJSONL != "":
		count, err = db.RebuildFromJSONL(indexFromJSONL)
	case indexFromYAML != "":
		coll, readErr := storage.ReadYAML(indexFromYAML)
		if readErr != nil {
			exitWithError(ExitDataError, "%v", readErr)
		}
		count, err = db.ReplaceAll(coll)
	default:
		l := mustLoadBibliography(ctx, indexBibtex, cfg.Workers, log)
		rejected = len(l.Rejected)
		count, err = db.ReplaceAll(l.Collection)
	}
	if err != nil {
		exitWithError(ExitDataError, "rebuilding index: %v", err)
	}
	log.Info(ctx, "indexed entries", "path", dbPath, "entries", count)

	if humanOutput {
		fmt.Printf("Indexed %d entries into %s\n", count, dbPath)
	} else {
		outputJSON(IndexResponse{
			Status:   "indexed",
			Entries:  count,
			Rejected: rejected,
			Path:     dbPath,
		})
	}
	return nil
}
