package main

import (
	"fmt"
	"strings"

	"github.com/matsen/bibpage/internal/record"
	"github.com/matsen/bibpage/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchDB    string
	searchLimit int
	searchField string
)

func init() {
	searchCmd.Flags().StringVar(&searchDB, "db", "", "SQLite cache path (default: db_path config or ~/.cache/bibpage/entries.db)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return (0: all)")
	searchCmd.Flags().StringVar(&searchField, "field", "", "Search one field only: title, author, journal, note")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Full-text search over the indexed bibliography",
	Long: `Full-text search over title, author, journal and note.

Run 'bibpage index' first. Field-specific searches use --field or the
author:/title: prefixes. Without a query every indexed entry is listed
in source order, up to --limit.

Examples:
  bibpage search "graph theory"
  bibpage search author:Lovelace
  bibpage search --field journal Nature
  bibpage search --limit 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(firstNonEmpty(searchDB, cfg.ResolvedDBPath()))
	defer db.Close()

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	coll, err := searchEntries(db, searchField, query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
	if coll == nil {
		coll = record.Collection{}
	}

	if humanOutput {
		if len(coll) == 0 {
			fmt.Println("No entries found")
		} else {
			fmt.Printf("Found %d entries:\n\n", len(coll))
			for i, e := range coll {
				printEntrySummary(i+1, e)
			}
		}
	} else {
		outputJSON(coll)
	}
	return nil
}

// searchEntries runs a full-text or field search, or lists every entry
// when the query is blank.
func searchEntries(db *storage.DB, field, query string, limit int) (record.Collection, error) {
	field, query = parseSearchQuery(field, query)
	switch {
	case strings.TrimSpace(query) == "":
		return db.ListAll(limit)
	case field != "":
		return db.SearchField(field, query, limit)
	default:
		return db.Search(query, limit)
	}
}

// parseSearchQuery splits a "field:value" query. An explicit field wins.
func parseSearchQuery(field, query string) (string, string) {
	if field != "" {
		return field, query
	}
	for _, f := range []string{"author", "title", "journal", "note"} {
		if rest, ok := strings.CutPrefix(query, f+":"); ok {
			return f, rest
		}
	}
	return "", query
}
