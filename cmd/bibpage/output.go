package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/bibpage/internal/record"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search

	SearchTitleMaxLen = 70 // Used in search result summaries
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// RenderResponse is the response for the render command.
type RenderResponse struct {
	Status   string `json:"status"`
	Entries  int    `json:"entries"`
	Rejected int    `json:"rejected"`
	Output   string `json:"output"`
}

// IndexResponse is the response for the index command.
type IndexResponse struct {
	Status   string `json:"status"`
	Entries  int    `json:"entries"`
	Rejected int    `json:"rejected"`
	Path     string `json:"path"`
}

// UpdateResponse is the response for config set.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// truncateString shortens s to maxLen runes, adding "..." when cut.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthorsShort lists up to limit surnames, then "et al.".
func formatAuthorsShort(authors []record.Author, limit int) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, limit)
	for i, a := range authors {
		if i >= limit {
			break
		}
		name := a.Surname
		if name == "" {
			name = a.Name
		}
		names = append(names, name)
	}
	s := strings.Join(names, ", ")
	if len(authors) > limit {
		s += " et al."
	}
	return s
}

// printEntrySummary prints one numbered entry for human output.
func printEntrySummary(num int, e record.Entry) {
	fmt.Printf("[%d] %s\n", num, e.Key)
	fmt.Printf("    %s\n", truncateString(e.Title, SearchTitleMaxLen))
	if len(e.AuthorList) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(e.AuthorList, 3))
	}

	var where []string
	if j := record.Str(e.Journal); j != "" {
		where = append(where, j)
	}
	if d := record.Str(e.Date); d != "" {
		where = append(where, "("+d+")")
	}
	if len(where) > 0 {
		fmt.Printf("    %s\n", strings.Join(where, " "))
	}
	fmt.Println()
}
