package bib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickng/bibtex"
)

// ParseError reports a bibliography that could not be parsed at all.
type ParseError struct {
	Path string // Empty when parsing from a reader
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parsing bibliography: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads all entries from BibTeX source, in source order.
// String macros are expanded; comments and preambles yield no entries.
func Parse(r io.Reader) ([]Entry, error) {
	parsed, err := bibtex.Parse(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	entries := make([]Entry, 0, len(parsed.Entries))
	for _, be := range parsed.Entries {
		if be == nil {
			continue
		}
		fields := make(map[string]string, len(be.Fields))
		for name, value := range be.Fields {
			if value == nil {
				continue
			}
			fields[name] = value.String()
		}
		entries = append(entries, NewEntry(strings.TrimSpace(be.Type), strings.TrimSpace(be.CiteName), fields))
	}
	return entries, nil
}

// ParseFile reads all entries from a BibTeX file.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bibliography: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return entries, nil
}
