// Package normalize maps raw bibliography entries to display-ready records.
//
// Author list and title are required: an entry missing either is rejected.
// Every other field is optional and degrades to absent on any failure,
// without affecting the rest of the entry.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/bibpage/internal/bib"
	"github.com/matsen/bibpage/internal/record"
)

// jabrefFilePattern matches JabRef packed file references such as
// "Description:/path/to/paper.pdf:PDF".
var jabrefFilePattern = regexp.MustCompile(`:(.+):PDF`)

// Flatten concatenates chunk text, discarding formatting.
func Flatten(chunks bib.Chunks) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Value)
	}
	return b.String()
}

// FormatPerson renders a person as "Given Family".
// An empty given name leaves a leading space.
func FormatPerson(p bib.Person) string {
	return p.GivenName + " " + p.Name
}

// NormalizeDate renders a date field for display.
// Free text is flattened; a structured date yields its year only when it is
// a single point in time, and nil for intervals.
func NormalizeDate(d bib.DateField) *string {
	switch d := d.(type) {
	case bib.FreeText:
		s := Flatten(d.Chunks)
		return &s
	case bib.Structured:
		switch v := d.Value.(type) {
		case bib.At:
			s := strconv.Itoa(v.Year)
			return &s
		case bib.After, bib.Before, bib.Between:
			return nil
		}
	}
	return nil
}

// DecodeFile extracts the path from a JabRef file field.
func DecodeFile(raw string) (string, error) {
	m := jabrefFilePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ErrPatternMismatch
	}
	return m[1], nil
}

// Entry normalizes one raw entry. It returns a *RejectedError when the
// author list or title cannot be extracted.
func Entry(e bib.Entry) (record.Entry, error) {
	persons, err := e.Author()
	if err != nil {
		return record.Entry{}, &RejectedError{Key: e.Key, Field: "author", Err: err}
	}
	if len(persons) == 0 {
		return record.Entry{}, &RejectedError{Key: e.Key, Field: "author", Err: errEmptyAuthorList}
	}

	title, err := e.Title()
	if err != nil {
		return record.Entry{}, &RejectedError{Key: e.Key, Field: "title", Err: err}
	}

	authors := make([]record.Author, len(persons))
	names := make([]string, len(persons))
	for i, p := range persons {
		authors[i] = record.Author{Name: p.GivenName, Surname: p.Name}
		names[i] = FormatPerson(p)
	}

	out := record.Entry{
		BibType:    e.Type,
		Key:        e.Key,
		Author:     strings.Join(names, ", "),
		AuthorList: authors,
		Title:      Flatten(title),
		URL:        optional(e.URL()),
		DOI:        optional(e.DOI()),
		Journal:    optionalText(e.Journal()),
		Note:       optionalText(e.Note()),
	}

	if d, err := e.Date(); err == nil {
		out.Date = NormalizeDate(d)
	}
	if raw, err := e.File(); err == nil {
		if path, err := DecodeFile(raw); err == nil {
			out.File = &path
		}
	}

	return out, nil
}

func optional(s string, err error) *string {
	if err != nil {
		return nil
	}
	return &s
}

func optionalText(c bib.Chunks, err error) *string {
	if err != nil {
		return nil
	}
	s := Flatten(c)
	return &s
}
