// Package bib models parsed bibliography entries and reads them from BibTeX files.
package bib

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField indicates the entry has no such field.
	ErrMissingField = errors.New("field missing")

	// ErrTypeMismatch indicates the field is present but cannot be read as the requested type.
	ErrTypeMismatch = errors.New("field has unexpected type")
)

// TypeError describes a field whose text cannot be read as the requested type.
type TypeError struct {
	Field  string
	Reason string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

func (e *TypeError) Unwrap() error {
	return ErrTypeMismatch
}

// Entry is one raw bibliography entry. Field access goes through typed
// accessors that return ErrMissingField or a *TypeError on failure.
type Entry struct {
	Type string // Lowercase entry type, e.g. "article"
	Key  string // Citation key

	fields map[string]string // lowercase field name -> raw field text
}

// NewEntry builds an entry from raw field text. Field names are case-insensitive.
func NewEntry(entryType, key string, fields map[string]string) Entry {
	e := Entry{
		Type:   strings.ToLower(entryType),
		Key:    key,
		fields: make(map[string]string, len(fields)),
	}
	for name, value := range fields {
		e.fields[strings.ToLower(name)] = value
	}
	return e
}

// Raw returns the unprocessed text of a field.
func (e Entry) Raw(name string) (string, error) {
	v, ok := e.fields[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	if !balanced(v) {
		return "", &TypeError{Field: name, Reason: "unbalanced braces"}
	}
	return v, nil
}

// Chunks returns a text field split into chunks.
func (e Entry) Chunks(name string) (Chunks, error) {
	v, err := e.Raw(name)
	if err != nil {
		return nil, err
	}
	return ParseChunks(v), nil
}

// verbatim returns a field whose content is taken literally (url, doi, file).
func (e Entry) verbatim(name string) (string, error) {
	v, err := e.Raw(name)
	if err != nil {
		return "", err
	}
	return stripOuterBraces(v), nil
}

// Author returns the author list in source order.
func (e Entry) Author() ([]Person, error) {
	v, err := e.Raw("author")
	if err != nil {
		return nil, err
	}
	return ParsePersons(v), nil
}

// Title returns the title field.
func (e Entry) Title() (Chunks, error) {
	return e.Chunks("title")
}

// URL returns the url field.
func (e Entry) URL() (string, error) {
	return e.verbatim("url")
}

// DOI returns the doi field.
func (e Entry) DOI() (string, error) {
	return e.verbatim("doi")
}

// Journal returns the journal field, falling back to journaltitle.
func (e Entry) Journal() (Chunks, error) {
	c, err := e.Chunks("journal")
	if errors.Is(err, ErrMissingField) {
		return e.Chunks("journaltitle")
	}
	return c, err
}

// Date returns the date field, falling back to year and month.
func (e Entry) Date() (DateField, error) {
	v, err := e.Raw("date")
	if err == nil {
		return parseDateField(v), nil
	}
	if !errors.Is(err, ErrMissingField) {
		return nil, err
	}

	year, err := e.Raw("year")
	if err != nil {
		return nil, err
	}
	month, err := e.Raw("month")
	if err != nil && !errors.Is(err, ErrMissingField) {
		return nil, err
	}
	return parseYearMonth(year, month), nil
}

// File returns the file field as written, e.g. a JabRef packed file reference.
func (e Entry) File() (string, error) {
	return e.verbatim("file")
}

// Note returns the note field.
func (e Entry) Note() (Chunks, error) {
	return e.Chunks("note")
}
