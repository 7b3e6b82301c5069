// Package record defines the normalized, display-ready bibliography records.
package record

import (
	"regexp"
	"strconv"
)

// Author is a normalized author name.
type Author struct {
	Name    string `json:"name" yaml:"name"`       // Given name(s)
	Surname string `json:"surname" yaml:"surname"` // Family name
}

// Entry is a normalized bibliography entry ready for rendering.
//
// Author is always the ", "-joined display form of AuthorList.
// Optional fields are nil when absent and are omitted when serialized.
type Entry struct {
	BibType    string   `json:"bib_type" yaml:"bib_type"`
	Key        string   `json:"key" yaml:"key"`
	Author     string   `json:"author" yaml:"author"`
	AuthorList []Author `json:"author_list" yaml:"author_list"`
	Title      string   `json:"title" yaml:"title"`
	URL        *string  `json:"url,omitempty" yaml:"url,omitempty"`
	DOI        *string  `json:"doi,omitempty" yaml:"doi,omitempty"`
	Journal    *string  `json:"journal,omitempty" yaml:"journal,omitempty"`
	Date       *string  `json:"date,omitempty" yaml:"date,omitempty"`
	File       *string  `json:"file,omitempty" yaml:"file,omitempty"`
	Note       *string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Collection is an ordered list of entries in source order.
type Collection []Entry

var yearPattern = regexp.MustCompile(`\d{4}`)

// Year returns the first four-digit year in Date, or 0.
func (e Entry) Year() int {
	if e.Date == nil {
		return 0
	}
	m := yearPattern.FindString(*e.Date)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// Keys returns the citation keys in order.
func (c Collection) Keys() []string {
	keys := make([]string, len(c))
	for i, e := range c {
		keys[i] = e.Key
	}
	return keys
}

// DuplicateKeys returns keys that occur more than once, in first-seen order.
func (c Collection) DuplicateKeys() []string {
	counts := make(map[string]int, len(c))
	var order []string
	for _, e := range c {
		if counts[e.Key] == 0 {
			order = append(order, e.Key)
		}
		counts[e.Key]++
	}
	var dups []string
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, k)
		}
	}
	return dups
}

// Str dereferences an optional field, returning "" when absent.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
