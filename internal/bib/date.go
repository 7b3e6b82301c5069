package bib

import (
	"regexp"
	"strconv"
	"strings"
)

// DateField is the value of a date field. It is either FreeText or Structured.
type DateField interface {
	isDateField()
}

// FreeText is a date that could not be read as a calendar value.
type FreeText struct {
	Chunks Chunks
}

// Structured is a date that was read as a calendar value.
type Structured struct {
	Value DateValue
}

func (FreeText) isDateField()   {}
func (Structured) isDateField() {}

// DateValue is the semantic kind of a structured date: At, After, Before or Between.
type DateValue interface {
	isDateValue()
}

// Datetime is a calendar position. Month and Day are 0 when unknown.
type Datetime struct {
	Year  int
	Month int
	Day   int
}

// At is a single point in time, e.g. 1999 or 1999-05-12.
type At struct{ Datetime }

// After is an open interval starting at a point, e.g. 1999/.
type After struct{ Datetime }

// Before is an open interval ending at a point, e.g. /1999.
type Before struct{ Datetime }

// Between is a closed interval, e.g. 1999/2001.
type Between struct {
	Start Datetime
	End   Datetime
}

func (At) isDateValue()      {}
func (After) isDateValue()   {}
func (Before) isDateValue()  {}
func (Between) isDateValue() {}

var datetimePattern = regexp.MustCompile(`^(-?\d{4})(?:-(\d{2})(?:-(\d{2}))?)?$`)

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParseDateValue reads an ISO 8601 style date or interval.
// It reports false when s is not a calendar value.
func ParseDateValue(s string) (DateValue, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	before, after, isRange := strings.Cut(s, "/")
	if !isRange {
		dt, ok := parseDatetime(s)
		if !ok {
			return nil, false
		}
		return At{dt}, true
	}

	openStart := before == "" || before == ".."
	openEnd := after == "" || after == ".."
	switch {
	case openStart && openEnd:
		return nil, false
	case openStart:
		end, ok := parseDatetime(after)
		if !ok {
			return nil, false
		}
		return Before{end}, true
	case openEnd:
		start, ok := parseDatetime(before)
		if !ok {
			return nil, false
		}
		return After{start}, true
	}

	start, ok := parseDatetime(before)
	if !ok {
		return nil, false
	}
	end, ok := parseDatetime(after)
	if !ok {
		return nil, false
	}
	return Between{Start: start, End: end}, true
}

func parseDatetime(s string) (Datetime, bool) {
	m := datetimePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Datetime{}, false
	}
	var dt Datetime
	dt.Year, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		dt.Month, _ = strconv.Atoi(m[2])
		if dt.Month < 1 || dt.Month > 12 {
			return Datetime{}, false
		}
	}
	if m[3] != "" {
		dt.Day, _ = strconv.Atoi(m[3])
		if dt.Day < 1 || dt.Day > 31 {
			return Datetime{}, false
		}
	}
	return dt, true
}

// parseDateField reads the date field text, falling back to free text.
func parseDateField(raw string) DateField {
	chunks := ParseChunks(raw)
	if v, ok := ParseDateValue(chunks.plain()); ok {
		return Structured{Value: v}
	}
	return FreeText{Chunks: chunks}
}

// parseYearMonth combines legacy year and month fields.
// A non-numeric year is kept as free text.
func parseYearMonth(year, month string) DateField {
	chunks := ParseChunks(year)
	y, err := strconv.Atoi(strings.TrimSpace(chunks.plain()))
	if err != nil {
		return FreeText{Chunks: chunks}
	}
	return Structured{Value: At{Datetime{Year: y, Month: parseMonth(month)}}}
}

// parseMonth accepts 1-12 or a month name; anything else is 0.
func parseMonth(s string) int {
	s = strings.ToLower(strings.TrimSpace(ParseChunks(s).plain()))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	if len(s) >= 3 {
		return monthNames[s[:3]]
	}
	return 0
}
