package bib

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Person is a parsed name from a name-list field such as author.
type Person struct {
	GivenName string // First name(s)
	Name      string // Family name
	Prefix    string // von part, e.g. "van der"
	Suffix    string // Jr part
}

// ParsePersons splits a name list on "and" and parses each name.
// An empty list yields no persons.
func ParsePersons(s string) []Person {
	var persons []Person
	for _, name := range splitNameList(s) {
		persons = append(persons, ParsePerson(name))
	}
	return persons
}

// ParsePerson parses a single name in one of the BibTeX forms:
//
//	First von Last
//	von Last, First
//	von Last, Jr, First
//
// A name entirely wrapped in braces is taken as a family name.
func ParsePerson(s string) Person {
	s = strings.TrimSpace(s)
	if s == "" {
		return Person{}
	}
	if inner := stripOuterBraces(s); inner != s {
		return Person{Name: ParseChunks(inner).plain()}
	}

	parts := splitTopLevel(s, ',')
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var p Person
	switch len(parts) {
	case 1:
		words := fields(parts[0])
		if len(words) == 1 {
			p.Name = words[0]
			break
		}
		// The last word is always part of the family name.
		start, end := -1, -1
		for i := 0; i < len(words)-1; i++ {
			if isLowerWord(words[i]) {
				if start < 0 {
					start = i
				}
				end = i
			}
		}
		if start < 0 {
			p.GivenName = strings.Join(words[:len(words)-1], " ")
			p.Name = words[len(words)-1]
		} else {
			p.GivenName = strings.Join(words[:start], " ")
			p.Prefix = strings.Join(words[start:end+1], " ")
			p.Name = strings.Join(words[end+1:], " ")
		}
	case 2:
		p.Prefix, p.Name = splitVon(parts[0])
		p.GivenName = parts[1]
	default:
		p.Prefix, p.Name = splitVon(parts[0])
		p.Suffix = parts[1]
		p.GivenName = strings.Join(parts[2:], ", ")
	}

	p.GivenName = ParseChunks(p.GivenName).plain()
	p.Name = ParseChunks(p.Name).plain()
	p.Prefix = ParseChunks(p.Prefix).plain()
	p.Suffix = ParseChunks(p.Suffix).plain()
	return p
}

// splitVon separates leading lowercase words from the family name in "von Last".
func splitVon(s string) (string, string) {
	words := fields(s)
	end := -1
	for i := 0; i < len(words)-1; i++ {
		if !isLowerWord(words[i]) {
			break
		}
		end = i
	}
	if end < 0 {
		return "", strings.Join(words, " ")
	}
	return strings.Join(words[:end+1], " "), strings.Join(words[end+1:], " ")
}

// isLowerWord reports whether a word starts with a lowercase letter outside braces.
func isLowerWord(w string) bool {
	if w == "" || w[0] == '{' || w[0] == '\\' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsLower(r)
}

// splitNameList splits on the word "and" at brace depth zero.
func splitNameList(s string) []string {
	var names []string
	var cur []string
	for _, w := range fields(s) {
		if strings.EqualFold(w, "and") {
			if len(cur) > 0 {
				names = append(names, strings.Join(cur, " "))
			}
			cur = cur[:0]
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		names = append(names, strings.Join(cur, " "))
	}
	return names
}

// fields splits s on whitespace at brace depth zero.
func fields(s string) []string {
	var words []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
			continue
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && unicode.IsSpace(rune(c)):
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

// splitTopLevel splits s on sep at brace depth zero.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
