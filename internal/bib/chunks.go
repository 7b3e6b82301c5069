package bib

import (
	"strings"
)

// ChunkKind describes how a fragment of field text was written in the source.
type ChunkKind int

const (
	// Normal is unprotected text.
	Normal ChunkKind = iota
	// Verbatim is text that was protected by braces.
	Verbatim
	// Math is text between dollar signs.
	Math
)

func (k ChunkKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Verbatim:
		return "verbatim"
	case Math:
		return "math"
	default:
		return "unknown"
	}
}

// Chunk is one fragment of formatted field text.
type Chunk struct {
	Kind  ChunkKind
	Value string
}

// Chunks is the formatted value of a text field.
type Chunks []Chunk

// escapable lists the characters a backslash turns into literals.
const escapable = `{}&%$#_`

// ParseChunks splits field text into chunks.
//
// Top-level text becomes Normal chunks, brace groups become Verbatim chunks
// with the braces removed and $...$ becomes a Math chunk. Runs of whitespace
// collapse to a single space.
func ParseChunks(s string) Chunks {
	var chunks Chunks
	var cur strings.Builder
	kind := Normal
	depth := 0
	lastSpace := false

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, Chunk{Kind: kind, Value: cur.String()})
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c == '\\' && i+1 < len(s) && strings.IndexByte(escapable, s[i+1]) >= 0 {
			cur.WriteByte(s[i+1])
			lastSpace = false
			i++
			continue
		}

		switch {
		case c == '{':
			if depth == 0 && kind == Normal {
				flush()
				kind = Verbatim
			}
			depth++
			continue
		case c == '}':
			if depth == 0 {
				// Stray closing brace; keep it as text.
				cur.WriteByte(c)
				lastSpace = false
				continue
			}
			depth--
			if depth == 0 && kind == Verbatim {
				flush()
				kind = Normal
			}
			continue
		case c == '$' && depth == 0:
			flush()
			if kind == Math {
				kind = Normal
			} else {
				kind = Math
			}
			continue
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if lastSpace {
				continue
			}
			cur.WriteByte(' ')
			lastSpace = true
			continue
		}

		cur.WriteByte(c)
		lastSpace = false
	}
	flush()

	return chunks
}

// balanced reports whether the braces in s are balanced, ignoring escaped braces.
func balanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// plain returns the concatenated text of chunks.
func (cs Chunks) plain() string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(c.Value)
	}
	return b.String()
}

// stripOuterBraces removes one pair of braces enclosing the whole of s.
func stripOuterBraces(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return s
	}
	// Only strip when the first brace closes at the very end.
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}
