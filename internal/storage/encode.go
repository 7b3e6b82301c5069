package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/bibpage/internal/record"
	"gopkg.in/yaml.v3"
)

// Supported serialization formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatYAML  = "yaml"
)

// ValidFormats lists the supported serialization format names.
var ValidFormats = []string{FormatJSON, FormatJSONL, FormatYAML}

// Encode writes coll to w in the given format. Field order follows record.Entry.
func Encode(w io.Writer, coll record.Collection, format string) error {
	if coll == nil {
		coll = record.Collection{}
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(coll)
	case FormatJSONL:
		return WriteJSONL(w, coll)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(coll); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid format %q (valid: %v)", format, ValidFormats)
	}
}

// DecodeYAML reads a collection written by Encode in YAML format.
func DecodeYAML(r io.Reader) (record.Collection, error) {
	var coll record.Collection
	if err := yaml.NewDecoder(r).Decode(&coll); err != nil {
		if err == io.EOF {
			return record.Collection{}, nil
		}
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	return coll, nil
}

// ReadYAML reads a collection from a YAML file written by Encode.
func ReadYAML(path string) (record.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()

	return DecodeYAML(f)
}
