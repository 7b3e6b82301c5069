// Package storage serializes normalized collections and caches them in SQLite.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/bibpage/internal/record"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONL reads a collection from a JSONL file.
func ReadJSONL(path string) (record.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file is an empty collection
		}
		return nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()

	return DecodeJSONL(f)
}

// DecodeJSONL reads one entry per line, skipping blank lines.
func DecodeJSONL(r io.Reader) (record.Collection, error) {
	var coll record.Collection
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e record.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		coll = append(coll, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	return coll, nil
}

// WriteJSONL writes one entry per line.
func WriteJSONL(w io.Writer, coll record.Collection) error {
	bw := bufio.NewWriter(w)
	for i, e := range coll {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding entry %d: %w", i, err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes a collection to a JSONL file, replacing existing content.
func WriteJSONLFile(path string, coll record.Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating entries file: %w", err)
	}

	if err := WriteJSONL(f, coll); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
