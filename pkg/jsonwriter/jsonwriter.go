// Package jsonwriter writes the pretty-printed JSON outputs of a run: word
// counts, the inverted index and query results. Map keys come out sorted and
// nested with two-space indentation. Files are written to a temporary file in
// the destination directory and renamed into place, so a reader never sees a
// half-written output.
package jsonwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const indent = "  "

// WriteCounts writes location word counts to path.
func WriteCounts(path string, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	return Write(path, counts)
}

// WriteIndex writes stem -> location -> positions to path.
func WriteIndex(path string, postings map[string]map[string][]int) error {
	if postings == nil {
		postings = map[string]map[string][]int{}
	}
	return Write(path, postings)
}

// WriteResults writes query -> ordered results to path. R controls its own
// encoding through its json tags or MarshalJSON.
func WriteResults[R any](path string, results map[string][]R) error {
	if results == nil {
		results = map[string][]R{}
	}
	return Write(path, results)
}

// Encode writes v to w as indented JSON followed by a newline.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// Write atomically replaces path with the JSON encoding of v.
func Write(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp output file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := Encode(f, v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming output file: %w", err)
	}
	committed = true
	return nil
}
