// Package output writes the index, word counts and query results as
// pretty-printed JSON. Object keys are sorted and nesting is indented by two
// spaces. Each file is written to a temporary sibling and renamed into place
// so a failed write never leaves a truncated file behind.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
)

// WriteIndex writes {word: {location: [positions]}}.
func WriteIndex(path string, snapshot map[string]map[string][]int) error {
	return writeJSON(path, snapshot)
}

// WriteCounts writes {location: wordCount}.
func WriteCounts(path string, counts map[string]int) error {
	return writeJSON(path, counts)
}

// WriteResults writes {query: [{count, score, where}]}.
func WriteResults(path string, results map[string][]index.SearchResult) error {
	return writeJSON(path, results)
}

func writeJSON(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating directory %s: %w", apperrors.ErrOutputFailed, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file for %s: %w", apperrors.ErrOutputFailed, path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: encoding %s: %w", apperrors.ErrOutputFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", apperrors.ErrOutputFailed, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: renaming into %s: %w", apperrors.ErrOutputFailed, path, err)
	}
	return nil
}
