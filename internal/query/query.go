// Package query runs query lines against an index and memoizes the ranked
// results per canonical query.
package query

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/textproc"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
)

// Searcher is satisfied by index.InvertedIndex and index.ThreadSafeIndex.
type Searcher interface {
	Search(terms []string, exact bool) []index.SearchResult
}

// Handler is implemented by the sequential and concurrent handlers.
type Handler interface {
	ProcessLine(line string, exact bool) error
	ProcessFile(path string, exact bool) error
	Queries() []string
	Results(line string) []index.SearchResult
	Snapshot() map[string][]index.SearchResult
}

// Canonical returns the distinct stems of line, sorted and space-joined,
// with the stems themselves. An empty key means the line has no terms.
func Canonical(line string) (string, []string) {
	stems := textproc.UniqueStems(line)
	return strings.Join(stems, " "), stems
}

// processFile feeds every line of the file at path to process and stops at
// the first error process returns.
func processFile(path string, exact bool, process func(line string, exact bool) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnreadablePath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if err := process(sc.Text(), exact); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: reading %s: %w", apperrors.ErrUnreadablePath, path, err)
	}
	return nil
}

func sortedKeys(m map[string][]index.SearchResult) []string {
	return slices.Sorted(maps.Keys(m))
}

func cloneResults(m map[string][]index.SearchResult) map[string][]index.SearchResult {
	out := make(map[string][]index.SearchResult, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

func lookup(m map[string][]index.SearchResult, key string) []index.SearchResult {
	if results, ok := m[key]; ok && key != "" {
		return slices.Clone(results)
	}
	return []index.SearchResult{}
}
