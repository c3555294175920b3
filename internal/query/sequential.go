package query

import (
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
)

var _ Handler = (*Sequential)(nil)

// Sequential evaluates every query inline. It is not safe for concurrent
// use.
type Sequential struct {
	searcher Searcher
	results  map[string][]index.SearchResult
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSequential(searcher Searcher, m *metrics.Metrics) *Sequential {
	return &Sequential{
		searcher: searcher,
		results:  make(map[string][]index.SearchResult),
		metrics:  m,
		logger:   slog.Default().With("component", "query-handler"),
	}
}

func (s *Sequential) ProcessLine(line string, exact bool) error {
	key, stems := Canonical(line)
	if key == "" {
		return nil
	}
	if _, ok := s.results[key]; ok {
		s.metrics.QuerySearched("cached", 0, 0)
		return nil
	}
	start := time.Now()
	results := s.searcher.Search(stems, exact)
	s.results[key] = results
	s.metrics.QuerySearched(resultType(results), time.Since(start), len(results))
	return nil
}

func (s *Sequential) ProcessFile(path string, exact bool) error {
	if err := processFile(path, exact, s.ProcessLine); err != nil {
		return err
	}
	s.logger.Info("queries processed", "path", path, "queries", len(s.results))
	return nil
}

func (s *Sequential) Queries() []string {
	return sortedKeys(s.results)
}

func (s *Sequential) Results(line string) []index.SearchResult {
	key, _ := Canonical(line)
	return lookup(s.results, key)
}

func (s *Sequential) Snapshot() map[string][]index.SearchResult {
	return cloneResults(s.results)
}

func resultType(results []index.SearchResult) string {
	if len(results) == 0 {
		return "empty"
	}
	return "hit"
}
