package query

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

var _ Handler = (*Concurrent)(nil)

// Submitter is the part of the work queue the concurrent handler needs.
type Submitter interface {
	Submit(task workqueue.Task) error
	Drain()
}

// Concurrent evaluates each query line as a work-queue task. The result map
// has its own lock, separate from the index's. Identical canonical queries
// in flight at the same time share one search.
type Concurrent struct {
	searcher Searcher
	queue    Submitter

	mu      sync.Mutex
	results map[string][]index.SearchResult
	group   singleflight.Group

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewConcurrent(searcher Searcher, queue Submitter, m *metrics.Metrics) *Concurrent {
	return &Concurrent{
		searcher: searcher,
		queue:    queue,
		results:  make(map[string][]index.SearchResult),
		metrics:  m,
		logger:   slog.Default().With("component", "query-handler"),
	}
}

// ProcessLine schedules line. Results are complete once the queue drains.
func (c *Concurrent) ProcessLine(line string, exact bool) error {
	if err := c.queue.Submit(func() error {
		c.process(line, exact)
		return nil
	}); err != nil {
		return fmt.Errorf("scheduling query %q: %w", line, err)
	}
	return nil
}

// ProcessFile schedules every line of path and drains the queue before
// returning, even when reading fails part way.
func (c *Concurrent) ProcessFile(path string, exact bool) error {
	defer c.queue.Drain()
	if err := processFile(path, exact, c.ProcessLine); err != nil {
		return err
	}
	c.logger.Info("queries scheduled", "path", path)
	return nil
}

func (c *Concurrent) cached(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.results[key]
	return ok
}

func (c *Concurrent) process(line string, exact bool) {
	key, stems := Canonical(line)
	if key == "" {
		return
	}
	if c.cached(key) {
		c.metrics.QuerySearched("cached", 0, 0)
		return
	}
	_, _, shared := c.group.Do(key, func() (any, error) {
		if c.cached(key) {
			return nil, nil
		}
		start := time.Now()
		results := c.searcher.Search(stems, exact)
		c.mu.Lock()
		c.results[key] = results
		c.mu.Unlock()
		c.metrics.QuerySearched(resultType(results), time.Since(start), len(results))
		return nil, nil
	})
	if shared {
		c.logger.Debug("query computation shared", "query", key)
	}
}

func (c *Concurrent) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.results)
}

func (c *Concurrent) Results(line string) []index.SearchResult {
	key, _ := Canonical(line)
	c.mu.Lock()
	defer c.mu.Unlock()
	return lookup(c.results, key)
}

func (c *Concurrent) Snapshot() map[string][]index.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneResults(c.results)
}
