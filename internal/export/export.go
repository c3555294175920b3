// Package export publishes finished query results to Redis so other
// processes can read them without re-running the search. Keys are
// "search:" followed by a hash of the canonical query.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is satisfied by *redis.Client.
type Store interface {
	SetMany(ctx context.Context, values map[string][]byte, ttl time.Duration) error
}

// Entry is the JSON value stored under each key.
type Entry struct {
	Query   string               `json:"query"`
	RunID   string               `json:"run_id"`
	Results []index.SearchResult `json:"results"`
}

type Option func(*Exporter)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Exporter) {
		if cfg.Permanent == nil {
			cfg.Permanent = e.retry.Permanent
		}
		e.retry = cfg
	}
}

// WithPermanentErrors stops retries for errors the store will keep
// returning, such as Redis error replies.
func WithPermanentErrors(permanent func(error) bool) Option {
	return func(e *Exporter) { e.retry.Permanent = permanent }
}

// Exporter writes result sets through a circuit breaker with retries. A nil
// *Exporter does nothing.
type Exporter struct {
	store   Store
	ttl     time.Duration
	runID   string
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, runID string, ttl time.Duration, opts ...Option) *Exporter {
	e := &Exporter{
		store:   store,
		ttl:     ttl,
		runID:   runID,
		timeout: 5 * time.Second,
		logger:  slog.Default().With("component", "results-exporter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.breaker = resilience.NewCircuitBreaker("redis-export", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, to resilience.State) {
			e.metrics.SetBreakerState(name, int(to))
		},
	})
	return e
}

// Key returns the Redis key for a canonical query.
func Key(query string) string {
	hash := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Export stores every query's ranked results in one pipelined write.
func (e *Exporter) Export(ctx context.Context, results map[string][]index.SearchResult) error {
	if e == nil || len(results) == 0 {
		return nil
	}
	values := make(map[string][]byte, len(results))
	for query, ranked := range results {
		data, err := encode(Entry{Query: query, RunID: e.runID, Results: ranked})
		if err != nil {
			return fmt.Errorf("marshaling results for %q: %w", query, err)
		}
		values[Key(query)] = data
	}

	err := resilience.Retry(ctx, "redis-export", e.retry, func() error {
		return e.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, e.timeout, "redis-set", func(ctx context.Context) error {
				return e.store.SetMany(ctx, values, e.ttl)
			})
		})
	})
	e.metrics.Exported("redis", err)
	if err != nil {
		return fmt.Errorf("exporting %d result sets: %w", len(values), err)
	}
	e.logger.Info("results exported", "queries", len(values), "ttl", e.ttl)
	return nil
}

// encode marshals v without escaping &, < and >, so stored locations match
// results.json byte for byte.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
