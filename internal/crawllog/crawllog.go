// Package crawllog records the outcome of every crawled page in PostgreSQL.
package crawllog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/resilience"
)

const (
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

const schema = `
CREATE TABLE IF NOT EXISTS crawl_log (
	run_id     TEXT        NOT NULL,
	url        TEXT        NOT NULL,
	status     TEXT        NOT NULL,
	word_count INTEGER     NOT NULL DEFAULT 0,
	error      TEXT,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, url)
)`

const upsert = `
INSERT INTO crawl_log (run_id, url, status, word_count, error, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id, url) DO UPDATE
SET status = EXCLUDED.status,
    word_count = EXCLUDED.word_count,
    error = EXCLUDED.error,
    updated_at = EXCLUDED.updated_at`

// DB is satisfied by *sql.DB.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Log writes one row per (run, url). A nil *Log ignores every call.
type Log struct {
	db      DB
	runID   string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

func New(db DB, runID string, m *metrics.Metrics) *Log {
	return &Log{
		db:      db,
		runID:   runID,
		timeout: 3 * time.Second,
		breaker: resilience.NewCircuitBreaker("postgres-crawl-log", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, to resilience.State) {
				m.SetBreakerState(name, int(to))
			},
		}),
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "crawl-log", "run_id", runID),
	}
}

// EnsureSchema creates the crawl_log table if it does not exist.
func (l *Log) EnsureSchema(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating crawl_log table: %w", err)
	}
	return nil
}

func (l *Log) PageIndexed(ctx context.Context, location string, words int) {
	l.record(ctx, location, StatusIndexed, words, nil)
}

func (l *Log) PageFailed(ctx context.Context, location string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	l.record(ctx, location, StatusFailed, 0, &msg)
}

// record never fails the crawl; write errors are logged and counted.
func (l *Log) record(ctx context.Context, location, status string, words int, errMsg *string) {
	if l == nil {
		return
	}
	err := l.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, l.timeout, "crawl-log-upsert", func(ctx context.Context) error {
			_, err := l.db.ExecContext(ctx, upsert, l.runID, location, status, words, errMsg, l.now().UTC())
			return err
		})
	})
	l.metrics.Exported("postgres", err)
	if err != nil {
		l.logger.Warn("failed to record page", "url", location, "status", status, "error", err)
	}
}
