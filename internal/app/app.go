// Package app runs one invocation of the search engine: build from text,
// crawl from a seed, answer queries, then write the requested outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/output"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/tracing"
)

// Options are the per-invocation choices made on the command line. An empty
// path means the step was not requested.
type Options struct {
	TextPath    string
	Seed        string
	MaxCrawls   int
	QueryPath   string
	Exact       bool
	IndexPath   string
	CountsPath  string
	ResultsPath string

	// Threads above zero selects the concurrent pipeline. A seed always
	// does.
	Threads int
}

func (o Options) concurrent() bool {
	return o.Threads > 0 || o.Seed != ""
}

type engine struct {
	cfg     *config.Config
	opts    Options
	runID   string
	idx     index.Index
	shared  *index.ThreadSafeIndex
	queue   *workqueue.WorkQueue
	sinks   *sinks
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Run executes every requested step in order. A bad seed aborts before any
// work starts; every other failure is logged, the remaining steps still run,
// and the failures are returned joined.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if opts.Seed != "" {
		if _, err := crawler.ParseSeed(opts.Seed); err != nil {
			return err
		}
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "app")

	ctx, root := tracing.StartSpan(ctx, "run", runID)
	defer func() {
		root.End()
		root.Log(log)
	}()

	m := metrics.New(nil)
	checker := health.NewChecker()
	e := &engine{
		cfg:     cfg,
		opts:    opts,
		runID:   runID,
		metrics: m,
		logger:  log,
	}
	e.sinks = openSinks(ctx, cfg, runID, m, checker)
	defer e.sinks.Close()

	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, checker.Handler())
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}
	if report := checker.Run(ctx); len(report.Components) > 0 {
		log.Info("sink health", "status", report.Status)
	}

	if opts.concurrent() {
		e.shared = index.NewThreadSafe()
		e.idx = e.shared
		e.queue = workqueue.New(threadsOrDefault(opts.Threads, cfg.Workers.Threads),
			workqueue.WithMetrics(m),
			workqueue.WithFailureSink(func(err error) {
				log.Error("task failed", "error", err)
			}),
		)
		defer e.queue.Shutdown()
	} else {
		e.idx = index.New()
	}
	log.Info("run started",
		"concurrent", opts.concurrent(),
		"text", opts.TextPath,
		"seed", opts.Seed,
		"queries", opts.QueryPath,
	)

	var errs []error
	if opts.TextPath != "" {
		errs = append(errs, e.build(ctx))
	}
	if opts.Seed != "" {
		errs = append(errs, e.crawl(ctx))
	}
	m.SetIndexSize(e.idx.Size(), len(e.idx.WordCounts()))

	var handler query.Handler
	if e.queue != nil {
		handler = query.NewConcurrent(e.shared, e.queue, m)
	} else {
		handler = query.NewSequential(e.idx, m)
	}
	if opts.QueryPath != "" {
		errs = append(errs, e.answer(ctx, handler))
	}

	errs = append(errs, e.write(ctx, handler))

	err := errors.Join(errs...)
	root.SetAttr("words", e.idx.Size())
	root.SetAttr("failed", err != nil)
	if e.queue != nil {
		root.SetAttr("task_failures", e.queue.Failures())
	}
	return err
}

func threadsOrDefault(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}

func (e *engine) build(ctx context.Context) error {
	_, span := tracing.StartChildSpan(ctx, "build")
	defer span.End()

	var err error
	if e.queue != nil {
		err = builder.NewConcurrent(e.shared, e.queue, builder.WithMetrics(e.metrics)).Build(e.opts.TextPath)
	} else {
		err = builder.Build(e.opts.TextPath, e.idx, builder.WithMetrics(e.metrics))
	}
	span.SetAttr("words", e.idx.Size())
	if err != nil {
		e.logger.Error("unable to build index", "path", e.opts.TextPath, "error", err)
		return fmt.Errorf("building from %s: %w", e.opts.TextPath, err)
	}
	e.sinks.emitter.BuildComplete(e.opts.TextPath, e.idx.Size(), len(e.idx.WordCounts()))
	return nil
}

func (e *engine) crawl(ctx context.Context) error {
	ctx, span := tracing.StartChildSpan(ctx, "crawl")
	defer span.End()

	opts := []crawler.Option{
		crawler.WithFetcher(crawler.NewHTTPFetcher(e.cfg.Crawl)),
		crawler.WithMetrics(e.metrics),
	}
	for _, o := range e.sinks.observers() {
		opts = append(opts, crawler.WithObserver(o))
	}
	budget := e.opts.MaxCrawls
	if budget < 1 {
		budget = e.cfg.Crawl.MaxCrawls
	}
	c, err := crawler.New(e.shared, e.queue, e.opts.Seed, budget, opts...)
	if err != nil {
		return err
	}
	if err := c.Crawl(ctx); err != nil {
		e.logger.Error("crawl failed", "seed", e.opts.Seed, "error", err)
		return fmt.Errorf("crawling %s: %w", e.opts.Seed, err)
	}
	span.SetAttr("scheduled", len(c.Visited()))
	e.sinks.emitter.CrawlComplete(e.opts.Seed, e.idx.Size(), len(e.idx.WordCounts()))
	return nil
}

func (e *engine) answer(ctx context.Context, handler query.Handler) error {
	ctx, span := tracing.StartChildSpan(ctx, "query")
	defer span.End()

	if err := handler.ProcessFile(e.opts.QueryPath, e.opts.Exact); err != nil {
		e.logger.Error("unable to process queries", "path", e.opts.QueryPath, "error", err)
		return fmt.Errorf("querying from %s: %w", e.opts.QueryPath, err)
	}
	span.SetAttr("queries", len(handler.Queries()))
	e.sinks.emitter.QueriesComplete(e.opts.QueryPath, len(handler.Queries()))
	if err := e.sinks.exporter.Export(ctx, handler.Snapshot()); err != nil {
		// the exported copy is optional; results.json is the source of truth
		e.logger.Warn("results export failed", "error", err)
	}
	return nil
}

// write produces every requested output independently so one failure does
// not prevent the others.
func (e *engine) write(ctx context.Context, handler query.Handler) error {
	_, span := tracing.StartChildSpan(ctx, "write")
	defer span.End()

	var g errgroup.Group
	writeOne := func(kind, path string, fn func() error) {
		if path == "" {
			return
		}
		g.Go(func() error {
			err := fn()
			e.metrics.OutputWritten(kind, err)
			if err != nil {
				e.logger.Error("unable to write output", "kind", kind, "path", path, "error", err)
				return err
			}
			e.logger.Info("output written", "kind", kind, "path", path)
			return nil
		})
	}
	writeOne("index", e.opts.IndexPath, func() error {
		return output.WriteIndex(e.opts.IndexPath, e.idx.Snapshot())
	})
	writeOne("counts", e.opts.CountsPath, func() error {
		return output.WriteCounts(e.opts.CountsPath, e.idx.WordCounts())
	})
	writeOne("results", e.opts.ResultsPath, func() error {
		return output.WriteResults(e.opts.ResultsPath, handler.Snapshot())
	})
	return g.Wait()
}
