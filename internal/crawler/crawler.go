// Package crawler indexes web pages breadth-first from a seed URL. Every page
// is a work-queue task that schedules the links it discovers as further
// tasks until the crawl budget is spent.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/textproc"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
)

// Submitter is the part of the work queue the crawler needs.
type Submitter interface {
	Submit(task workqueue.Task) error
	Drain()
}

// PageObserver is told the outcome of every scheduled page. Implementations
// are called from worker goroutines.
type PageObserver interface {
	PageIndexed(ctx context.Context, location string, words int)
	PageFailed(ctx context.Context, location string, err error)
}

type Option func(*Crawler)

func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithObserver adds an observer. Nil observers are ignored.
func WithObserver(o PageObserver) Option {
	return func(c *Crawler) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

type Crawler struct {
	idx       *index.ThreadSafeIndex
	queue     Submitter
	seed      *url.URL
	visited   *LinkSet
	fetcher   Fetcher
	observers []PageObserver
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New validates seed and prepares a crawl of at most maxCrawls distinct
// pages. A budget below one still crawls the seed.
func New(idx *index.ThreadSafeIndex, queue Submitter, seed string, maxCrawls int, opts ...Option) (*Crawler, error) {
	seedURL, err := ParseSeed(seed)
	if err != nil {
		return nil, err
	}
	if maxCrawls < 1 {
		maxCrawls = 1
	}
	c := &Crawler{
		idx:     idx,
		queue:   queue,
		seed:    seedURL,
		visited: NewLinkSet(maxCrawls),
		logger:  slog.Default().With("component", "crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(config.Default().Crawl)
	}
	return c, nil
}

// ParseSeed accepts only absolute http(s) URLs. The fragment is dropped.
func ParseSeed(seed string) (*url.URL, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidSeed, apperrors.ExitInvalidInput, "%q: %v", seed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidSeed, apperrors.ExitInvalidInput, "%q is not an absolute http(s) url", seed)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// Crawl schedules the seed and blocks until no page task is queued or
// running.
func (c *Crawler) Crawl(ctx context.Context) error {
	c.visited.TryAdd(c.seed.String())
	if err := c.queue.Submit(c.task(ctx, c.seed)); err != nil {
		return fmt.Errorf("scheduling seed %s: %w", c.seed, err)
	}
	c.queue.Drain()
	c.logger.Info("crawl complete",
		"seed", c.seed.String(),
		"scheduled", c.visited.Len(),
		"words", c.idx.Size(),
	)
	return nil
}

// Visited returns every scheduled URL in ascending order.
func (c *Crawler) Visited() []string {
	return c.visited.Links()
}

func (c *Crawler) task(ctx context.Context, u *url.URL) workqueue.Task {
	return func() error {
		return c.crawlPage(ctx, u)
	}
}

// crawlPage fetches u, schedules its unseen links and merges its words into
// the shared index. Fetch failures only skip the page.
func (c *Crawler) crawlPage(ctx context.Context, u *url.URL) error {
	location := u.String()
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		c.logger.Warn("page skipped", "url", location, "error", err)
		c.metrics.PageCrawled("failed")
		for _, o := range c.observers {
			o.PageFailed(ctx, location, err)
		}
		return nil
	}

	doc = StripBlockElements(doc)
	scheduled := 0
	for _, link := range ListURLs(u, doc) {
		if c.visited.Full() {
			break
		}
		if !c.visited.TryAdd(link.String()) {
			continue
		}
		if err := c.queue.Submit(c.task(ctx, link)); err != nil {
			c.logger.Warn("link not scheduled", "url", link.String(), "error", err)
			break
		}
		scheduled++
	}

	stems := textproc.Stems(StripHTML(doc))
	local := index.New()
	local.AddAll(stems, location)
	c.idx.Merge(local)

	c.metrics.PageCrawled("indexed")
	c.logger.Debug("page indexed", "url", location, "words", len(stems), "links_scheduled", scheduled)
	for _, o := range c.observers {
		o.PageIndexed(ctx, location, len(stems))
	}
	return nil
}
