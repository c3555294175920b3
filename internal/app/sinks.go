package app

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/crawllog"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/export"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/redis"
)

// sinks holds the optional external writers. Any of them may be nil; their
// methods are nil-safe.
type sinks struct {
	emitter  *events.Emitter
	exporter *export.Exporter
	crawlLog *crawllog.Log
	closers  []func()
	logger   *slog.Logger
}

// openSinks connects every enabled sink. A sink that cannot connect is
// logged and left disabled.
func openSinks(ctx context.Context, cfg *config.Config, runID string, m *metrics.Metrics, checker *health.Checker) *sinks {
	s := &sinks{logger: slog.Default().With("component", "sinks", "run_id", runID)}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			s.logger.Warn("redis unavailable, results export disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			s.exporter = export.New(client, runID, cfg.Redis.CacheTTL,
				export.WithMetrics(m),
				export.WithPermanentErrors(redis.IsServerError),
			)
			checker.Register("redis", health.PingCheck(client.Ping))
			s.closers = append(s.closers, func() { client.Close() })
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		if err := producer.Ping(ctx); err != nil {
			s.logger.Warn("kafka unavailable, run events disabled", "brokers", cfg.Kafka.Brokers, "error", err)
			producer.Close()
		} else {
			s.emitter = events.NewEmitter(producer, runID, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
			s.emitter.Start(ctx)
			checker.Register("kafka", health.PingCheck(producer.Ping))
			emitter := s.emitter
			s.closers = append(s.closers, func() {
				emitter.Close()
				producer.Close()
			})
		}
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			s.logger.Warn("postgres unavailable, crawl log disabled", "host", cfg.Postgres.Host, "error", err)
		} else {
			log := crawllog.New(client.DB, runID, m)
			if err := log.EnsureSchema(ctx); err != nil {
				s.logger.Warn("crawl log schema setup failed", "error", err)
				client.Close()
			} else {
				s.crawlLog = log
				checker.Register("postgres", health.PingCheck(client.Ping))
				s.closers = append(s.closers, func() { client.Close() })
			}
		}
	}
	return s
}

// observers returns the enabled sinks that want per-page crawl outcomes.
func (s *sinks) observers() []crawler.PageObserver {
	var out []crawler.PageObserver
	if s.emitter != nil {
		out = append(out, s.emitter)
	}
	if s.crawlLog != nil {
		out = append(out, s.crawlLog)
	}
	return out
}

// Close releases sinks in reverse order of opening.
func (s *sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
