package main

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/app"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/logger"
)

// defaultValue marks an optional-value flag given without a value. It is
// replaced by the matching path or count from the config.
const defaultValue = "<default>"

type flags struct {
	configPath string
	text       string
	seed       string
	max        int
	query      string
	exact      bool
	index      string
	counts     string
	results    string
	threads    string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "searchengine",
		Short: "Build an inverted index from files or a web crawl and answer ranked queries",
		Long: `searchengine indexes stemmed words from a directory of text files and/or
pages crawled from a seed URL, answers exact or prefix queries from a query
file, and writes the index, word counts and ranked results as JSON.

Optional-value flags take their value with '=', e.g. --index=out/index.json.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitInvalidInput, err.Error())
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

			opts := f.options(cfg, cmd)
			return app.Run(cmd.Context(), cfg, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.text, "text", "", "text file or directory to index")
	fs.StringVar(&f.seed, "html", "", "seed URL to crawl (implies --threads)")
	fs.IntVar(&f.max, "max", 0, "maximum number of pages to crawl (default from config, 1)")
	fs.StringVar(&f.query, "query", "", "file with one query per line")
	fs.BoolVar(&f.exact, "exact", false, "match query words exactly instead of by prefix")
	fs.StringVar(&f.index, "index", "", "write the inverted index as JSON")
	fs.StringVar(&f.counts, "counts", "", "write per-location word counts as JSON")
	fs.StringVar(&f.results, "results", "", "write ranked query results as JSON")
	fs.StringVar(&f.threads, "threads", "", "run with a worker pool of this size")
	for _, name := range []string{"index", "counts", "results", "threads"} {
		fs.Lookup(name).NoOptDefVal = defaultValue
	}

	return cmd
}

// options resolves flag values against cfg. An output flag given without a
// value takes the configured default path.
func (f flags) options(cfg *config.Config, cmd *cobra.Command) app.Options {
	opts := app.Options{
		TextPath:    f.text,
		Seed:        f.seed,
		MaxCrawls:   f.max,
		QueryPath:   f.query,
		Exact:       f.exact,
		IndexPath:   orDefault(f.index, cfg.Output.IndexPath),
		CountsPath:  orDefault(f.counts, cfg.Output.CountsPath),
		ResultsPath: orDefault(f.results, cfg.Output.ResultsPath),
	}
	if cmd.Flags().Changed("threads") {
		opts.Threads = parseThreads(f.threads, cfg.Workers.Threads)
	}
	return opts
}

func orDefault(value, fallback string) string {
	if value == defaultValue {
		return fallback
	}
	return value
}

// parseThreads returns fallback for a missing, malformed or non-positive
// count.
func parseThreads(value string, fallback int) int {
	if value == defaultValue {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		slog.Warn("invalid thread count, using default", "value", value, "threads", fallback)
		return fallback
	}
	return n
}
