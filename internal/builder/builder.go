// Package builder populates an index from text files, either inline or with
// one work-queue task per file.
package builder

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/finder"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/textproc"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
)

const maxLineBytes = 64 << 20

// BuildFile stems every word of the file at path into idx. Positions start
// at 1 and continue across lines. The location is path as given.
func BuildFile(path string, idx index.Index) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnreadablePath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	position := 1
	for sc.Scan() {
		for _, stem := range textproc.Stems(sc.Text()) {
			idx.Add(stem, path, position)
			position++
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: reading %s: %w", apperrors.ErrUnreadablePath, path, err)
	}
	return nil
}

type Option func(*options)

type options struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default().With("component", "builder")}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Build indexes path into idx on the calling goroutine. A directory is walked
// for text files in lexical order; a regular file is indexed whatever its
// extension. The first unreadable file aborts the build.
func Build(path string, idx index.Index, opts ...Option) error {
	o := newOptions(opts)
	files, err := finder.TextFiles(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnreadablePath, err)
	}
	for _, file := range files {
		if err := BuildFile(file, idx); err != nil {
			return err
		}
		o.metrics.FileIndexed()
	}
	o.logger.Info("index built", "path", path, "files", len(files), "words", idx.Size())
	return nil
}
