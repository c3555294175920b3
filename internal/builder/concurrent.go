package builder

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/finder"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
)

// Submitter is the part of the work queue the concurrent builder needs.
type Submitter interface {
	Submit(task workqueue.Task) error
	Drain()
}

// Concurrent builds one private index per file on the queue and merges each
// into the shared index exactly once.
type Concurrent struct {
	idx   *index.ThreadSafeIndex
	queue Submitter
	opts  options
}

func NewConcurrent(idx *index.ThreadSafeIndex, queue Submitter, opts ...Option) *Concurrent {
	return &Concurrent{idx: idx, queue: queue, opts: newOptions(opts)}
}

// Build submits a task per text file under path and drains the queue. Files
// that fail to read are reported through the queue's failure sink and leave
// the other files unaffected.
func (c *Concurrent) Build(path string) error {
	files, err := finder.TextFiles(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnreadablePath, err)
	}
	var submitErr error
	for _, file := range files {
		if err := c.queue.Submit(c.task(file)); err != nil {
			submitErr = fmt.Errorf("submitting %s: %w", file, err)
			break
		}
	}
	c.queue.Drain()
	if submitErr != nil {
		return submitErr
	}
	c.opts.logger.Info("index built concurrently", "path", path, "files", len(files), "words", c.idx.Size())
	return nil
}

func (c *Concurrent) task(file string) workqueue.Task {
	return func() error {
		local := index.New()
		if err := BuildFile(file, local); err != nil {
			return err
		}
		c.idx.Merge(local)
		c.opts.metrics.FileIndexed()
		c.opts.logger.Debug("file merged", "file", file, "words", local.Size())
		return nil
	}
}
