package query

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSearcher records every search it is asked to run.
type countingSearcher struct {
	inner Searcher
	calls atomic.Int64
	mu    sync.Mutex
	seen  map[string]int
}

func (s *countingSearcher) Search(terms []string, exact bool) []index.SearchResult {
	s.calls.Add(1)
	s.mu.Lock()
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	s.seen[strings.Join(terms, " ")]++
	s.mu.Unlock()
	return s.inner.Search(terms, exact)
}

func sampleIndex() *index.ThreadSafeIndex {
	idx := index.NewThreadSafe()
	idx.AddAll([]string{"run", "fast", "run", "rush"}, "A")
	idx.AddAll([]string{"slow", "run", "walk", "walk"}, "B")
	return idx
}

func handlers(t *testing.T, s Searcher) map[string]Handler {
	queue := workqueue.New(4)
	t.Cleanup(queue.Shutdown)
	return map[string]Handler{
		"sequential": NewSequential(s, nil),
		"concurrent": NewConcurrent(s, queue, metrics.New(nil)),
	}
}

func drainIfConcurrent(h Handler) {
	if c, ok := h.(*Concurrent); ok {
		c.queue.Drain()
	}
}

func TestCanonical(t *testing.T) {
	key, stems := Canonical("Running RUNS, walks! run?")
	assert.Equal(t, "run walk", key)
	assert.Equal(t, []string{"run", "walk"}, stems)

	key, stems = Canonical("123 ...")
	assert.Empty(t, key)
	assert.Empty(t, stems)
}

func TestHandlers_Memoize(t *testing.T) {
	for name := range handlers(t, nil) {
		t.Run(name, func(t *testing.T) {
			s := &countingSearcher{inner: sampleIndex()}
			h := handlers(t, s)[name]

			require.NoError(t, h.ProcessLine("running", true))
			require.NoError(t, h.ProcessLine("Run!", true))
			require.NoError(t, h.ProcessLine("runs run", true))
			require.NoError(t, h.ProcessLine("   ", true))
			drainIfConcurrent(h)

			assert.Equal(t, []string{"run"}, h.Queries())
			assert.Equal(t, int64(1), s.calls.Load())
		})
	}
}

func TestConcurrent_IdenticalQueriesSearchOnce(t *testing.T) {
	s := &countingSearcher{inner: sampleIndex()}
	q := workqueue.New(8)
	defer q.Shutdown()
	h := NewConcurrent(s, q, nil)

	for i := 0; i < 200; i++ {
		require.NoError(t, h.ProcessLine(fmt.Sprintf("walk run %d", i), false))
		require.NoError(t, h.ProcessLine("rush", false))
	}
	q.Drain()

	assert.Equal(t, []string{"run walk", "rush"}, h.Queries())
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, map[string]int{"run walk": 1, "rush": 1}, s.seen)
}

func TestHandlers_Results(t *testing.T) {
	for name, h := range handlers(t, sampleIndex()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.ProcessLine("run", true))
			require.NoError(t, h.ProcessLine("ru", false))
			drainIfConcurrent(h)

			exact := h.Results("RUNNING")
			require.Len(t, exact, 2)
			assert.Equal(t, "A", exact[0].Location)
			assert.Equal(t, 2, exact[0].Count)
			assert.Equal(t, "B", exact[1].Location)

			partial := h.Results("ru")
			require.Len(t, partial, 2)
			assert.Equal(t, 3, partial[0].Count)

			assert.Empty(t, h.Results("never asked"))
			assert.NotNil(t, h.Results("never asked"))
			assert.Empty(t, h.Results(""))
		})
	}
}

func TestHandlers_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("run\nwalk fast\n\n!!!\nwalk FAST\nslow"), 0o644))

	for name, h := range handlers(t, sampleIndex()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.ProcessFile(path, true))

			// concurrent ProcessFile drains before returning
			assert.Equal(t, []string{"fast walk", "run", "slow"}, h.Queries())
			snap := h.Snapshot()
			require.Len(t, snap["fast walk"], 2)
			assert.Equal(t, "B", snap["fast walk"][0].Location)
		})
	}
}

func TestHandlers_ProcessFileMissing(t *testing.T) {
	for name, h := range handlers(t, sampleIndex()) {
		t.Run(name, func(t *testing.T) {
			err := h.ProcessFile(filepath.Join(t.TempDir(), "nope.txt"), true)
			assert.ErrorIs(t, err, apperrors.ErrUnreadablePath)
			assert.Empty(t, h.Queries())
		})
	}
}

func TestConcurrent_ShutdownQueueRejects(t *testing.T) {
	q := workqueue.New(1)
	q.Shutdown()
	h := NewConcurrent(sampleIndex(), q, nil)

	err := h.ProcessLine("run", true)
	assert.ErrorIs(t, err, apperrors.ErrPoolShutdown)
}
