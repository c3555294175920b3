package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *fakePublisher) published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, b := range p.batches {
		for _, ev := range b {
			out = append(out, ev.Value.(Event))
		}
	}
	return out
}

func TestNilEmitterIsNoop(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.Start(context.Background())
		e.PageIndexed(context.Background(), "u", 1)
		e.PageFailed(context.Background(), "u", errors.New("x"))
		e.BuildComplete("p", 1, 1)
		e.CrawlComplete("s", 1, 1)
		e.QueriesComplete("q", 1)
		e.Close()
	})
	assert.Equal(t, 0, e.BufferLen())
}

func TestClose_FlushesRemainingEvents(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, "run-1", 100, time.Hour)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.Start(context.Background())

	e.PageIndexed(context.Background(), "https://a.example/", 12)
	e.PageFailed(context.Background(), "https://b.example/", errors.New("404"))
	e.BuildComplete("corpus", 40, 3)
	e.Close()

	got := pub.published()
	require.Len(t, got, 3)
	assert.Equal(t, Event{
		Type:      TypePageIndexed,
		RunID:     "run-1",
		Location:  "https://a.example/",
		Words:     12,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, got[0])
	assert.Equal(t, "404", got[1].Error)
	assert.Equal(t, TypeBuildComplete, got[2].Type)
	assert.Equal(t, 0, e.BufferLen())
}

func TestFullBatchFlushesEarly(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, "run-2", 2, time.Hour)
	e.Start(context.Background())
	defer e.Close()

	e.QueriesComplete("q.txt", 1)
	e.QueriesComplete("q.txt", 2)

	require.Eventually(t, func() bool { return len(pub.published()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestFailedFlushRequeuesWithCap(t *testing.T) {
	pub := &fakePublisher{fail: true}
	e := NewEmitter(pub, "run-3", 2, time.Hour)

	for i := 0; i < 10; i++ {
		e.PageIndexed(context.Background(), "u", i)
	}
	e.flush(context.Background())

	assert.Equal(t, 6, e.BufferLen())
}
