// Package events batches run events and publishes them to Kafka. Events are
// buffered in memory and flushed when the batch fills, on a timer, and on
// Close.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/kafka"
)

const (
	TypePageIndexed     = "page_indexed"
	TypePageFailed      = "page_failed"
	TypeBuildComplete   = "build_complete"
	TypeCrawlComplete   = "crawl_complete"
	TypeQueriesComplete = "queries_complete"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Location  string    `json:"location,omitempty"`
	Words     int       `json:"words,omitempty"`
	Locations int       `json:"locations,omitempty"`
	Queries   int       `json:"queries,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Emitter buffers events for one run. A nil *Emitter drops everything, so
// callers need not check whether Kafka is configured.
type Emitter struct {
	publisher     Publisher
	runID         string
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	kick          chan struct{}
	cancel        context.CancelFunc
	done          chan struct{}
	now           func() time.Time
	logger        *slog.Logger
}

// NewEmitter creates an Emitter that flushes when the buffer reaches
// batchSize events or after flushInterval, whichever comes first.
func NewEmitter(publisher Publisher, runID string, batchSize int, flushInterval time.Duration) *Emitter {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &Emitter{
		publisher:     publisher,
		runID:         runID,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		now:           time.Now,
		logger:        slog.Default().With("component", "event-emitter", "run_id", runID),
	}
}

// Start launches the background flush loop. It stops when ctx is cancelled
// or Close is called.
func (e *Emitter) Start(ctx context.Context) {
	if e == nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.flush(loopCtx)
			case <-e.kick:
				e.flush(loopCtx)
			case <-loopCtx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				e.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	e.logger.Info("event emitter started",
		"batch_size", e.batchSize,
		"flush_interval", e.flushInterval,
	)
}

// Close stops the loop after a final flush and waits for it to exit.
func (e *Emitter) Close() {
	if e == nil || e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Emitter) PageIndexed(_ context.Context, location string, words int) {
	e.track(Event{Type: TypePageIndexed, Location: location, Words: words})
}

func (e *Emitter) PageFailed(_ context.Context, location string, err error) {
	ev := Event{Type: TypePageFailed, Location: location}
	if err != nil {
		ev.Error = err.Error()
	}
	e.track(ev)
}

func (e *Emitter) BuildComplete(path string, words, locations int) {
	e.track(Event{Type: TypeBuildComplete, Location: path, Words: words, Locations: locations})
}

func (e *Emitter) CrawlComplete(seed string, words, locations int) {
	e.track(Event{Type: TypeCrawlComplete, Location: seed, Words: words, Locations: locations})
}

func (e *Emitter) QueriesComplete(path string, queries int) {
	e.track(Event{Type: TypeQueriesComplete, Location: path, Queries: queries})
}

// BufferLen returns the current number of buffered events.
func (e *Emitter) BufferLen() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffer)
}

func (e *Emitter) track(ev Event) {
	if e == nil {
		return
	}
	ev.RunID = e.runID
	ev.Timestamp = e.now().UTC()

	e.mu.Lock()
	e.buffer = append(e.buffer, kafka.Event{Key: e.runID, Value: ev})
	full := len(e.buffer) >= e.batchSize
	e.mu.Unlock()

	if full {
		select {
		case e.kick <- struct{}{}:
		default:
		}
	}
}

func (e *Emitter) flush(ctx context.Context) {
	e.mu.Lock()
	if len(e.buffer) == 0 {
		e.mu.Unlock()
		return
	}
	batch := e.buffer
	e.buffer = make([]kafka.Event, 0, e.batchSize)
	e.mu.Unlock()

	if err := e.publisher.PublishBatch(ctx, batch); err != nil {
		e.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		// requeue, keeping at most three batches
		e.mu.Lock()
		e.buffer = append(batch, e.buffer...)
		if limit := e.batchSize * 3; len(e.buffer) > limit {
			dropped := len(e.buffer) - limit
			e.buffer = e.buffer[:limit]
			e.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		e.mu.Unlock()
		return
	}

	e.logger.Debug("batch flushed", "events", len(batch))
}
