package index

import "sync"

var _ Index = (*ThreadSafeIndex)(nil)

// ThreadSafeIndex guards an owned InvertedIndex with a reader/writer lock.
// Mutations take the write lock for their whole body, so readers never see a
// position without its word count update.
type ThreadSafeIndex struct {
	mu  sync.RWMutex
	idx *InvertedIndex
}

func NewThreadSafe() *ThreadSafeIndex {
	return &ThreadSafeIndex{idx: New()}
}

func (t *ThreadSafeIndex) Add(word, location string, position int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idx.Add(word, location, position)
}

func (t *ThreadSafeIndex) AddAll(words []string, location string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idx.AddAll(words, location)
}

// Merge absorbs other under the write lock. other must not be shared with
// another goroutine while the merge runs.
func (t *ThreadSafeIndex) Merge(other *InvertedIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idx.Merge(other)
}

func (t *ThreadSafeIndex) Search(terms []string, exact bool) []SearchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Search(terms, exact)
}

func (t *ThreadSafeIndex) ExactSearch(terms []string) []SearchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.ExactSearch(terms)
}

func (t *ThreadSafeIndex) PartialSearch(terms []string) []SearchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.PartialSearch(terms)
}

func (t *ThreadSafeIndex) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Size()
}

func (t *ThreadSafeIndex) WordSize(word string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.WordSize(word)
}

func (t *ThreadSafeIndex) PositionSize(word, location string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.PositionSize(word, location)
}

func (t *ThreadSafeIndex) HasWord(word string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.HasWord(word)
}

func (t *ThreadSafeIndex) HasLocation(word, location string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.HasLocation(word, location)
}

func (t *ThreadSafeIndex) HasPosition(word, location string, position int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.HasPosition(word, location, position)
}

func (t *ThreadSafeIndex) Words() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Words()
}

func (t *ThreadSafeIndex) Locations() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Locations()
}

func (t *ThreadSafeIndex) WordLocations(word string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.WordLocations(word)
}

func (t *ThreadSafeIndex) Positions(word, location string) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Positions(word, location)
}

func (t *ThreadSafeIndex) WordCount(location string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.WordCount(location)
}

func (t *ThreadSafeIndex) WordCounts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.WordCounts()
}

func (t *ThreadSafeIndex) Snapshot() map[string]map[string][]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Snapshot()
}

func (t *ThreadSafeIndex) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.String()
}
