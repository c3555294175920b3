package crawler

import (
	"maps"
	"slices"
	"sync"
)

// LinkSet is the set of URLs already scheduled for crawling. It only grows
// and never holds more than its limit.
type LinkSet struct {
	mu    sync.Mutex
	limit int
	links map[string]struct{}
}

func NewLinkSet(limit int) *LinkSet {
	return &LinkSet{limit: limit, links: make(map[string]struct{})}
}

// TryAdd inserts link if the set is below its limit and does not already
// hold it. The check and the insert share one critical section, so exactly
// one concurrent caller wins for any link.
func (s *LinkSet) TryAdd(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.links) >= s.limit {
		return false
	}
	if _, ok := s.links[link]; ok {
		return false
	}
	s.links[link] = struct{}{}
	return true
}

func (s *LinkSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *LinkSet) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links) >= s.limit
}

// Links returns the scheduled URLs in ascending order.
func (s *LinkSet) Links() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.links))
}
