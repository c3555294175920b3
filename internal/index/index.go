// Package index implements the word → location → positions inverted index,
// exact and prefix search with ranking, and a reader/writer-locked wrapper
// exposing the same contract.
package index

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/btree"
)

// Index is the contract shared by InvertedIndex and ThreadSafeIndex. Callers
// that only need to build or search should depend on this interface.
type Index interface {
	Add(word, location string, position int)
	AddAll(words []string, location string)
	Merge(other *InvertedIndex)

	Search(terms []string, exact bool) []SearchResult
	ExactSearch(terms []string) []SearchResult
	PartialSearch(terms []string) []SearchResult

	Size() int
	WordSize(word string) int
	PositionSize(word, location string) int
	HasWord(word string) bool
	HasLocation(word, location string) bool
	HasPosition(word, location string, position int) bool
	Words() []string
	Locations() []string
	WordLocations(word string) []string
	Positions(word, location string) []int
	WordCount(location string) int
	WordCounts() map[string]int
	Snapshot() map[string]map[string][]int
	String() string
}

var _ Index = (*InvertedIndex)(nil)

const btreeDegree = 32

type wordEntry struct {
	word      string
	locations map[string][]int
}

func lessEntry(a, b *wordEntry) bool {
	return a.word < b.word
}

// InvertedIndex is the unsynchronized index. The zero value is not usable;
// construct with New.
type InvertedIndex struct {
	words  *btree.BTreeG[*wordEntry]
	counts map[string]int
}

func New() *InvertedIndex {
	return &InvertedIndex{
		words:  btree.NewG(btreeDegree, lessEntry),
		counts: make(map[string]int),
	}
}

func (idx *InvertedIndex) entry(word string) (*wordEntry, bool) {
	return idx.words.Get(&wordEntry{word: word})
}

// Add records word at position within location. Re-adding a known triple is
// a no-op and leaves the location's word count unchanged.
func (idx *InvertedIndex) Add(word, location string, position int) {
	e, ok := idx.entry(word)
	if !ok {
		e = &wordEntry{word: word, locations: make(map[string][]int)}
		idx.words.ReplaceOrInsert(e)
	}
	positions, inserted := insertPosition(e.locations[location], position)
	if !inserted {
		return
	}
	e.locations[location] = positions
	idx.counts[location]++
}

// AddAll adds words at positions 1..len(words) for location.
func (idx *InvertedIndex) AddAll(words []string, location string) {
	for i, word := range words {
		idx.Add(word, location, i+1)
	}
}

// insertPosition keeps positions sorted and unique.
func insertPosition(positions []int, position int) ([]int, bool) {
	n := len(positions)
	if n == 0 || positions[n-1] < position {
		return append(positions, position), true
	}
	i, found := slices.BinarySearch(positions, position)
	if found {
		return positions, false
	}
	return slices.Insert(positions, i, position), true
}

// Merge absorbs other into idx. Positions for a shared (word, location) are
// unioned and the location's word count is summed, so callers must only merge
// indexes built over disjoint locations. other is not modified.
func (idx *InvertedIndex) Merge(other *InvertedIndex) {
	if other == nil || other == idx {
		return
	}
	other.words.Ascend(func(src *wordEntry) bool {
		dst, ok := idx.entry(src.word)
		if !ok {
			dst = &wordEntry{word: src.word, locations: make(map[string][]int, len(src.locations))}
			idx.words.ReplaceOrInsert(dst)
		}
		for location, positions := range src.locations {
			existing, ok := dst.locations[location]
			if !ok {
				dst.locations[location] = slices.Clone(positions)
				continue
			}
			dst.locations[location] = unionSorted(existing, positions)
		}
		return true
	})
	for location, count := range other.counts {
		idx.counts[location] += count
	}
}

func unionSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Search dispatches to ExactSearch or PartialSearch.
func (idx *InvertedIndex) Search(terms []string, exact bool) []SearchResult {
	if exact {
		return idx.ExactSearch(terms)
	}
	return idx.PartialSearch(terms)
}

// ExactSearch ranks every location containing at least one of terms.
func (idx *InvertedIndex) ExactSearch(terms []string) []SearchResult {
	acc := newAccumulator(idx.counts)
	for _, term := range uniqueTerms(terms) {
		if e, ok := idx.entry(term); ok {
			acc.fold(e)
		}
	}
	return acc.ranked()
}

// PartialSearch ranks every location containing a word that starts with one
// of terms. Matching words are contiguous in sorted order, so the scan stops
// at the first word past the prefix.
func (idx *InvertedIndex) PartialSearch(terms []string) []SearchResult {
	acc := newAccumulator(idx.counts)
	for _, term := range uniqueTerms(terms) {
		idx.words.AscendGreaterOrEqual(&wordEntry{word: term}, func(e *wordEntry) bool {
			if !strings.HasPrefix(e.word, term) {
				return false
			}
			acc.fold(e)
			return true
		})
	}
	return acc.ranked()
}

func uniqueTerms(terms []string) []string {
	out := slices.Clone(terms)
	slices.Sort(out)
	return slices.Compact(out)
}

// Size returns the number of distinct words.
func (idx *InvertedIndex) Size() int {
	return idx.words.Len()
}

// WordSize returns the number of locations containing word.
func (idx *InvertedIndex) WordSize(word string) int {
	if e, ok := idx.entry(word); ok {
		return len(e.locations)
	}
	return 0
}

// PositionSize returns the number of positions of word within location.
func (idx *InvertedIndex) PositionSize(word, location string) int {
	if e, ok := idx.entry(word); ok {
		return len(e.locations[location])
	}
	return 0
}

func (idx *InvertedIndex) HasWord(word string) bool {
	_, ok := idx.entry(word)
	return ok
}

func (idx *InvertedIndex) HasLocation(word, location string) bool {
	if e, ok := idx.entry(word); ok {
		_, ok = e.locations[location]
		return ok
	}
	return false
}

func (idx *InvertedIndex) HasPosition(word, location string, position int) bool {
	if e, ok := idx.entry(word); ok {
		_, found := slices.BinarySearch(e.locations[location], position)
		return found
	}
	return false
}

// Words returns every indexed word in ascending order.
func (idx *InvertedIndex) Words() []string {
	words := make([]string, 0, idx.words.Len())
	idx.words.Ascend(func(e *wordEntry) bool {
		words = append(words, e.word)
		return true
	})
	return words
}

// Locations returns every location with a word count, in ascending order.
func (idx *InvertedIndex) Locations() []string {
	return slices.Sorted(maps.Keys(idx.counts))
}

// WordLocations returns the locations containing word, in ascending order.
func (idx *InvertedIndex) WordLocations(word string) []string {
	if e, ok := idx.entry(word); ok {
		return slices.Sorted(maps.Keys(e.locations))
	}
	return []string{}
}

// Positions returns a copy of the sorted positions of word within location.
func (idx *InvertedIndex) Positions(word, location string) []int {
	if e, ok := idx.entry(word); ok {
		if positions, ok := e.locations[location]; ok {
			return slices.Clone(positions)
		}
	}
	return []int{}
}

// WordCount returns the number of indexed word occurrences in location.
func (idx *InvertedIndex) WordCount(location string) int {
	return idx.counts[location]
}

// WordCounts returns a copy of the location → word count map.
func (idx *InvertedIndex) WordCounts() map[string]int {
	return maps.Clone(idx.counts)
}

// Snapshot returns a deep copy of the word → location → positions mapping.
func (idx *InvertedIndex) Snapshot() map[string]map[string][]int {
	out := make(map[string]map[string][]int, idx.words.Len())
	idx.words.Ascend(func(e *wordEntry) bool {
		locations := make(map[string][]int, len(e.locations))
		for location, positions := range e.locations {
			locations[location] = slices.Clone(positions)
		}
		out[e.word] = locations
		return true
	})
	return out
}

func (idx *InvertedIndex) String() string {
	return fmt.Sprintf("InvertedIndex: %v", idx.Snapshot())
}
