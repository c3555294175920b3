package index

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// SearchResult is one ranked location for a query.
type SearchResult struct {
	Location string
	Count    int
	Score    float64
}

// MarshalJSON writes {"count","score","where"} with score fixed to 8
// decimals.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"count":`)
	buf.WriteString(strconv.Itoa(r.Count))
	buf.WriteString(`,"score":`)
	buf.WriteString(strconv.FormatFloat(r.Score, 'f', 8, 64))
	buf.WriteString(`,"where":`)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Location); err != nil {
		return nil, err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Compare orders results best first: score descending, count descending,
// then location ascending ignoring case.
func Compare(a, b SearchResult) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Location), strings.ToLower(b.Location)); c != 0 {
		return c
	}
	return strings.Compare(a.Location, b.Location)
}

// accumulator folds matched words into one result per location.
type accumulator struct {
	counts  map[string]int
	matches map[string]*SearchResult
	order   []*SearchResult
}

func newAccumulator(counts map[string]int) *accumulator {
	return &accumulator{
		counts:  counts,
		matches: make(map[string]*SearchResult),
	}
}

func (a *accumulator) fold(e *wordEntry) {
	for location, positions := range e.locations {
		r, ok := a.matches[location]
		if !ok {
			r = &SearchResult{Location: location}
			a.matches[location] = r
			a.order = append(a.order, r)
		}
		r.Count += len(positions)
		if total := a.counts[location]; total > 0 {
			r.Score = float64(r.Count) / float64(total)
		}
	}
}

func (a *accumulator) ranked() []SearchResult {
	results := make([]SearchResult, len(a.order))
	for i, r := range a.order {
		results[i] = *r
	}
	slices.SortFunc(results, Compare)
	return results
}
