package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadSafe_ConcurrentMergesAndReads(t *testing.T) {
	shared := NewThreadSafe()
	const files = 50

	var wg sync.WaitGroup
	for i := 0; i < files; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			local := New()
			local.AddAll([]string{"alpha", "beta", "alpha", fmt.Sprintf("w%d", i)}, fmt.Sprintf("file-%02d", i))
			shared.Merge(local)
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			// every location visible to a reader must carry a consistent count
			for _, loc := range shared.Locations() {
				_ = shared.ExactSearch([]string{"alpha"})
				if c := shared.WordCount(loc); c != 0 && c != 4 {
					t.Errorf("torn word count %d for %s", c, loc)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, files, shared.WordSize("alpha"))
	assert.Len(t, shared.Locations(), files)
	for i := 0; i < files; i++ {
		assert.Equal(t, 4, shared.WordCount(fmt.Sprintf("file-%02d", i)))
	}
}

func TestThreadSafe_MatchesUnwrapped(t *testing.T) {
	plain := New()
	safe := NewThreadSafe()
	for _, ix := range []Index{plain, safe} {
		ix.AddAll([]string{"run", "rush", "run"}, "A")
		ix.Add("ran", "B", 4)
	}

	assert.Equal(t, plain.Snapshot(), safe.Snapshot())
	assert.Equal(t, plain.WordCounts(), safe.WordCounts())
	assert.Equal(t, plain.PartialSearch([]string{"r"}), safe.PartialSearch([]string{"r"}))
	assert.Equal(t, plain.Words(), safe.Words())
	assert.Equal(t, plain.String(), safe.String())
	assert.Equal(t, plain.HasPosition("ran", "B", 4), safe.HasPosition("ran", "B", 4))
}
