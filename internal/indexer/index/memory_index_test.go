package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample mirrors indexing a.txt = "run running runs" and b.txt = "run walk".
func sample() *MemoryIndex {
	idx := NewMemoryIndex()
	idx.AddPositions("run", "a.txt", []int{1, 2, 3})
	idx.AddWordCount("a.txt", 3)
	idx.AddWord("run", "b.txt", 1)
	idx.AddWord("walk", "b.txt", 2)
	idx.AddWordCount("b.txt", 2)
	return idx
}

func TestIndexViews(t *testing.T) {
	idx := sample()

	assert.Equal(t, map[string]int{"a.txt": 3, "b.txt": 2}, idx.ViewCounts())
	assert.Equal(t, []string{"run", "walk"}, idx.ViewStems())
	assert.Equal(t, []string{"a.txt", "b.txt"}, idx.ViewLocations("run"))
	assert.Equal(t, []int{1, 2, 3}, idx.ViewPositions("run", "a.txt"))
	assert.Equal(t, []int{2}, idx.ViewPositions("walk", "b.txt"))
	assert.Empty(t, idx.ViewPositions("walk", "a.txt"))
	assert.Empty(t, idx.ViewLocations("fly"))

	assert.Equal(t, 2, idx.NumWords())
	assert.Equal(t, 2, idx.NumLocations())
	assert.Equal(t, 3, idx.NumPositions("run", "a.txt"))
	assert.Equal(t, 0, idx.NumPositions("fly", "a.txt"))
	assert.Equal(t, 3, idx.NumCount("a.txt"))
	assert.Equal(t, 0, idx.NumCount("c.txt"))

	assert.True(t, idx.HasStem("walk"))
	assert.False(t, idx.HasStem("wal"))
	assert.True(t, idx.HasLocation("run", "b.txt"))
	assert.False(t, idx.HasLocation("walk", "a.txt"))
	assert.True(t, idx.HasPosition("run", "a.txt", 2))
	assert.False(t, idx.HasPosition("run", "a.txt", 4))
	assert.Equal(t, "MemoryIndex{stems: 2, locations: 2}", idx.String())
}

func TestViewsAreCopies(t *testing.T) {
	idx := sample()

	counts := idx.ViewCounts()
	counts["a.txt"] = 99
	delete(counts, "b.txt")

	positions := idx.ViewPositions("run", "a.txt")
	positions[0] = 42

	full := idx.ViewIndex()
	full["run"]["a.txt"][1] = 42
	delete(full, "walk")

	stems := idx.ViewStems()
	stems[0] = "zzz"

	assert.Equal(t, map[string]int{"a.txt": 3, "b.txt": 2}, idx.ViewCounts())
	assert.Equal(t, []int{1, 2, 3}, idx.ViewPositions("run", "a.txt"))
	assert.True(t, idx.HasStem("walk"))
	assert.Equal(t, []string{"run", "walk"}, idx.ViewStems())
}

func TestAddWordIgnoresDuplicatePositions(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddWord("run", "a.txt", 2)
	idx.AddWord("run", "a.txt", 1)
	idx.AddWord("run", "a.txt", 2)
	idx.AddPositions("run", "a.txt", []int{3, 1})
	assert.Equal(t, []int{1, 2, 3}, idx.ViewPositions("run", "a.txt"))
}

func TestAddWordCountIgnoresNonPositive(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddWordCount("empty.txt", 0)
	idx.AddWordCount("neg.txt", -4)
	assert.Equal(t, 0, idx.NumLocations())
}

func TestExactSearch(t *testing.T) {
	idx := sample()

	results := idx.Search([]string{"run"}, false)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Location: "a.txt", Count: 3, Score: 1.0}, results[0])
	assert.Equal(t, SearchResult{Location: "b.txt", Count: 1, Score: 0.5}, results[1])

	results = idx.Search([]string{"run", "walk"}, false)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Location: "a.txt", Count: 3, Score: 1.0}, results[0])
	assert.Equal(t, SearchResult{Location: "b.txt", Count: 2, Score: 1.0}, results[1])

	assert.Empty(t, idx.Search([]string{"ru"}, false))
	assert.Empty(t, idx.Search([]string{"fly"}, false))
	assert.NotNil(t, idx.Search(nil, false))
	assert.Empty(t, idx.Search(nil, true))
}

func TestPartialSearch(t *testing.T) {
	idx := sample()
	idx.AddWord("rune", "c.txt", 1)
	idx.AddWord("stone", "c.txt", 2)
	idx.AddWordCount("c.txt", 2)

	results := idx.Search([]string{"ru"}, true)
	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", results[0].Location)
	// b.txt and c.txt tie on score and count
	assert.Equal(t, SearchResult{Location: "b.txt", Count: 1, Score: 0.5}, results[1])
	assert.Equal(t, SearchResult{Location: "c.txt", Count: 1, Score: 0.5}, results[2])

	assert.Empty(t, idx.Search([]string{"x"}, true))
	assert.Empty(t, idx.Search([]string{"walked"}, true))
}

func TestPartialSearchCountsEachIndexStemOnce(t *testing.T) {
	idx := sample()

	// "r" and "run" both reach the indexed stem "run"
	results := idx.Search([]string{"r", "run"}, true)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Count)
	assert.Equal(t, 1, results[1].Count)
}

func TestPartialSearchSeesNewStems(t *testing.T) {
	idx := sample()
	require.Len(t, idx.Search([]string{"wa"}, true), 1)

	idx.AddWord("wander", "d.txt", 1)
	idx.AddWordCount("d.txt", 1)
	results := idx.Search([]string{"wa"}, true)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Location: "d.txt", Count: 1, Score: 1.0}, results[0])
}

func TestSortResults(t *testing.T) {
	results := []SearchResult{
		{Location: "z.txt", Count: 1, Score: 0.25},
		{Location: "b.txt", Count: 2, Score: 0.5},
		{Location: "a.txt", Count: 2, Score: 0.5},
		{Location: "c.txt", Count: 4, Score: 0.5},
		{Location: "y.txt", Count: 1, Score: 1},
	}
	SortResults(results)
	var order []string
	for _, r := range results {
		order = append(order, r.Location)
	}
	assert.Equal(t, []string{"y.txt", "c.txt", "a.txt", "b.txt", "z.txt"}, order)
}

func TestAddAllMergesDisjointLocations(t *testing.T) {
	left := NewMemoryIndex()
	left.AddPositions("run", "a.txt", []int{1, 2, 3})
	left.AddWordCount("a.txt", 3)

	right := NewMemoryIndex()
	right.AddWord("run", "b.txt", 1)
	right.AddWord("walk", "b.txt", 2)
	right.AddWordCount("b.txt", 2)

	left.AddAll(right)
	assert.Equal(t, sample().ViewIndex(), left.ViewIndex())
	assert.Equal(t, sample().ViewCounts(), left.ViewCounts())

	// right is untouched
	assert.Equal(t, 1, right.NumLocations())
}

func TestAddAllOverlappingLocationKeepsCountsConsistent(t *testing.T) {
	idx := sample()
	again := NewMemoryIndex()
	again.AddPositions("run", "b.txt", []int{1})
	again.AddWord("fly", "b.txt", 3)
	again.AddWordCount("b.txt", 2)

	idx.AddAll(again)
	assert.Equal(t, []int{1}, idx.ViewPositions("run", "b.txt"))
	assert.Equal(t, 3, idx.NumCount("b.txt"))

	idx.AddAll(idx)
	idx.AddAll(nil)
	assert.Equal(t, 3, idx.NumCount("b.txt"))
}

func TestConcurrentMergeIsOrderIndependent(t *testing.T) {
	const files = 200
	build := func(i int) *MemoryIndex {
		local := NewMemoryIndex()
		location := fmt.Sprintf("doc-%03d.txt", i)
		for pos := 1; pos <= 10; pos++ {
			local.AddWord(fmt.Sprintf("stem%d", (i+pos)%17), location, pos)
		}
		local.AddWordCount(location, 10)
		return local
	}

	serial := NewMemoryIndex()
	for i := 0; i < files; i++ {
		serial.AddAll(build(i))
	}

	shared := NewMemoryIndex()
	var wg sync.WaitGroup
	for i := files - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shared.AddAll(build(i))
			_ = shared.Search([]string{"stem1"}, true)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, serial.ViewIndex(), shared.ViewIndex())
	assert.Equal(t, serial.ViewCounts(), shared.ViewCounts())
	assert.Equal(t, serial.Search([]string{"stem1", "stem3"}, false), shared.Search([]string{"stem1", "stem3"}, false))
}

func TestCrossMergeDoesNotDeadlock(t *testing.T) {
	a := sample()
	b := NewMemoryIndex()
	b.AddWord("fly", "c.txt", 1)
	b.AddWordCount("c.txt", 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.AddAll(b) }()
		go func() { defer wg.Done(); b.AddAll(a) }()
	}
	wg.Wait()
	assert.True(t, a.HasStem("fly"))
	assert.True(t, b.HasStem("walk"))
}

func BenchmarkSearchPartial(b *testing.B) {
	idx := NewMemoryIndex()
	for i := 0; i < 5000; i++ {
		location := fmt.Sprintf("doc-%d.txt", i%100)
		idx.AddWord(fmt.Sprintf("term%d", i), location, i+1)
	}
	for i := 0; i < 100; i++ {
		idx.AddWordCount(fmt.Sprintf("doc-%d.txt", i), 50)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Search([]string{"term12", "term4"}, true)
	}
}
