package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

type tracked struct {
	key   string
	value any
}

type fakeTracker struct {
	mu     sync.Mutex
	events []tracked
}

func (f *fakeTracker) Track(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, tracked{key: key, value: value})
}

func TestRecorderEmitsEvents(t *testing.T) {
	tracker := &fakeTracker{}
	r := NewRecorder("run-1", tracker, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.RecordBuild("corpus", indexer.BuildStats{Files: 3, Failed: 1, Stems: 40, Duration: 1500 * time.Millisecond}, 12)
	require.NoError(t, r.Publish(context.Background(), "run", []index.SearchResult{
		{Location: "a.txt", Count: 3, Score: 1},
		{Location: "b.txt", Count: 1, Score: 0.5},
	}))
	require.NoError(t, r.Publish(context.Background(), "fli", []index.SearchResult{}))

	require.Len(t, tracker.events, 3)
	assert.Equal(t, "run-1", tracker.events[0].key)
	assert.Equal(t, BuildEvent{
		Type:          EventBuildCompleted,
		RunID:         "run-1",
		Path:          "corpus",
		Files:         3,
		Failed:        1,
		Stems:         40,
		DistinctStems: 12,
		DurationMs:    1500,
		Timestamp:     fixed,
	}, tracker.events[0].value)
	assert.Equal(t, "run", tracker.events[1].key)
	assert.Equal(t, QueryEvent{
		Type:        EventQueryProcessed,
		RunID:       "run-1",
		Query:       "run",
		Results:     2,
		TopLocation: "a.txt",
		TopScore:    1,
		Timestamp:   fixed,
	}, tracker.events[1].value)

	stats := r.Aggregator().Stats(10)
	assert.Equal(t, 1, stats.Builds)
	assert.Equal(t, 3, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 2, stats.Queries)
	assert.Equal(t, 1, stats.ZeroResultCount)
	assert.Equal(t, []string{"fli"}, stats.ZeroResultQueries)
	assert.Equal(t, []QueryCount{{Query: "run", Results: 2}}, stats.TopQueries)
	assert.Equal(t, 1.0, stats.AvgResults)
	assert.Equal(t, "analytics", r.Name())
}

func TestRecorderWithoutTracker(t *testing.T) {
	r := NewRecorder("run-2", nil, NewAggregator())
	require.NoError(t, r.Publish(context.Background(), "walk", []index.SearchResult{{Location: "b.txt", Count: 1, Score: 0.5}}))
	assert.Equal(t, 1, r.Aggregator().Stats(0).Queries)
}

func TestAggregatorTopQueriesOrderedAndBounded(t *testing.T) {
	a := NewAggregator()
	for i, q := range []string{"c", "a", "b", "d"} {
		a.RecordQuery(QueryEvent{Query: q, Results: 5 - i%2})
	}
	stats := a.Stats(3)
	assert.Equal(t, []QueryCount{
		{Query: "b", Results: 5},
		{Query: "c", Results: 5},
		{Query: "a", Results: 4},
	}, stats.TopQueries)
	assert.Empty(t, stats.ZeroResultQueries)
	assert.NotNil(t, stats.ZeroResultQueries)
}
