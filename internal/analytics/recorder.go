// Package analytics records what a run did: one event per build and one per
// distinct query. Events always feed the in-process Aggregator and, when a
// Tracker is configured, are also shipped to Kafka.
package analytics

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

// Tracker buffers an event for delivery; *collector.BatchCollector
// satisfies it.
type Tracker interface {
	Track(key string, value any)
}

// Recorder turns build stats and query results into events. It implements
// processor.ResultSink.
type Recorder struct {
	runID      string
	tracker    Tracker
	aggregator *Aggregator
	now        func() time.Time
}

// NewRecorder creates a Recorder. tracker may be nil.
func NewRecorder(runID string, tracker Tracker, aggregator *Aggregator) *Recorder {
	if aggregator == nil {
		aggregator = NewAggregator()
	}
	return &Recorder{
		runID:      runID,
		tracker:    tracker,
		aggregator: aggregator,
		now:        time.Now,
	}
}

func (r *Recorder) Name() string {
	return "analytics"
}

// Publish records a query.processed event.
func (r *Recorder) Publish(_ context.Context, query string, results []index.SearchResult) error {
	event := QueryEvent{
		Type:      EventQueryProcessed,
		RunID:     r.runID,
		Query:     query,
		Results:   len(results),
		Timestamp: r.now(),
	}
	if len(results) > 0 {
		event.TopLocation = results[0].Location
		event.TopScore = results[0].Score
	}
	r.aggregator.RecordQuery(event)
	if r.tracker != nil {
		r.tracker.Track(query, event)
	}
	return nil
}

// RecordBuild records a build.completed event.
func (r *Recorder) RecordBuild(path string, stats indexer.BuildStats, distinctStems int) {
	event := BuildEvent{
		Type:          EventBuildCompleted,
		RunID:         r.runID,
		Path:          path,
		Files:         stats.Files,
		Failed:        stats.Failed,
		Stems:         stats.Stems,
		DistinctStems: distinctStems,
		DurationMs:    stats.Duration.Milliseconds(),
		Timestamp:     r.now(),
	}
	r.aggregator.RecordBuild(event)
	if r.tracker != nil {
		r.tracker.Track(r.runID, event)
	}
}

func (r *Recorder) Aggregator() *Aggregator {
	return r.aggregator
}
