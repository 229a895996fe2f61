package analytics

import "time"

type EventType string

const (
	EventBuildCompleted EventType = "build.completed"
	EventQueryProcessed EventType = "query.processed"
)

type BuildEvent struct {
	Type          EventType `json:"type"`
	RunID         string    `json:"run_id"`
	Path          string    `json:"path"`
	Files         int       `json:"files"`
	Failed        int       `json:"failed"`
	Stems         int       `json:"stems"`
	DistinctStems int       `json:"distinct_stems"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

type QueryEvent struct {
	Type        EventType `json:"type"`
	RunID       string    `json:"run_id"`
	Query       string    `json:"query"`
	Results     int       `json:"results"`
	TopLocation string    `json:"top_location,omitempty"`
	TopScore    float64   `json:"top_score,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
