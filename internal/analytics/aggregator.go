package analytics

import (
	"sort"
	"sync"
	"time"
)

// RunStats summarises the queries and builds seen during one run.
type RunStats struct {
	Builds            int          `json:"builds"`
	FilesIndexed      int          `json:"files_indexed"`
	FilesFailed       int          `json:"files_failed"`
	Queries           int          `json:"queries"`
	ZeroResultCount   int          `json:"zero_result_count"`
	AvgResults        float64      `json:"avg_results"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []string     `json:"zero_result_queries"`
	QueriesPerSecond  float64      `json:"queries_per_second"`
}

// QueryCount pairs a query with the number of locations it matched.
type QueryCount struct {
	Query   string `json:"query"`
	Results int    `json:"results"`
}

// Aggregator keeps in-process run statistics for the final summary.
type Aggregator struct {
	mu          sync.Mutex
	builds      int
	filesOK     int
	filesFailed int
	results     map[string]int
	startTime   time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		results:   make(map[string]int),
		startTime: time.Now(),
	}
}

func (a *Aggregator) RecordBuild(event BuildEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.builds++
	a.filesOK += event.Files
	a.filesFailed += event.Failed
}

func (a *Aggregator) RecordQuery(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[event.Query] = event.Results
}

// Stats returns the current summary; topN bounds TopQueries and
// ZeroResultQueries.
func (a *Aggregator) Stats(topN int) RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := RunStats{
		Builds:            a.builds,
		FilesIndexed:      a.filesOK,
		FilesFailed:       a.filesFailed,
		Queries:           len(a.results),
		TopQueries:        make([]QueryCount, 0),
		ZeroResultQueries: make([]string, 0),
	}
	all := make([]QueryCount, 0, len(a.results))
	total := 0
	for query, n := range a.results {
		total += n
		if n == 0 {
			stats.ZeroResultCount++
			stats.ZeroResultQueries = append(stats.ZeroResultQueries, query)
			continue
		}
		all = append(all, QueryCount{Query: query, Results: n})
	}
	if len(a.results) > 0 {
		stats.AvgResults = float64(total) / float64(len(a.results))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Results != all[j].Results {
			return all[i].Results > all[j].Results
		}
		return all[i].Query < all[j].Query
	})
	sort.Strings(stats.ZeroResultQueries)
	stats.TopQueries = truncate(all, topN)
	stats.ZeroResultQueries = truncate(stats.ZeroResultQueries, topN)

	if elapsed := time.Since(a.startTime).Seconds(); elapsed > 0 {
		stats.QueriesPerSecond = float64(stats.Queries) / elapsed
	}
	return stats
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
