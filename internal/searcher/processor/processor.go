// Package processor turns lines of query text into cached search results.
// Each line is stemmed into a sorted set of unique stems whose space-joined
// form is the cache key, so lines that stem alike share one result list.
// At most one search ever runs per key, even when identical lines race on
// different workers.
package processor

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/workqueue"
)

// ResultSink receives every newly computed result list, once per query key.
type ResultSink interface {
	Publish(ctx context.Context, query string, results []index.SearchResult) error
	Name() string
}

type Processor struct {
	idx     *index.MemoryIndex
	stemmer *tokenizer.Stemmer
	partial bool
	queue   *workqueue.WorkQueue
	sinks   []ResultSink
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	results map[string][]index.SearchResult
	group   singleflight.Group
}

type Option func(*Processor)

// WithWorkQueue runs one task per query line on q. The queue is borrowed,
// never shut down.
func WithWorkQueue(q *workqueue.WorkQueue) Option {
	return func(p *Processor) {
		p.queue = q
	}
}

// WithSink adds a sink; it may be given more than once.
func WithSink(s ResultSink) Option {
	return func(p *Processor) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// New creates a Processor searching idx. partial selects prefix matching.
func New(idx *index.MemoryIndex, stemmer *tokenizer.Stemmer, partial bool, opts ...Option) *Processor {
	p := &Processor{
		idx:     idx,
		stemmer: stemmer,
		partial: partial,
		logger:  slog.Default().With("component", "query-processor"),
		results: make(map[string][]index.SearchResult),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessQuery searches for line unless an equivalent line was already
// processed. Lines without any stems are ignored.
func (p *Processor) ProcessQuery(ctx context.Context, line string) {
	stems := p.stemmer.UniqueStems(line)
	if len(stems) == 0 {
		p.countQuery("empty")
		return
	}
	key := tokenizer.CanonicalKey(stems)
	if p.has(key) {
		p.countQuery("cached")
		return
	}

	searched := false
	p.group.Do(key, func() (any, error) {
		if p.has(key) {
			return nil, nil
		}
		searched = true
		start := time.Now()
		results := p.idx.Search(stems, p.partial)
		elapsed := time.Since(start)

		p.mu.Lock()
		p.results[key] = results
		p.mu.Unlock()

		if p.metrics != nil {
			p.metrics.SearchLatency.Observe(elapsed.Seconds())
			p.metrics.SearchResults.Observe(float64(len(results)))
		}
		logger.FromContext(ctx).Debug("query searched",
			"component", "query-processor",
			"query", key,
			"results", len(results),
			"latency_us", elapsed.Microseconds(),
		)
		p.publish(ctx, key, results)
		return nil, nil
	})

	if searched {
		p.countQuery("searched")
	} else {
		p.countQuery("cached")
	}
}

// ProcessQueries processes every line of r, on the work queue when one is
// configured. It returns once all lines have been searched.
func (p *Processor) ProcessQueries(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			p.drain()
			return err
		}
		line, readErr := reader.ReadString('\n')
		if line != "" {
			if err := p.dispatch(ctx, line); err != nil {
				p.drain()
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			p.drain()
			return errors.Newf(errors.ErrUnreadable, "process queries", "", "%v", readErr)
		}
	}
	if p.queue != nil {
		return p.queue.FinishContext(ctx)
	}
	return nil
}

// ProcessQueriesFrom processes every line of the file at path.
func (p *Processor) ProcessQueriesFrom(ctx context.Context, path string) error {
	if path == "" {
		return errors.New(errors.ErrInvalidInput, "process queries", "", "empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrNotFound, "process queries", path, "no such file")
		}
		return errors.Newf(errors.ErrUnreadable, "process queries", path, "%v", err)
	}
	defer f.Close()

	start := time.Now()
	if err := p.ProcessQueries(ctx, f); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("queries processed",
		"component", "query-processor",
		"path", path,
		"queries", p.NumQueries(),
		"partial", p.partial,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) dispatch(ctx context.Context, line string) error {
	if p.queue == nil {
		p.ProcessQuery(ctx, line)
		return nil
	}
	return p.queue.Execute(func() { p.ProcessQuery(ctx, line) })
}

// drain waits for lines already handed to the queue so no task outlives an
// early return.
func (p *Processor) drain() {
	if p.queue != nil {
		p.queue.Finish()
	}
}

// NumQueries returns the number of distinct queries processed.
func (p *Processor) NumQueries() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.results)
}

// Queries returns the processed query keys in ascending order.
func (p *Processor) Queries() []string {
	p.mu.RLock()
	keys := make([]string, 0, len(p.results))
	for key := range p.results {
		keys = append(keys, key)
	}
	p.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// HasQuery reports whether a line stemming like line has been processed.
func (p *Processor) HasQuery(line string) bool {
	return p.has(p.key(line))
}

// Results returns a copy of the results for the query equivalent to line,
// or an empty slice if it has not been processed.
func (p *Processor) Results(line string) []index.SearchResult {
	key := p.key(line)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneResults(p.results[key])
}

// ViewResults returns a copy of every cached result list keyed by query.
func (p *Processor) ViewResults() map[string][]index.SearchResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string][]index.SearchResult, len(p.results))
	for key, results := range p.results {
		out[key] = cloneResults(results)
	}
	return out
}

// WriteResults writes all cached results to path as JSON.
func (p *Processor) WriteResults(path string) error {
	return jsonwriter.WriteResults(path, p.ViewResults())
}

func (p *Processor) key(line string) string {
	return tokenizer.CanonicalKey(p.stemmer.UniqueStems(line))
}

func (p *Processor) has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.results[key]
	return ok
}

func (p *Processor) publish(ctx context.Context, key string, results []index.SearchResult) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, key, cloneResults(results)); err != nil {
			if p.metrics != nil {
				p.metrics.SinkErrorsTotal.WithLabelValues(sink.Name()).Inc()
			}
			p.logger.Warn("result sink failed",
				"sink", sink.Name(),
				"query", key,
				"error", err,
			)
		}
	}
}

func (p *Processor) countQuery(resultType string) {
	if p.metrics != nil {
		p.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func cloneResults(results []index.SearchResult) []index.SearchResult {
	out := make([]index.SearchResult, len(results))
	copy(out, results)
	return out
}
