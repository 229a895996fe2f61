// Package index holds the in-memory inverted index: stem to location to
// ascending positions, plus the total stem count of every location. All
// access goes through MemoryIndex methods, and every view hands back a copy,
// so callers never share memory with the index.
package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]*PositionSet
	counts   map[string]int
	// sorted caches the stems in ascending order for prefix search; nil
	// whenever a write may have added a stem.
	sorted []string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings: make(map[string]map[string]*PositionSet),
		counts:   make(map[string]int),
	}
}

// AddWordCount records the total number of stems found at location.
// Non-positive counts are ignored.
func (m *MemoryIndex) AddWordCount(location string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[location] = count
}

func (m *MemoryIndex) AddWord(stem string, location string, position int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(stem, location, position)
}

// AddPositions unions positions into the set for stem at location. The whole
// call is applied under one lock.
func (m *MemoryIndex) AddPositions(stem string, location string, positions []int) {
	if len(positions) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pos := range positions {
		m.addLocked(stem, location, pos)
	}
}

// AddAll merges other into m. other is copied under its own read lock first
// and then applied under a single write lock on m, so two indexes merging
// into each other cannot deadlock. For a location m already has, its count
// grows by the number of positions that were actually new.
func (m *MemoryIndex) AddAll(other *MemoryIndex) {
	if other == nil || other == m {
		return
	}
	postings := other.ViewIndex()
	counts := other.ViewCounts()

	m.mu.Lock()
	defer m.mu.Unlock()
	added := make(map[string]int)
	for stem, locations := range postings {
		for location, positions := range locations {
			for _, pos := range positions {
				if m.addLocked(stem, location, pos) {
					added[location]++
				}
			}
		}
	}
	for location, count := range counts {
		if existing, ok := m.counts[location]; ok {
			m.counts[location] = existing + added[location]
		} else if count > 0 {
			m.counts[location] = count
		}
	}
}

// addLocked must be called with m.mu held for writing.
func (m *MemoryIndex) addLocked(stem string, location string, position int) bool {
	locations, ok := m.postings[stem]
	if !ok {
		locations = make(map[string]*PositionSet)
		m.postings[stem] = locations
		m.sorted = nil
	}
	set, ok := locations[location]
	if !ok {
		set = &PositionSet{}
		locations[location] = set
	}
	return set.Add(position)
}

// Search scores every location containing a query stem (or, when partial is
// set, any indexed stem that starts with a query stem). Each matching index
// stem contributes its occurrences at a location once, however many query
// stems lead to it. Results are ordered by SearchResult.Before.
func (m *MemoryIndex) Search(stems []string, partial bool) []SearchResult {
	results := make([]SearchResult, 0)
	if len(stems) == 0 {
		return results
	}
	if partial {
		m.ensureSorted()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make(map[string]struct{})
	if partial {
		sorted := m.sorted
		if sorted == nil {
			// a writer slipped in after ensureSorted
			sorted = m.sortedStemsLocked()
		}
		for _, prefix := range stems {
			for i := sort.SearchStrings(sorted, prefix); i < len(sorted) && strings.HasPrefix(sorted[i], prefix); i++ {
				matched[sorted[i]] = struct{}{}
			}
		}
	} else {
		for _, stem := range stems {
			if _, ok := m.postings[stem]; ok {
				matched[stem] = struct{}{}
			}
		}
	}

	hits := make(map[string]int)
	for stem := range matched {
		for location, set := range m.postings[stem] {
			hits[location] += set.Len()
		}
	}
	for location, count := range hits {
		total := m.counts[location]
		if total < count {
			total = count
		}
		results = append(results, SearchResult{
			Location: location,
			Count:    count,
			Score:    float64(count) / float64(total),
		})
	}
	SortResults(results)
	return results
}

func (m *MemoryIndex) ensureSorted() {
	m.mu.RLock()
	ready := m.sorted != nil
	m.mu.RUnlock()
	if ready {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sorted == nil {
		m.sorted = m.sortedStemsLocked()
	}
}

func (m *MemoryIndex) sortedStemsLocked() []string {
	stems := make([]string, 0, len(m.postings))
	for stem := range m.postings {
		stems = append(stems, stem)
	}
	sort.Strings(stems)
	return stems
}

// ViewCounts returns a copy of the location word counts.
func (m *MemoryIndex) ViewCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.counts))
	for location, count := range m.counts {
		out[location] = count
	}
	return out
}

// ViewIndex returns a deep copy of every posting.
func (m *MemoryIndex) ViewIndex() map[string]map[string][]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]map[string][]int, len(m.postings))
	for stem, locations := range m.postings {
		copied := make(map[string][]int, len(locations))
		for location, set := range locations {
			copied[location] = set.Slice()
		}
		out[stem] = copied
	}
	return out
}

// ViewStems returns the indexed stems in ascending order.
func (m *MemoryIndex) ViewStems() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedStemsLocked()
}

// ViewLocations returns the locations of stem in ascending order.
func (m *MemoryIndex) ViewLocations(stem string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locations := m.postings[stem]
	out := make([]string, 0, len(locations))
	for location := range locations {
		out = append(out, location)
	}
	sort.Strings(out)
	return out
}

// ViewPositions returns the positions of stem at location in ascending order.
func (m *MemoryIndex) ViewPositions(stem string, location string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if set, ok := m.postings[stem][location]; ok {
		return set.Slice()
	}
	return []int{}
}

// NumWords returns the number of distinct stems.
func (m *MemoryIndex) NumWords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.postings)
}

// NumLocations returns the number of locations with a word count.
func (m *MemoryIndex) NumLocations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.counts)
}

func (m *MemoryIndex) NumPositions(stem string, location string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if set, ok := m.postings[stem][location]; ok {
		return set.Len()
	}
	return 0
}

// NumCount returns the word count of location, or 0 if it is not indexed.
func (m *MemoryIndex) NumCount(location string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[location]
}

func (m *MemoryIndex) HasStem(stem string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.postings[stem]
	return ok
}

func (m *MemoryIndex) HasLocation(stem string, location string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.postings[stem][location]
	return ok
}

func (m *MemoryIndex) HasPosition(stem string, location string, position int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.postings[stem][location]
	return ok && set.Contains(position)
}

func (m *MemoryIndex) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("MemoryIndex{stems: %d, locations: %d}", len(m.postings), len(m.counts))
}
