package index

import (
	"encoding/json"
	"sort"
	"strconv"
)

// PositionSet is an ascending set of unique 1-based positions.
type PositionSet struct {
	positions []int
}

// Add inserts pos and reports whether it was not already present.
func (p *PositionSet) Add(pos int) bool {
	i := sort.SearchInts(p.positions, pos)
	if i < len(p.positions) && p.positions[i] == pos {
		return false
	}
	p.positions = append(p.positions, 0)
	copy(p.positions[i+1:], p.positions[i:])
	p.positions[i] = pos
	return true
}

func (p *PositionSet) Contains(pos int) bool {
	i := sort.SearchInts(p.positions, pos)
	return i < len(p.positions) && p.positions[i] == pos
}

func (p *PositionSet) Len() int {
	return len(p.positions)
}

// Slice returns a copy of the positions in ascending order.
func (p *PositionSet) Slice() []int {
	out := make([]int, len(p.positions))
	copy(out, p.positions)
	return out
}

// SearchResult is one location matched by a query.
type SearchResult struct {
	Location string  `json:"where"`
	Count    int     `json:"count"`
	Score    float64 `json:"score"`
}

// Before reports whether r sorts ahead of o: higher score first, then higher
// count, then location in lexicographic order.
func (r SearchResult) Before(o SearchResult) bool {
	if r.Score != o.Score {
		return r.Score > o.Score
	}
	if r.Count != o.Count {
		return r.Count > o.Count
	}
	return r.Location < o.Location
}

func SortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Before(results[j])
	})
}

// MarshalJSON renders the score with eight decimal places so output files
// are stable across platforms.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int         `json:"count"`
		Score json.Number `json:"score"`
		Where string      `json:"where"`
	}{
		Count: r.Count,
		Score: json.Number(strconv.FormatFloat(r.Score, 'f', 8, 64)),
		Where: r.Location,
	})
}
