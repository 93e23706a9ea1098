package recommend

import (
	"sort"
	"time"

	"github.com/venuehunt/venuehunt/internal/model"
)

// Match is one similar venue and its cosine score.
type Match struct {
	VenueID uint64
	Score   float64
}

// Matrix is an immutable pairwise similarity snapshot of a catalog.
type Matrix struct {
	ids     []uint64
	pos     map[uint64]int
	rows    []sparseVec
	BuiltAt time.Time
}

// Build vectorizes venues in the given order.  The order is the catalog
// order used to break score ties.
func Build(venues []model.Venue, now time.Time) *Matrix {
	docs := make([]string, len(venues))
	m := &Matrix{
		ids:     make([]uint64, len(venues)),
		pos:     make(map[uint64]int, len(venues)),
		BuiltAt: now,
	}
	for i, v := range venues {
		docs[i] = VenueText(v)
		m.ids[i] = v.ID
		m.pos[v.ID] = i
	}
	m.rows = vectorize(docs)
	return m
}

// Len is the number of venues in the snapshot.
func (m *Matrix) Len() int { return len(m.ids) }

// Has reports whether id was part of the catalog.
func (m *Matrix) Has(id uint64) bool {
	_, ok := m.pos[id]
	return ok
}

// IDs returns the catalog order.
func (m *Matrix) IDs() []uint64 { return append([]uint64(nil), m.ids...) }

// Score is the cosine similarity between two venues, 0 if either is unknown.
func (m *Matrix) Score(a, b uint64) float64 {
	i, ok := m.pos[a]
	j, ok2 := m.pos[b]
	if !ok || !ok2 {
		return 0
	}
	return m.rows[i].dot(m.rows[j])
}

// Similar returns every venue with a positive score against id, best first.
// The venue itself is excluded and ties keep catalog order.
func (m *Matrix) Similar(id uint64) []Match {
	i, ok := m.pos[id]
	if !ok {
		return nil
	}
	var out []Match
	for j, other := range m.ids {
		if j == i {
			continue
		}
		if s := m.rows[i].dot(m.rows[j]); s > 0 {
			out = append(out, Match{VenueID: other, Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Stale reports whether the snapshot is older than maxAge.
func (m *Matrix) Stale(now time.Time, maxAge time.Duration) bool {
	return m == nil || (maxAge > 0 && now.Sub(m.BuiltAt) >= maxAge)
}

func topN(ms []Match, n int) []Match {
	if n > 0 && len(ms) > n {
		return ms[:n]
	}
	return ms
}
