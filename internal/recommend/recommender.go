// Package recommend ranks venues by content similarity.  Each venue is
// turned into a TF-IDF vector of its descriptive text and venues are
// compared by cosine similarity.  Scores are cached per source venue in the
// similarity store and blended with a user's recent interactions for
// personalized results.
package recommend

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/venuehunt/venuehunt/internal/model"
)

// Catalog is the read side of the venue table.
type Catalog interface {
	// ListAll returns every venue ordered by id.
	ListAll(ctx context.Context) ([]model.Venue, error)
	SummariesByIDs(ctx context.Context, ids []uint64) (map[uint64]model.VenueSummary, error)
	TopRated(ctx context.Context, limit int) ([]model.VenueSummary, error)
}

// SimilarityStore persists similarity scores per source venue.
type SimilarityStore interface {
	// TopN returns the best cached targets for source, score descending
	// and then target id ascending.
	TopN(ctx context.Context, source uint64, n int) ([]model.SimilarityEntry, error)
	// Replace swaps the cached rows of one source.
	Replace(ctx context.Context, source uint64, entries []model.SimilarityEntry) error
	// ReplaceAll swaps the whole cache.
	ReplaceAll(ctx context.Context, entries []model.SimilarityEntry) error
}

// InteractionLog stores user to venue interactions.
type InteractionLog interface {
	Recent(ctx context.Context, userID uint64, limit int) ([]model.Interaction, error)
	Record(ctx context.Context, in model.Interaction) error
}

// Options tunes ranking.  Zero values fall back to the defaults.
type Options struct {
	TopN           int           // results per query, default 5
	MaxAge         time.Duration // matrix lifetime, default 24h
	HalfLife       time.Duration // interaction recency half life, default 30 days
	HistorySize    int           // interactions considered, default 10
	PerInteraction int           // similar venues taken per interaction, default 3
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	if o.HalfLife <= 0 {
		o.HalfLife = 30 * 24 * time.Hour
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 10
	}
	if o.PerInteraction <= 0 {
		o.PerInteraction = 3
	}
	return o
}

// Recommender is safe for concurrent use.  The similarity matrix is an
// immutable snapshot replaced atomically; concurrent rebuilds collapse into
// one.
type Recommender struct {
	catalog      Catalog
	store        SimilarityStore
	interactions InteractionLog
	lock         Locker
	logger       logrus.FieldLogger
	opts         Options

	snap  atomic.Pointer[Matrix]
	stale atomic.Bool
	group singleflight.Group

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// New wires a Recommender.  lock may be nil for single-instance setups.
func New(catalog Catalog, store SimilarityStore, interactions InteractionLog, lock Locker, logger logrus.FieldLogger, opts Options) *Recommender {
	if catalog == nil || store == nil || interactions == nil {
		panic("nil dependency passed to recommend.New")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recommender{
		catalog:      catalog,
		store:        store,
		interactions: interactions,
		lock:         lock,
		logger:       logger.WithField("component", "recommend"),
		opts:         opts.withDefaults(),
		Now:          time.Now,
	}
}

// Invalidate marks the in-memory matrix stale so the next miss rebuilds it.
// Call it after any catalog change.
func (r *Recommender) Invalidate() { r.stale.Store(true) }

// Similar returns the top venues most similar to venueID.  Cached scores are
// used when present.  Otherwise the matrix is computed, the venue's nonzero
// scores are persisted and the top entries returned.  An unknown venue or a
// catalog of fewer than two venues yields an empty list.
func (r *Recommender) Similar(ctx context.Context, venueID uint64) ([]model.ScoredVenue, error) {
	return r.SimilarN(ctx, venueID, r.opts.TopN)
}

// SimilarN is Similar with an explicit result count.  n <= 0 means the
// configured default.
func (r *Recommender) SimilarN(ctx context.Context, venueID uint64, n int) ([]model.ScoredVenue, error) {
	if n <= 0 {
		n = r.opts.TopN
	}
	matches, err := r.similar(ctx, venueID, n)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, matches)
}

func (r *Recommender) similar(ctx context.Context, venueID uint64, n int) ([]Match, error) {
	cached, err := r.store.TopN(ctx, venueID, n)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		out := make([]Match, len(cached))
		for i, e := range cached {
			out[i] = Match{VenueID: e.TargetVenueID, Score: e.Score}
		}
		return out, nil
	}

	m, err := r.matrix(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if m.Len() < 2 || !m.Has(venueID) {
		return []Match{}, nil
	}
	all := m.Similar(venueID)
	if err := r.store.Replace(ctx, venueID, entriesFor(venueID, all, m.BuiltAt)); err != nil {
		r.logger.WithError(err).WithField("venue_id", venueID).Warn("persist similarity cache failed")
	}
	return topN(all, n), nil
}

// matrix returns a snapshot that is fresh and contains want, rebuilding it
// when needed.
func (r *Recommender) matrix(ctx context.Context, want uint64) (*Matrix, error) {
	m := r.snap.Load()
	if m != nil && !r.stale.Load() && !m.Stale(r.Now(), r.opts.MaxAge) && m.Has(want) {
		return m, nil
	}
	v, err, _ := r.group.Do("matrix", func() (interface{}, error) {
		return r.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Matrix), nil
}

func (r *Recommender) rebuild(ctx context.Context) (*Matrix, error) {
	r.stale.Store(false)
	venues, err := r.catalog.ListAll(ctx)
	if err != nil {
		r.stale.Store(true)
		return nil, err
	}
	start := time.Now()
	m := Build(venues, r.Now())
	r.snap.Store(m)
	r.logger.WithFields(logrus.Fields{
		"venues":   m.Len(),
		"duration": time.Since(start).String(),
	}).Info("similarity matrix built")
	return m, nil
}

// Refresh recomputes the matrix and rewrites the cache for every venue.
// Without force it does nothing while the current snapshot is fresh.  It
// returns the number of cached pairs written.
func (r *Recommender) Refresh(ctx context.Context, force bool) (int, error) {
	if m := r.snap.Load(); !force && m != nil && !r.stale.Load() && !m.Stale(r.Now(), r.opts.MaxAge) {
		return 0, nil
	}
	if r.lock != nil {
		release, err := r.lock.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		defer release()
	}
	v, err, _ := r.group.Do("matrix", func() (interface{}, error) {
		return r.rebuild(ctx)
	})
	if err != nil {
		return 0, err
	}
	m := v.(*Matrix)
	var entries []model.SimilarityEntry
	for _, id := range m.IDs() {
		entries = append(entries, entriesFor(id, m.Similar(id), m.BuiltAt)...)
	}
	if err := r.store.ReplaceAll(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Record stores an interaction for later personalization.
func (r *Recommender) Record(ctx context.Context, userID, venueID uint64, kind model.InteractionType) error {
	if userID == 0 || venueID == 0 {
		return nil
	}
	return r.interactions.Record(ctx, model.Interaction{
		UserID:    userID,
		VenueID:   venueID,
		Type:      kind,
		CreatedAt: r.Now(),
	})
}

// Personalized ranks venues for userID from their recent interactions.
// Each interaction contributes its most similar venues weighted by the
// interaction kind, its recency and the similarity score.  A user with no
// history gets the top rated venues.
func (r *Recommender) Personalized(ctx context.Context, userID uint64) ([]model.ScoredVenue, error) {
	var history []model.Interaction
	if userID != 0 {
		var err error
		history, err = r.interactions.Recent(ctx, userID, r.opts.HistorySize)
		if err != nil {
			return nil, err
		}
	}
	if len(history) == 0 {
		return r.TopRated(ctx)
	}

	now := r.Now()
	scores := map[uint64]float64{}
	var order []uint64
	for _, in := range history {
		sims, err := r.similar(ctx, in.VenueID, r.opts.PerInteraction)
		if err != nil {
			return nil, err
		}
		w := in.Type.Weight() * r.decay(now.Sub(in.CreatedAt))
		for _, s := range sims {
			if _, seen := scores[s.VenueID]; !seen {
				order = append(order, s.VenueID)
			}
			scores[s.VenueID] += w * s.Score
		}
	}

	ranked := make([]Match, len(order))
	for i, id := range order {
		ranked[i] = Match{VenueID: id, Score: scores[id]}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	return r.hydrate(ctx, topN(ranked, r.opts.TopN))
}

// TopRated is the fallback list: average rating, then review count, then id.
// The score is the average rating, or 0 for unrated venues.
func (r *Recommender) TopRated(ctx context.Context) ([]model.ScoredVenue, error) {
	rows, err := r.catalog.TopRated(ctx, r.opts.TopN)
	if err != nil {
		return nil, err
	}
	out := make([]model.ScoredVenue, 0, len(rows))
	for _, v := range rows {
		var score float64
		if v.AverageRating != nil {
			score = *v.AverageRating
		}
		out = append(out, model.ScoredVenue{Venue: v, Score: score})
	}
	return out, nil
}

func (r *Recommender) decay(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(r.opts.HalfLife))
}

// hydrate loads venue summaries for matches, keeping their order.  Venues
// deleted since the scores were cached are skipped.
func (r *Recommender) hydrate(ctx context.Context, matches []Match) ([]model.ScoredVenue, error) {
	out := make([]model.ScoredVenue, 0, len(matches))
	if len(matches) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(matches))
	for i, m := range matches {
		ids[i] = m.VenueID
	}
	byID, err := r.catalog.SummariesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if v, ok := byID[m.VenueID]; ok {
			out = append(out, model.ScoredVenue{Venue: v, Score: m.Score})
		}
	}
	return out, nil
}

func entriesFor(source uint64, matches []Match, at time.Time) []model.SimilarityEntry {
	out := make([]model.SimilarityEntry, len(matches))
	for i, m := range matches {
		out[i] = model.SimilarityEntry{SourceVenueID: source, TargetVenueID: m.VenueID, Score: m.Score, UpdatedAt: at}
	}
	return out
}

// IsLockHeld reports whether err means another refresh is in progress.
func IsLockHeld(err error) bool { return errors.Is(err, ErrLockHeld) }
