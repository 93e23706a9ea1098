package model

import "time"

// InteractionType is the kind of user to venue interaction that feeds
// personalized recommendations.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionBook     InteractionType = "book"
	InteractionFavorite InteractionType = "favorite"
)

// Weight is the relative importance of the interaction when ranking.
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionBook:
		return 3.0
	case InteractionFavorite:
		return 2.0
	case InteractionView:
		return 1.0
	}
	return 0
}

// Interaction mirrors a row of `user_venue_interactions`.
type Interaction struct {
	UserID    uint64
	VenueID   uint64
	Type      InteractionType
	CreatedAt time.Time
}

// SimilarityEntry is one persisted (source, target) similarity score.
type SimilarityEntry struct {
	SourceVenueID uint64
	TargetVenueID uint64
	Score         float64
	UpdatedAt     time.Time
}

// ScoredVenue pairs a venue with a ranking score.  For similar venues the
// score is the cosine similarity; for personalized results it is the
// aggregated weight, or the average rating on the top-rated fallback.
type ScoredVenue struct {
	Venue VenueSummary `json:"venue"`
	Score float64      `json:"score"`
}
