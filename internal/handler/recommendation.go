package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/repository"
)

// Recommender is the similarity engine behind the recommendation routes.
type Recommender interface {
	SimilarN(ctx context.Context, venueID uint64, n int) ([]model.ScoredVenue, error)
	Personalized(ctx context.Context, userID uint64) ([]model.ScoredVenue, error)
	Record(ctx context.Context, userID, venueID uint64, kind model.InteractionType) error
	Refresh(ctx context.Context, force bool) (int, error)
}

// VenueLookup checks that a venue exists.
type VenueLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
}

type RecommendationHandler struct {
	Engine Recommender
	Venues VenueLookup
	Logger logrus.FieldLogger
}

// maxSimilar caps ?n= on the similar venues route.
const maxSimilar = 50

type similarVenue struct {
	Venue           model.VenueSummary `json:"venue"`
	SimilarityScore float64            `json:"similarity_score"`
}

// Similar handles GET /v1/venues/:id/similar?n=.  A signed in caller's
// request counts as a view of the venue.
func (h *RecommendationHandler) Similar(c echo.Context) error {
	venueID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	n := 0
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSimilar {
			return badRequest(c, "n must be between 1 and 50")
		}
		n = v
	}
	ctx := c.Request().Context()

	if uid := optionalUserID(c); uid != 0 {
		if err := h.Engine.Record(ctx, uid, venueID, model.InteractionView); err != nil {
			h.Logger.WithError(err).WithFields(logrus.Fields{"user_id": uid, "venue_id": venueID}).
				Warn("record view failed")
		}
	}

	scored, err := h.Engine.SimilarN(ctx, venueID, n)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	out := make([]similarVenue, 0, len(scored))
	for _, s := range scored {
		out = append(out, similarVenue{Venue: s.Venue, SimilarityScore: s.Score})
	}
	return c.JSON(http.StatusOK, out)
}

// Personalized handles GET /v1/recommendations.
func (h *RecommendationHandler) Personalized(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	scored, err := h.Engine.Personalized(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if scored == nil {
		scored = []model.ScoredVenue{}
	}
	return c.JSON(http.StatusOK, scored)
}

// Favorite handles POST /v1/venues/:id/favorite.
func (h *RecommendationHandler) Favorite(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	venueID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	if h.Venues != nil {
		if _, err := h.Venues.GetByID(ctx, venueID); err != nil {
			return writeError(c, h.Logger, err)
		}
	}
	if err := h.Engine.Record(ctx, userID, venueID, model.InteractionFavorite); err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Venue added to favorites."})
}

// Refresh handles POST /v1/owner/recommendations/refresh.  It rebuilds
// the similarity cache regardless of its age.
func (h *RecommendationHandler) Refresh(c echo.Context) error {
	started := time.Now()
	pairs, err := h.Engine.Refresh(c.Request().Context(), true)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	h.Logger.WithFields(logrus.Fields{"pairs": pairs, "took": time.Since(started)}).Info("similarity cache refreshed on request")
	return c.JSON(http.StatusOK, echo.Map{"pairs": pairs})
}

// AnalyticsSource computes the vendor dashboard.
type AnalyticsSource interface {
	ForOwner(ctx context.Context, ownerID uint64, now time.Time) (*repository.VendorAnalytics, error)
}

type AnalyticsHandler struct {
	Analytics AnalyticsSource
	Now       func() time.Time
	Logger    logrus.FieldLogger
}

// Dashboard handles GET /v1/owner/analytics.
func (h *AnalyticsHandler) Dashboard(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	a, err := h.Analytics.ForOwner(c.Request().Context(), ownerID, now())
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, a)
}
