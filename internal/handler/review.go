package handler

import (
	"context"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/model"
)

// ReviewAPI is the review workflow used by ReviewHandler.
type ReviewAPI interface {
	Create(ctx context.Context, reviewerID, bookingID uint64, rating int, comment string) (*model.Review, error)
	Update(ctx context.Context, reviewerID, reviewID uint64, rating int, comment string) (*model.Review, error)
	Delete(ctx context.Context, reviewerID, reviewID uint64) error
	ForVenue(ctx context.Context, venueID uint64) ([]model.Review, error)
	ForOwner(ctx context.Context, ownerID uint64) ([]model.Review, error)
}

type ReviewHandler struct {
	Reviews ReviewAPI
	Logger  logrus.FieldLogger
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create handles POST /v1/bookings/:id/review.
func (h *ReviewHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rv, err := h.Reviews.Create(c.Request().Context(), userID, bookingID, req.Rating, req.Comment)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// Update handles PUT /v1/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rv, err := h.Reviews.Update(c.Request().Context(), userID, id, req.Rating, req.Comment)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, rv)
}

// Delete handles DELETE /v1/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Reviews.Delete(c.Request().Context(), userID, id); err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForVenue handles GET /v1/venues/:id/reviews.  average_rating is null
// when there are no reviews.
func (h *ReviewHandler) ForVenue(c echo.Context) error {
	venueID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	items, err := h.Reviews.ForVenue(c.Request().Context(), venueID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.Review{}
	}
	var avg *float64
	if len(items) > 0 {
		sum := 0
		for _, r := range items {
			sum += r.Rating
		}
		a := math.Round(float64(sum)/float64(len(items))*10) / 10
		avg = &a
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":          items,
		"average_rating": avg,
		"review_count":   len(items),
	})
}

// ForOwner handles GET /v1/owner/reviews.
func (h *ReviewHandler) ForOwner(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Reviews.ForOwner(c.Request().Context(), ownerID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.Review{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
