package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/middleware"
	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/repository"
)

// VenueStore is the subset of the venue repository used by VenueHandler.
type VenueStore interface {
	Create(ctx context.Context, v *model.Venue) error
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	GetSummary(ctx context.Context, id uint64) (*model.VenueSummary, error)
	Update(ctx context.Context, v *model.Venue, ownerID uint64) error
	Delete(ctx context.Context, id, ownerID uint64) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.VenueSummary, error)
	Search(ctx context.Context, q repository.VenueSearchQuery) ([]model.VenueSummary, int64, error)
}

// Invalidator is told when the venue catalog changes.
type Invalidator interface {
	Invalidate()
}

// VenueHandler serves the public venue catalog and the vendor's own venues.
type VenueHandler struct {
	Venues  VenueStore
	Catalog Invalidator
	// Cache and CachePrefix are optional; when set, cached public GET
	// responses are purged after every catalog write.
	Cache       *redis.Client
	CachePrefix string
	Logger      logrus.FieldLogger
}

// List handles GET /v1/venues.
func (h *VenueHandler) List(c echo.Context) error {
	q := repository.VenueSearchQuery{
		Search:        strings.TrimSpace(c.QueryParam("search")),
		Category:      model.EventCategory(strings.TrimSpace(c.QueryParam("category"))),
		EventType:     model.EventType(strings.TrimSpace(c.QueryParam("event_type"))),
		PriceRange:    c.QueryParam("price_range"),
		CapacityRange: c.QueryParam("capacity_range"),
		Location:      strings.TrimSpace(c.QueryParam("location")),
		Parking:       c.QueryParam("parking") == "true",
		Wifi:          c.QueryParam("wifi") == "true",
		PageSize:      repository.DefaultVenuePageSize,
	}
	if q.Category != "" && !q.Category.Valid() {
		return badRequest(c, "invalid category")
	}
	if q.EventType != "" && !q.EventType.Valid() {
		return badRequest(c, "invalid event_type")
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		q.Date = &d
	}
	if raw := c.QueryParam("min_rating"); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil || r < 0 || r > 5 {
			return badRequest(c, "min_rating must be between 0 and 5")
		}
		q.MinRating = r
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	if q.Page < 1 {
		q.Page = 1
	}

	items, total, err := h.Venues.Search(c.Request().Context(), q)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.VenueSummary{}
	}
	pages := (total + int64(q.PageSize) - 1) / int64(q.PageSize)
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
		"pages":     pages,
	})
}

// Detail handles GET /v1/venues/:id.
func (h *VenueHandler) Detail(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	v, err := h.Venues.GetSummary(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, v)
}

// venueInput is the body of create and update requests.  Pointer fields let
// PATCH leave values untouched.
type venueInput struct {
	Name                *string  `json:"name"`
	Description         *string  `json:"description"`
	Address             *string  `json:"address"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
	Capacity            *int     `json:"capacity"`
	PricePerPersonMinor *int64   `json:"price_per_person_minor"`
	HasParking          *bool    `json:"has_parking"`
	HasWifi             *bool    `json:"has_wifi"`
	HasSoundSystem      *bool    `json:"has_sound_system"`
	HasCatering         *bool    `json:"has_catering"`
	EventCategory       *string  `json:"event_category"`
	SupportedEvent      *string  `json:"supported_event"`
}

func (in venueInput) applyTo(v *model.Venue) {
	if in.Name != nil {
		v.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		v.Address = strings.TrimSpace(*in.Address)
	}
	if in.Latitude != nil {
		v.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		v.Longitude = in.Longitude
	}
	if in.Capacity != nil {
		v.Capacity = *in.Capacity
	}
	if in.PricePerPersonMinor != nil {
		v.PricePerPersonMinor = *in.PricePerPersonMinor
	}
	if in.HasParking != nil {
		v.HasParking = *in.HasParking
	}
	if in.HasWifi != nil {
		v.HasWifi = *in.HasWifi
	}
	if in.HasSoundSystem != nil {
		v.HasSoundSystem = *in.HasSoundSystem
	}
	if in.HasCatering != nil {
		v.HasCatering = *in.HasCatering
	}
	if in.EventCategory != nil {
		v.EventCategory = model.EventCategory(strings.TrimSpace(*in.EventCategory))
	}
	if in.SupportedEvent != nil {
		v.SupportedEvent = model.EventType(strings.TrimSpace(*in.SupportedEvent))
	}
	// a specific event type decides the category
	if cat := v.SupportedEvent.Category(); cat != "" {
		v.EventCategory = cat
	}
}

// validateVenue returns the first problem with v, or "".
func validateVenue(v *model.Venue) string {
	switch {
	case v.Name == "":
		return "name is required"
	case v.Address == "":
		return "address is required"
	case v.Capacity <= 0:
		return "capacity must be positive"
	case v.PricePerPersonMinor < 0:
		return "price_per_person_minor must not be negative"
	case !v.SupportedEvent.Valid():
		return "invalid supported_event"
	case !v.EventCategory.Valid():
		return "invalid event_category"
	case (v.Latitude == nil) != (v.Longitude == nil):
		return "latitude and longitude must be given together"
	}
	return ""
}

// Create handles POST /v1/venues.
func (h *VenueHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in venueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	v := &model.Venue{OwnerID: ownerID}
	in.applyTo(v)
	if msg := validateVenue(v); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Venues.Create(c.Request().Context(), v); err != nil {
		return writeError(c, h.Logger, err)
	}
	h.catalogChanged(c.Request().Context(), v.ID)
	return c.JSON(http.StatusCreated, v)
}

// Update handles PUT and PATCH /v1/venues/:id.  Both accept partial bodies.
func (h *VenueHandler) Update(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in venueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	v, err := h.Venues.GetByID(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if v.OwnerID != ownerID {
		return writeError(c, h.Logger, repository.ErrForbidden)
	}
	in.applyTo(v)
	if msg := validateVenue(v); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Venues.Update(ctx, v, ownerID); err != nil {
		return writeError(c, h.Logger, err)
	}
	h.catalogChanged(ctx, id)
	updated, err := h.Venues.GetSummary(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/venues/:id.
func (h *VenueHandler) Delete(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Venues.Delete(c.Request().Context(), id, ownerID); err != nil {
		return writeError(c, h.Logger, err)
	}
	h.catalogChanged(c.Request().Context(), id)
	return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /v1/owner/venues.
func (h *VenueHandler) Mine(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Venues.ListByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.VenueSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *VenueHandler) catalogChanged(ctx context.Context, venueID uint64) {
	if h.Catalog != nil {
		h.Catalog.Invalidate()
	}
	if h.Cache == nil {
		return
	}
	n, err := middleware.PurgeCache(ctx, h.Cache, h.CachePrefix)
	if err != nil {
		h.Logger.WithError(err).WithField("venue_id", venueID).Warn("cache purge failed")
		return
	}
	h.Logger.WithFields(logrus.Fields{"venue_id": venueID, "keys": n}).Debug("response cache purged")
}
