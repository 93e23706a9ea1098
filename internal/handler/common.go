// Package handler exposes the HTTP handlers.  Errors from the layers below
// are mapped onto status codes in one place, writeError, so every endpoint
// answers with the same {"error": ...} shape.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/booking"
	"github.com/venuehunt/venuehunt/internal/middleware"
	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/payment"
	"github.com/venuehunt/venuehunt/internal/recommend"
	"github.com/venuehunt/venuehunt/internal/repository"
	"github.com/venuehunt/venuehunt/internal/service"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the authenticated user set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.ContextUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errNoUser
}

// optionalUserID is getUserID for public routes; 0 means anonymous.
func optionalUserID(c echo.Context) uint64 {
	id, _ := getUserID(c)
	return id
}

func getRole(c echo.Context) model.Role {
	r, _ := c.Get(middleware.ContextRole).(model.Role)
	return r
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// writeError maps a domain error to a response.  Unknown errors are logged
// and reported as 500 without detail.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": verr.Primary(), "violations": verr.Violations})
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, repository.ErrVenueNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrReviewNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden), errors.Is(err, booking.ErrNotParticipant):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "conflict with existing records"
	case errors.Is(err, booking.ErrAlreadyProcessed),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, service.ErrSlotTaken):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrTooLateToCancel),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrRetryNotAllowed),
		errors.Is(err, service.ErrReviewNotAllowed),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrSignatureInvalid),
		errors.Is(err, service.ErrPaymentFailed):
		status = http.StatusBadRequest
	case errors.Is(err, recommend.ErrLockHeld):
		status, msg = http.StatusConflict, "similarity refresh already running"
	case errors.Is(err, payment.ErrAmountTooLarge):
		status, msg = http.StatusUnprocessableEntity, "amount exceeds the payment gateway limit"
	case errors.Is(err, payment.ErrGateway):
		status, msg = http.StatusBadGateway, "payment gateway unavailable, please try again"
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	return c.JSON(status, echo.Map{"error": msg})
}
