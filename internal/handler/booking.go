package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/booking"
	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/service"
)

// BookingAPI is the booking workflow as seen by the HTTP layer.
type BookingAPI interface {
	Create(ctx context.Context, organizerID uint64, in service.CreateBookingInput) (*service.Checkout, error)
	HandleCallback(ctx context.Context, cb service.Callback) (*service.CallbackResult, error)
	RetryPayment(ctx context.Context, organizerID, bookingID uint64) (*service.Checkout, error)
	Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
	SetStatus(ctx context.Context, ownerID, bookingID uint64, to model.BookingStatus) (*model.Booking, error)
	Get(ctx context.Context, userID, bookingID uint64) (*model.BookingDetail, error)
}

// BookingLister lists bookings for either side of the marketplace.
type BookingLister interface {
	ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.BookingDetail, error)
	ListByOwner(ctx context.Context, ownerID uint64, status model.BookingStatus) ([]model.BookingDetail, error)
}

// BookingHandler serves organizer bookings, vendor booking management and
// the payment gateway callback.
type BookingHandler struct {
	Bookings BookingAPI
	Lists    BookingLister
	Logger   logrus.FieldLogger
}

type createBookingRequest struct {
	EventDate       string `json:"event_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Guests          int    `json:"number_of_guests"`
	EventType       string `json:"event_type"`
	SpecialRequests string `json:"special_requests"`
	AdvancePayment  bool   `json:"advance_payment"`
}

// input converts the request.  Absent or unparsable dates and times are
// listed on the input so that admission reports them with every other
// violation.
func (r createBookingRequest) input(venueID uint64) service.CreateBookingInput {
	in := service.CreateBookingInput{
		VenueID:         venueID,
		Guests:          r.Guests,
		EventType:       model.EventType(strings.TrimSpace(r.EventType)),
		SpecialRequests: strings.TrimSpace(r.SpecialRequests),
		AdvancePayment:  r.AdvancePayment,
	}
	check := func(field, raw string, parse func(string) error) {
		switch {
		case strings.TrimSpace(raw) == "":
			in.Missing = append(in.Missing, field)
		case parse(strings.TrimSpace(raw)) != nil:
			in.Malformed = append(in.Malformed, field)
		}
	}
	check(booking.FieldEventDate, r.EventDate, func(s string) (err error) {
		in.EventDate, err = model.ParseDate(s)
		return err
	})
	check(booking.FieldStartTime, r.StartTime, func(s string) (err error) {
		in.Start, err = model.ParseTimeOfDay(s)
		return err
	})
	check(booking.FieldEndTime, r.EndTime, func(s string) (err error) {
		in.End, err = model.ParseTimeOfDay(s)
		return err
	})
	if in.EventType == "" {
		in.Missing = append(in.Missing, booking.FieldEventType)
	}
	return in
}

// Create handles POST /v1/venues/:id/bookings and answers with the
// checkout details for the new payment order.
func (h *BookingHandler) Create(c echo.Context) error {
	organizerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	venueID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.Bookings.Create(c.Request().Context(), organizerID, req.input(venueID))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	organizerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Lists.ListByOrganizer(c.Request().Context(), organizerID)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id and GET /v1/owner/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := h.Bookings.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel and its vendor twin.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled.", "booking": b})
}

// RetryPayment handles POST /v1/bookings/:id/retry-payment.
func (h *BookingHandler) RetryPayment(c echo.Context) error {
	organizerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.Bookings.RetryPayment(c.Request().Context(), organizerID, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, out)
}

// OwnerList handles GET /v1/owner/bookings?status=.
func (h *BookingHandler) OwnerList(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	status := model.BookingStatus(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !status.Valid() {
		return badRequest(c, "invalid status")
	}
	items, err := h.Lists.ListByOwner(c.Request().Context(), ownerID, status)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if items == nil {
		items = []model.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SetStatus handles POST /v1/owner/bookings/:id/status.
func (h *BookingHandler) SetStatus(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	to := model.BookingStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	if !to.Valid() {
		return badRequest(c, "invalid status")
	}
	b, err := h.Bookings.SetStatus(c.Request().Context(), ownerID, id, to)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

type callbackError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Metadata    any    `json:"metadata"`
}

type callbackRequest struct {
	OrderID   string        `json:"razorpay_order_id"`
	PaymentID string        `json:"razorpay_payment_id"`
	Signature string        `json:"razorpay_signature"`
	Error     callbackError `json:"error"`
}

// bindCallback reads the checkout result.  The hosted checkout posts a form
// with bracketed error keys; API clients may send the same fields as JSON.
func bindCallback(c echo.Context) (service.Callback, error) {
	var req callbackRequest
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return service.Callback{}, err
		}
	} else {
		req.OrderID = c.FormValue("razorpay_order_id")
		req.PaymentID = c.FormValue("razorpay_payment_id")
		req.Signature = c.FormValue("razorpay_signature")
		req.Error.Code = c.FormValue("error[code]")
		req.Error.Description = c.FormValue("error[description]")
		req.Error.Metadata = c.FormValue("error[metadata]")
	}
	cb := service.Callback{
		OrderID:          strings.TrimSpace(req.OrderID),
		PaymentID:        strings.TrimSpace(req.PaymentID),
		Signature:        strings.TrimSpace(req.Signature),
		ErrorCode:        req.Error.Code,
		ErrorDescription: req.Error.Description,
	}
	if cb.OrderID == "" {
		cb.OrderID = metadataOrderID(req.Error.Metadata)
	}
	return cb, nil
}

// metadataOrderID digs the order id out of a failed checkout's metadata,
// which arrives either as an object or as a JSON encoded string.
func metadataOrderID(meta any) string {
	var m struct {
		OrderID string `json:"order_id"`
	}
	switch v := meta.(type) {
	case string:
		if v == "" || json.Unmarshal([]byte(v), &m) != nil {
			return ""
		}
	case map[string]any:
		s, _ := v["order_id"].(string)
		return s
	}
	return m.OrderID
}

// PaymentCallback handles POST /v1/payments/callback.
func (h *BookingHandler) PaymentCallback(c echo.Context) error {
	cb, err := bindCallback(c)
	if err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Bookings.HandleCallback(c.Request().Context(), cb)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case res != nil && (errors.Is(err, service.ErrPaymentFailed) || errors.Is(err, service.ErrSignatureInvalid)):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     res.Message,
			"retry_url": res.RetryURL,
			"booking":   res.Booking,
		})
	case res != nil && errors.Is(err, service.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "booking": res.Booking})
	}
	return writeError(c, h.Logger, err)
}
