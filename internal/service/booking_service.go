package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/booking"
	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/payment"
	"github.com/venuehunt/venuehunt/internal/queue"
	"github.com/venuehunt/venuehunt/internal/repository"
)

// InteractionRecorder receives booking interactions for recommendations.
type InteractionRecorder interface {
	Record(ctx context.Context, userID, venueID uint64, kind model.InteractionType) error
}

// BookingService runs the booking and payment workflows.  Admission and
// confirmation for a venue run in a transaction that holds the venue row
// lock, so two bookings can never both be confirmed for overlapping times.
type BookingService struct {
	db       *sql.DB
	venues   *repository.VenueRepo
	bookings *repository.BookingRepo
	checker  *booking.Checker
	pricer   booking.Pricer
	gateway  payment.Gateway
	events   queue.Publisher
	recorder InteractionRecorder
	logger   logrus.FieldLogger

	// KeyID is the public gateway key handed to the checkout page.
	KeyID string
	// BaseURL prefixes the callback and retry links in responses.
	BaseURL string
}

// BookingDeps groups the collaborators of a BookingService.
type BookingDeps struct {
	DB       *sql.DB
	Venues   *repository.VenueRepo
	Bookings *repository.BookingRepo
	Checker  *booking.Checker
	Pricer   booking.Pricer
	Gateway  payment.Gateway
	Events   queue.Publisher
	Recorder InteractionRecorder
	Logger   logrus.FieldLogger
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.DB == nil || d.Venues == nil || d.Bookings == nil || d.Checker == nil || d.Gateway == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Events == nil {
		d.Events = queue.LogPublisher{Logger: d.Logger}
	}
	return &BookingService{
		db:       d.DB,
		venues:   d.Venues,
		bookings: d.Bookings,
		checker:  d.Checker,
		pricer:   d.Pricer,
		gateway:  d.Gateway,
		events:   d.Events,
		recorder: d.Recorder,
		logger:   d.Logger.WithField("component", "booking"),
	}
}

// withTx runs fn in a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CreateBookingInput is an organizer's booking request.
type CreateBookingInput struct {
	VenueID         uint64
	EventDate       model.Date
	Start           model.TimeOfDay
	End             model.TimeOfDay
	Guests          int
	EventType       model.EventType
	SpecialRequests string
	AdvancePayment  bool
	// Missing and Malformed list request fields that admission reports
	// instead of their zero values.
	Missing   []string
	Malformed []string
}

// Checkout is what the client needs to open the gateway checkout.
type Checkout struct {
	Booking     model.Booking `json:"booking"`
	OrderID     string        `json:"order_id"`
	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency"`
	KeyID       string        `json:"key_id"`
	Description string        `json:"description"`
	CallbackURL string        `json:"callback_url"`
}

// Create admits and stores a pending booking and opens a payment order for
// it.  When the order cannot be created or stored the booking is deleted
// again.  A gateway failure is returned wrapping payment.ErrGateway.
func (s *BookingService) Create(ctx context.Context, organizerID uint64, in CreateBookingInput) (*Checkout, error) {
	var (
		b     model.Booking
		quote booking.Quote
		venue *model.Venue
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := s.venues.LockForUpdateTx(ctx, tx, in.VenueID)
		if err != nil {
			return err
		}
		venue = v
		existing, err := s.bookings.ConfirmedOnDateTx(ctx, tx, v.ID, in.EventDate)
		if err != nil {
			return err
		}
		cand := booking.Candidate{
			Venue: v, EventDate: in.EventDate, Start: in.Start, End: in.End,
			Guests: in.Guests, EventType: in.EventType,
			Missing: in.Missing, Malformed: in.Malformed,
		}
		if err := s.checker.Admit(cand, existing); err != nil {
			return err
		}
		quote = s.pricer.Quote(v.PricePerPersonMinor, in.Guests, in.AdvancePayment)
		b = model.Booking{
			VenueID:          v.ID,
			OrganizerID:      organizerID,
			EventDate:        in.EventDate,
			StartTime:        in.Start,
			EndTime:          in.End,
			Guests:           in.Guests,
			EventCategory:    in.EventType.Category(),
			EventType:        in.EventType,
			SpecialRequests:  in.SpecialRequests,
			Status:           model.BookingPending,
			PaymentStatus:    model.PaymentPending,
			TotalAmountMinor: quote.TotalMinor,
			PayableMinor:     quote.PayableMinor,
			IsAdvancePayment: in.AdvancePayment,
		}
		return s.bookings.CreateTx(ctx, tx, &b)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"booking_id": b.ID, "venue_id": b.VenueID})
	paymentType := "full"
	if in.AdvancePayment {
		paymentType = "advance"
	}
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: quote.PayableMinor,
		Currency:    s.pricer.Currency,
		Receipt:     "booking_" + strconv.FormatUint(b.ID, 10),
		Notes: map[string]string{
			"venue_id":     strconv.FormatUint(venue.ID, 10),
			"venue_name":   venue.Name,
			"event_date":   b.EventDate.String(),
			"payment_type": paymentType,
		},
	})
	if err != nil {
		log.WithError(err).Warn("payment order creation failed; discarding booking")
		s.discard(ctx, log, b.ID)
		return nil, fmt.Errorf("create payment order: %w", err)
	}
	if err := s.bookings.SetOrder(ctx, b.ID, order.ID); err != nil {
		log.WithError(err).Warn("saving payment order failed; discarding booking")
		s.discard(ctx, log, b.ID)
		return nil, fmt.Errorf("save payment order: %w", err)
	}
	b.PaymentOrderID = order.ID
	log.WithField("order_id", order.ID).Info("booking created")

	return &Checkout{
		Booking:     b,
		OrderID:     order.ID,
		AmountMinor: quote.PayableMinor,
		Currency:    s.pricer.Currency,
		KeyID:       s.KeyID,
		Description: quote.Description,
		CallbackURL: s.BaseURL + "/v1/payments/callback",
	}, nil
}

// discard deletes a booking that never got a usable payment order.
func (s *BookingService) discard(ctx context.Context, log logrus.FieldLogger, id uint64) {
	if err := s.bookings.Delete(ctx, id); err != nil {
		log.WithError(err).Error("discard booking failed")
	}
}

// Callback is the gateway's checkout result.  A successful checkout sets
// the three IDs; a failed one sets ErrorCode and ErrorDescription.
type Callback struct {
	OrderID          string
	PaymentID        string
	Signature        string
	ErrorCode        string
	ErrorDescription string
}

// CallbackResult describes the booking after a callback.  Message and
// RetryURL are set when the organizer should try again.
type CallbackResult struct {
	Booking  *model.Booking `json:"booking,omitempty"`
	Message  string         `json:"message"`
	RetryURL string         `json:"retry_url,omitempty"`
}

// HandleCallback reconciles a checkout result with its booking.  A verified
// payment confirms the booking unless the slot was taken meanwhile, in which
// case the payment is recorded, the booking cancelled and ErrSlotTaken
// returned.  A failed or unverifiable checkout marks the payment failed and
// returns ErrPaymentFailed or ErrSignatureInvalid together with a retry
// link.  A booking the owner confirmed before payment is still paid by its
// first verified callback.  A second success for a paid booking returns
// booking.ErrAlreadyProcessed and changes nothing.
func (s *BookingService) HandleCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	log := s.logger.WithField("order_id", cb.OrderID)

	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		msg := payment.FriendlyFailureMessage(cb.ErrorCode, cb.ErrorDescription)
		log.WithField("code", cb.ErrorCode).Info("checkout failed")
		return s.markFailed(ctx, cb.OrderID, msg, ErrPaymentFailed)
	}
	if !s.gateway.VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		log.Warn("payment signature mismatch")
		return s.markFailed(ctx, cb.OrderID, "Payment verification failed", ErrSignatureInvalid)
	}

	found, err := s.bookings.FindByOrderID(ctx, cb.OrderID)
	if err != nil {
		return nil, err
	}

	// Network call outside the transaction.  Zero means unknown and the
	// payable amount is recorded instead.
	captured, err := s.gateway.FetchCapturedAmount(ctx, cb.PaymentID)
	if err != nil {
		log.WithError(err).Warn("could not read captured amount")
		captured = 0
	}

	var (
		b         *model.Booking
		slotTaken bool
	)
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := s.venues.LockForUpdateTx(ctx, tx, found.VenueID)
		if err != nil {
			return err
		}
		b, err = s.bookings.GetByOrderForUpdateTx(ctx, tx, cb.OrderID)
		if err != nil {
			return err
		}
		if err := booking.ApplyPaymentSuccess(b, cb.PaymentID, captured); err != nil {
			return err
		}
		existing, err := s.bookings.ConfirmedOnDateTx(ctx, tx, b.VenueID, b.EventDate)
		if err != nil {
			return err
		}
		cand := booking.Candidate{Venue: v, EventDate: b.EventDate, Start: b.StartTime, End: b.EndTime, ExcludeID: b.ID}
		if s.checker.Conflicts(cand, existing) {
			slotTaken = true
			b.Status = model.BookingCancelled
		}
		return s.bookings.UpdateStateTx(ctx, tx, b)
	})
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyProcessed) {
			log.Info("duplicate payment callback ignored")
		}
		return nil, err
	}

	if slotTaken {
		log.WithField("booking_id", b.ID).Warn("paid booking lost its slot; payment kept for refund")
		s.publish(ctx, queue.EventBookingCancelled, &found.Booking, b, found.VenueName, "slot taken before payment completed")
		return &CallbackResult{Booking: b, Message: ErrSlotTaken.Error()}, ErrSlotTaken
	}

	log.WithField("booking_id", b.ID).Info("booking confirmed")
	s.publish(ctx, queue.EventBookingConfirmed, &found.Booking, b, found.VenueName, "")
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, b.OrganizerID, b.VenueID, model.InteractionBook); err != nil {
			log.WithError(err).Warn("record interaction failed")
		}
	}
	return &CallbackResult{Booking: b, Message: "Payment successful! Your booking has been confirmed."}, nil
}

func (s *BookingService) markFailed(ctx context.Context, orderID, msg string, cause error) (*CallbackResult, error) {
	res := &CallbackResult{Message: msg}
	if orderID == "" {
		return res, cause
	}
	var b *model.Booking
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		b, err = s.bookings.GetByOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := booking.ApplyPaymentFailure(b); err != nil {
			return err
		}
		return s.bookings.UpdateStateTx(ctx, tx, b)
	})
	if errors.Is(err, repository.ErrBookingNotFound) {
		return res, cause
	}
	if err != nil {
		return nil, err
	}
	res.Booking = b
	res.RetryURL = s.retryURL(b.ID)
	return res, cause
}

func (s *BookingService) retryURL(id uint64) string {
	return s.BaseURL + "/v1/bookings/" + strconv.FormatUint(id, 10) + "/retry-payment"
}

// RetryPayment opens a fresh order for an unpaid, uncancelled booking of
// the organizer.  The payable amount is re-clamped to the gateway ceiling.
func (s *BookingService) RetryPayment(ctx context.Context, organizerID, bookingID uint64) (*Checkout, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if d.OrganizerID != organizerID {
		return nil, repository.ErrForbidden
	}
	if !booking.CanRetry(d.Booking) {
		return nil, booking.ErrRetryNotAllowed
	}
	payable, _ := s.pricer.Clamp(d.PayableMinor)
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: payable,
		Currency:    s.pricer.Currency,
		Receipt:     "booking_" + strconv.FormatUint(d.ID, 10) + "_retry",
		Notes: map[string]string{
			"venue_id":   strconv.FormatUint(d.VenueID, 10),
			"venue_name": d.VenueName,
			"event_date": d.EventDate.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	var b *model.Booking
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := booking.PrepareRetry(b, order.ID, payable); err != nil {
			return err
		}
		return s.bookings.UpdateStateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	desc := "Full Payment"
	if b.IsAdvancePayment {
		desc = fmt.Sprintf("%d%% Advance Payment", s.pricer.AdvancePercent)
	}
	if _, capped := s.pricer.Clamp(d.PayableMinor); capped {
		desc = fmt.Sprintf("Partial Payment (Capped at %s)", s.pricer.FormatAmount(s.pricer.CeilingMinor))
	}
	return &Checkout{
		Booking:     *b,
		OrderID:     order.ID,
		AmountMinor: payable,
		Currency:    s.pricer.Currency,
		KeyID:       s.KeyID,
		Description: desc,
		CallbackURL: s.BaseURL + "/v1/payments/callback",
	}, nil
}

// Cancel cancels a booking on behalf of its organizer or the venue owner,
// subject to the cancellation windows.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	actor, err := booking.ActorFor(userID, d.OrganizerID, d.VenueOwnerID)
	if err != nil {
		return nil, repository.ErrForbidden
	}
	var b *model.Booking
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := booking.Cancel(b, actor, s.checker.Today()); err != nil {
			return err
		}
		return s.bookings.UpdateStateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	reason := "cancelled by organizer"
	if actor.Owner && !actor.Organizer {
		reason = "cancelled by venue owner"
	}
	s.logger.WithFields(logrus.Fields{"booking_id": b.ID, "user_id": userID}).Info(reason)
	s.publish(ctx, queue.EventBookingCancelled, &d.Booking, b, d.VenueName, reason)
	return b, nil
}

// SetStatus applies a venue owner's status change.  Confirmation re-checks
// the schedule under the venue lock; cancellation follows Cancel.
func (s *BookingService) SetStatus(ctx context.Context, ownerID, bookingID uint64, to model.BookingStatus) (*model.Booking, error) {
	if !to.Valid() {
		return nil, booking.ErrInvalidTransition
	}
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if d.VenueOwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	if !booking.CanTransition(d.Status, to) {
		return nil, booking.ErrInvalidTransition
	}
	if to == model.BookingCancelled {
		return s.Cancel(ctx, ownerID, bookingID)
	}

	var b *model.Booking
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := s.venues.LockForUpdateTx(ctx, tx, d.VenueID)
		if err != nil {
			return err
		}
		b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !booking.CanTransition(b.Status, to) {
			return booking.ErrInvalidTransition
		}
		existing, err := s.bookings.ConfirmedOnDateTx(ctx, tx, b.VenueID, b.EventDate)
		if err != nil {
			return err
		}
		cand := booking.Candidate{Venue: v, EventDate: b.EventDate, Start: b.StartTime, End: b.EndTime, ExcludeID: b.ID}
		if s.checker.Conflicts(cand, existing) {
			return ErrSlotTaken
		}
		b.Status = to
		return s.bookings.UpdateStateTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventBookingConfirmed, &d.Booking, b, d.VenueName, "confirmed by venue owner")
	return b, nil
}

// Get returns a booking visible to its organizer and the venue owner.
func (s *BookingService) Get(ctx context.Context, userID, bookingID uint64) (*model.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := booking.ActorFor(userID, d.OrganizerID, d.VenueOwnerID); err != nil {
		return nil, repository.ErrForbidden
	}
	return d, nil
}

// publish sends a booking event without failing the request.
func (s *BookingService) publish(ctx context.Context, kind string, before, after *model.Booking, venueName, reason string) {
	b := after
	if b == nil {
		b = before
	}
	ev := queue.BookingEvent{
		Type:            kind,
		BookingID:       b.ID,
		VenueID:         b.VenueID,
		VenueName:       venueName,
		OrganizerID:     b.OrganizerID,
		EventDate:       b.EventDate.String(),
		StartTime:       b.StartTime.String()[:5],
		EndTime:         b.EndTime.String()[:5],
		Guests:          b.Guests,
		AmountPaidMinor: b.AmountPaidMinor,
		TransactionID:   b.TransactionID,
		Reason:          reason,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Warn("publish booking event failed")
	}
}
