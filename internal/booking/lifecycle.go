package booking

import "github.com/venuehunt/venuehunt/internal/model"

// Cancellation windows, in days before the event.  A cancellation is
// refused when the event is this many days away or fewer.
const (
	OrganizerCancelCutoffDays = 2
	OwnerCancelCutoffDays     = 3
)

// Actor describes how a user relates to a booking.
type Actor struct {
	Organizer bool
	Owner     bool
}

// ActorFor derives the actor for userID given the booking organizer and
// the venue owner.  A user who is neither gets ErrNotParticipant.
func ActorFor(userID, organizerID, venueOwnerID uint64) (Actor, error) {
	a := Actor{Organizer: userID == organizerID, Owner: userID == venueOwnerID}
	if !a.Organizer && !a.Owner {
		return a, ErrNotParticipant
	}
	return a, nil
}

// Cancel moves b to cancelled on behalf of actor.  Cancelled is terminal.
// The venue owner may not cancel within OwnerCancelCutoffDays of the event
// and the organizer may not cancel within OrganizerCancelCutoffDays.
func Cancel(b *model.Booking, actor Actor, today model.Date) error {
	if b.Status == model.BookingCancelled {
		return ErrAlreadyCancelled
	}
	if !actor.Organizer && !actor.Owner {
		return ErrNotParticipant
	}
	days := b.EventDate.DaysUntil(today)
	if (actor.Owner && days <= OwnerCancelCutoffDays) || (actor.Organizer && days <= OrganizerCancelCutoffDays) {
		return ErrTooLateToCancel
	}
	b.Status = model.BookingCancelled
	return nil
}

var vendorTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingPending:   {model.BookingConfirmed, model.BookingCancelled},
	model.BookingConfirmed: {model.BookingCancelled},
}

// CanTransition reports whether a venue owner may move a booking from one
// status to another.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range vendorTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyPaymentSuccess records a verified payment.  The amount paid is the
// captured amount when the gateway reported one, otherwise the payable
// amount computed at booking time.  A booking that already took a payment
// is left untouched.  A booking the venue owner confirmed before payment
// still takes its first payment.
func ApplyPaymentSuccess(b *model.Booking, paymentID string, capturedMinor int64) error {
	if b.PaymentStatus == model.PaymentPaid {
		return ErrAlreadyProcessed
	}
	if b.Status == model.BookingCancelled {
		return ErrInvalidTransition
	}
	b.PaymentStatus = model.PaymentPaid
	b.Status = model.BookingConfirmed
	b.TransactionID = paymentID
	if capturedMinor > 0 {
		b.AmountPaidMinor = capturedMinor
	} else {
		b.AmountPaidMinor = b.PayableMinor
	}
	return nil
}

// ApplyPaymentFailure marks the payment failed.  The booking status is kept
// so that a retry is possible.
func ApplyPaymentFailure(b *model.Booking) error {
	if b.PaymentStatus == model.PaymentPaid {
		return ErrAlreadyProcessed
	}
	if b.Status == model.BookingCancelled {
		return ErrInvalidTransition
	}
	b.PaymentStatus = model.PaymentFailed
	return nil
}

// CanRetry reports whether a new payment order may be created for b.  A
// booking awaits payment until it is paid or cancelled, whatever the owner
// decided about it.
func CanRetry(b model.Booking) bool {
	return b.Status != model.BookingCancelled && b.PaymentStatus != model.PaymentPaid
}

// PrepareRetry attaches a fresh order to b and resets its payment status.
func PrepareRetry(b *model.Booking, orderID string, payableMinor int64) error {
	if !CanRetry(*b) {
		return ErrRetryNotAllowed
	}
	b.PaymentOrderID = orderID
	b.PaymentStatus = model.PaymentPending
	b.PayableMinor = payableMinor
	return nil
}
