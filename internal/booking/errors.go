package booking

import (
	"errors"
	"strings"
)

// Violation is one failed admission rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rule a candidate booking violated, in rule
// order.  The first violation is the primary reason.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid booking"
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// Primary returns the first violation message.
func (e *ValidationError) Primary() string {
	if len(e.Violations) == 0 {
		return "invalid booking"
	}
	return e.Violations[0].Message
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, msg string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: msg})
}

// Field names used in violations.
const (
	FieldVenue     = "venue"
	FieldEventDate = "event_date"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldGuests    = "number_of_guests"
	FieldEventType = "event_type"
	FieldSchedule  = "schedule"
)

var (
	// ErrAlreadyProcessed is returned when a payment success arrives for a
	// booking that is already confirmed and paid.
	ErrAlreadyProcessed = errors.New("payment already processed")
	// ErrAlreadyCancelled is returned when cancelling a cancelled booking.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	// ErrTooLateToCancel is returned when the event is too close to cancel.
	ErrTooLateToCancel = errors.New("booking cannot be cancelled this close to the event date")
	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrRetryNotAllowed is returned when a new payment order is requested
	// for a booking that is not awaiting payment.
	ErrRetryNotAllowed = errors.New("payment retry not allowed for this booking")
	// ErrNotParticipant is returned when the actor is neither the organizer
	// nor the venue owner.
	ErrNotParticipant = errors.New("not a participant of this booking")
)
