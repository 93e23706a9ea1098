// Package service orchestrates bookings, payments and reviews across the
// repositories, the payment gateway and the event publisher.
package service

import "errors"

var (
	// ErrSignatureInvalid is returned when a payment callback fails
	// signature verification.  The booking is marked failed.
	ErrSignatureInvalid = errors.New("payment signature verification failed")
	// ErrPaymentFailed is returned when the gateway reported a failed
	// checkout instead of a payment.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrSlotTaken is returned when a paid booking could not be confirmed
	// because another booking took the slot first.  The payment is kept on
	// the cancelled booking for refund.
	ErrSlotTaken = errors.New("the venue was booked for this time by someone else")
	// ErrReviewNotAllowed is returned when reviewing a booking that is not
	// confirmed and paid.
	ErrReviewNotAllowed = errors.New("only confirmed and paid bookings can be reviewed")
	// ErrInvalidRating is returned for a rating outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
