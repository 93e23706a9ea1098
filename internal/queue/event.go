// Package queue defines the booking events exchanged over RabbitMQ and the
// publisher and consumer that move them.
package queue

import "time"

// Event types double as routing keys on the bookings exchange.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published when a booking is confirmed or cancelled.  It
// carries enough for downstream consumers to log, notify or feed analytics
// without querying the primary database.
type BookingEvent struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	BookingID       uint64    `json:"booking_id"`
	VenueID         uint64    `json:"venue_id"`
	VenueName       string    `json:"venue_name"`
	OrganizerID     uint64    `json:"organizer_id"`
	EventDate       string    `json:"event_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Guests          int       `json:"number_of_guests"`
	AmountPaidMinor int64     `json:"amount_paid_minor"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
