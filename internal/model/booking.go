package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCancelled
}

// PaymentStatus tracks the gateway side of a booking.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Booking mirrors the `bookings` table.  StartTime and EndTime are wall
// clock times on EventDate.
type Booking struct {
	ID               uint64        `json:"id"`
	VenueID          uint64        `json:"venue_id"`
	OrganizerID      uint64        `json:"organizer_id"`
	EventDate        Date          `json:"event_date"`
	StartTime        TimeOfDay     `json:"start_time"`
	EndTime          TimeOfDay     `json:"end_time"`
	Guests           int           `json:"number_of_guests"`
	EventCategory    EventCategory `json:"event_category"`
	EventType        EventType     `json:"event_type"`
	SpecialRequests  string        `json:"special_requests"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentOrderID   string        `json:"payment_order_id,omitempty"`
	TransactionID    string        `json:"transaction_id,omitempty"`
	TotalAmountMinor int64         `json:"total_amount_minor"`
	PayableMinor     int64         `json:"payable_amount_minor"`
	AmountPaidMinor  int64         `json:"amount_paid_minor"`
	IsAdvancePayment bool          `json:"is_advance_payment"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BookingDetail is a booking joined with the venue and organizer details
// shown on listings.
type BookingDetail struct {
	Booking
	VenueName      string `json:"venue_name"`
	VenueOwnerID   uint64 `json:"venue_owner_id"`
	OrganizerEmail string `json:"organizer_email"`
}
