package model

import "time"

// Review is an organizer's rating of a venue tied to one of their bookings.
type Review struct {
	ID         uint64    `json:"id"`
	VenueID    uint64    `json:"venue_id"`
	ReviewerID uint64    `json:"reviewer_id"`
	BookingID  *uint64   `json:"booking_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	ReviewerEmail string `json:"reviewer_email,omitempty"`
	VenueName     string `json:"venue_name,omitempty"`
}

// ValidRating reports whether r is within the 1..5 star range.
func ValidRating(r int) bool { return r >= 1 && r <= 5 }
