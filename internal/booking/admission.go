// Package booking holds the pure booking rules: admission of a candidate
// booking against a venue and the already confirmed bookings, pricing, and
// the booking and payment lifecycle.  Nothing in this package touches the
// database or the network.
package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/venuehunt/venuehunt/internal/model"
)

// OverlapPolicy decides whether two time windows on the same date collide.
type OverlapPolicy int

const (
	// OverlapExclusive treats windows as half-open, so a booking may start
	// exactly when another ends.
	OverlapExclusive OverlapPolicy = iota
	// OverlapInclusive treats windows as closed; touching windows collide.
	OverlapInclusive
)

// ParseOverlapPolicy maps "exclusive" and "inclusive" to a policy.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclusive":
		return OverlapExclusive, nil
	case "inclusive":
		return OverlapInclusive, nil
	}
	return 0, fmt.Errorf("unknown overlap policy %q", s)
}

func (p OverlapPolicy) String() string {
	if p == OverlapInclusive {
		return "inclusive"
	}
	return "exclusive"
}

// Overlaps reports whether [aStart,aEnd] and [bStart,bEnd] collide.
func (p OverlapPolicy) Overlaps(aStart, aEnd, bStart, bEnd model.TimeOfDay) bool {
	if p == OverlapInclusive {
		return aStart <= bEnd && aEnd >= bStart
	}
	return aStart < bEnd && aEnd > bStart
}

// Candidate is a proposed booking.  ExcludeID skips a booking with that ID
// when scanning for conflicts, which lets a pending booking be re-checked
// against its own venue at confirmation time.
//
// Missing and Malformed name request fields (FieldEventDate,
// FieldStartTime, FieldEndTime, FieldEventType) that were absent or could
// not be parsed.  The zero values of those fields are then ignored.
type Candidate struct {
	Venue     *model.Venue
	EventDate model.Date
	Start     model.TimeOfDay
	End       model.TimeOfDay
	Guests    int
	EventType model.EventType
	ExcludeID uint64
	Missing   []string
	Malformed []string
}

var fieldLabels = map[string]string{
	FieldEventDate: "Event date",
	FieldStartTime: "Start time",
	FieldEndTime:   "End time",
	FieldEventType: "Event type",
}

// unusable records a violation when field was missing or malformed and
// reports whether it did.
func (cand Candidate) unusable(verr *ValidationError, field string) bool {
	for _, f := range cand.Missing {
		if f == field {
			verr.add(field, fieldLabels[field]+" is required")
			return true
		}
	}
	for _, f := range cand.Malformed {
		if f == field {
			verr.add(field, "Enter a valid "+strings.ToLower(fieldLabels[field]))
			return true
		}
	}
	return false
}

// Checker validates candidates.  Now and Location define "today".
type Checker struct {
	Policy   OverlapPolicy
	Location *time.Location
	Now      func() time.Time
}

// NewChecker returns a Checker using the wall clock.
func NewChecker(policy OverlapPolicy, loc *time.Location) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	return &Checker{Policy: policy, Location: loc, Now: time.Now}
}

// Today is the current calendar date in the checker's location.
func (c *Checker) Today() model.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.NewDate(now().In(loc))
}

// Admit evaluates every rule against cand and the venue's existing bookings
// and returns a *ValidationError listing each violation, or nil.  Only
// confirmed bookings on the same venue and date take part in the conflict
// check.  A missing venue stops evaluation immediately.
func (c *Checker) Admit(cand Candidate, existing []model.Booking) error {
	verr := &ValidationError{}
	if cand.Venue == nil {
		verr.add(FieldVenue, "Venue is required")
		return verr
	}
	v := cand.Venue

	dateOK := !cand.unusable(verr, FieldEventDate)
	if dateOK && cand.EventDate.Before(c.Today()) {
		verr.add(FieldEventDate, "Event date cannot be in the past")
	}

	startOK := !cand.unusable(verr, FieldStartTime)
	endOK := !cand.unusable(verr, FieldEndTime)
	timesValid := startOK && endOK && cand.Start < cand.End
	if startOK && endOK && !timesValid {
		verr.add(FieldEndTime, "End time must be after start time")
	}

	if cand.Guests < 1 {
		verr.add(FieldGuests, "Number of guests must be at least 1")
	} else if cand.Guests > v.Capacity {
		verr.add(FieldGuests, fmt.Sprintf("Number of guests cannot exceed venue capacity of %d", v.Capacity))
	}

	switch {
	case cand.unusable(verr, FieldEventType):
	case !cand.EventType.Valid():
		verr.add(FieldEventType, "Select a valid event type")
	case !v.Supports(cand.EventType):
		verr.add(FieldEventType, fmt.Sprintf("This venue only supports '%s' events", v.SupportedEvent.Label()))
	}

	if dateOK && timesValid && c.conflicts(cand, existing) {
		verr.add(FieldSchedule, "The venue is already booked during this time period")
	}

	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}

// Conflicts reports whether cand collides with any confirmed booking.
func (c *Checker) Conflicts(cand Candidate, existing []model.Booking) bool {
	return c.conflicts(cand, existing)
}

func (c *Checker) conflicts(cand Candidate, existing []model.Booking) bool {
	if cand.Venue == nil {
		return false
	}
	for _, b := range existing {
		if b.Status != model.BookingConfirmed || b.VenueID != cand.Venue.ID {
			continue
		}
		if cand.ExcludeID != 0 && b.ID == cand.ExcludeID {
			continue
		}
		if b.EventDate.String() != cand.EventDate.String() {
			continue
		}
		if c.Policy.Overlaps(cand.Start, cand.End, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
