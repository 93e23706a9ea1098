package model

import (
	"fmt"
	"time"
)

// EventCategory groups event types into formal and informal occasions.
type EventCategory string

const (
	CategoryFormal   EventCategory = "formal"
	CategoryInformal EventCategory = "informal"
)

// Label is the human readable name of the category.
func (c EventCategory) Label() string {
	switch c {
	case CategoryFormal:
		return "Formal"
	case CategoryInformal:
		return "Informal"
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool { return c == CategoryFormal || c == CategoryInformal }

// EventType is the kind of event a venue supports or a booking is for.
type EventType string

const (
	EventConference      EventType = "conference"
	EventBusinessMeeting EventType = "business_meeting"
	EventProductLaunch   EventType = "product_launch"
	EventSeminarWorkshop EventType = "seminar_workshop"
	EventAwardCeremony   EventType = "award_ceremony"
	EventBirthdayParty   EventType = "birthday_party"
	EventCasualGathering EventType = "casual_gathering"
	EventWedding         EventType = "wedding"
	EventEngagement      EventType = "engagement"
	EventGamesNight      EventType = "games_night"
	EventAnniversary     EventType = "anniversary"
	// EventOther is the wildcard: a venue supporting it accepts any event type.
	EventOther EventType = "other"
)

type eventInfo struct {
	label    string
	category EventCategory
}

var eventTypes = map[EventType]eventInfo{
	EventConference:      {"Conference", CategoryFormal},
	EventBusinessMeeting: {"Business Meeting", CategoryFormal},
	EventProductLaunch:   {"Product Launch", CategoryFormal},
	EventSeminarWorkshop: {"Seminar & Workshop", CategoryFormal},
	EventAwardCeremony:   {"Award Ceremony", CategoryFormal},
	EventBirthdayParty:   {"Birthday Party", CategoryInformal},
	EventCasualGathering: {"Casual Get Together", CategoryInformal},
	EventWedding:         {"Wedding", CategoryInformal},
	EventEngagement:      {"Engagement", CategoryInformal},
	EventGamesNight:      {"Games Night", CategoryInformal},
	EventAnniversary:     {"Anniversary", CategoryInformal},
	EventOther:           {"Other", ""},
}

// Valid reports whether t is one of the twelve known event types.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// Label is the display name, e.g. "Seminar & Workshop".
func (t EventType) Label() string {
	if info, ok := eventTypes[t]; ok {
		return info.label
	}
	return string(t)
}

// Category returns the category the type belongs to.  EventOther has none.
func (t EventType) Category() EventCategory { return eventTypes[t].category }

// Venue represents a row in the `venues` table.  Money is held in minor
// currency units.
type Venue struct {
	ID                  uint64        `json:"id"`
	OwnerID             uint64        `json:"owner_id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Address             string        `json:"address"`
	Latitude            *float64      `json:"latitude,omitempty"`
	Longitude           *float64      `json:"longitude,omitempty"`
	Capacity            int           `json:"capacity"`
	PricePerPersonMinor int64         `json:"price_per_person_minor"`
	HasParking          bool          `json:"has_parking"`
	HasWifi             bool          `json:"has_wifi"`
	HasSoundSystem      bool          `json:"has_sound_system"`
	HasCatering         bool          `json:"has_catering"`
	EventCategory       EventCategory `json:"event_category"`
	SupportedEvent      EventType     `json:"supported_event"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Supports reports whether the venue accepts bookings for event type t.
func (v Venue) Supports(t EventType) bool {
	return v.SupportedEvent == EventOther || v.SupportedEvent == t
}

// VenueSummary is a venue plus its review statistics.  AverageRating is nil
// when the venue has no reviews.
type VenueSummary struct {
	Venue
	AverageRating *float64 `json:"average_rating"`
	ReviewCount   int      `json:"review_count"`
}

// FormatMinor renders an amount in minor units as a two decimal major amount.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
