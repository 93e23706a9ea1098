package repository

import (
	"context"
	"strings"

	"github.com/venuehunt/venuehunt/internal/model"
)

// VenueSearchQuery defines filters & pagination for the public venue list.
// Ranges use the labels shown in the UI; unknown labels are ignored.
type VenueSearchQuery struct {
	Search        string
	Category      model.EventCategory
	EventType     model.EventType
	PriceRange    string // "0-100", "100-500", "500-1000", "1000+" in major units
	CapacityRange string // "1-50", "51-100", "101-200", "201+"
	Location      string
	Date          *model.Date // only venues without a confirmed booking that day
	MinRating     int
	Parking       bool
	Wifi          bool
	Page          int
	PageSize      int
}

// DefaultVenuePageSize is the page size of the public list.
const DefaultVenuePageSize = 9

var priceRanges = map[string]string{
	"0-100":    "v.price_per_person_minor <= 10000",
	"100-500":  "v.price_per_person_minor > 10000 AND v.price_per_person_minor <= 50000",
	"500-1000": "v.price_per_person_minor > 50000 AND v.price_per_person_minor <= 100000",
	"1000+":    "v.price_per_person_minor > 100000",
}

var capacityRanges = map[string]string{
	"1-50":    "v.capacity <= 50",
	"51-100":  "v.capacity > 50 AND v.capacity <= 100",
	"101-200": "v.capacity > 100 AND v.capacity <= 200",
	"201+":    "v.capacity > 200",
}

// Search returns one page of venues, newest first, plus the total number
// of matches.
func (r *VenueRepo) Search(ctx context.Context, q VenueSearchQuery) ([]model.VenueSummary, int64, error) {
	where := []string{}
	args := []any{}

	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		where = append(where, "(LOWER(v.name) LIKE ? OR LOWER(v.description) LIKE ? OR LOWER(v.address) LIKE ?)")
		args = append(args, like, like, like)
	}
	if q.Category != "" {
		where = append(where, "v.event_category = ?")
		args = append(args, string(q.Category))
	}
	if q.EventType != "" {
		where = append(where, "v.supported_event = ?")
		args = append(args, string(q.EventType))
	}
	if c, ok := priceRanges[q.PriceRange]; ok {
		where = append(where, c)
	}
	if c, ok := capacityRanges[q.CapacityRange]; ok {
		where = append(where, c)
	}
	if q.Location != "" {
		where = append(where, "LOWER(v.address) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if q.Date != nil {
		where = append(where, "NOT EXISTS (SELECT 1 FROM bookings b WHERE b.venue_id = v.id AND b.event_date = ? AND b.status = 'confirmed')")
		args = append(args, q.Date.String())
	}
	if q.MinRating > 0 {
		where = append(where, "rs.avg_rating >= ?")
		args = append(args, q.MinRating)
	}
	if q.Parking {
		where = append(where, "v.has_parking = 1")
	}
	if q.Wifi {
		where = append(where, "v.has_wifi = 1")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+summaryFrom+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.PageSize <= 0 {
		q.PageSize = DefaultVenuePageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	dataSQL := "SELECT " + summaryCols + summaryFrom + " WHERE " + cond +
		" ORDER BY v.created_at DESC, v.id DESC LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
