package repository

import (
	"context"
	"database/sql"
	"time"
)

// AnalyticsRepo computes the vendor dashboard figures.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// CountBucket is a labelled count, e.g. bookings in "Mar 2030".
type CountBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AmountBucket is a labelled money total in minor units.
type AmountBucket struct {
	Label       string `json:"label"`
	AmountMinor int64  `json:"amount_minor"`
}

// VendorAnalytics summarises bookings across a vendor's venues.
type VendorAnalytics struct {
	VenueCount        int64          `json:"venue_count"`
	TotalBookings     int64          `json:"total_bookings"`
	ConfirmedBookings int64          `json:"confirmed_bookings"`
	PendingBookings   int64          `json:"pending_bookings"`
	CancelledBookings int64          `json:"cancelled_bookings"`
	SuccessRate       float64        `json:"success_rate"`
	TotalRevenueMinor int64          `json:"total_revenue_minor"`
	BookingsByMonth   []CountBucket  `json:"bookings_by_month"`
	BookingsByVenue   []CountBucket  `json:"bookings_by_venue"`
	RevenueByVenue    []AmountBucket `json:"revenue_by_venue"`
	PopularEvents     []CountBucket  `json:"popular_events"`
	DailyBookings     []CountBucket  `json:"daily_bookings"`
}

// ForOwner gathers the dashboard for ownerID.  Month buckets cover the
// last 180 days and daily buckets the last 30, both relative to now.
func (r *AnalyticsRepo) ForOwner(ctx context.Context, ownerID uint64, now time.Time) (*VendorAnalytics, error) {
	a := &VendorAnalytics{}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues WHERE owner_id = ?", ownerID).Scan(&a.VenueCount); err != nil {
		return nil, err
	}

	const totals = `SELECT COUNT(*),
			COALESCE(SUM(b.status = 'confirmed'), 0),
			COALESCE(SUM(b.status = 'pending'), 0),
			COALESCE(SUM(b.status = 'cancelled'), 0),
			COALESCE(SUM(CASE WHEN b.payment_status = 'paid' THEN b.amount_paid_minor ELSE 0 END), 0)
		FROM bookings b JOIN venues v ON v.id = b.venue_id WHERE v.owner_id = ?`
	if err := r.db.QueryRowContext(ctx, totals, ownerID).Scan(
		&a.TotalBookings, &a.ConfirmedBookings, &a.PendingBookings, &a.CancelledBookings, &a.TotalRevenueMinor,
	); err != nil {
		return nil, err
	}
	if a.TotalBookings > 0 {
		a.SuccessRate = float64(a.ConfirmedBookings) / float64(a.TotalBookings) * 100
	}

	var err error
	if a.BookingsByMonth, err = r.counts(ctx,
		`SELECT DATE_FORMAT(b.created_at, '%b %Y') AS label, COUNT(*)
		 FROM bookings b JOIN venues v ON v.id = b.venue_id
		 WHERE v.owner_id = ? AND b.created_at >= ?
		 GROUP BY DATE_FORMAT(b.created_at, '%Y-%m'), label ORDER BY DATE_FORMAT(b.created_at, '%Y-%m')`,
		ownerID, now.AddDate(0, 0, -180)); err != nil {
		return nil, err
	}
	if a.DailyBookings, err = r.counts(ctx,
		`SELECT DATE_FORMAT(b.created_at, '%d %b') AS label, COUNT(*)
		 FROM bookings b JOIN venues v ON v.id = b.venue_id
		 WHERE v.owner_id = ? AND b.created_at >= ?
		 GROUP BY DATE(b.created_at), label ORDER BY DATE(b.created_at)`,
		ownerID, now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}
	if a.BookingsByVenue, err = r.counts(ctx,
		`SELECT v.name, COUNT(*) AS n FROM bookings b JOIN venues v ON v.id = b.venue_id
		 WHERE v.owner_id = ? GROUP BY v.id, v.name ORDER BY n DESC, v.name`, ownerID); err != nil {
		return nil, err
	}
	if a.PopularEvents, err = r.counts(ctx,
		`SELECT b.event_type, COUNT(*) AS n FROM bookings b JOIN venues v ON v.id = b.venue_id
		 WHERE v.owner_id = ? GROUP BY b.event_type ORDER BY n DESC, b.event_type`, ownerID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT v.name, SUM(b.amount_paid_minor) AS total FROM bookings b JOIN venues v ON v.id = b.venue_id
		 WHERE v.owner_id = ? AND b.payment_status = 'paid' GROUP BY v.id, v.name ORDER BY total DESC, v.name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	a.RevenueByVenue = []AmountBucket{}
	for rows.Next() {
		var b AmountBucket
		if err := rows.Scan(&b.Label, &b.AmountMinor); err != nil {
			return nil, err
		}
		a.RevenueByVenue = append(a.RevenueByVenue, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AnalyticsRepo) counts(ctx context.Context, q string, args ...any) ([]CountBucket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CountBucket{}
	for rows.Next() {
		var b CountBucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
