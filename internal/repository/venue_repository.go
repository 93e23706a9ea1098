package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/venuehunt/venuehunt/internal/model"
)

// VenueRepo manages persistence for venues and the review statistics
// shown next to them.
type VenueRepo struct {
	db *sql.DB
}

func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

const venueCols = `v.id, v.owner_id, v.name, v.description, v.address, v.latitude, v.longitude,
	v.capacity, v.price_per_person_minor, v.has_parking, v.has_wifi, v.has_sound_system,
	v.has_catering, v.event_category, v.supported_event, v.created_at, v.updated_at`

// summaryFrom joins every venue with its review aggregate.
const summaryFrom = ` FROM venues v
	LEFT JOIN (SELECT venue_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count
	           FROM reviews GROUP BY venue_id) rs ON rs.venue_id = v.id`

const summaryCols = venueCols + `, rs.avg_rating, COALESCE(rs.review_count, 0)`

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(s scanner, extra ...any) (model.Venue, error) {
	var (
		v        model.Venue
		lat, lng sql.NullFloat64
		cat, evt string
	)
	dest := []any{&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Address, &lat, &lng,
		&v.Capacity, &v.PricePerPersonMinor, &v.HasParking, &v.HasWifi, &v.HasSoundSystem,
		&v.HasCatering, &cat, &evt, &v.CreatedAt, &v.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return v, err
	}
	if lat.Valid {
		v.Latitude = &lat.Float64
	}
	if lng.Valid {
		v.Longitude = &lng.Float64
	}
	v.EventCategory = model.EventCategory(cat)
	v.SupportedEvent = model.EventType(evt)
	return v, nil
}

func scanSummary(s scanner) (model.VenueSummary, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	v, err := scanVenue(s, &avg, &count)
	if err != nil {
		return model.VenueSummary{}, err
	}
	sum := model.VenueSummary{Venue: v, ReviewCount: count}
	if avg.Valid {
		sum.AverageRating = &avg.Float64
	}
	return sum, nil
}

func collectSummaries(rows *sql.Rows) ([]model.VenueSummary, error) {
	defer rows.Close()
	out := []model.VenueSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// Create inserts v and reloads it so defaults and timestamps are populated.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	const q = `INSERT INTO venues (owner_id, name, description, address, latitude, longitude,
		capacity, price_per_person_minor, has_parking, has_wifi, has_sound_system, has_catering,
		event_category, supported_event) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, v.OwnerID, v.Name, v.Description, v.Address,
		nullFloat(v.Latitude), nullFloat(v.Longitude), v.Capacity, v.PricePerPersonMinor,
		v.HasParking, v.HasWifi, v.HasSoundSystem, v.HasCatering,
		string(v.EventCategory), string(v.SupportedEvent))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*v = *got
	return nil
}

// GetByID returns ErrVenueNotFound when no row matches.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := scanVenue(r.db.QueryRowContext(ctx, "SELECT "+venueCols+" FROM venues v WHERE v.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &v, nil
}

// GetSummary returns the venue with its rating statistics.
func (r *VenueRepo) GetSummary(ctx context.Context, id uint64) (*model.VenueSummary, error) {
	s, err := scanSummary(r.db.QueryRowContext(ctx, "SELECT "+summaryCols+summaryFrom+" WHERE v.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LockForUpdateTx reads the venue row with an exclusive lock held until the
// transaction ends.  Every admission or confirmation for the venue takes
// this lock first, which serialises them.
func (r *VenueRepo) LockForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Venue, error) {
	v, err := scanVenue(tx.QueryRowContext(ctx, "SELECT "+venueCols+" FROM venues v WHERE v.id = ? FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Update overwrites the editable fields of v if it belongs to ownerID.
// It returns ErrVenueNotFound or ErrForbidden when nothing was updated.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue, ownerID uint64) error {
	const q = `UPDATE venues SET name=?, description=?, address=?, latitude=?, longitude=?,
		capacity=?, price_per_person_minor=?, has_parking=?, has_wifi=?, has_sound_system=?,
		has_catering=?, event_category=?, supported_event=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND owner_id=?`
	res, err := r.db.ExecContext(ctx, q, v.Name, v.Description, v.Address,
		nullFloat(v.Latitude), nullFloat(v.Longitude), v.Capacity, v.PricePerPersonMinor,
		v.HasParking, v.HasWifi, v.HasSoundSystem, v.HasCatering,
		string(v.EventCategory), string(v.SupportedEvent), v.ID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.ownershipError(ctx, v.ID, ownerID)
	}
	return nil
}

// ownershipError explains why a write filtered by owner touched no row.
func (r *VenueRepo) ownershipError(ctx context.Context, id, ownerID uint64) error {
	var dbOwner uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM venues WHERE id = ?", id).Scan(&dbOwner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrVenueNotFound
	case err != nil:
		return err
	case dbOwner != ownerID:
		return ErrForbidden
	}
	// Same owner and identical values: MySQL reports zero affected rows.
	return nil
}

// Delete removes a venue owned by ownerID.  Venues with upcoming pending
// or confirmed bookings are kept and ErrConflict is returned.  Dependent
// rows are removed by the foreign keys.
func (r *VenueRepo) Delete(ctx context.Context, id, ownerID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var dbOwner uint64
	if err = tx.QueryRowContext(ctx, "SELECT owner_id FROM venues WHERE id = ? FOR UPDATE", id).Scan(&dbOwner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	var active int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE venue_id = ? AND status IN ('pending','confirmed') AND event_date >= CURDATE()`,
		id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM venues WHERE id = ?", id)
	return err
}

// ListByOwner returns the owner's venues, newest first.
func (r *VenueRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.VenueSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+summaryCols+summaryFrom+" WHERE v.owner_id = ? ORDER BY v.created_at DESC, v.id DESC", ownerID)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

// ListAll returns every venue ordered by id.  The recommender relies on
// the order being stable.
func (r *VenueRepo) ListAll(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+venueCols+" FROM venues v ORDER BY v.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SummariesByIDs loads the given venues keyed by id.  Unknown ids are
// absent from the map.
func (r *VenueRepo) SummariesByIDs(ctx context.Context, ids []uint64) (map[uint64]model.VenueSummary, error) {
	out := make(map[uint64]model.VenueSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT " + summaryCols + summaryFrom + " WHERE v.id IN (?" + strings.Repeat(",?", len(ids)-1) + ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	list, err := collectSummaries(rows)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

// TopRated orders by average rating, then review count, then id.  Unrated
// venues sort last.
func (r *VenueRepo) TopRated(ctx context.Context, limit int) ([]model.VenueSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+summaryCols+summaryFrom+
			" ORDER BY rs.avg_rating IS NULL, rs.avg_rating DESC, COALESCE(rs.review_count, 0) DESC, v.id LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}
