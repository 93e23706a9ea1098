package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/venuehunt/venuehunt/internal/model"
)

// ReviewRepo stores organizer reviews of venues.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewCols = `r.id, r.venue_id, r.reviewer_id, r.booking_id, r.rating, r.comment,
	r.created_at, r.updated_at, u.email, v.name`

const reviewFrom = ` FROM reviews r
	JOIN users u  ON u.id = r.reviewer_id
	JOIN venues v ON v.id = r.venue_id`

func scanReview(s scanner) (model.Review, error) {
	var (
		rv        model.Review
		bookingID sql.NullInt64
	)
	err := s.Scan(&rv.ID, &rv.VenueID, &rv.ReviewerID, &bookingID, &rv.Rating, &rv.Comment,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.ReviewerEmail, &rv.VenueName)
	if bookingID.Valid {
		id := uint64(bookingID.Int64)
		rv.BookingID = &id
	}
	return rv, err
}

// Create inserts a review.  A second review for the same booking, or by
// the same reviewer for the same venue, yields ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	var bookingID sql.NullInt64
	if rv.BookingID != nil {
		bookingID = sql.NullInt64{Int64: int64(*rv.BookingID), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (venue_id, reviewer_id, booking_id, rating, comment) VALUES (?,?,?,?,?)",
		rv.VenueID, rv.ReviewerID, bookingID, rv.Rating, rv.Comment)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
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
	*rv = *got
	return nil
}

// GetByID returns ErrReviewNotFound when no row matches.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewCols+reviewFrom+" WHERE r.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepo) checkAuthor(ctx context.Context, id, reviewerID uint64) error {
	var author uint64
	err := r.db.QueryRowContext(ctx, "SELECT reviewer_id FROM reviews WHERE id = ?", id).Scan(&author)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrReviewNotFound
	case err != nil:
		return err
	case author != reviewerID:
		return ErrForbidden
	}
	return nil
}

// Update changes rating and comment of a review written by reviewerID.
func (r *ReviewRepo) Update(ctx context.Context, id, reviewerID uint64, rating int, comment string) error {
	if err := r.checkAuthor(ctx, id, reviewerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET rating=?, comment=?, updated_at=CURRENT_TIMESTAMP WHERE id=? AND reviewer_id=?",
		rating, comment, id, reviewerID)
	return err
}

// Delete removes a review written by reviewerID.
func (r *ReviewRepo) Delete(ctx context.Context, id, reviewerID uint64) error {
	if err := r.checkAuthor(ctx, id, reviewerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id=? AND reviewer_id=?", id, reviewerID)
	return err
}

func (r *ReviewRepo) list(ctx context.Context, q string, args ...any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// ListByVenue returns the reviews of a venue, newest first.
func (r *ReviewRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Review, error) {
	return r.list(ctx, "SELECT "+reviewCols+reviewFrom+" WHERE r.venue_id = ? ORDER BY r.created_at DESC, r.id DESC", venueID)
}

// ListByOwner returns reviews across every venue of ownerID, newest first.
func (r *ReviewRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Review, error) {
	return r.list(ctx, "SELECT "+reviewCols+reviewFrom+" WHERE v.owner_id = ? ORDER BY r.created_at DESC, r.id DESC", ownerID)
}
