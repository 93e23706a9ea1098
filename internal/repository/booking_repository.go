package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/venuehunt/venuehunt/internal/model"
)

// BookingRepo provides persistence for bookings.  Methods ending in Tx run
// inside a caller-owned transaction; the caller must commit or roll back.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions that
// span the venue and booking repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingCols = `b.id, b.venue_id, b.organizer_id, b.event_date, b.start_time, b.end_time,
	b.number_of_guests, b.event_category, b.event_type, b.special_requests, b.status,
	b.payment_status, b.payment_order_id, b.transaction_id, b.total_amount_minor,
	b.payable_minor, b.amount_paid_minor, b.is_advance_payment, b.created_at, b.updated_at`

const detailCols = bookingCols + `, v.name, v.owner_id, u.email`

const detailFrom = ` FROM bookings b
	JOIN venues v ON v.id = b.venue_id
	JOIN users u  ON u.id = b.organizer_id`

func scanBooking(s scanner, extra ...any) (model.Booking, error) {
	var (
		b                 model.Booking
		cat, evt          string
		status, payStatus string
		orderID, txID     sql.NullString
	)
	dest := []any{&b.ID, &b.VenueID, &b.OrganizerID, &b.EventDate, &b.StartTime, &b.EndTime,
		&b.Guests, &cat, &evt, &b.SpecialRequests, &status, &payStatus, &orderID, &txID,
		&b.TotalAmountMinor, &b.PayableMinor, &b.AmountPaidMinor, &b.IsAdvancePayment,
		&b.CreatedAt, &b.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return b, err
	}
	b.EventCategory = model.EventCategory(cat)
	b.EventType = model.EventType(evt)
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(payStatus)
	b.PaymentOrderID = orderID.String
	b.TransactionID = txID.String
	return b, nil
}

func scanDetail(s scanner) (model.BookingDetail, error) {
	var d model.BookingDetail
	b, err := scanBooking(s, &d.VenueName, &d.VenueOwnerID, &d.OrganizerEmail)
	d.Booking = b
	return d, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateTx inserts b within tx and reloads the row so that the generated
// ID and timestamps are populated.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (venue_id, organizer_id, event_date, start_time, end_time,
		number_of_guests, event_category, event_type, special_requests, status, payment_status,
		payment_order_id, total_amount_minor, payable_minor, amount_paid_minor, is_advance_payment)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, b.VenueID, b.OrganizerID, b.EventDate, b.StartTime, b.EndTime,
		b.Guests, string(b.EventCategory), string(b.EventType), b.SpecialRequests, string(b.Status),
		string(b.PaymentStatus), nullString(b.PaymentOrderID), b.TotalAmountMinor, b.PayableMinor,
		b.AmountPaidMinor, b.IsAdvancePayment)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings b WHERE b.id = ?", id))
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// ConfirmedOnDateTx lists the confirmed bookings of a venue on one date.
func (r *BookingRepo) ConfirmedOnDateTx(ctx context.Context, tx *sql.Tx, venueID uint64, date model.Date) ([]model.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+bookingCols+" FROM bookings b WHERE b.venue_id = ? AND b.event_date = ? AND b.status = 'confirmed'",
		venueID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) getOneTx(ctx context.Context, tx *sql.Tx, where string, arg any) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings b WHERE "+where+" FOR UPDATE", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetForUpdateTx locks and returns the booking with id.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return r.getOneTx(ctx, tx, "b.id = ?", id)
}

// GetByOrderForUpdateTx locks and returns the booking holding orderID.
func (r *BookingRepo) GetByOrderForUpdateTx(ctx context.Context, tx *sql.Tx, orderID string) (*model.Booking, error) {
	return r.getOneTx(ctx, tx, "b.payment_order_id = ?", orderID)
}

// UpdateStateTx writes the lifecycle and payment fields of b.
func (r *BookingRepo) UpdateStateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `UPDATE bookings SET status=?, payment_status=?, payment_order_id=?, transaction_id=?,
		payable_minor=?, amount_paid_minor=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`
	_, err := tx.ExecContext(ctx, q, string(b.Status), string(b.PaymentStatus), nullString(b.PaymentOrderID),
		nullString(b.TransactionID), b.PayableMinor, b.AmountPaidMinor, b.ID)
	return err
}

// SetOrder attaches a gateway order to a booking.
func (r *BookingRepo) SetOrder(ctx context.Context, id uint64, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET payment_order_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", orderID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Delete removes a booking.  It is used to discard a booking whose payment
// order could not be created.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	return err
}

// GetDetail returns the booking joined with its venue and organizer.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, "SELECT "+detailCols+detailFrom+" WHERE b.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindByOrderID returns the booking that holds orderID without locking.
func (r *BookingRepo) FindByOrderID(ctx context.Context, orderID string) (*model.BookingDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, "SELECT "+detailCols+detailFrom+" WHERE b.payment_order_id = ?", orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByOrganizer returns an organizer's bookings, newest first.
func (r *BookingRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx,
		"SELECT "+detailCols+detailFrom+" WHERE b.organizer_id = ? ORDER BY b.created_at DESC, b.id DESC",
		organizerID)
}

// ListByOwner returns bookings across every venue of ownerID, newest first,
// optionally filtered by status.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64, status model.BookingStatus) ([]model.BookingDetail, error) {
	q := "SELECT " + detailCols + detailFrom + " WHERE v.owner_id = ?"
	args := []any{ownerID}
	if status != "" {
		q += " AND b.status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY b.created_at DESC, b.id DESC"
	return r.listDetails(ctx, q, args...)
}
