package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuehunt/venuehunt/internal/model"
)

var bookingColumns = []string{
	"id", "venue_id", "organizer_id", "event_date", "start_time", "end_time",
	"number_of_guests", "event_category", "event_type", "special_requests", "status",
	"payment_status", "payment_order_id", "transaction_id", "total_amount_minor",
	"payable_minor", "amount_paid_minor", "is_advance_payment", "created_at", "updated_at",
}

func bookingRow(id uint64, status, payStatus string, orderID any) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, uint64(7), uint64(5), time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), []byte("14:00:00"), []byte("16:00:00"),
		40, "informal", "wedding", "", status,
		payStatus, orderID, nil, int64(400000),
		int64(80000), int64(0), true, now, now,
	}
}

func TestBookingCreateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	b := &model.Booking{
		VenueID:       7,
		OrganizerID:   5,
		EventDate:     model.NewDate(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)),
		StartTime:     model.NewTimeOfDay(14, 0, 0),
		EndTime:       model.NewTimeOfDay(16, 0, 0),
		Guests:        40,
		EventType:     model.EventWedding,
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(bookingRow(11, "pending", "pending", nil)...))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(11), b.ID)
	assert.Equal(t, "2030-06-01", b.EventDate.String())
	assert.Equal(t, model.NewTimeOfDay(14, 0, 0), b.StartTime)
	assert.Equal(t, "", b.PaymentOrderID)
	assert.True(t, b.IsAdvancePayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingConfirmedOnDateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE b.venue_id = \? AND b.event_date = \? AND b.status = 'confirmed'`).
		WithArgs(uint64(7), "2030-06-01").
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow(bookingRow(1, "confirmed", "paid", "order_1")...).
			AddRow(bookingRow(2, "confirmed", "paid", "order_2")...))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := repo.ConfirmedOnDateTx(context.Background(), tx, 7, model.NewDate(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	require.Len(t, got, 2)
	assert.Equal(t, model.BookingConfirmed, got[0].Status)
	assert.Equal(t, "order_2", got[1].PaymentOrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingGetByOrderForUpdateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).
		WithArgs("order_x").
		WillReturnRows(sqlmock.NewRows(bookingColumns))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.GetByOrderForUpdateTx(context.Background(), tx, "order_x")
	assert.ErrorIs(t, err, ErrBookingNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdateStateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	b := &model.Booking{
		ID: 11, Status: model.BookingConfirmed, PaymentStatus: model.PaymentPaid,
		PaymentOrderID: "order_1", TransactionID: "pay_1", PayableMinor: 80000, AmountPaidMinor: 80000,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status=\?, payment_status=\?`).
		WithArgs("confirmed", "paid", "order_1", "pay_1", int64(80000), int64(80000), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStateTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingSetOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET payment_order_id=\?`).
			WithArgs("order_1", uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.SetOrder(context.Background(), 11, "order_1"))
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET payment_order_id=\?`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.SetOrder(context.Background(), 12, "order_2"), ErrBookingNotFound)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	cols := append(append([]string{}, bookingColumns...), "venue_name", "owner_id", "email")
	mock.ExpectQuery(`WHERE v.owner_id = \? AND b.status = \? ORDER BY`).
		WithArgs(uint64(2), "pending").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(append(bookingRow(3, "pending", "pending", "order_3"), "Lakeside Hall", uint64(2), "org@example.com")...))

	got, err := repo.ListByOwner(context.Background(), 2, model.BookingPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lakeside Hall", got[0].VenueName)
	assert.Equal(t, "org@example.com", got[0].OrganizerEmail)
	assert.Equal(t, uint64(2), got[0].VenueOwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
