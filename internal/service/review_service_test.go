package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuehunt/venuehunt/internal/repository"
)

var reviewColumns = []string{
	"id", "venue_id", "reviewer_id", "booking_id", "rating", "comment",
	"created_at", "updated_at", "email", "name",
}

func newReviewService(t *testing.T) (*ReviewService, sqlmock.Sqlmock) {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger, _ := test.NewNullLogger()
	return NewReviewService(repository.NewReviewRepo(db), repository.NewBookingRepo(db), logger), sm
}

func TestReviewCreate(t *testing.T) {
	svc, sm := newReviewService(t)

	t.Run("Success", func(t *testing.T) {
		sm.ExpectQuery(`WHERE b.id = \?`).WithArgs(uint64(11)).
			WillReturnRows(detailRows(row{id: 11, status: "confirmed", payStatus: "paid", paid: 80000}))
		sm.ExpectExec(`INSERT INTO reviews`).
			WithArgs(uint64(7), uint64(5), int64(11), 4, "Lovely lawn").
			WillReturnResult(sqlmock.NewResult(3, 1))
		sm.ExpectQuery(`WHERE r.id = \?`).WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows(reviewColumns).
				AddRow(uint64(3), uint64(7), uint64(5), int64(11), 4, "Lovely lawn", fixedNow, fixedNow, "org@example.com", "Lakeside Hall"))

		rv, err := svc.Create(context.Background(), 5, 11, 4, "  Lovely lawn ")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), rv.ID)
		require.NotNil(t, rv.BookingID)
		assert.Equal(t, uint64(11), *rv.BookingID)
		assert.Equal(t, "Lakeside Hall", rv.VenueName)
		assert.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Unpaid Booking", func(t *testing.T) {
		sm.ExpectQuery(`WHERE b.id = \?`).
			WillReturnRows(detailRows(row{id: 12, status: "pending", payStatus: "pending"}))
		_, err := svc.Create(context.Background(), 5, 12, 5, "")
		assert.ErrorIs(t, err, ErrReviewNotAllowed)
		assert.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Someone Else's Booking", func(t *testing.T) {
		sm.ExpectQuery(`WHERE b.id = \?`).
			WillReturnRows(detailRows(row{id: 11, status: "confirmed", payStatus: "paid"}))
		_, err := svc.Create(context.Background(), 6, 11, 5, "")
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Rating Out Of Range", func(t *testing.T) {
		_, err := svc.Create(context.Background(), 5, 11, 6, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = svc.Update(context.Background(), 5, 3, 0, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Missing Booking", func(t *testing.T) {
		sm.ExpectQuery(`WHERE b.id = \?`).WillReturnError(sql.ErrNoRows)
		_, err := svc.Create(context.Background(), 5, 99, 5, "")
		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
		assert.NoError(t, sm.ExpectationsWereMet())
	})
}

func TestReviewUpdate(t *testing.T) {
	svc, sm := newReviewService(t)

	sm.ExpectQuery(`SELECT reviewer_id FROM reviews WHERE id = \?`).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_id"}).AddRow(uint64(5)))
	sm.ExpectExec(`UPDATE reviews SET rating=\?, comment=\?`).
		WithArgs(2, "Too noisy", uint64(3), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectQuery(`WHERE r.id = \?`).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(uint64(3), uint64(7), uint64(5), nil, 2, "Too noisy", fixedNow, fixedNow, "org@example.com", "Lakeside Hall"))

	rv, err := svc.Update(context.Background(), 5, 3, 2, "Too noisy")
	require.NoError(t, err)
	assert.Equal(t, 2, rv.Rating)
	assert.Nil(t, rv.BookingID)
	assert.NoError(t, sm.ExpectationsWereMet())
}
