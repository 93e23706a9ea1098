package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuehunt/venuehunt/internal/model"
)

func TestSimilarityTopN(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSimilarityRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM venue_similarity_cache WHERE source_venue_id = \?`).
		WithArgs(uint64(1), 5).
		WillReturnRows(sqlmock.NewRows([]string{"source_venue_id", "target_venue_id", "similarity_score", "updated_at"}).
			AddRow(uint64(1), uint64(4), 0.9, now).
			AddRow(uint64(1), uint64(2), 0.4, now))

	got, err := repo.TopN(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(4), got[0].TargetVenueID)
	assert.Equal(t, 0.4, got[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSimilarityReplace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSimilarityRepo(db)
	now := time.Now()
	entries := []model.SimilarityEntry{
		{SourceVenueID: 1, TargetVenueID: 2, Score: 0.5, UpdatedAt: now},
		{SourceVenueID: 1, TargetVenueID: 3, Score: 0.2, UpdatedAt: now},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM venue_similarity_cache WHERE source_venue_id = \?`).
			WithArgs(uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`INSERT INTO venue_similarity_cache .* VALUES \(\?, \?, \?, \?\),\(\?, \?, \?, \?\)$`).
			WithArgs(uint64(1), uint64(2), 0.5, now, uint64(1), uint64(3), 0.2, now).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.Replace(context.Background(), 1, entries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert Fails Rolls Back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM venue_similarity_cache`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO venue_similarity_cache`).WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		assert.Error(t, repo.Replace(context.Background(), 1, entries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Clears", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM venue_similarity_cache WHERE source_venue_id = \?`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.Replace(context.Background(), 1, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSimilarityReplaceAllChunks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSimilarityRepo(db)

	entries := make([]model.SimilarityEntry, insertChunk+1)
	for i := range entries {
		entries[i] = model.SimilarityEntry{SourceVenueID: 1, TargetVenueID: uint64(i + 2), Score: 0.1}
	}

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM venue_similarity_cache$`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`INSERT INTO venue_similarity_cache`).WillReturnResult(sqlmock.NewResult(0, insertChunk))
	mock.ExpectExec(`INSERT INTO venue_similarity_cache`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInteractionRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM user_venue_interactions WHERE user_id = \? ORDER BY created_at DESC`).
		WithArgs(uint64(9), 10).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "venue_id", "interaction_type", "created_at"}).
			AddRow(uint64(9), uint64(3), "book", now))

	got, err := repo.Recent(context.Background(), 9, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.InteractionBook, got[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInteractionRepo(db)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO user_venue_interactions`).
		WithArgs(uint64(9), uint64(3), "view", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Record(context.Background(), model.Interaction{UserID: 9, VenueID: 3, Type: model.InteractionView, CreatedAt: now}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewReviewRepo(db)
	bookingID := uint64(11)

	mock.ExpectExec(`INSERT INTO reviews`).
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry '11' for key 'reviews.uniq_booking'"))

	err = repo.Create(context.Background(), &model.Review{VenueID: 7, ReviewerID: 5, BookingID: &bookingID, Rating: 5})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewDeleteByOtherUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewReviewRepo(db)

	mock.ExpectQuery(`SELECT reviewer_id FROM reviews WHERE id = \?`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_id"}).AddRow(uint64(6)))

	assert.ErrorIs(t, repo.Delete(context.Background(), 4, 5), ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
