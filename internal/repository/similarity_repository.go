package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/venuehunt/venuehunt/internal/model"
)

// SimilarityRepo persists the venue_similarity_cache table.
type SimilarityRepo struct {
	db *sql.DB
}

func NewSimilarityRepo(db *sql.DB) *SimilarityRepo { return &SimilarityRepo{db: db} }

// insertChunk bounds the number of rows per multi-row INSERT.
const insertChunk = 500

// TopN returns the best n cached targets of source, score descending and
// then target id ascending.
func (r *SimilarityRepo) TopN(ctx context.Context, source uint64, n int) ([]model.SimilarityEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_venue_id, target_venue_id, similarity_score, updated_at
		 FROM venue_similarity_cache WHERE source_venue_id = ?
		 ORDER BY similarity_score DESC, target_venue_id ASC LIMIT ?`, source, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SimilarityEntry
	for rows.Next() {
		var e model.SimilarityEntry
		if err := rows.Scan(&e.SourceVenueID, &e.TargetVenueID, &e.Score, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertEntriesTx(ctx context.Context, tx *sql.Tx, entries []model.SimilarityEntry) error {
	for start := 0; start < len(entries); start += insertChunk {
		end := start + insertChunk
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		query := "INSERT INTO venue_similarity_cache (source_venue_id, target_venue_id, similarity_score, updated_at) VALUES " +
			strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?),", len(chunk)), ",")
		args := make([]any, 0, len(chunk)*4)
		for _, e := range chunk {
			args = append(args, e.SourceVenueID, e.TargetVenueID, e.Score, e.UpdatedAt)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (r *SimilarityRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Replace swaps the cached rows of one source venue.
func (r *SimilarityRepo) Replace(ctx context.Context, source uint64, entries []model.SimilarityEntry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM venue_similarity_cache WHERE source_venue_id = ?", source); err != nil {
			return err
		}
		return insertEntriesTx(ctx, tx, entries)
	})
}

// ReplaceAll swaps the whole cache in one transaction.
func (r *SimilarityRepo) ReplaceAll(ctx context.Context, entries []model.SimilarityEntry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM venue_similarity_cache"); err != nil {
			return err
		}
		return insertEntriesTx(ctx, tx, entries)
	})
}
