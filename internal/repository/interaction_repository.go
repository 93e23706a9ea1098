package repository

import (
	"context"
	"database/sql"

	"github.com/venuehunt/venuehunt/internal/model"
)

// InteractionRepo is the append-only user_venue_interactions log.
type InteractionRepo struct {
	db *sql.DB
}

func NewInteractionRepo(db *sql.DB) *InteractionRepo { return &InteractionRepo{db: db} }

// Record appends one interaction.
func (r *InteractionRepo) Record(ctx context.Context, in model.Interaction) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_venue_interactions (user_id, venue_id, interaction_type, created_at) VALUES (?,?,?,?)",
		in.UserID, in.VenueID, string(in.Type), in.CreatedAt)
	return err
}

// Recent returns the user's latest interactions, most recent first.
func (r *InteractionRepo) Recent(ctx context.Context, userID uint64, limit int) ([]model.Interaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, venue_id, interaction_type, created_at FROM user_venue_interactions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Interaction
	for rows.Next() {
		var (
			in   model.Interaction
			kind string
		)
		if err := rows.Scan(&in.UserID, &in.VenueID, &kind, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.Type = model.InteractionType(kind)
		out = append(out, in)
	}
	return out, rows.Err()
}
