package repository

import (
	"context"
	"fmt"

	"ratwatch/database"
	"ratwatch/models"

	"github.com/jackc/pgx/v5"
)

// WatchVoteRepository implements watch vote data access
type WatchVoteRepository struct {
	q queryable
}

// NewWatchVoteRepository creates a new watch vote repository
func NewWatchVoteRepository(db *database.DB) *WatchVoteRepository {
	return &WatchVoteRepository{q: db.Pool}
}

// newWatchVoteRepositoryWithTx creates a new watch vote repository with a transaction
func newWatchVoteRepositoryWithTx(tx queryable) *WatchVoteRepository {
	return &WatchVoteRepository{q: tx}
}

// Upsert creates a vote or overwrites the voter's prior vote. The write is
// conditional on the parent watch still being in the voting phase at write
// time; a false return means the ballot is closed and the vote was rejected.
// The guard locks the watch row, so a vote racing against a finalizer that
// holds the same lock waits for the finalizer's commit, re-reads the status,
// and is rejected rather than accepted into a closed ballot.
func (r *WatchVoteRepository) Upsert(ctx context.Context, vote *models.WatchVote) (bool, error) {
	query := `
		WITH open_watch AS (
			SELECT id FROM watches
			WHERE id = $1 AND status = 'voting'
			FOR UPDATE
		)
		INSERT INTO watch_votes (watch_id, voter_user_id, is_guilty_vote, cast_at)
		SELECT open_watch.id, $2, $3, $4
		FROM open_watch
		ON CONFLICT (watch_id, voter_user_id)
		DO UPDATE SET
			is_guilty_vote = EXCLUDED.is_guilty_vote,
			cast_at = EXCLUDED.cast_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		vote.WatchID,
		vote.VoterUserID,
		vote.IsGuiltyVote,
		vote.CastAt,
	).Scan(&vote.ID, &vote.UpdatedAt)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert vote: %w", err)
	}

	return true, nil
}

// Tally returns the guilty/not-guilty counts for a watch
func (r *WatchVoteRepository) Tally(ctx context.Context, watchID int64) (*models.VoteTally, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_guilty_vote) as guilty_count,
			COUNT(*) FILTER (WHERE NOT is_guilty_vote) as not_guilty_count
		FROM watch_votes
		WHERE watch_id = $1
	`

	var tally models.VoteTally
	err := r.q.QueryRow(ctx, query, watchID).Scan(
		&tally.GuiltyCount,
		&tally.NotGuiltyCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes for watch %d: %w", watchID, err)
	}

	return &tally, nil
}

// GetByWatch returns all votes for a specific watch
func (r *WatchVoteRepository) GetByWatch(ctx context.Context, watchID int64) ([]*models.WatchVote, error) {
	query := `
		SELECT id, watch_id, voter_user_id, is_guilty_vote, cast_at, updated_at
		FROM watch_votes
		WHERE watch_id = $1
		ORDER BY cast_at ASC
	`

	rows, err := r.q.Query(ctx, query, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for watch %d: %w", watchID, err)
	}
	defer rows.Close()

	var votes []*models.WatchVote
	for rows.Next() {
		var vote models.WatchVote
		err := rows.Scan(
			&vote.ID,
			&vote.WatchID,
			&vote.VoterUserID,
			&vote.IsGuiltyVote,
			&vote.CastAt,
			&vote.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, &vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// GetByVoter returns a vote by a specific voter for a watch
func (r *WatchVoteRepository) GetByVoter(ctx context.Context, watchID, voterUserID int64) (*models.WatchVote, error) {
	query := `
		SELECT id, watch_id, voter_user_id, is_guilty_vote, cast_at, updated_at
		FROM watch_votes
		WHERE watch_id = $1 AND voter_user_id = $2
	`

	var vote models.WatchVote
	err := r.q.QueryRow(ctx, query, watchID, voterUserID).Scan(
		&vote.ID,
		&vote.WatchID,
		&vote.VoterUserID,
		&vote.IsGuiltyVote,
		&vote.CastAt,
		&vote.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &vote, nil
}
