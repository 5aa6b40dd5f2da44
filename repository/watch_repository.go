package repository

import (
	"context"
	"fmt"
	"time"

	"ratwatch/database"
	"ratwatch/models"

	"github.com/jackc/pgx/v5"
)

const watchColumns = `
	id, guild_id, accused_user_id, initiator_user_id, scheduled_at,
	voting_duration_minutes, voting_started_at, voting_ended_at, cleared_at,
	status, custom_message, message_id, channel_id, created_at, updated_at`

// WatchRepository implements watch data access
type WatchRepository struct {
	q queryable
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(db *database.DB) *WatchRepository {
	return &WatchRepository{q: db.Pool}
}

// newWatchRepositoryWithTx creates a new watch repository with a transaction
func newWatchRepositoryWithTx(tx queryable) *WatchRepository {
	return &WatchRepository{q: tx}
}

func scanWatch(row pgx.Row) (*models.Watch, error) {
	var watch models.Watch
	err := row.Scan(
		&watch.ID,
		&watch.GuildID,
		&watch.AccusedUserID,
		&watch.InitiatorUserID,
		&watch.ScheduledAt,
		&watch.VotingDurationMinutes,
		&watch.VotingStartedAt,
		&watch.VotingEndedAt,
		&watch.ClearedAt,
		&watch.Status,
		&watch.CustomMessage,
		&watch.MessageID,
		&watch.ChannelID,
		&watch.CreatedAt,
		&watch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &watch, nil
}

func collectWatches(rows pgx.Rows) ([]*models.Watch, error) {
	defer rows.Close()

	var watches []*models.Watch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, watch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watches: %w", err)
	}

	return watches, nil
}

// Create creates a new watch
func (r *WatchRepository) Create(ctx context.Context, watch *models.Watch) error {
	query := `
		INSERT INTO watches (
			guild_id, accused_user_id, initiator_user_id, scheduled_at,
			voting_duration_minutes, voting_started_at, voting_ended_at,
			cleared_at, status, custom_message, message_id, channel_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		watch.GuildID,
		watch.AccusedUserID,
		watch.InitiatorUserID,
		watch.ScheduledAt,
		watch.VotingDurationMinutes,
		watch.VotingStartedAt,
		watch.VotingEndedAt,
		watch.ClearedAt,
		watch.Status,
		watch.CustomMessage,
		watch.MessageID,
		watch.ChannelID,
	).Scan(&watch.ID, &watch.CreatedAt, &watch.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create watch: %w", err)
	}

	return nil
}

// GetByID retrieves a watch by its ID
func (r *WatchRepository) GetByID(ctx context.Context, id int64) (*models.Watch, error) {
	query := `SELECT` + watchColumns + ` FROM watches WHERE id = $1`

	watch, err := scanWatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}

	return watch, nil
}

// GetByIDForUpdate retrieves a watch by its ID and locks its row for the
// rest of the transaction. Votes take the same lock, so a finalizer that
// reads the watch through here serializes against in-flight votes.
func (r *WatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE id = $1
		FOR UPDATE
	`

	watch, err := scanWatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch for update: %w", err)
	}

	return watch, nil
}

// GetActiveByGuild returns all pending and voting watches for a guild
func (r *WatchRepository) GetActiveByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE guild_id = $1 AND status IN ('pending', 'voting')
		ORDER BY scheduled_at ASC
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active watches: %w", err)
	}

	return collectWatches(rows)
}

// GetByGuild returns the most recent watches for a guild
func (r *WatchRepository) GetByGuild(ctx context.Context, guildID int64, limit int) ([]*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE guild_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}

	return collectWatches(rows)
}

// GetDueForVotingOpen returns all pending watches whose scheduled deadline
// has passed
func (r *WatchRepository) GetDueForVotingOpen(ctx context.Context, now time.Time) ([]*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due pending watches: %w", err)
	}

	return collectWatches(rows)
}

// GetDueForFinalization returns all voting watches whose voting window
// has closed
func (r *WatchRepository) GetDueForFinalization(ctx context.Context, now time.Time) ([]*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE status = 'voting' AND voting_ended_at IS NOT NULL AND voting_ended_at <= $1
		ORDER BY voting_ended_at ASC
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due voting watches: %w", err)
	}

	return collectWatches(rows)
}

// FindDuplicate looks for an active watch on the same accused user whose
// scheduled time falls within the tolerance window of the requested one.
// Indexed range lookup, not an in-memory scan.
func (r *WatchRepository) FindDuplicate(ctx context.Context, guildID, accusedUserID int64, scheduledAt time.Time, window time.Duration) (*models.Watch, error) {
	query := `
		SELECT` + watchColumns + `
		FROM watches
		WHERE guild_id = $1
		  AND accused_user_id = $2
		  AND status IN ('pending', 'voting')
		  AND scheduled_at BETWEEN $3 AND $4
		ORDER BY scheduled_at ASC
		LIMIT 1
	`

	watch, err := scanWatch(r.q.QueryRow(ctx, query, guildID, accusedUserID, scheduledAt.Add(-window), scheduledAt.Add(window)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate watch: %w", err)
	}

	return watch, nil
}

// ConditionalUpdateStatus persists the watch's status and phase timestamps
// only if the stored status still matches expectedStatus. A false return
// means a concurrent actor already advanced the watch; the caller must
// discard its local result.
func (r *WatchRepository) ConditionalUpdateStatus(ctx context.Context, watch *models.Watch, expectedStatus models.WatchStatus) (bool, error) {
	query := `
		UPDATE watches
		SET status = $3,
		    voting_started_at = $4,
		    voting_ended_at = $5,
		    cleared_at = $6,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.Exec(ctx, query,
		watch.ID,
		expectedStatus,
		watch.Status,
		watch.VotingStartedAt,
		watch.VotingEndedAt,
		watch.ClearedAt,
	)

	if err != nil {
		return false, fmt.Errorf("failed to update watch status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// UpdateMessageIDs updates the Discord message anchoring for a watch
func (r *WatchRepository) UpdateMessageIDs(ctx context.Context, watchID, messageID, channelID int64) error {
	query := `
		UPDATE watches
		SET message_id = $2, channel_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, watchID, messageID, channelID)
	if err != nil {
		return fmt.Errorf("failed to update watch message IDs: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("watch not found")
	}

	return nil
}
