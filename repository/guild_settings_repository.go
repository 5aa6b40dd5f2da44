package repository

import (
	"context"
	"fmt"

	"ratwatch/database"
	"ratwatch/models"
)

// GuildSettingsRepository implements guild settings data access
type GuildSettingsRepository struct {
	q queryable
}

// NewGuildSettingsRepository creates a new guild settings repository
func NewGuildSettingsRepository(db *database.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: db.Pool}
}

// newGuildSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func newGuildSettingsRepositoryWithTx(tx queryable) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: tx}
}

// GetOrCreate retrieves guild settings, inserting defaults if none exist
func (r *GuildSettingsRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	query := `
		INSERT INTO guild_settings (guild_id, default_voting_minutes)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = EXCLUDED.guild_id
		RETURNING guild_id, watch_channel_id, moderator_role_id,
		          default_voting_minutes, created_at, updated_at
	`

	var settings models.GuildSettings
	err := r.q.QueryRow(ctx, query, guildID, models.DefaultVotingMinutes).Scan(
		&settings.GuildID,
		&settings.WatchChannelID,
		&settings.ModeratorRoleID,
		&settings.DefaultVotingMinutes,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild settings: %w", err)
	}

	return &settings, nil
}

// Update updates guild settings
func (r *GuildSettingsRepository) Update(ctx context.Context, settings *models.GuildSettings) error {
	query := `
		UPDATE guild_settings
		SET watch_channel_id = $2, moderator_role_id = $3,
		    default_voting_minutes = $4, updated_at = CURRENT_TIMESTAMP
		WHERE guild_id = $1
	`

	result, err := r.q.Exec(ctx, query,
		settings.GuildID,
		settings.WatchChannelID,
		settings.ModeratorRoleID,
		settings.DefaultVotingMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild settings not found")
	}

	return nil
}
