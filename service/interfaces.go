package service

import (
	"context"
	"time"

	"ratwatch/events"
	"ratwatch/models"
)

// WatchRepository defines the interface for watch data access
type WatchRepository interface {
	// Create creates a new watch
	Create(ctx context.Context, watch *models.Watch) error

	// GetByID retrieves a watch by its ID, nil if not found
	GetByID(ctx context.Context, id int64) (*models.Watch, error)

	// GetByIDForUpdate retrieves a watch by its ID and locks its row for the
	// rest of the transaction, nil if not found
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error)

	// GetActiveByGuild returns all pending and voting watches for a guild
	GetActiveByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error)

	// GetByGuild returns the most recent watches for a guild
	GetByGuild(ctx context.Context, guildID int64, limit int) ([]*models.Watch, error)

	// GetDueForVotingOpen returns pending watches whose scheduled deadline has passed
	GetDueForVotingOpen(ctx context.Context, now time.Time) ([]*models.Watch, error)

	// GetDueForFinalization returns voting watches whose voting window has closed
	GetDueForFinalization(ctx context.Context, now time.Time) ([]*models.Watch, error)

	// FindDuplicate returns an active watch on the same accused user whose
	// scheduled time falls within the tolerance window, nil if none
	FindDuplicate(ctx context.Context, guildID, accusedUserID int64, scheduledAt time.Time, window time.Duration) (*models.Watch, error)

	// ConditionalUpdateStatus persists status and phase timestamps only if the
	// stored status still matches expectedStatus; false means a concurrent
	// actor already advanced the watch
	ConditionalUpdateStatus(ctx context.Context, watch *models.Watch, expectedStatus models.WatchStatus) (bool, error)

	// UpdateMessageIDs updates the Discord message anchoring for a watch
	UpdateMessageIDs(ctx context.Context, watchID, messageID, channelID int64) error
}

// WatchVoteRepository defines the interface for watch vote data access
type WatchVoteRepository interface {
	// Upsert creates or overwrites a vote, conditional on the parent watch
	// still being in the voting phase; false means the ballot is closed
	Upsert(ctx context.Context, vote *models.WatchVote) (bool, error)

	// Tally returns the guilty/not-guilty counts for a watch
	Tally(ctx context.Context, watchID int64) (*models.VoteTally, error)

	// GetByWatch returns all votes for a specific watch
	GetByWatch(ctx context.Context, watchID int64) ([]*models.WatchVote, error)

	// GetByVoter returns a vote by a specific voter for a watch, nil if none
	GetByVoter(ctx context.Context, watchID, voterUserID int64) (*models.WatchVote, error)
}

// GuildSettingsRepository defines the interface for guild settings data access
type GuildSettingsRepository interface {
	// GetOrCreate retrieves guild settings or creates default ones if not found
	GetOrCreate(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// Update updates guild settings
	Update(ctx context.Context, settings *models.GuildSettings) error
}

// WatchService defines the public operations of the watch engine
type WatchService interface {
	// CreateWatch creates a new watch after consulting the duplicate guard
	CreateWatch(ctx context.Context, params CreateWatchParams) (*models.Watch, error)

	// CheckIn records the accused user's self-clear during the pending phase
	CheckIn(ctx context.Context, watchID, requestingUserID int64) (*models.Watch, error)

	// CastVote records or overwrites a guilty/not-guilty ballot
	CastVote(ctx context.Context, watchID, voterUserID int64, isGuiltyVote bool) (*models.VoteTally, error)

	// Cancel cancels a non-terminal watch
	Cancel(ctx context.Context, watchID, requestingUserID int64, isModerator bool) (*models.Watch, error)

	// Get retrieves a watch by ID
	Get(ctx context.Context, watchID int64) (*models.Watch, error)

	// GetTally returns the current vote tally for a watch
	GetTally(ctx context.Context, watchID int64) (*models.VoteTally, error)

	// ListActive returns the guild's pending and voting watches, most recent
	// activity first
	ListActive(ctx context.Context, guildID int64) ([]*models.Watch, error)

	// ListRecent returns the guild's most recently created watches,
	// regardless of status
	ListRecent(ctx context.Context, guildID int64, limit int) ([]*models.Watch, error)

	// UpdateMessageIDs records the Discord message posted for a watch
	UpdateMessageIDs(ctx context.Context, watchID, messageID, channelID int64) error
}

// GuildSettingsService defines the interface for guild settings operations
type GuildSettingsService interface {
	// GetOrCreateSettings retrieves guild settings or creates default ones
	GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// UpdateWatchChannel updates the announcement channel for a guild
	UpdateWatchChannel(ctx context.Context, guildID int64, channelID *int64) error

	// UpdateModeratorRole updates the moderator role for a guild
	UpdateModeratorRole(ctx context.Context, guildID int64, roleID *int64) error

	// UpdateDefaultVotingMinutes updates the default voting window for a guild
	UpdateDefaultVotingMinutes(ctx context.Context, guildID int64, minutes int) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	WatchRepository() WatchRepository
	WatchVoteRepository() WatchVoteRepository
	GuildSettingsRepository() GuildSettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
