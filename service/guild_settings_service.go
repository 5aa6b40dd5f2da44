package service

import (
	"context"
	"fmt"

	"ratwatch/models"
)

// guildSettingsService implements the GuildSettingsService interface
type guildSettingsService struct {
	uowFactory UnitOfWorkFactory
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(uowFactory UnitOfWorkFactory) GuildSettingsService {
	return &guildSettingsService{
		uowFactory: uowFactory,
	}
}

// GetOrCreateSettings retrieves guild settings or creates default ones if not found
func (s *guildSettingsService) GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	settings, err := uow.GuildSettingsRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild settings: %w", err)
	}

	// Commit the transaction (in case new settings were created)
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return settings, nil
}

// UpdateWatchChannel updates the channel watch announcements are posted to.
// A nil channelID clears the override.
func (s *guildSettingsService) UpdateWatchChannel(ctx context.Context, guildID int64, channelID *int64) error {
	return s.updateSettings(ctx, guildID, func(settings *models.GuildSettings) {
		settings.WatchChannelID = channelID
	})
}

// UpdateModeratorRole updates the role allowed to cancel any active watch.
// A nil roleID disables the role override.
func (s *guildSettingsService) UpdateModeratorRole(ctx context.Context, guildID int64, roleID *int64) error {
	return s.updateSettings(ctx, guildID, func(settings *models.GuildSettings) {
		settings.ModeratorRoleID = roleID
	})
}

// UpdateDefaultVotingMinutes updates the guild's default voting window length
func (s *guildSettingsService) UpdateDefaultVotingMinutes(ctx context.Context, guildID int64, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("voting minutes must be positive, got %d", minutes)
	}
	return s.updateSettings(ctx, guildID, func(settings *models.GuildSettings) {
		settings.DefaultVotingMinutes = minutes
	})
}

func (s *guildSettingsService) updateSettings(ctx context.Context, guildID int64, apply func(*models.GuildSettings)) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	settings, err := uow.GuildSettingsRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	apply(settings)

	if err := uow.GuildSettingsRepository().Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
