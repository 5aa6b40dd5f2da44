package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ratwatch/config"
	"ratwatch/events"
	"ratwatch/models"
)

// CreateWatchParams carries the inputs for creating a watch. The deadline is
// expressed as minutes from now so the service derives the absolute time from
// its own clock.
type CreateWatchParams struct {
	GuildID         int64
	AccusedUserID   int64
	InitiatorUserID int64
	DeadlineMinutes int
	VotingMinutes   int // 0 uses the guild default
	CustomMessage   *string
	ChannelID       int64
}

type watchService struct {
	uowFactory UnitOfWorkFactory
	clock      Clock
	config     *config.Config
}

// NewWatchService creates a new watch service
func NewWatchService(uowFactory UnitOfWorkFactory, clock Clock, cfg *config.Config) WatchService {
	return &watchService{
		uowFactory: uowFactory,
		clock:      clock,
		config:     cfg,
	}
}

// CreateWatch creates a new watch after consulting the duplicate guard
func (s *watchService) CreateWatch(ctx context.Context, params CreateWatchParams) (*models.Watch, error) {
	now := s.clock.Now()
	if params.DeadlineMinutes <= 0 {
		return nil, fmt.Errorf("deadline must be in the future")
	}
	scheduledAt := now.Add(time.Duration(params.DeadlineMinutes) * time.Minute)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Duplicate guard: suppress accidental double-submission within the
	// tolerance window, without preventing legitimate sequential watches.
	existing, err := uow.WatchRepository().FindDuplicate(ctx, params.GuildID, params.AccusedUserID, scheduledAt, s.config.DuplicateWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate watch: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateWatchError{
			ExistingWatchID: existing.ID,
			AccusedUserID:   params.AccusedUserID,
		}
	}

	votingMinutes := params.VotingMinutes
	if votingMinutes <= 0 {
		settings, err := uow.GuildSettingsRepository().GetOrCreate(ctx, params.GuildID)
		if err != nil {
			return nil, fmt.Errorf("failed to get guild settings: %w", err)
		}
		votingMinutes = settings.VotingMinutesOrDefault()
	}

	watch := &models.Watch{
		GuildID:               params.GuildID,
		AccusedUserID:         params.AccusedUserID,
		InitiatorUserID:       params.InitiatorUserID,
		ScheduledAt:           scheduledAt,
		VotingDurationMinutes: votingMinutes,
		Status:                models.WatchStatusPending,
		CustomMessage:         params.CustomMessage,
		ChannelID:             params.ChannelID,
	}

	if err := uow.WatchRepository().Create(ctx, watch); err != nil {
		return nil, fmt.Errorf("failed to create watch: %w", err)
	}

	uow.EventBus().Publish(events.WatchCreatedEvent{Watch: watch})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return watch, nil
}

// CheckIn records the accused user's self-clear during the pending phase
func (s *watchService) CheckIn(ctx context.Context, watchID, requestingUserID int64) (*models.Watch, error) {
	now := s.clock.Now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}

	if !watch.IsAccused(requestingUserID) {
		return nil, &WrongUserError{WatchID: watchID, UserID: requestingUserID, Operation: "check in on"}
	}
	if !watch.IsPending() {
		return nil, &InvalidStateError{WatchID: watchID, Status: watch.Status, Operation: "check in on"}
	}

	priorStatus := watch.Status
	if _, err := watch.Apply(models.Event{Kind: models.EventCheckIn, ActorID: requestingUserID}, now); err != nil {
		return nil, &InvalidStateError{WatchID: watchID, Status: watch.Status, Operation: "check in on"}
	}

	updated, err := uow.WatchRepository().ConditionalUpdateStatus(ctx, watch, priorStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to persist check-in: %w", err)
	}
	if !updated {
		// A concurrent actor advanced the watch between read and write.
		// Report the status that was read, not the local Apply result.
		return nil, &InvalidStateError{WatchID: watchID, Status: priorStatus, Operation: "check in on"}
	}

	uow.EventBus().Publish(events.CheckedInEvent{Watch: watch})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return watch, nil
}

// CastVote records or overwrites a guilty/not-guilty ballot. The write is
// honored only if the watch is still in the voting phase at write time.
func (s *watchService) CastVote(ctx context.Context, watchID, voterUserID int64, isGuiltyVote bool) (*models.VoteTally, error) {
	now := s.clock.Now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}

	vote := &models.WatchVote{
		WatchID:      watchID,
		VoterUserID:  voterUserID,
		IsGuiltyVote: isGuiltyVote,
		CastAt:       now,
	}

	// The repository guards the write on status = voting in the same
	// statement, so a vote racing against finalization is rejected rather
	// than silently accepted into a closed ballot.
	accepted, err := uow.WatchVoteRepository().Upsert(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}
	if !accepted {
		return nil, &InvalidStateError{WatchID: watchID, Status: watch.Status, Operation: "vote on"}
	}

	tally, err := uow.WatchVoteRepository().Tally(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tally, nil
}

// Cancel cancels a non-terminal watch. The initiator may cancel a pending
// watch; a moderator may cancel a pending or voting watch.
func (s *watchService) Cancel(ctx context.Context, watchID, requestingUserID int64, isModerator bool) (*models.Watch, error) {
	now := s.clock.Now()
	isModerator = isModerator || s.isConfiguredModerator(requestingUserID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}

	if watch.IsTerminal() {
		return nil, &InvalidStateError{WatchID: watchID, Status: watch.Status, Operation: "cancel"}
	}

	switch {
	case isModerator:
		// Emergency override: moderators may cancel at any non-terminal status
	case watch.IsPending() && watch.IsInitiator(requestingUserID):
	default:
		return nil, &WrongUserError{WatchID: watchID, UserID: requestingUserID, Operation: "cancel"}
	}

	priorStatus := watch.Status
	if _, err := watch.Apply(models.Event{Kind: models.EventCancel, ActorID: requestingUserID}, now); err != nil {
		return nil, &InvalidStateError{WatchID: watchID, Status: watch.Status, Operation: "cancel"}
	}

	updated, err := uow.WatchRepository().ConditionalUpdateStatus(ctx, watch, priorStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}
	if !updated {
		// Report the status that was read, not the local Apply result.
		return nil, &InvalidStateError{WatchID: watchID, Status: priorStatus, Operation: "cancel"}
	}

	uow.EventBus().Publish(events.WatchCancelledEvent{Watch: watch, CancelledByID: requestingUserID})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return watch, nil
}

// Get retrieves a watch by ID
func (s *watchService) Get(ctx context.Context, watchID int64) (*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}

	return watch, nil
}

// GetTally returns the current vote tally for a watch
func (s *watchService) GetTally(ctx context.Context, watchID int64) (*models.VoteTally, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tally, err := uow.WatchVoteRepository().Tally(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	return tally, nil
}

// ListActive returns the guild's pending and voting watches, most recent
// activity first
func (s *watchService) ListActive(ctx context.Context, guildID int64) ([]*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watches, err := uow.WatchRepository().GetActiveByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active watches: %w", err)
	}

	sort.SliceStable(watches, func(i, j int) bool {
		return watches[i].MostRecentActivityAt().After(watches[j].MostRecentActivityAt())
	})

	return watches, nil
}

// ListRecent returns the guild's most recently created watches regardless of
// status, newest first
func (s *watchService) ListRecent(ctx context.Context, guildID int64, limit int) ([]*models.Watch, error) {
	if limit <= 0 {
		limit = 10
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watches, err := uow.WatchRepository().GetByGuild(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent watches: %w", err)
	}

	return watches, nil
}

// UpdateMessageIDs records the Discord message posted for a watch
func (s *watchService) UpdateMessageIDs(ctx context.Context, watchID, messageID, channelID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.WatchRepository().UpdateMessageIDs(ctx, watchID, messageID, channelID); err != nil {
		return fmt.Errorf("failed to update watch message IDs: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *watchService) isConfiguredModerator(userID int64) bool {
	for _, moderatorID := range s.config.ModeratorDiscordIDs {
		if userID == moderatorID {
			return true
		}
	}
	return false
}
