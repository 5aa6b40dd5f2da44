package testutil

import (
	"time"

	"ratwatch/models"
)

// CreateTestWatch creates a pending watch with default values
func CreateTestWatch(guildID, accusedUserID, initiatorUserID int64, scheduledAt time.Time) *models.Watch {
	return &models.Watch{
		GuildID:               guildID,
		AccusedUserID:         accusedUserID,
		InitiatorUserID:       initiatorUserID,
		ScheduledAt:           scheduledAt,
		VotingDurationMinutes: 5,
		Status:                models.WatchStatusPending,
	}
}

// CreateTestWatchWithStatus creates a watch in a specific status with phase
// timestamps consistent with that status
func CreateTestWatchWithStatus(guildID, accusedUserID, initiatorUserID int64, scheduledAt time.Time, status models.WatchStatus) *models.Watch {
	watch := CreateTestWatch(guildID, accusedUserID, initiatorUserID, scheduledAt)
	watch.Status = status

	switch status {
	case models.WatchStatusVoting, models.WatchStatusGuilty, models.WatchStatusNotGuilty:
		startedAt := scheduledAt
		endedAt := scheduledAt.Add(watch.VotingDuration())
		watch.VotingStartedAt = &startedAt
		watch.VotingEndedAt = &endedAt
	case models.WatchStatusClearedEarly:
		clearedAt := scheduledAt.Add(-time.Hour)
		watch.ClearedAt = &clearedAt
	}

	return watch
}

// CreateTestVote creates a vote for a watch
func CreateTestVote(watchID, voterUserID int64, isGuilty bool) *models.WatchVote {
	return &models.WatchVote{
		WatchID:      watchID,
		VoterUserID:  voterUserID,
		IsGuiltyVote: isGuilty,
		CastAt:       time.Now().UTC(),
	}
}
