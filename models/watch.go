package models

import (
	"time"
)

// WatchStatus represents the lifecycle state of a rat watch
type WatchStatus string

const (
	WatchStatusPending      WatchStatus = "pending"
	WatchStatusVoting       WatchStatus = "voting"
	WatchStatusGuilty       WatchStatus = "guilty"
	WatchStatusNotGuilty    WatchStatus = "not_guilty"
	WatchStatusClearedEarly WatchStatus = "cleared_early"
	WatchStatusCancelled    WatchStatus = "cancelled"
)

// Watch represents one accountability-game instance against a user
type Watch struct {
	ID                    int64       `db:"id"`
	GuildID               int64       `db:"guild_id"`
	AccusedUserID         int64       `db:"accused_user_id"`
	InitiatorUserID       int64       `db:"initiator_user_id"`
	ScheduledAt           time.Time   `db:"scheduled_at"`
	VotingDurationMinutes int         `db:"voting_duration_minutes"`
	VotingStartedAt       *time.Time  `db:"voting_started_at"`
	VotingEndedAt         *time.Time  `db:"voting_ended_at"`
	ClearedAt             *time.Time  `db:"cleared_at"`
	Status                WatchStatus `db:"status"`
	CustomMessage         *string     `db:"custom_message"`
	MessageID             int64       `db:"message_id"`
	ChannelID             int64       `db:"channel_id"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

// IsTerminal checks whether the watch has reached a final status
func (w *Watch) IsTerminal() bool {
	switch w.Status {
	case WatchStatusGuilty, WatchStatusNotGuilty, WatchStatusClearedEarly, WatchStatusCancelled:
		return true
	}
	return false
}

// IsPending checks if the watch is waiting for its scheduled deadline
func (w *Watch) IsPending() bool {
	return w.Status == WatchStatusPending
}

// IsVoting checks if the watch is in its voting phase
func (w *Watch) IsVoting() bool {
	return w.Status == WatchStatusVoting
}

// IsActive checks if the watch is in a non-terminal state
func (w *Watch) IsActive() bool {
	return w.Status == WatchStatusPending || w.Status == WatchStatusVoting
}

// IsDue checks if a pending watch has reached its scheduled deadline
func (w *Watch) IsDue(now time.Time) bool {
	return w.Status == WatchStatusPending && !now.Before(w.ScheduledAt)
}

// IsVotingExpired checks if the voting window has closed
func (w *Watch) IsVotingExpired(now time.Time) bool {
	if w.Status != WatchStatusVoting || w.VotingEndedAt == nil {
		return false
	}
	return !now.Before(*w.VotingEndedAt)
}

// VotingDuration returns the voting window length
func (w *Watch) VotingDuration() time.Duration {
	return time.Duration(w.VotingDurationMinutes) * time.Minute
}

// IsAccused checks if a user is the subject of the watch
func (w *Watch) IsAccused(userID int64) bool {
	return w.AccusedUserID == userID
}

// IsInitiator checks if a user created the watch
func (w *Watch) IsInitiator(userID int64) bool {
	return w.InitiatorUserID == userID
}

// MostRecentActivityAt returns the timestamp of the watch's latest phase
// change, for display sorting. Derived, never stored.
func (w *Watch) MostRecentActivityAt() time.Time {
	switch w.Status {
	case WatchStatusClearedEarly:
		if w.ClearedAt != nil {
			return *w.ClearedAt
		}
	case WatchStatusVoting:
		if w.VotingStartedAt != nil {
			return *w.VotingStartedAt
		}
	case WatchStatusGuilty, WatchStatusNotGuilty:
		if w.VotingEndedAt != nil {
			return *w.VotingEndedAt
		}
	case WatchStatusCancelled:
		return w.UpdatedAt
	}
	return w.CreatedAt
}
