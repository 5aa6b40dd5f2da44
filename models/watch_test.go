package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch_StatusPredicates(t *testing.T) {
	tests := []struct {
		status     WatchStatus
		isTerminal bool
		isActive   bool
	}{
		{WatchStatusPending, false, true},
		{WatchStatusVoting, false, true},
		{WatchStatusGuilty, true, false},
		{WatchStatusNotGuilty, true, false},
		{WatchStatusClearedEarly, true, false},
		{WatchStatusCancelled, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			watch := &Watch{Status: tt.status}
			assert.Equal(t, tt.isTerminal, watch.IsTerminal())
			assert.Equal(t, tt.isActive, watch.IsActive())
		})
	}
}

func TestWatch_IsDue(t *testing.T) {
	scheduledAt := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	watch := &Watch{Status: WatchStatusPending, ScheduledAt: scheduledAt}

	assert.False(t, watch.IsDue(scheduledAt.Add(-time.Second)))
	assert.True(t, watch.IsDue(scheduledAt))
	assert.True(t, watch.IsDue(scheduledAt.Add(time.Hour)))

	watch.Status = WatchStatusVoting
	assert.False(t, watch.IsDue(scheduledAt.Add(time.Hour)))
}

func TestWatch_IsVotingExpired(t *testing.T) {
	endsAt := time.Date(2024, 1, 15, 18, 5, 0, 0, time.UTC)
	watch := &Watch{Status: WatchStatusVoting, VotingEndedAt: &endsAt}

	assert.False(t, watch.IsVotingExpired(endsAt.Add(-time.Second)))
	assert.True(t, watch.IsVotingExpired(endsAt))

	noWindow := &Watch{Status: WatchStatusVoting}
	assert.False(t, noWindow.IsVotingExpired(endsAt))

	pending := &Watch{Status: WatchStatusPending, VotingEndedAt: &endsAt}
	assert.False(t, pending.IsVotingExpired(endsAt.Add(time.Hour)))
}

func TestWatch_VotingDuration(t *testing.T) {
	watch := &Watch{VotingDurationMinutes: 10}
	assert.Equal(t, 10*time.Minute, watch.VotingDuration())
}

func TestWatch_MostRecentActivityAt(t *testing.T) {
	createdAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	votingStartedAt := createdAt.Add(6 * time.Hour)
	votingEndedAt := votingStartedAt.Add(5 * time.Minute)
	clearedAt := createdAt.Add(time.Hour)
	updatedAt := createdAt.Add(2 * time.Hour)

	tests := []struct {
		name  string
		watch *Watch
		want  time.Time
	}{
		{
			name:  "pending uses creation time",
			watch: &Watch{Status: WatchStatusPending, CreatedAt: createdAt},
			want:  createdAt,
		},
		{
			name:  "voting uses voting start",
			watch: &Watch{Status: WatchStatusVoting, CreatedAt: createdAt, VotingStartedAt: &votingStartedAt},
			want:  votingStartedAt,
		},
		{
			name:  "guilty uses voting end",
			watch: &Watch{Status: WatchStatusGuilty, CreatedAt: createdAt, VotingEndedAt: &votingEndedAt},
			want:  votingEndedAt,
		},
		{
			name:  "not guilty uses voting end",
			watch: &Watch{Status: WatchStatusNotGuilty, CreatedAt: createdAt, VotingEndedAt: &votingEndedAt},
			want:  votingEndedAt,
		},
		{
			name:  "cleared early uses clear time",
			watch: &Watch{Status: WatchStatusClearedEarly, CreatedAt: createdAt, ClearedAt: &clearedAt},
			want:  clearedAt,
		},
		{
			name:  "cancelled uses last update",
			watch: &Watch{Status: WatchStatusCancelled, CreatedAt: createdAt, UpdatedAt: updatedAt},
			want:  updatedAt,
		},
		{
			name:  "missing phase timestamp falls back to creation time",
			watch: &Watch{Status: WatchStatusVoting, CreatedAt: createdAt},
			want:  createdAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.watch.MostRecentActivityAt())
		})
	}
}
