package models

import (
	"time"
)

// WatchVote represents one ballot cast by a voter against a watch
type WatchVote struct {
	ID           int64     `db:"id"`
	WatchID      int64     `db:"watch_id"`
	VoterUserID  int64     `db:"voter_user_id"`
	IsGuiltyVote bool      `db:"is_guilty_vote"`
	CastAt       time.Time `db:"cast_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// VoteTally represents the guilty/not-guilty counts for a watch
type VoteTally struct {
	GuiltyCount    int
	NotGuiltyCount int
}

// TotalVotes returns the number of counted ballots
func (t *VoteTally) TotalVotes() int {
	return t.GuiltyCount + t.NotGuiltyCount
}

// Verdict resolves the tally to a terminal status. Ties and zero votes both
// resolve to not guilty.
func (t *VoteTally) Verdict() WatchStatus {
	if t.GuiltyCount > t.NotGuiltyCount {
		return WatchStatusGuilty
	}
	return WatchStatusNotGuilty
}
