package models

import (
	"time"
)

// DefaultVotingMinutes is the fallback voting window when a guild has not
// configured one.
const DefaultVotingMinutes = 5

// GuildSettings holds per-guild RatWatch configuration
type GuildSettings struct {
	GuildID              int64     `db:"guild_id"`
	WatchChannelID       *int64    `db:"watch_channel_id"`
	ModeratorRoleID      *int64    `db:"moderator_role_id"`
	DefaultVotingMinutes int       `db:"default_voting_minutes"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// VotingMinutesOrDefault returns the configured voting window, falling back
// to the global default when unset or invalid.
func (s *GuildSettings) VotingMinutesOrDefault() int {
	if s.DefaultVotingMinutes <= 0 {
		return DefaultVotingMinutes
	}
	return s.DefaultVotingMinutes
}
