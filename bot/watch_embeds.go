package bot

import (
	"fmt"
	"strconv"
	"strings"

	"ratwatch/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPending   = 0xF1C40F // Yellow
	colorVoting    = 0xE67E22 // Orange
	colorGuilty    = 0xE74C3C // Red
	colorNotGuilty = 0x2ECC71 // Green
	colorCleared   = 0x3498DB // Blue
	colorCancelled = 0x95A5A6 // Gray
)

func formatStatus(status models.WatchStatus) string {
	switch status {
	case models.WatchStatusPending:
		return "On Watch"
	case models.WatchStatusVoting:
		return "Voting"
	case models.WatchStatusGuilty:
		return "GUILTY"
	case models.WatchStatusNotGuilty:
		return "NOT GUILTY"
	case models.WatchStatusClearedEarly:
		return "Checked In"
	case models.WatchStatusCancelled:
		return "Cancelled"
	}
	return string(status)
}

func statusColor(status models.WatchStatus) int {
	switch status {
	case models.WatchStatusVoting:
		return colorVoting
	case models.WatchStatusGuilty:
		return colorGuilty
	case models.WatchStatusNotGuilty:
		return colorNotGuilty
	case models.WatchStatusClearedEarly:
		return colorCleared
	case models.WatchStatusCancelled:
		return colorCancelled
	}
	return colorPending
}

// createWatchEmbed creates the announcement embed for a newly created watch
func (b *Bot) createWatchEmbed(watch *models.Watch) *discordgo.MessageEmbed {
	description := fmt.Sprintf("<@%d> is on watch. Check in before %s or face the vote.",
		watch.AccusedUserID, FormatDiscordTimestamp(watch.ScheduledAt, "f"))
	if watch.CustomMessage != nil {
		description += fmt.Sprintf("\n\n> %s", *watch.CustomMessage)
	}

	return &discordgo.MessageEmbed{
		Title:       "🐀 Rat Watch",
		Description: description,
		Color:       colorPending,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Deadline",
				Value:  FormatDiscordTimestamp(watch.ScheduledAt, "R"),
				Inline: true,
			},
			{
				Name:   "Started by",
				Value:  fmt.Sprintf("<@%d>", watch.InitiatorUserID),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", watch.ID),
		},
	}
}

// createVotingEmbed creates the embed posted when a voting window opens
func (b *Bot) createVotingEmbed(watch *models.Watch) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🗳️ The Jury Is In Session",
		Description: fmt.Sprintf("<@%d> never checked in. Did they rat? Voting closes %s.",
			watch.AccusedUserID, FormatDiscordTimestamp(*watch.VotingEndedAt, "R")),
		Color: colorVoting,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", watch.ID),
		},
	}
	if watch.CustomMessage != nil {
		embed.Description += fmt.Sprintf("\n\n> %s", *watch.CustomMessage)
	}
	return embed
}

// createVerdictEmbed creates the embed announcing a finalized verdict
func (b *Bot) createVerdictEmbed(watch *models.Watch, tally models.VoteTally) *discordgo.MessageEmbed {
	var description string
	if watch.Status == models.WatchStatusGuilty {
		description = fmt.Sprintf("The jury has spoken: <@%d> is **GUILTY** of ratting.", watch.AccusedUserID)
	} else {
		description = fmt.Sprintf("The jury has spoken: <@%d> is **NOT GUILTY**.", watch.AccusedUserID)
	}

	return &discordgo.MessageEmbed{
		Title:       "⚖️ Verdict",
		Description: description,
		Color:       statusColor(watch.Status),
		Author: &discordgo.MessageEmbedAuthor{
			Name: GetDisplayNameInt64(b.session, strconv.FormatInt(watch.GuildID, 10), watch.AccusedUserID),
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Guilty",
				Value:  fmt.Sprintf("%d", tally.GuiltyCount),
				Inline: true,
			},
			{
				Name:   "Not Guilty",
				Value:  fmt.Sprintf("%d", tally.NotGuiltyCount),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", watch.ID),
		},
	}
}

// createWatchListEmbed creates the embed for /ratwatch list
func (b *Bot) createWatchListEmbed(watches []*models.Watch) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🐀 Active Watches",
		Color: colorPending,
	}

	if len(watches) == 0 {
		embed.Description = "*No active watches. Everyone's behaving.*"
		return embed
	}

	var lines []string
	for _, watch := range watches {
		var due string
		if watch.IsVoting() && watch.VotingEndedAt != nil {
			due = fmt.Sprintf("voting closes %s", FormatDiscordTimestamp(*watch.VotingEndedAt, "R"))
		} else {
			due = fmt.Sprintf("deadline %s", FormatDiscordTimestamp(watch.ScheduledAt, "R"))
		}
		lines = append(lines, fmt.Sprintf("**#%d** <@%d> — %s, %s", watch.ID, watch.AccusedUserID, formatStatus(watch.Status), due))
	}
	embed.Description = strings.Join(lines, "\n")

	return embed
}

// createWatchHistoryEmbed creates the embed for /ratwatch history
func (b *Bot) createWatchHistoryEmbed(watches []*models.Watch) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📜 Watch History",
		Color: colorCleared,
	}

	if len(watches) == 0 {
		embed.Description = "*No watches yet.*"
		return embed
	}

	var lines []string
	for _, watch := range watches {
		lines = append(lines, fmt.Sprintf("**#%d** <@%d> — %s (%s)",
			watch.ID, watch.AccusedUserID, formatStatus(watch.Status), FormatDiscordTimestamp(watch.CreatedAt, "d")))
	}
	embed.Description = strings.Join(lines, "\n")

	return embed
}

// createWatchStatusEmbed creates the embed for /ratwatch status
func (b *Bot) createWatchStatusEmbed(watch *models.Watch, tally *models.VoteTally) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Watch #%d — %s", watch.ID, formatStatus(watch.Status)),
		Description: fmt.Sprintf("<@%d>, watched by <@%d>", watch.AccusedUserID, watch.InitiatorUserID),
		Color:       statusColor(watch.Status),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Deadline",
				Value:  FormatDiscordTimestamp(watch.ScheduledAt, "f"),
				Inline: true,
			},
		},
	}

	if watch.CustomMessage != nil {
		embed.Description += fmt.Sprintf("\n\n> %s", *watch.CustomMessage)
	}

	if watch.VotingEndedAt != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Voting closes",
			Value:  FormatDiscordTimestamp(*watch.VotingEndedAt, "f"),
			Inline: true,
		})
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Voting window",
			Value:  FormatDuration(watch.VotingDuration()),
			Inline: true,
		})
	}

	if tally != nil && tally.TotalVotes() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Tally",
			Value:  fmt.Sprintf("%d guilty / %d not guilty", tally.GuiltyCount, tally.NotGuiltyCount),
			Inline: false,
		})
	}

	return embed
}

// checkInComponents returns the button row attached to a pending watch
func checkInComponents(watchID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Check In",
					Style:    discordgo.SuccessButton,
					CustomID: fmt.Sprintf("ratwatch_checkin_%d", watchID),
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				},
			},
		},
	}
}

// voteComponents returns the button row attached to a voting watch
func voteComponents(watchID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Guilty",
					Style:    discordgo.DangerButton,
					CustomID: fmt.Sprintf("ratwatch_vote_guilty_%d", watchID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🐀"},
				},
				discordgo.Button{
					Label:    "Not Guilty",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("ratwatch_vote_notguilty_%d", watchID),
					Emoji:    &discordgo.ComponentEmoji{Name: "😇"},
				},
			},
		},
	}
}
