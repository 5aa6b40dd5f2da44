package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"ratwatch/service"

	"github.com/bwmarrin/discordgo"
)

// handleWatchCommand handles the /ratwatch slash command
func (b *Bot) handleWatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Invalid command usage")
		return
	}

	switch options[0].Name {
	case "start":
		b.handleWatchStart(s, i)
	case "cancel":
		b.handleWatchCancel(s, i)
	case "list":
		b.handleWatchList(s, i)
	case "history":
		b.handleWatchHistory(s, i)
	case "status":
		b.handleWatchStatus(s, i)
	case "settings":
		b.handleWatchSettings(s, i)
	default:
		b.respondWithError(s, i, "Unknown subcommand")
	}
}

// handleWatchStart handles the /ratwatch start subcommand
func (b *Bot) handleWatchStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := i.ApplicationCommandData().Options[0].Options

	var accusedUser *discordgo.User
	var inMinutes, votingMinutes int64
	var customMessage string
	for _, opt := range options {
		switch opt.Name {
		case "user":
			accusedUser = opt.UserValue(s)
		case "in_minutes":
			inMinutes = opt.IntValue()
		case "voting_minutes":
			votingMinutes = opt.IntValue()
		case "message":
			customMessage = opt.StringValue()
		}
	}

	if accusedUser == nil {
		b.respondWithError(s, i, "Invalid user specified")
		return
	}
	if inMinutes <= 0 {
		b.respondWithError(s, i, "Deadline must be in the future")
		return
	}
	if votingMinutes < 0 {
		b.respondWithError(s, i, "Voting window must be positive")
		return
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	initiatorID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	accusedID, err := strconv.ParseInt(accusedUser.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", accusedUser.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	channelID, _ := strconv.ParseInt(i.ChannelID, 10, 64)

	params := service.CreateWatchParams{
		GuildID:         guildID,
		AccusedUserID:   accusedID,
		InitiatorUserID: initiatorID,
		DeadlineMinutes: int(inMinutes),
		VotingMinutes:   int(votingMinutes),
		ChannelID:       channelID,
	}
	if customMessage != "" {
		params.CustomMessage = &customMessage
	}

	watch, err := b.watchService.CreateWatch(ctx, params)
	if err != nil {
		b.respondServiceError(s, i, err, "start the watch")
		return
	}

	message := fmt.Sprintf("Watch **#%d** started on <@%d>. Check-in deadline: %s",
		watch.ID, watch.AccusedUserID, FormatDiscordTimestamp(watch.ScheduledAt, "f"))
	b.respondEphemeral(s, i, message)
}

// handleWatchCancel handles the /ratwatch cancel subcommand
func (b *Bot) handleWatchCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := i.ApplicationCommandData().Options[0].Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Please specify a watch ID")
		return
	}
	watchID := options[0].IntValue()

	userID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	watch, err := b.watchService.Cancel(ctx, watchID, userID, b.isModerator(ctx, i))
	if err != nil {
		b.respondServiceError(s, i, err, "cancel the watch")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf("Watch **#%d** on <@%d> cancelled.", watch.ID, watch.AccusedUserID))
}

// handleWatchList handles the /ratwatch list subcommand
func (b *Bot) handleWatchList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	watches, err := b.watchService.ListActive(ctx, guildID)
	if err != nil {
		log.Errorf("Error listing watches for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to list watches. Please try again.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{b.createWatchListEmbed(watches)},
		},
	})
	if err != nil {
		log.Errorf("Error responding to list command: %v", err)
	}
}

// handleWatchHistory handles the /ratwatch history subcommand
func (b *Bot) handleWatchHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	watches, err := b.watchService.ListRecent(ctx, guildID, 10)
	if err != nil {
		log.Errorf("Error listing watch history for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to list watch history. Please try again.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{b.createWatchHistoryEmbed(watches)},
		},
	})
	if err != nil {
		log.Errorf("Error responding to history command: %v", err)
	}
}

// handleWatchStatus handles the /ratwatch status subcommand
func (b *Bot) handleWatchStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := i.ApplicationCommandData().Options[0].Options
	if len(options) == 0 {
		b.respondWithError(s, i, "Please specify a watch ID")
		return
	}
	watchID := options[0].IntValue()

	watch, err := b.watchService.Get(ctx, watchID)
	if err != nil {
		b.respondServiceError(s, i, err, "look up the watch")
		return
	}

	tally, err := b.watchService.GetTally(ctx, watchID)
	if err != nil {
		log.Errorf("Error tallying votes for watch %d: %v", watchID, err)
		b.respondWithError(s, i, "Unable to look up the watch. Please try again.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{b.createWatchStatusEmbed(watch, tally)},
		},
	})
	if err != nil {
		log.Errorf("Error responding to status command: %v", err)
	}
}

// handleWatchSettings handles the /ratwatch settings subcommand group
func (b *Bot) handleWatchSettings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	if i.Member.Permissions&discordgo.PermissionManageServer == 0 {
		b.respondWithError(s, i, "You need the Manage Server permission to change settings.")
		return
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	group := i.ApplicationCommandData().Options[0]
	if len(group.Options) == 0 {
		b.respondWithError(s, i, "Invalid command usage")
		return
	}
	sub := group.Options[0]

	switch sub.Name {
	case "channel":
		channel := sub.Options[0].ChannelValue(s)
		if channel == nil {
			b.respondWithError(s, i, "Invalid channel specified")
			return
		}
		channelID, err := strconv.ParseInt(channel.ID, 10, 64)
		if err != nil {
			b.respondWithError(s, i, "Invalid channel specified")
			return
		}
		if err := b.settingsService.UpdateWatchChannel(ctx, guildID, &channelID); err != nil {
			log.Errorf("Error updating watch channel for guild %d: %v", guildID, err)
			b.respondWithError(s, i, "Unable to update settings. Please try again.")
			return
		}
		b.respondEphemeral(s, i, fmt.Sprintf("Watch announcements will be posted to <#%s>.", channel.ID))

	case "moderator_role":
		role := sub.Options[0].RoleValue(s, i.GuildID)
		if role == nil {
			b.respondWithError(s, i, "Invalid role specified")
			return
		}
		roleID, err := strconv.ParseInt(role.ID, 10, 64)
		if err != nil {
			b.respondWithError(s, i, "Invalid role specified")
			return
		}
		if err := b.settingsService.UpdateModeratorRole(ctx, guildID, &roleID); err != nil {
			log.Errorf("Error updating moderator role for guild %d: %v", guildID, err)
			b.respondWithError(s, i, "Unable to update settings. Please try again.")
			return
		}
		b.respondEphemeral(s, i, fmt.Sprintf("Members with <@&%s> can now cancel any watch.", role.ID))

	case "voting_minutes":
		minutes := sub.Options[0].IntValue()
		if err := b.settingsService.UpdateDefaultVotingMinutes(ctx, guildID, int(minutes)); err != nil {
			log.Errorf("Error updating voting minutes for guild %d: %v", guildID, err)
			b.respondWithError(s, i, "Voting window must be a positive number of minutes.")
			return
		}
		b.respondEphemeral(s, i, fmt.Sprintf("Default voting window set to **%d minutes**.", minutes))

	default:
		b.respondWithError(s, i, "Unknown settings subcommand")
	}
}

// handleWatchInteractions handles check-in and vote button presses
func (b *Bot) handleWatchInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, "ratwatch_") {
		return
	}

	parts := strings.Split(customID, "_")
	watchID, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		log.Errorf("Error parsing watch ID from custom ID %s: %v", customID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	userID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	switch {
	case strings.HasPrefix(customID, "ratwatch_checkin_"):
		b.handleCheckInButton(s, i, watchID, userID)
	case strings.HasPrefix(customID, "ratwatch_vote_guilty_"):
		b.handleVoteButton(s, i, watchID, userID, true)
	case strings.HasPrefix(customID, "ratwatch_vote_notguilty_"):
		b.handleVoteButton(s, i, watchID, userID, false)
	}
}

func (b *Bot) handleCheckInButton(s *discordgo.Session, i *discordgo.InteractionCreate, watchID, userID int64) {
	ctx := context.Background()

	watch, err := b.watchService.CheckIn(ctx, watchID, userID)
	if err != nil {
		b.respondServiceError(s, i, err, "check in")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf("You checked in on watch **#%d**. You're in the clear.", watch.ID))
}

func (b *Bot) handleVoteButton(s *discordgo.Session, i *discordgo.InteractionCreate, watchID, userID int64, isGuilty bool) {
	ctx := context.Background()

	tally, err := b.watchService.CastVote(ctx, watchID, userID, isGuilty)
	if err != nil {
		b.respondServiceError(s, i, err, "vote")
		return
	}

	choice := "NOT GUILTY"
	if isGuilty {
		choice = "GUILTY"
	}
	b.respondEphemeral(s, i, fmt.Sprintf("Your vote: **%s**. Current tally: %d guilty / %d not guilty.",
		choice, tally.GuiltyCount, tally.NotGuiltyCount))
}

// isModerator reports whether the invoking member may override watch
// lifecycle rules: Manage Server permission or the configured moderator role.
func (b *Bot) isModerator(ctx context.Context, i *discordgo.InteractionCreate) bool {
	if i.Member.Permissions&discordgo.PermissionManageServer != 0 {
		return true
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		return false
	}

	settings, err := b.settingsService.GetOrCreateSettings(ctx, guildID)
	if err != nil {
		log.Errorf("Failed to load guild settings for guild %d: %v", guildID, err)
		return false
	}
	if settings.ModeratorRoleID == nil {
		return false
	}

	moderatorRole := strconv.FormatInt(*settings.ModeratorRoleID, 10)
	for _, roleID := range i.Member.Roles {
		if roleID == moderatorRole {
			return true
		}
	}
	return false
}

// respondServiceError translates typed service errors into user-facing
// messages; anything unrecognized gets a generic retry message.
func (b *Bot) respondServiceError(s *discordgo.Session, i *discordgo.InteractionCreate, err error, action string) {
	var dupErr *service.DuplicateWatchError
	var wrongUser *service.WrongUserError
	var invalidState *service.InvalidStateError

	switch {
	case errors.Is(err, service.ErrWatchNotFound):
		b.respondWithError(s, i, "That watch doesn't exist.")
	case errors.As(err, &dupErr):
		b.respondWithError(s, i, fmt.Sprintf("<@%d> is already on watch (watch **#%d**).", dupErr.AccusedUserID, dupErr.ExistingWatchID))
	case errors.As(err, &wrongUser):
		b.respondWithError(s, i, fmt.Sprintf("You're not allowed to %s.", action))
	case errors.As(err, &invalidState):
		b.respondWithError(s, i, fmt.Sprintf("Too late to %s, the watch has moved on (status: %s).", action, formatStatus(invalidState.Status)))
	default:
		log.Errorf("Failed to %s: %v", action, err)
		b.respondWithError(s, i, fmt.Sprintf("Unable to %s. Please try again.", action))
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending response: %v", err)
	}
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}
