package bot

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"ratwatch/events"

	"github.com/bwmarrin/discordgo"
)

// announceWatchCreated posts the watch announcement with its check-in button
// and records the message for later edits.
func (b *Bot) announceWatchCreated(ctx context.Context, e events.WatchCreatedEvent) {
	watch := e.Watch
	channelID := b.announcementChannelID(ctx, watch.GuildID, watch.ChannelID)

	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{b.createWatchEmbed(watch)},
		Components: checkInComponents(watch.ID),
	})
	if err != nil {
		log.Errorf("Failed to announce watch %d: %v", watch.ID, err)
		return
	}

	messageID, _ := strconv.ParseInt(msg.ID, 10, 64)
	postedChannelID, _ := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err := b.watchService.UpdateMessageIDs(ctx, watch.ID, messageID, postedChannelID); err != nil {
		log.Errorf("Failed to record message for watch %d: %v", watch.ID, err)
	}
}

// announceVotingOpened retires the check-in message and posts the ballot
func (b *Bot) announceVotingOpened(ctx context.Context, e events.VotingOpenedEvent) {
	watch := e.Watch
	b.removeWatchMessageButtons(watch.ChannelID, watch.MessageID)

	channelID := b.announcementChannelID(ctx, watch.GuildID, watch.ChannelID)
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{b.createVotingEmbed(watch)},
		Components: voteComponents(watch.ID),
	})
	if err != nil {
		log.Errorf("Failed to announce voting for watch %d: %v", watch.ID, err)
		return
	}

	messageID, _ := strconv.ParseInt(msg.ID, 10, 64)
	postedChannelID, _ := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err := b.watchService.UpdateMessageIDs(ctx, watch.ID, messageID, postedChannelID); err != nil {
		log.Errorf("Failed to record voting message for watch %d: %v", watch.ID, err)
	}
}

// announceVerdict retires the ballot and posts the verdict
func (b *Bot) announceVerdict(ctx context.Context, e events.VerdictAnnouncedEvent) {
	watch := e.Watch
	b.removeWatchMessageButtons(watch.ChannelID, watch.MessageID)

	channelID := b.announcementChannelID(ctx, watch.GuildID, watch.ChannelID)
	_, err := b.session.ChannelMessageSendEmbed(channelID, b.createVerdictEmbed(watch, e.Tally))
	if err != nil {
		log.Errorf("Failed to announce verdict for watch %d: %v", watch.ID, err)
	}
}

// announceCheckIn retires the watch message and congratulates the accused
func (b *Bot) announceCheckIn(ctx context.Context, e events.CheckedInEvent) {
	watch := e.Watch
	b.removeWatchMessageButtons(watch.ChannelID, watch.MessageID)

	channelID := b.announcementChannelID(ctx, watch.GuildID, watch.ChannelID)
	message := fmt.Sprintf("✅ <@%d> checked in on watch **#%d**. No rat here.", watch.AccusedUserID, watch.ID)
	if _, err := b.session.ChannelMessageSend(channelID, message); err != nil {
		log.Errorf("Failed to announce check-in for watch %d: %v", watch.ID, err)
	}
}

// announceCancelled retires the watch message and notes the cancellation
func (b *Bot) announceCancelled(ctx context.Context, e events.WatchCancelledEvent) {
	watch := e.Watch
	b.removeWatchMessageButtons(watch.ChannelID, watch.MessageID)

	channelID := b.announcementChannelID(ctx, watch.GuildID, watch.ChannelID)
	message := fmt.Sprintf("🚫 Watch **#%d** on <@%d> was cancelled by <@%d>.", watch.ID, watch.AccusedUserID, e.CancelledByID)
	if _, err := b.session.ChannelMessageSend(channelID, message); err != nil {
		log.Errorf("Failed to announce cancellation for watch %d: %v", watch.ID, err)
	}
}

// removeWatchMessageButtons strips the buttons from a previously posted watch
// message so stale check-in or vote buttons cannot be pressed
func (b *Bot) removeWatchMessageButtons(channelID, messageID int64) {
	if channelID == 0 || messageID == 0 {
		return
	}

	components := []discordgo.MessageComponent{}
	_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    strconv.FormatInt(channelID, 10),
		ID:         strconv.FormatInt(messageID, 10),
		Components: &components,
	})
	if err != nil {
		log.Errorf("Failed to remove buttons from message %d: %v", messageID, err)
	}
}
