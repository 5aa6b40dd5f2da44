package bot

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"ratwatch/events"
	"ratwatch/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

type Bot struct {
	config          Config
	session         *discordgo.Session
	watchService    service.WatchService
	settingsService service.GuildSettingsService
	eventBus        *events.Bus
}

func New(config Config, watchService service.WatchService, settingsService service.GuildSettingsService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	bot := &Bot{
		config:          config,
		session:         dg,
		watchService:    watchService,
		settingsService: settingsService,
		eventBus:        eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component interaction handlers
	dg.AddHandler(bot.handleWatchInteractions)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	bot.subscribeToWatchEvents()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// subscribeToWatchEvents wires watch lifecycle events to Discord announcements.
// The scheduler and service layer only publish events; everything a user sees
// in Discord originates here.
func (b *Bot) subscribeToWatchEvents() {
	b.eventBus.Subscribe(events.EventTypeWatchCreated, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.WatchCreatedEvent); ok {
			b.announceWatchCreated(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypeVotingOpened, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.VotingOpenedEvent); ok {
			b.announceVotingOpened(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypeVerdictAnnounced, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.VerdictAnnouncedEvent); ok {
			b.announceVerdict(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypeCheckedIn, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.CheckedInEvent); ok {
			b.announceCheckIn(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypeWatchCancelled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.WatchCancelledEvent); ok {
			b.announceCancelled(ctx, e)
		}
	})
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ratwatch":
		b.handleWatchCommand(s, i)
	}
}

// announcementChannelID resolves where watch messages for a guild are posted:
// the configured watch channel if set, otherwise the channel the watch was
// started from.
func (b *Bot) announcementChannelID(ctx context.Context, guildID, fallbackChannelID int64) string {
	settings, err := b.settingsService.GetOrCreateSettings(ctx, guildID)
	if err != nil {
		log.Errorf("Failed to load guild settings for guild %d: %v", guildID, err)
		return strconv.FormatInt(fallbackChannelID, 10)
	}
	if settings.WatchChannelID != nil {
		return strconv.FormatInt(*settings.WatchChannelID, 10)
	}
	return strconv.FormatInt(fallbackChannelID, 10)
}
