package bot

import (
	"fmt"
	"time"

	"fundtracker/events"
	"fundtracker/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token     string
	GuildID   string
	ChannelID string // finalized daily reports are posted here; empty disables posting
}

type Bot struct {
	config  Config
	session *discordgo.Session
	metrics service.MetricsService
	clock   func() time.Time
}

// New connects to Discord, registers the slash commands and, when a channel
// is configured, subscribes to daily finalization events.
func New(config Config, metrics service.MetricsService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:  config,
		session: dg,
		metrics: metrics,
		clock:   time.Now,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	if config.ChannelID != "" && eventBus != nil {
		subscribeDailyReports(eventBus, dg, config.ChannelID)
		log.WithField("channelID", config.ChannelID).Info("Daily report posting enabled")
	}

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}
