package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// commandDefinitions lists the slash commands the bot registers
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "progress",
			Description: "Show today's funding progress against the goal",
		},
		{
			Name:        "report",
			Description: "Post today's progress report as plain text",
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range commandDefinitions() {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
		log.WithField("command", cmd.Name).Debug("Registered slash command")
	}
	return nil
}

// handleCommands routes slash commands to their handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "progress":
		b.handleProgressCommand(s, i)
	case "report":
		b.handleReportCommand(s, i)
	}
}
