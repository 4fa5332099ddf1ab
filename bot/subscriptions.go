package bot

import (
	"context"

	"fundtracker/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// embedSender is the part of the Discord session used to post reports
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// subscribeDailyReports posts every finalized daily result to channelID
func subscribeDailyReports(eventBus *events.Bus, sender embedSender, channelID string) {
	eventBus.Subscribe(events.EventTypeDailyFinalized, func(ctx context.Context, event events.Event) {
		finalized, ok := event.(events.DailyFinalizedEvent)
		if !ok {
			return
		}

		result := finalized.Result
		if _, err := sender.ChannelMessageSendEmbed(channelID, BuildProgressEmbed(&result, nil)); err != nil {
			log.WithFields(log.Fields{
				"channelID": channelID,
				"run_id":    finalized.RunID,
				"error":     err,
			}).Error("Failed to post daily report")
			return
		}

		log.WithFields(log.Fields{
			"channelID": channelID,
			"run_id":    finalized.RunID,
		}).Info("Posted daily report")
	})
}
