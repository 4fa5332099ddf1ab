package bot

import (
	"context"
	"time"

	"fundtracker/bot/common"
	"fundtracker/report"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const commandTimeout = 30 * time.Second

// handleProgressCommand answers /progress with an embed
func (b *Bot) handleProgressCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := common.DeferResponse(s, i, false); err != nil {
		log.Errorf("Error deferring progress response: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := b.metrics.ComputeTodayMetrics(ctx, b.clock())
	if err != nil {
		log.WithError(err).Warn("Progress command computed metrics with an error")
	}

	if _, err := common.FollowUpWithEmbed(s, i, BuildProgressEmbed(result, err), nil, false); err != nil {
		log.Errorf("Error sending progress embed: %v", err)
	}
}

// handleReportCommand answers /report with the plain-text report
func (b *Bot) handleReportCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := common.DeferResponse(s, i, false); err != nil {
		log.Errorf("Error deferring report response: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := b.metrics.ComputeTodayMetrics(ctx, b.clock())
	if err != nil {
		log.WithError(err).Warn("Report command computed metrics with an error")
	}

	common.FollowUpWithText(s, i, report.Render(result, err))
}
