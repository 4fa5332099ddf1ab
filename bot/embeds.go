package bot

import (
	"fmt"

	"fundtracker/bot/common"
	"fundtracker/models"
	"fundtracker/report"

	"github.com/bwmarrin/discordgo"
)

// Embed colors
const (
	colorOnTrack  = 0x2ECC71
	colorBehind   = 0xE67E22
	colorNoData   = 0x95A5A6
	colorErrorRed = 0xE74C3C
)

// BuildProgressEmbed renders a metrics outcome as a Discord embed
func BuildProgressEmbed(result *models.MetricsResult, err error) *discordgo.MessageEmbed {
	if result == nil {
		if err != nil {
			return &discordgo.MessageEmbed{
				Title:       "Progress unavailable",
				Description: report.FormatError(err),
				Color:       colorErrorRed,
			}
		}
		return &discordgo.MessageEmbed{
			Title:       "Not enough data yet",
			Description: report.NoDataText,
			Color:       colorNoData,
		}
	}

	color := colorOnTrack
	if result.GapDailyAmount > 0 || result.GapDailyQuantity > 0 {
		color = colorBehind
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s 战报", result.NowAt.Format("01月02日 15:04")),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "新增人数",
				Value:  fmt.Sprintf("%s 人 / 目标 %s 人", common.FormatNumber(result.DailyQuantity), common.FormatNumber(result.GoalDailyQuantity)),
				Inline: true,
			},
			{
				Name:   "新增金额",
				Value:  fmt.Sprintf("%s / 目标 %s", report.FormatWan(result.DailyAmount), report.FormatWan(result.GoalDailyAmount)),
				Inline: true,
			},
			{
				Name:   "人数GAP",
				Value:  fmt.Sprintf("%s (进度 %.1f%%)", common.FormatNumber(result.GapDailyQuantity), result.PctDailyQuantity),
				Inline: false,
			},
			{
				Name:   "金额GAP",
				Value:  fmt.Sprintf("%s (进度 %.1f%%)", report.FormatWan(result.GapDailyAmount), result.PctDailyAmount),
				Inline: false,
			},
			{
				Name:   "累计",
				Value:  fmt.Sprintf("%s 人 / %s", common.FormatNumber(result.TotalQuantity), report.FormatWan(result.TotalAmount)),
				Inline: true,
			},
			{
				Name:   "累计GAP",
				Value:  fmt.Sprintf("%s 人 / %s", common.FormatNumber(result.GapTotalQuantity), report.FormatWan(result.GapTotalAmount)),
				Inline: true,
			},
		},
	}

	if result.Latest != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Snapshot " + common.FormatNumber(result.Latest.ID),
		}
		embed.Description = "Last scraped " + common.FormatDiscordTimestamp(result.Latest.ScrapedAt, "R")
	}

	if err != nil {
		if embed.Description != "" {
			embed.Description += "\n"
		}
		embed.Description += "⚠️ " + err.Error()
	}

	return embed
}
