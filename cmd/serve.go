package cmd

import (
	"context"
	"time"

	"fundtracker/bot"
	"fundtracker/report"
	"fundtracker/webhook"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled workers, the chat bot and the webhook server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log.WithField("environment", cfg.Environment).Info("Starting fundtracker...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// Start background workers
	log.Info("Starting background workers...")
	stopHourly := a.runner.StartHourlyWorker(ctx, cfg.HourlyInterval)
	defer stopHourly()
	stopDaily := a.runner.StartDailyFinalizeWorker(ctx, cfg.DailyFinalizeHour, cfg.DailyFinalizeMinute, a.loc)
	defer stopDaily()

	// Discord is optional
	if cfg.DiscordToken != "" {
		log.Info("Initializing Discord bot...")
		discordBot, err := bot.New(bot.Config{
			Token:     cfg.DiscordToken,
			GuildID:   cfg.DiscordGuildID,
			ChannelID: cfg.DiscordChannelID,
		}, a.metrics, a.eventBus)
		if err != nil {
			return err
		}
		defer func() {
			if err := discordBot.Close(); err != nil {
				log.WithError(err).Error("Error closing Discord bot")
			}
		}()
		log.Info("Discord bot initialized successfully")
	}

	var replier webhook.Replier
	if cfg.FeishuAppID != "" && cfg.FeishuAppSecret != "" {
		replier = webhook.NewFeishuClient(cfg.FeishuBaseURL, cfg.FeishuAppID, cfg.FeishuAppSecret)
	} else {
		log.Warn("Feishu credentials not set, chat triggers will not be answered")
	}

	server := webhook.NewServer(func(ctx context.Context) string {
		result, err := a.metrics.ComputeTodayMetrics(ctx, time.Now())
		return report.Render(result, err)
	}, replier)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("Webhook server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down webhook server")
	}

	log.Info("Shutdown completed")
	return nil
}
