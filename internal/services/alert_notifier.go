package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

// AlertNotifier delivers performance alerts to a Telegram chat. A notifier
// built without credentials is valid and silently drops everything.
type AlertNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewAlertNotifier builds a notifier from Telegram config. A missing token
// or chat ID disables delivery rather than failing startup.
func NewAlertNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *AlertNotifier {
	n := &AlertNotifier{logger: logger}
	if cfg.BotToken == "" || cfg.ChatID == "" {
		logger.Info("Telegram alert delivery disabled, no bot token or chat ID configured")
		return n
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		logger.WithError(err).Warn("Invalid telegram chat ID, alert delivery disabled")
		return n
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize telegram bot, alert delivery disabled")
		return n
	}

	n.bot = b
	n.chatID = chatID
	return n
}

// Enabled reports whether alerts will actually be delivered
func (n *AlertNotifier) Enabled() bool {
	return n.bot != nil
}

// NotifyAlert sends one alert to the configured chat
func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert models.Alert) error {
	if n.bot == nil {
		return nil
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      formatAlertMessage(alert),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"model":    alert.ModelName,
		"severity": string(alert.Severity),
	}).Info("Delivered alert to telegram")
	return nil
}

func formatAlertMessage(alert models.Alert) string {
	icon := "ℹ️"
	switch alert.Severity {
	case models.AlertSeverityWarning:
		icon = "⚠️"
	case models.AlertSeverityCritical:
		icon = "🚨"
	}

	message := fmt.Sprintf("%s *Performance Alert: %s*\n\n", icon, strings.ToUpper(string(alert.Severity)))
	message += fmt.Sprintf("Model: `%s`\n", alert.ModelName)
	message += fmt.Sprintf("Metric: `%s`\n", alert.Metric)
	message += fmt.Sprintf("Value: *%.4f* (threshold %.4f)\n\n", alert.Value, alert.Threshold)
	if alert.Message != "" {
		message += alert.Message + "\n"
	}
	message += fmt.Sprintf("_%s_", alert.Timestamp.Format("2006-01-02 15:04:05 MST"))
	return message
}
