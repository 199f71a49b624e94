package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hachi/config"
	"hachi/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// alertThrottleWindow suppresses repeat alerts per device. Temperature danger
// gets its own track so a fever alert is never swallowed by an earlier
// heart-rate notification.
const alertThrottleWindow = 15 * time.Second

// TelegramService delivers out-of-band vital alerts to the owner's chat.
type TelegramService struct {
	bot                 *tgbotapi.BotAPI
	chatID              int64
	config              *config.Config
	lastAlertTimes      map[string]time.Time // last alert per device
	lastTempDangerTimes map[string]time.Time // last temperature-danger alert per device
	logger              *zap.Logger
}

// NewTelegramService authorizes the bot and verifies the connection.
func NewTelegramService(cfg *config.Config, logger *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %v", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %v", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	ts := &TelegramService{
		bot:                 bot,
		chatID:              chatID,
		config:              cfg,
		lastAlertTimes:      make(map[string]time.Time),
		lastTempDangerTimes: make(map[string]time.Time),
		logger:              logger,
	}

	if err := ts.testConnection(); err != nil {
		logger.Error("Telegram connection test failed", zap.Error(err))
		return nil, fmt.Errorf("telegram connection test failed: %v", err)
	}

	return ts, nil
}

// testConnection tests the Telegram connection with retry.
func (ts *TelegramService) testConnection() error {
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ts.logger.Info("Testing Telegram connection", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries))

		_, err := ts.bot.GetMe()
		if err == nil {
			ts.logger.Info("Telegram connection successful")
			return nil
		}

		ts.logger.Warn("Telegram connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to Telegram after %d attempts", maxRetries)
}

// SendVitalAlerts sends one formatted message covering every alert raised by
// a single evaluation, with per-device throttling.
func (ts *TelegramService) SendVitalAlerts(alerts []*models.VitalAlert, eval *Evaluation) error {
	if len(alerts) == 0 {
		return nil
	}

	hasTempDanger := ts.hasTemperatureDanger(alerts)

	if hasTempDanger {
		if ts.shouldThrottle(ts.lastTempDangerTimes, eval.Sample.DeviceID) {
			ts.logger.Debug("Throttling temperature danger alert", zap.String("device_id", eval.Sample.DeviceID))
			return nil
		}
	} else {
		if ts.shouldThrottle(ts.lastAlertTimes, eval.Sample.DeviceID) {
			ts.logger.Debug("Throttling alert", zap.String("device_id", eval.Sample.DeviceID))
			return nil
		}
	}

	message := ts.formatAlertMessage(alerts, eval)

	msg := tgbotapi.NewMessage(ts.chatID, message)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %v", err)
	}

	if hasTempDanger {
		ts.lastTempDangerTimes[eval.Sample.DeviceID] = time.Now()
	} else {
		ts.lastAlertTimes[eval.Sample.DeviceID] = time.Now()
	}

	ts.logger.Info("Sent vital alert",
		zap.String("device_id", eval.Sample.DeviceID),
		zap.Int("alert_count", len(alerts)))
	return nil
}

func (ts *TelegramService) shouldThrottle(track map[string]time.Time, deviceID string) bool {
	last, exists := track[deviceID]
	if !exists {
		return false
	}
	return time.Since(last) < alertThrottleWindow
}

// hasTemperatureDanger reports whether any alert is a temperature at danger level.
func (ts *TelegramService) hasTemperatureDanger(alerts []*models.VitalAlert) bool {
	for _, alert := range alerts {
		if alert.Metric == models.MetricTemperature && alert.Level == models.StatusAlert {
			return true
		}
	}
	return false
}

// formatAlertMessage creates a mobile-friendly HTML message.
func (ts *TelegramService) formatAlertMessage(alerts []*models.VitalAlert, eval *Evaluation) string {
	var sb strings.Builder

	sb.WriteString("🚨 <b>HACHI VEST ALERT</b> 🚨\n\n")

	sb.WriteString(fmt.Sprintf("🐕 <b>Vest:</b> %s\n", eval.Sample.DeviceID))
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n", eval.Sample.Timestamp.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("🏃 <b>Activity:</b> %s (%s)\n\n", eval.Mode, eval.MovementTrend))

	sb.WriteString("⚠️ <b>Out-of-range vitals:</b>\n")
	for i, alert := range alerts {
		sb.WriteString(fmt.Sprintf("%s %s <b>%s</b>\n",
			alert.GetSeverityColor(),
			alert.GetMetricEmoji(),
			ts.getAlertTitle(alert)))

		sb.WriteString(fmt.Sprintf("   └ %s\n", alert.Description))

		if i < len(alerts)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n💡 <b>Recommended Action:</b>\n")
	if ts.hasTemperatureDanger(alerts) {
		sb.WriteString("Temperature is at a dangerous level. Contact a veterinarian.\n\n")
		sb.WriteString("🔴 <b>Status:</b> IMMEDIATE ATTENTION REQUIRED")
	} else {
		sb.WriteString("Keep an eye on the dog and re-check the vest fit.\n\n")
		sb.WriteString("🟡 <b>Status:</b> MONITORING")
	}

	return sb.String()
}

// getAlertTitle returns a user-friendly title for the alert.
func (ts *TelegramService) getAlertTitle(alert *models.VitalAlert) string {
	switch alert.Metric {
	case models.MetricTemperature:
		if alert.Level == models.StatusAlert {
			return "Temperature Danger"
		}
		return "Temperature Warning"
	case models.MetricHeartRate:
		if alert.Level == models.StatusAlert {
			return "Heart Rate Danger"
		}
		return "Heart Rate Warning"
	case models.MetricRespiratoryRate:
		if alert.Level == models.StatusAlert {
			return "Respiration Danger"
		}
		return "Respiration Warning"
	default:
		return "Vital Sign Alert"
	}
}

// SendStatusMessage sends a general status message.
func (ts *TelegramService) SendStatusMessage(message string) error {
	msg := tgbotapi.NewMessage(ts.chatID, message)
	msg.ParseMode = "HTML"

	_, err := ts.bot.Send(msg)
	return err
}

// SendStartupMessage sends a message when the service starts.
func (ts *TelegramService) SendStartupMessage() error {
	message := "🟢 <b>HACHI Vest Monitoring Started</b>\n\n" +
		"📡 Listening for vest telemetry\n" +
		"🤖 Telegram notifications active\n" +
		"👀 Classifying vitals against the configured profile...\n\n" +
		"✅ System is ready and operational!"

	return ts.SendStatusMessage(message)
}

// SendLinkTimeoutAlert notifies that a vest stopped sending heartbeats.
func (ts *TelegramService) SendLinkTimeoutAlert(deviceID string, lastSeen time.Time, timeSinceLastSeen time.Duration, lastHeartbeat *models.LinkHeartbeat) error {
	var sb strings.Builder

	sb.WriteString("⚠️ <b>VEST LINK TIMEOUT</b> ⚠️\n\n")

	sb.WriteString(fmt.Sprintf("🐕 <b>Vest:</b> %s\n", deviceID))
	sb.WriteString(fmt.Sprintf("🕐 <b>Last Seen:</b> %s\n", lastSeen.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("⏱️ <b>Time Since Last Heartbeat:</b> %s\n\n", formatDuration(timeSinceLastSeen)))

	if lastHeartbeat != nil {
		sb.WriteString("📊 <b>Last Known Status:</b>\n")
		sb.WriteString(fmt.Sprintf("📡 Radio: %s\n", formatConnectionStatus(lastHeartbeat.RadioConnected)))
		sb.WriteString(fmt.Sprintf("🔋 Battery: %d%%\n", lastHeartbeat.BatteryPercent))
		sb.WriteString(fmt.Sprintf("⏰ Uptime: %s\n\n", formatUptime(lastHeartbeat.UptimeMs)))
	}

	sb.WriteString("💡 <b>Action Required:</b>\n")
	sb.WriteString("The vest may be out of range or out of battery. Check on the dog.\n\n")

	sb.WriteString("🔴 <b>Status:</b> LINK DOWN")

	msg := tgbotapi.NewMessage(ts.chatID, sb.String())
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending link timeout alert: %v", err)
	}

	ts.logger.Info("Sent link timeout alert",
		zap.String("device_id", deviceID),
		zap.Duration("time_since_last_seen", timeSinceLastSeen))

	return nil
}

// SendLinkRecoveryAlert notifies that a vest link came back.
func (ts *TelegramService) SendLinkRecoveryAlert(deviceID string, downDuration time.Duration) error {
	var sb strings.Builder

	sb.WriteString("✅ <b>VEST LINK RECOVERED</b> ✅\n\n")

	sb.WriteString(fmt.Sprintf("🐕 <b>Vest:</b> %s\n", deviceID))
	sb.WriteString(fmt.Sprintf("🕐 <b>Recovery Time:</b> %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("⏱️ <b>Downtime:</b> %s\n\n", formatDuration(downDuration)))

	sb.WriteString("🟢 <b>Status:</b> LINK ONLINE")

	msg := tgbotapi.NewMessage(ts.chatID, sb.String())
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending link recovery alert: %v", err)
	}

	ts.logger.Info("Sent link recovery alert",
		zap.String("device_id", deviceID),
		zap.Duration("down_duration", downDuration))

	return nil
}

// Helper functions for formatting

func formatConnectionStatus(connected bool) string {
	if connected {
		return "✅ Connected"
	}
	return "❌ Disconnected"
}

func formatUptime(uptimeMs int64) string {
	duration := time.Duration(uptimeMs) * time.Millisecond
	return formatDuration(duration)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	} else if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%d days %d hr", days, hours)
}
