package services

import (
	"context"
	"sync"
	"time"

	"hachi/config"
	"hachi/models"

	"go.uber.org/zap"
)

// LinkMonitorService tracks vest heartbeats and alerts when a link goes quiet
// or comes back.
type LinkMonitorService struct {
	config          *config.Config
	telegramService *TelegramService
	logger          *zap.Logger
	vests           map[string]*models.VestLink
	mu              sync.RWMutex
}

// NewLinkMonitorService creates a new vest link monitor.
func NewLinkMonitorService(cfg *config.Config, telegram *TelegramService, logger *zap.Logger) *LinkMonitorService {
	return &LinkMonitorService{
		config:          cfg,
		telegramService: telegram,
		logger:          logger,
		vests:           make(map[string]*models.VestLink),
	}
}

// Start begins heartbeat processing and the timeout checker.
func (m *LinkMonitorService) Start(ctx context.Context, heartbeatChan <-chan *models.LinkHeartbeat) {
	m.logger.Info("Starting vest link monitor",
		zap.Int("timeout_seconds", m.config.LinkTimeoutSeconds))

	go m.runTimeoutChecker(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Vest link monitor stopped")
			return
		case heartbeat, ok := <-heartbeatChan:
			if !ok {
				m.logger.Info("Heartbeat channel closed")
				return
			}
			m.updateHeartbeat(heartbeat)
		}
	}
}

// updateHeartbeat records a heartbeat and fires a recovery alert if the vest
// had timed out.
func (m *LinkMonitorService) updateHeartbeat(hb *models.LinkHeartbeat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	vest, exists := m.vests[hb.DeviceID]
	if !exists {
		vest = &models.VestLink{
			DeviceID: hb.DeviceID,
			Status:   models.LinkOnline,
		}
		m.vests[hb.DeviceID] = vest
		m.logger.Info("New vest registered for link monitoring",
			zap.String("device_id", hb.DeviceID))
	}

	wasTimeout := vest.Status == models.LinkTimeout

	vest.LastHeartbeat = hb
	vest.LastSeen = now
	vest.Status = models.LinkOnline

	m.logger.Debug("Heartbeat received",
		zap.String("device_id", hb.DeviceID),
		zap.Bool("radio_connected", hb.RadioConnected),
		zap.Int("battery_percent", hb.BatteryPercent),
		zap.Int64("uptime_ms", hb.UptimeMs))

	if wasTimeout {
		downDuration := now.Sub(vest.TimeoutAt)
		m.logger.Info("Vest link recovered",
			zap.String("device_id", hb.DeviceID),
			zap.Duration("down_duration", downDuration))

		if err := m.telegramService.SendLinkRecoveryAlert(hb.DeviceID, downDuration); err != nil {
			m.logger.Error("Failed to send link recovery alert",
				zap.String("device_id", hb.DeviceID),
				zap.Error(err))
		}
	}
}

// runTimeoutChecker periodically sweeps for silent vests.
func (m *LinkMonitorService) runTimeoutChecker(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Link timeout checker started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Link timeout checker stopped")
			return
		case <-ticker.C:
			m.checkTimeouts()
		}
	}
}

// checkTimeouts flags every vest whose heartbeat is overdue.
func (m *LinkMonitorService) checkTimeouts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	timeoutDuration := time.Duration(m.config.LinkTimeoutSeconds) * time.Second

	for deviceID, vest := range m.vests {
		if vest.Status == models.LinkTimeout {
			continue
		}

		timeSinceLastSeen := now.Sub(vest.LastSeen)
		if timeSinceLastSeen > timeoutDuration {
			m.logger.Warn("Vest link timeout detected",
				zap.String("device_id", deviceID),
				zap.Time("last_seen", vest.LastSeen),
				zap.Duration("time_since_last_seen", timeSinceLastSeen))

			vest.Status = models.LinkTimeout
			vest.TimeoutAt = now

			if err := m.telegramService.SendLinkTimeoutAlert(
				deviceID,
				vest.LastSeen,
				timeSinceLastSeen,
				vest.LastHeartbeat,
			); err != nil {
				m.logger.Error("Failed to send link timeout alert",
					zap.String("device_id", deviceID),
					zap.Error(err))
			}
		}
	}
}

// GetVestLink returns the current link state of a vest.
func (m *LinkMonitorService) GetVestLink(deviceID string) (*models.VestLink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vest, exists := m.vests[deviceID]
	return vest, exists
}
