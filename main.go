package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hachi/config"
	"hachi/log"
	"hachi/models"
	"hachi/services"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// The monitoring session owns the movement window, activity mode, and the
	// active threshold snapshot. A bad breed/size in the env fails here, before
	// any frame is classified.
	session, err := services.NewMonitorSession(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build monitoring session", zap.Error(err))
	}

	// Initialize collaborators
	firebaseService, err := services.NewFirebaseService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase service", zap.Error(err))
	}
	defer firebaseService.Close()

	telegramService, err := services.NewTelegramService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram service", zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Processing channels
	charFrameChan := make(chan *services.CharacteristicFrame, 100)
	telemetryFrameChan := make(chan *services.TelemetryFrame, 100)
	heartbeatChan := make(chan *models.LinkHeartbeat, 10)
	recordChan := make(chan *models.TelemetryRecord, 100)

	mqttService, err := services.NewMQTTService(cfg, logger, charFrameChan, heartbeatChan)
	if err != nil {
		logger.Fatal("Failed to initialize MQTT service", zap.Error(err))
	}
	defer mqttService.Close()

	rabbitService, err := services.NewRabbitMQService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ service", zap.Error(err))
	}
	defer rabbitService.Close()

	linkMonitor := services.NewLinkMonitorService(cfg, telegramService, logger)
	batchWriter := services.NewBatchWriterService(cfg, firebaseService, logger)

	// Send startup notification
	if err := telegramService.SendStartupMessage(); err != nil {
		logger.Warn("Failed to send startup message", zap.Error(err))
	}

	ranges := session.Ranges()
	logger.Info("HACHI Vest Monitoring Service started",
		zap.String("breed", cfg.Breed),
		zap.String("size", cfg.Size),
		zap.Int("age_years", cfg.AgeYears),
		zap.Bool("auto_mode", cfg.AutoModeEnabled),
		zap.Float64("temp_rest_min", ranges.TempRest.Min),
		zap.Float64("temp_rest_max", ranges.TempRest.Max),
		zap.Float64("hr_rest_min", ranges.HRRest.Min),
		zap.Float64("hr_rest_max", ranges.HRRest.Max),
	)

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping services")
		cancel()
	}()

	// Start collaborator loops
	go func() {
		if err := rabbitService.Consume(ctx, telemetryFrameChan); err != nil {
			logger.Error("RabbitMQ consumer stopped", zap.Error(err))
		}
	}()
	go linkMonitor.Start(ctx, heartbeatChan)
	go batchWriter.Start(ctx, recordChan)

	logger.Info("Monitoring started, waiting for vest frames")

	// Single processing loop: every frame goes through the session here, so
	// the movement window and mode state never see concurrent writers.
	for {
		select {
		case <-ctx.Done():
			shutdown(logger, batchWriter)
			return

		case frame := <-charFrameChan:
			eval, err := session.HandleCharacteristicFrame(frame.Characteristic, frame.Payload, frame.DeviceID)
			if err != nil {
				// Already logged with the raw payload; drop and continue.
				continue
			}
			dispatch(logger, telegramService, recordChan, eval)

		case frame := <-telemetryFrameChan:
			eval, err := session.HandleJSONFrame(frame.Payload, frame.DeviceID)
			if err != nil {
				continue
			}
			dispatch(logger, telegramService, recordChan, eval)
		}
	}
}

// dispatch fans one evaluation out to the notifier and the persistence path.
// The alert side effect lives here, outside the classification logic.
func dispatch(logger *zap.Logger, telegram *services.TelegramService, recordChan chan<- *models.TelemetryRecord, eval *services.Evaluation) {
	if len(eval.Alerts) > 0 {
		logger.Warn("Out-of-range vitals detected",
			zap.String("device_id", eval.Sample.DeviceID),
			zap.Int("alert_count", len(eval.Alerts)),
			zap.String("mode", string(eval.Mode)))

		if err := telegram.SendVitalAlerts(eval.Alerts, eval); err != nil {
			logger.Error("Failed to send Telegram alert",
				zap.String("device_id", eval.Sample.DeviceID),
				zap.Error(err))
		}
	}

	select {
	case recordChan <- eval.ToRecord():
	default:
		logger.Warn("Record channel full, dropping telemetry record",
			zap.String("device_id", eval.Sample.DeviceID))
	}
}

// shutdown flushes the batch writer before exit.
func shutdown(logger *zap.Logger, batchWriter *services.BatchWriterService) {
	logger.Info("Starting cleanup")

	if batchWriter.WaitForShutdown(5 * time.Second) {
		logger.Info("Cleanup completed successfully")
	} else {
		logger.Warn("Cleanup timeout, forcing exit")
	}

	logger.Info("HACHI Vest Monitoring Service stopped")
}
