package services

import (
	"context"
	"fmt"
	"time"

	"hachi/config"
	"hachi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// telemetryPath is the RTDB node holding evaluated telemetry records.
const telemetryPath = "vest-telemetry"

// FirebaseService persists evaluated telemetry for the dashboard's history
// charts and serves latest-record queries for tooling.
type FirebaseService struct {
	client *db.Client
	config *config.Config
	logger *zap.Logger
}

// NewFirebaseService builds the RTDB client from the service account in config.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	ctx := context.Background()

	serviceAccountJSON := []byte(cfg.FirebaseServiceAccountJSON)

	conf := &firebase.Config{
		DatabaseURL: cfg.FirebaseDbUrl,
	}

	opt := option.WithCredentialsJSON(serviceAccountJSON)
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %v", err)
	}

	fs := &FirebaseService{
		client: client,
		config: cfg,
		logger: logger,
	}

	if err := fs.testConnection(); err != nil {
		logger.Error("Firebase connection test failed", zap.Error(err))
		return nil, fmt.Errorf("firebase connection test failed: %v", err)
	}

	return fs, nil
}

// testConnection tests the Firebase connection with retry.
func (fs *FirebaseService) testConnection() error {
	ctx := context.Background()
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		fs.logger.Info("Testing Firebase connection", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries))

		ref := fs.client.NewRef("/")
		var data interface{}
		err := ref.Get(ctx, &data)

		if err == nil {
			fs.logger.Info("Firebase connection successful")
			return nil
		}

		fs.logger.Warn("Firebase connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to Firebase after %d attempts", maxRetries)
}

// WriteBatch pushes a batch of telemetry records under the telemetry node.
func (fs *FirebaseService) WriteBatch(ctx context.Context, records []*models.TelemetryRecord) error {
	ref := fs.client.NewRef(telemetryPath)

	for _, record := range records {
		if _, err := ref.Push(ctx, record); err != nil {
			return fmt.Errorf("error pushing telemetry record: %w", err)
		}
	}

	fs.logger.Debug("Wrote telemetry batch",
		zap.Int("record_count", len(records)))

	return nil
}

// GetLatestTelemetry retrieves the most recent record for a device.
func (fs *FirebaseService) GetLatestTelemetry(ctx context.Context, deviceID string) (*models.TelemetryRecord, error) {
	ref := fs.client.NewRef(telemetryPath)

	var data map[string]models.TelemetryRecord
	if err := ref.Get(ctx, &data); err != nil {
		return nil, fmt.Errorf("error getting telemetry records: %v", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no data found")
	}

	var latest *models.TelemetryRecord
	var latestTime time.Time

	for id := range data {
		record := data[id]
		if record.DeviceID != deviceID {
			continue
		}
		if latest == nil || record.Timestamp.After(latestTime) {
			latest = &record
			latestTime = record.Timestamp
		}
	}

	if latest == nil {
		return nil, fmt.Errorf("no data found for device %s", deviceID)
	}

	return latest, nil
}

// GetAllTelemetry retrieves every stored record, keyed by push ID.
func (fs *FirebaseService) GetAllTelemetry(ctx context.Context) (map[string]models.TelemetryRecord, error) {
	ref := fs.client.NewRef(telemetryPath)

	var data map[string]models.TelemetryRecord
	if err := ref.Get(ctx, &data); err != nil {
		return nil, fmt.Errorf("error getting telemetry records: %v", err)
	}

	return data, nil
}

// Close closes the Firebase connection.
func (fs *FirebaseService) Close() error {
	fs.logger.Info("Closing Firebase service")
	// The RTDB client has no explicit close; logged for shutdown tracing.
	return nil
}
