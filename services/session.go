package services

import (
	"fmt"
	"time"

	"hachi/config"
	"hachi/models"

	"go.uber.org/zap"
)

// Evaluation is the outcome of processing one frame: the decoded sample, the
// per-metric statuses, and the activity state after the movement update.
// Status fields are nil for metrics the frame did not carry.
type Evaluation struct {
	Sample *models.VitalSample

	TemperatureStatus *models.StatusLevel
	HeartRateStatus   *models.StatusLevel
	RespiratoryStatus *models.StatusLevel

	Mode          models.ActivityMode
	MovementTrend string
	AvgMovement   float64

	// Alerts collects every non-normal classification for the caller to
	// notify on. The session never talks to the notifier itself.
	Alerts []*models.VitalAlert
}

// ToRecord flattens the evaluation into its persisted form.
func (e *Evaluation) ToRecord() *models.TelemetryRecord {
	record := &models.TelemetryRecord{
		DeviceID:      e.Sample.DeviceID,
		Protocol:      e.Sample.Protocol,
		Timestamp:     e.Sample.Timestamp,
		Sample:        *e.Sample,
		Mode:          e.Mode,
		MovementTrend: e.MovementTrend,
		AvgMovement:   e.AvgMovement,
	}
	if e.TemperatureStatus != nil {
		record.TemperatureStatus = *e.TemperatureStatus
	}
	if e.HeartRateStatus != nil {
		record.HeartRateStatus = *e.HeartRateStatus
	}
	if e.RespiratoryStatus != nil {
		record.RespiratoryStatus = *e.RespiratoryStatus
	}
	return record
}

// MonitorSession owns all per-session state: the movement window, the
// activity mode, and the active threshold snapshot. One session per vest, all
// frames handled from a single goroutine (frame handling is a read-modify-
// write sequence; callers running workers must serialize through a queue).
type MonitorSession struct {
	profile    models.VestProfile
	ranges     *models.RangeSet
	profileSvc *RangeProfileService
	decoder    *FrameDecoder
	classifier *StatusClassifier
	filter     *MovementFilter
	modes      *ActivityModeController
	logger     *zap.Logger
}

// NewMonitorSession builds a session for the profile configured in cfg. It
// fails if the profile references an unknown breed or size, so no sample is
// ever classified against ranges that never computed.
func NewMonitorSession(cfg *config.Config, logger *zap.Logger) (*MonitorSession, error) {
	profile := models.VestProfile{
		Breed:    models.Breed(cfg.Breed),
		Size:     models.SizeCategory(cfg.Size),
		AgeYears: cfg.AgeYears,
		WeightKg: cfg.WeightKg,
	}

	s := &MonitorSession{
		profile:    profile,
		profileSvc: NewRangeProfileService(),
		decoder:    NewFrameDecoder(LinearPPGEstimator{}),
		classifier: NewStatusClassifier(),
		filter:     NewMovementFilter(),
		modes:      NewActivityModeController(cfg.AutoModeEnabled),
		logger:     logger,
	}

	ranges, err := s.profileSvc.ComputeRanges(profile)
	if err != nil {
		return nil, fmt.Errorf("invalid vest profile: %w", err)
	}
	s.ranges = ranges

	return s, nil
}

// ApplyProfile recomputes the threshold snapshot for an edited profile. On
// error the previous snapshot stays active; the swap is all or nothing.
func (s *MonitorSession) ApplyProfile(profile models.VestProfile) error {
	ranges, err := s.profileSvc.ComputeRanges(profile)
	if err != nil {
		return err
	}
	s.profile = profile
	s.ranges = ranges

	s.logger.Info("Vest profile applied",
		zap.String("breed", string(profile.Breed)),
		zap.String("size", string(profile.Size)),
		zap.Int("age_years", profile.AgeYears),
		zap.Float64("hr_rest_min", ranges.HRRest.Min),
		zap.Float64("hr_rest_max", ranges.HRRest.Max),
		zap.Float64("temp_rest_min", ranges.TempRest.Min),
		zap.Float64("temp_rest_max", ranges.TempRest.Max))
	return nil
}

// Ranges returns the active threshold snapshot.
func (s *MonitorSession) Ranges() *models.RangeSet {
	return s.ranges
}

// Mode returns the current activity mode.
func (s *MonitorSession) Mode() models.ActivityMode {
	return s.modes.Mode()
}

// SetMode applies a manual rest/active override from the dashboard.
func (s *MonitorSession) SetMode(mode models.ActivityMode) {
	s.modes.SetMode(mode)
	s.logger.Info("Activity mode set manually", zap.String("mode", string(mode)))
}

// SetAutoMode toggles automatic movement-driven transitions.
func (s *MonitorSession) SetAutoMode(enabled bool) {
	s.modes.SetAutoEnabled(enabled)
	s.logger.Info("Auto mode toggled", zap.Bool("enabled", enabled))
}

// HandleCharacteristicFrame processes one binary frame. A malformed frame is
// logged with its raw payload and dropped; the error is returned for counting
// but session state is untouched.
func (s *MonitorSession) HandleCharacteristicFrame(char Characteristic, payload []byte, deviceID string) (*Evaluation, error) {
	sample, err := s.decoder.DecodeCharacteristic(char, payload, deviceID, time.Now())
	if err != nil {
		s.logger.Warn("Dropping malformed characteristic frame",
			zap.String("characteristic", string(char)),
			zap.String("device_id", deviceID),
			zap.Binary("payload", payload),
			zap.Error(err))
		return nil, err
	}

	eval := s.newEvaluation(sample)

	if sample.AccelMagnitude != nil {
		s.updateMovement(eval, *sample.AccelMagnitude)
	}

	if sample.TemperatureAvg != nil {
		rng := s.ranges.TempFor(s.modes.Mode())
		status, err := s.classifier.ClassifyProfile(models.MetricTemperature, *sample.TemperatureAvg, rng)
		if err != nil {
			return nil, err
		}
		eval.TemperatureStatus = &status
		s.collectAlert(eval, models.MetricTemperature, *sample.TemperatureAvg, rng, status)
	}

	if sample.HeartRateEstimate != nil {
		rng := s.ranges.HRFor(s.modes.Mode())
		status, err := s.classifier.ClassifyProfile(models.MetricHeartRate, float64(*sample.HeartRateEstimate), rng)
		if err != nil {
			return nil, err
		}
		eval.HeartRateStatus = &status
		s.collectAlert(eval, models.MetricHeartRate, float64(*sample.HeartRateEstimate), rng, status)
	}

	eval.Mode = s.modes.Mode()
	eval.MovementTrend = s.modes.Trend()

	s.logger.Debug("Characteristic frame processed",
		zap.String("characteristic", string(char)),
		zap.String("device_id", sample.DeviceID),
		zap.String("mode", string(eval.Mode)))

	return eval, nil
}

// HandleJSONFrame processes one JSON-protocol frame. Classification uses the
// fixed per-metric cutoffs, never the breed profile.
func (s *MonitorSession) HandleJSONFrame(payload []byte, deviceID string) (*Evaluation, error) {
	sample, err := s.decoder.DecodeJSON(payload, deviceID, time.Now())
	if err != nil {
		s.logger.Warn("Dropping malformed telemetry payload",
			zap.String("device_id", deviceID),
			zap.ByteString("payload", payload),
			zap.Error(err))
		return nil, err
	}

	eval := s.newEvaluation(sample)

	if sample.AccelMagnitude != nil {
		s.updateMovement(eval, *sample.AccelMagnitude)
	}

	if sample.HeartRate != nil {
		status, err := s.classifier.ClassifyFixed(models.MetricHeartRate, *sample.HeartRate)
		if err != nil {
			return nil, err
		}
		eval.HeartRateStatus = &status
		rng, _ := s.classifier.FixedRange(models.MetricHeartRate)
		s.collectAlert(eval, models.MetricHeartRate, *sample.HeartRate, rng, status)
	}

	if sample.TemperatureC != nil {
		status, err := s.classifier.ClassifyFixed(models.MetricTemperature, *sample.TemperatureC)
		if err != nil {
			return nil, err
		}
		eval.TemperatureStatus = &status
		rng, _ := s.classifier.FixedRange(models.MetricTemperature)
		s.collectAlert(eval, models.MetricTemperature, *sample.TemperatureC, rng, status)
	}

	if sample.RespiratoryRate != nil {
		status, err := s.classifier.ClassifyFixed(models.MetricRespiratoryRate, *sample.RespiratoryRate)
		if err != nil {
			return nil, err
		}
		eval.RespiratoryStatus = &status
		rng, _ := s.classifier.FixedRange(models.MetricRespiratoryRate)
		s.collectAlert(eval, models.MetricRespiratoryRate, *sample.RespiratoryRate, rng, status)
	}

	eval.Mode = s.modes.Mode()
	eval.MovementTrend = s.modes.Trend()

	s.logger.Debug("Telemetry frame processed",
		zap.String("device_id", sample.DeviceID),
		zap.String("mode", string(eval.Mode)))

	return eval, nil
}

func (s *MonitorSession) newEvaluation(sample *models.VitalSample) *Evaluation {
	return &Evaluation{
		Sample:        sample,
		Mode:          s.modes.Mode(),
		MovementTrend: s.modes.Trend(),
	}
}

func (s *MonitorSession) updateMovement(eval *Evaluation, magnitude float64) {
	avg := s.filter.RecordSample(magnitude)
	prevMode := s.modes.Mode()
	mode := s.modes.Evaluate(avg)

	eval.AvgMovement = avg

	if mode != prevMode {
		s.logger.Info("Activity mode changed",
			zap.String("from", string(prevMode)),
			zap.String("to", string(mode)),
			zap.Float64("avg_movement", avg))
	}
}

func (s *MonitorSession) collectAlert(eval *Evaluation, metric models.Metric, value float64, rng models.HealthRange, status models.StatusLevel) {
	if status == models.StatusNormal {
		return
	}

	eval.Alerts = append(eval.Alerts, &models.VitalAlert{
		Metric:    metric,
		Protocol:  eval.Sample.Protocol,
		Level:     status,
		Value:     value,
		Range:     rng,
		Mode:      s.modes.Mode(),
		DeviceID:  eval.Sample.DeviceID,
		Timestamp: eval.Sample.Timestamp,
		Description: fmt.Sprintf("%s %.1f outside normal band %.1f-%.1f",
			metric, value, rng.Min, rng.Max),
	})
}
