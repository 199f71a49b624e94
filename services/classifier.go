package services

import (
	"fmt"

	"hachi/models"
)

// Tolerance widens a normal range into the monitor band: values beyond the
// band on either side are alerts, values between the range edge and the band
// are monitor-level.
type Tolerance struct {
	AlertBelow float64 // subtracted from Range.Min for the alert cutoff
	AlertAbove float64 // added to Range.Max for the alert cutoff
}

// profileTolerances are the bands applied around the profile-derived ranges
// for binary-protocol values.
var profileTolerances = map[models.Metric]Tolerance{
	models.MetricTemperature: {AlertBelow: 1.0, AlertAbove: 1.0},
	models.MetricHeartRate:   {AlertBelow: 10.0, AlertAbove: 10.0},
}

type fixedCutoff struct {
	normal models.HealthRange
	tol    Tolerance
}

// jsonCutoffs are the absolute cutoffs used by the JSON protocol. They are
// deliberately independent of the breed profile: the JSON vest reports already
// calibrated physiological units.
//
//	heart rate:   warning <60 or >180, danger <40 or >250
//	temperature:  warning <38.0 or >39.5 C, danger <37.2 or >40.0 C
//	respiration:  warning <10 or >40, danger <8 or >80
var jsonCutoffs = map[models.Metric]fixedCutoff{
	models.MetricHeartRate: {
		normal: models.HealthRange{Min: 60, Max: 180},
		tol:    Tolerance{AlertBelow: 20, AlertAbove: 70},
	},
	models.MetricTemperature: {
		normal: models.HealthRange{Min: 38.0, Max: 39.5},
		tol:    Tolerance{AlertBelow: 0.8, AlertAbove: 0.5},
	},
	models.MetricRespiratoryRate: {
		normal: models.HealthRange{Min: 10, Max: 40},
		tol:    Tolerance{AlertBelow: 2, AlertAbove: 40},
	},
}

// StatusClassifier maps a metric value and its applicable range to a status
// level. It is pure: the temperature-danger notification side effect belongs
// to the caller, never here.
type StatusClassifier struct{}

// NewStatusClassifier creates a new status classifier.
func NewStatusClassifier() *StatusClassifier {
	return &StatusClassifier{}
}

// Classify returns NORMAL inside the range, ALERT beyond the tolerance band
// on either side, MONITOR in between.
func (c *StatusClassifier) Classify(value float64, rng models.HealthRange, tol Tolerance) models.StatusLevel {
	if rng.Contains(value) {
		return models.StatusNormal
	}
	if value < rng.Min-tol.AlertBelow || value > rng.Max+tol.AlertAbove {
		return models.StatusAlert
	}
	return models.StatusMonitor
}

// ClassifyProfile classifies a binary-protocol value against a profile-derived
// range using the band for the given metric.
func (c *StatusClassifier) ClassifyProfile(metric models.Metric, value float64, rng models.HealthRange) (models.StatusLevel, error) {
	tol, ok := profileTolerances[metric]
	if !ok {
		return "", fmt.Errorf("no profile tolerance for metric %q", metric)
	}
	return c.Classify(value, rng, tol), nil
}

// ClassifyFixed classifies a JSON-protocol value against the fixed cutoffs
// for the given metric.
func (c *StatusClassifier) ClassifyFixed(metric models.Metric, value float64) (models.StatusLevel, error) {
	cut, ok := jsonCutoffs[metric]
	if !ok {
		return "", fmt.Errorf("no fixed cutoff for metric %q", metric)
	}
	return c.Classify(value, cut.normal, cut.tol), nil
}

// FixedRange exposes the JSON-protocol normal range for a metric, for alert
// descriptions and the dashboard readouts.
func (c *StatusClassifier) FixedRange(metric models.Metric) (models.HealthRange, bool) {
	cut, ok := jsonCutoffs[metric]
	return cut.normal, ok
}
