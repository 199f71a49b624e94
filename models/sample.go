package models

import (
	"time"
)

// Protocol identifies which vest transport a sample came from. The binary
// protocol delivers fixed-layout characteristic frames; the JSON protocol
// delivers sparse objects with named fields.
type Protocol string

const (
	ProtocolBinary Protocol = "binary"
	ProtocolJSON   Protocol = "json"
)

// Metric names a classified vital sign.
type Metric string

const (
	MetricTemperature     Metric = "temperature"
	MetricHeartRate       Metric = "heart_rate"
	MetricRespiratoryRate Metric = "respiratory_rate"
)

// StatusLevel is the three-level health classification for a single metric.
type StatusLevel string

const (
	StatusNormal  StatusLevel = "normal"
	StatusMonitor StatusLevel = "monitor"
	StatusAlert   StatusLevel = "alert"
)

// ActivityMode is the coarse activity state selecting which normal range applies.
type ActivityMode string

const (
	ModeRest   ActivityMode = "rest"
	ModeActive ActivityMode = "active"
)

// SignalQuality labels for the raw PPG reading.
const (
	SignalGood = "Good"
	SignalPoor = "Poor"
)

// VitalSample is one normalized reading decoded from a vest frame. Fields are
// pointers because no frame carries every metric: the binary protocol sends one
// characteristic per frame and the JSON protocol sends a sparse object. A nil
// field means the frame did not carry that metric.
type VitalSample struct {
	DeviceID  string    `json:"device_id"`
	Protocol  Protocol  `json:"protocol"`
	Timestamp time.Time `json:"timestamp"`

	// Binary temperature characteristic (two sensors, degrees Fahrenheit).
	Temperature1    *float64 `json:"temperature_1,omitempty"`
	Temperature2    *float64 `json:"temperature_2,omitempty"`
	TemperatureAvg  *float64 `json:"temperature_avg,omitempty"`
	TemperatureDiff *float64 `json:"temperature_diff,omitempty"`

	// Binary PPG characteristic.
	PPGRaw            *int   `json:"ppg_raw,omitempty"`
	HeartRateEstimate *int   `json:"heart_rate_estimate,omitempty"`
	SignalQuality     string `json:"signal_quality,omitempty"`

	// Accelerometer (binary characteristic or JSON fields, g units).
	AccelX         *float64 `json:"accel_x,omitempty"`
	AccelY         *float64 `json:"accel_y,omitempty"`
	AccelZ         *float64 `json:"accel_z,omitempty"`
	AccelMagnitude *float64 `json:"accel_magnitude,omitempty"`

	// JSON protocol fields.
	HeartRate       *float64 `json:"heart_rate,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	RespiratoryRate *float64 `json:"respiratory_rate,omitempty"`
	ActivityLevel   *float64 `json:"activity_level,omitempty"`
	Steps           *int     `json:"steps,omitempty"`
	StretchPercent  *float64 `json:"stretch_percent,omitempty"`
}

// HasAccel reports whether the sample carries an accelerometer magnitude.
func (s *VitalSample) HasAccel() bool {
	return s.AccelMagnitude != nil
}

// Float64Ptr returns a pointer to v. Convenience for building sparse samples.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
