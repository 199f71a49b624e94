package models

import (
	"time"
)

// TelemetryRecord is the persisted form of one evaluated sample: the decoded
// reading plus the statuses and activity state the dashboard renders.
type TelemetryRecord struct {
	DeviceID  string    `json:"device_id"`
	Protocol  Protocol  `json:"protocol"`
	Timestamp time.Time `json:"timestamp"`

	Sample VitalSample `json:"sample"`

	TemperatureStatus StatusLevel `json:"temperature_status,omitempty"`
	HeartRateStatus   StatusLevel `json:"heart_rate_status,omitempty"`
	RespiratoryStatus StatusLevel `json:"respiratory_status,omitempty"`

	Mode          ActivityMode `json:"mode"`
	MovementTrend string       `json:"movement_trend"`
	AvgMovement   float64      `json:"avg_movement"`
}
