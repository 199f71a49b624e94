package models

import (
	"time"
)

// VitalAlert is one classified out-of-range reading handed to the notifier.
type VitalAlert struct {
	Metric      Metric       `json:"metric"`
	Protocol    Protocol     `json:"protocol"`
	Level       StatusLevel  `json:"level"`
	Value       float64      `json:"value"`
	Range       HealthRange  `json:"range"`
	Mode        ActivityMode `json:"mode"`
	DeviceID    string       `json:"device_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Description string       `json:"description"`
}

// GetMetricEmoji returns the emoji used for this metric in Telegram messages.
func (a *VitalAlert) GetMetricEmoji() string {
	switch a.Metric {
	case MetricTemperature:
		return "🌡️"
	case MetricHeartRate:
		return "❤️"
	case MetricRespiratoryRate:
		return "🫁"
	default:
		return "⚠️"
	}
}

// GetSeverityColor returns the status color indicator for Telegram formatting.
func (a *VitalAlert) GetSeverityColor() string {
	switch a.Level {
	case StatusAlert:
		return "🔴"
	case StatusMonitor:
		return "🟡"
	default:
		return "🟢"
	}
}
