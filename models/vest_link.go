package models

import (
	"time"
)

// VestLinkStatus represents the wireless link state of a vest.
type VestLinkStatus string

const (
	LinkOnline  VestLinkStatus = "online"
	LinkTimeout VestLinkStatus = "timeout"
)

// LinkHeartbeat is the periodic liveness frame a vest publishes alongside its
// telemetry characteristics.
type LinkHeartbeat struct {
	DeviceID       string    `json:"device_id"`
	Timestamp      time.Time `json:"timestamp"`
	RadioConnected bool      `json:"radio_connected"`
	UptimeMs       int64     `json:"uptime_ms"`
	BatteryPercent int       `json:"battery_percent"`
	FirmwareRev    string    `json:"firmware_rev"`
}

// VestLink tracks the liveness state of one vest between heartbeats.
type VestLink struct {
	DeviceID      string
	LastHeartbeat *LinkHeartbeat
	LastSeen      time.Time
	Status        VestLinkStatus
	TimeoutAt     time.Time // when the link timed out, if it did
}
