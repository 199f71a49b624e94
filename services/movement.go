package services

import (
	"math"

	"hachi/models"
)

// movementWindowSize is the number of magnitude deltas kept for smoothing.
const movementWindowSize = 10

// baseMovementThreshold is the smoothed-delta level that counts as movement.
const baseMovementThreshold = 0.15

// Human-readable movement trend labels shown by the dashboard.
const (
	TrendActive = "Active Movement Detected"
	TrendRest   = "Subject at Rest"
)

// MovementFilter smooths accelerometer magnitude changes over a bounded
// rolling window. Owned by a single MonitorSession; RecordSample is a
// read-modify-write and must not be called concurrently.
type MovementFilter struct {
	history       []float64
	prevMagnitude float64
	hasPrev       bool
}

// NewMovementFilter creates an empty movement filter.
func NewMovementFilter() *MovementFilter {
	return &MovementFilter{
		history: make([]float64, 0, movementWindowSize),
	}
}

// RecordSample ingests one accelerometer magnitude and returns the mean of the
// absolute deltas currently held. The previous magnitude is updated
// unconditionally, so the very first sample contributes a delta against zero.
func (f *MovementFilter) RecordSample(magnitude float64) float64 {
	delta := math.Abs(magnitude - f.prevMagnitude)
	f.prevMagnitude = magnitude
	f.hasPrev = true

	if len(f.history) >= movementWindowSize {
		f.history = f.history[1:]
	}
	f.history = append(f.history, delta)

	sum := 0.0
	for _, d := range f.history {
		sum += d
	}
	return sum / float64(len(f.history))
}

// WindowLen reports how many deltas the window currently holds.
func (f *MovementFilter) WindowLen() int {
	return len(f.history)
}

// ActivityModeController is the two-state REST/ACTIVE machine driven by the
// smoothed movement signal. Leaving ACTIVE requires settling well below the
// trigger level so the mode does not flap around the threshold.
type ActivityModeController struct {
	mode        models.ActivityMode
	autoEnabled bool
	lastAvg     float64
}

// NewActivityModeController creates a controller in REST mode.
func NewActivityModeController(autoEnabled bool) *ActivityModeController {
	return &ActivityModeController{
		mode:        models.ModeRest,
		autoEnabled: autoEnabled,
	}
}

// Mode returns the current activity mode.
func (c *ActivityModeController) Mode() models.ActivityMode {
	return c.mode
}

// SetMode forces the mode, regardless of auto-mode. Used by the dashboard's
// manual rest/active toggle.
func (c *ActivityModeController) SetMode(mode models.ActivityMode) {
	c.mode = mode
}

// SetAutoEnabled switches automatic mode transitions on or off.
func (c *ActivityModeController) SetAutoEnabled(enabled bool) {
	c.autoEnabled = enabled
}

// AutoEnabled reports whether automatic transitions are on.
func (c *ActivityModeController) AutoEnabled() bool {
	return c.autoEnabled
}

// Threshold returns the effective movement threshold: the base level at rest,
// lowered to 70% of base while active.
func (c *ActivityModeController) Threshold() float64 {
	if c.mode == models.ModeActive {
		return baseMovementThreshold * 0.7
	}
	return baseMovementThreshold
}

// Evaluate feeds one smoothed movement value through the state machine and
// returns the (possibly updated) mode. With auto-mode off it only records the
// signal; the mode then changes through SetMode alone.
func (c *ActivityModeController) Evaluate(avgMovement float64) models.ActivityMode {
	c.lastAvg = avgMovement
	threshold := c.Threshold()

	if !c.autoEnabled {
		return c.mode
	}

	switch c.mode {
	case models.ModeRest:
		if avgMovement > threshold {
			c.mode = models.ModeActive
		}
	case models.ModeActive:
		// Settle condition: half the (already lowered) threshold.
		if avgMovement < threshold*0.5 {
			c.mode = models.ModeRest
		}
	}

	return c.mode
}

// Trend returns the human-readable movement trend for the last evaluation.
func (c *ActivityModeController) Trend() string {
	if c.lastAvg > c.Threshold() {
		return TrendActive
	}
	return TrendRest
}
