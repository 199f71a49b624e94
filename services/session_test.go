package services

import (
	"testing"

	"hachi/config"
	"hachi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(t *testing.T) *MonitorSession {
	t.Helper()

	cfg := &config.Config{
		Breed:           "labrador",
		Size:            "large",
		AgeYears:        5,
		WeightKg:        30,
		AutoModeEnabled: true,
	}

	session, err := NewMonitorSession(cfg, zap.NewNop())
	require.NoError(t, err)
	return session
}

func TestNewMonitorSession_UnknownBreedFails(t *testing.T) {
	cfg := &config.Config{
		Breed:    "wolf",
		Size:     "large",
		AgeYears: 5,
	}

	_, err := NewMonitorSession(cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBreed)
}

func TestSession_BinaryTemperatureEndToEnd(t *testing.T) {
	session := newTestSession(t)

	// 101.5/101.7 averages to 101.6, inside the labrador rest range.
	eval, err := session.HandleCharacteristicFrame(CharTemperature, tempFrame(101.5, 101.7), "VEST-1")
	require.NoError(t, err)

	require.NotNil(t, eval.Sample.TemperatureAvg)
	assert.InDelta(t, 101.6, *eval.Sample.TemperatureAvg, 0.001)
	assert.InDelta(t, 0.2, *eval.Sample.TemperatureDiff, 0.001)

	require.NotNil(t, eval.TemperatureStatus)
	assert.Equal(t, models.StatusNormal, *eval.TemperatureStatus)
	assert.Empty(t, eval.Alerts)
	assert.Equal(t, models.ModeRest, eval.Mode)
}

func TestSession_BinaryTemperatureFeverAlert(t *testing.T) {
	session := newTestSession(t)

	eval, err := session.HandleCharacteristicFrame(CharTemperature, tempFrame(104.5, 104.7), "VEST-1")
	require.NoError(t, err)

	require.NotNil(t, eval.TemperatureStatus)
	assert.Equal(t, models.StatusAlert, *eval.TemperatureStatus)

	require.Len(t, eval.Alerts, 1)
	assert.Equal(t, models.MetricTemperature, eval.Alerts[0].Metric)
	assert.Equal(t, models.StatusAlert, eval.Alerts[0].Level)
}

func TestSession_PPGClassifiedAgainstProfile(t *testing.T) {
	session := newTestSession(t)

	// Raw 500 estimates 60 BPM, the bottom of the large-dog rest range.
	eval, err := session.HandleCharacteristicFrame(CharPPG, []byte{0xF4, 0x01}, "VEST-1")
	require.NoError(t, err)

	require.NotNil(t, eval.HeartRateStatus)
	assert.Equal(t, models.StatusNormal, *eval.HeartRateStatus)
	assert.Equal(t, models.SignalGood, eval.Sample.SignalQuality)
}

func TestSession_JSONHeartRateAlertIgnoresProfile(t *testing.T) {
	session := newTestSession(t)

	eval, err := session.HandleJSONFrame([]byte(`{"heartRate": 30}`), "VEST-1")
	require.NoError(t, err)

	require.NotNil(t, eval.HeartRateStatus)
	assert.Equal(t, models.StatusAlert, *eval.HeartRateStatus)

	require.Len(t, eval.Alerts, 1)
	assert.Equal(t, models.MetricHeartRate, eval.Alerts[0].Metric)
	// The fixed cutoffs apply, not the breed profile range.
	assert.Equal(t, models.HealthRange{Min: 60, Max: 180}, eval.Alerts[0].Range)
}

func TestSession_MalformedJSONLeavesStateAlone(t *testing.T) {
	session := newTestSession(t)

	before := session.Mode()

	_, err := session.HandleJSONFrame([]byte("not json"), "VEST-1")
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, before, session.Mode())
}

func TestSession_MovementDrivesModeAndRangeSelection(t *testing.T) {
	session := newTestSession(t)

	// Alternate magnitudes hard enough to push the smoothed delta over 0.15.
	mags := []float32{0.0, 1.0, 0.0, 1.0, 0.0, 1.0}
	for _, mag := range mags {
		_, err := session.HandleCharacteristicFrame(CharAccel, accelFrame(0, 0, mag, mag), "VEST-1")
		require.NoError(t, err)
	}
	require.Equal(t, models.ModeActive, session.Mode())

	// 60 BPM is normal at rest for a large dog but below the active range.
	eval, err := session.HandleCharacteristicFrame(CharPPG, []byte{0xF4, 0x01}, "VEST-1")
	require.NoError(t, err)
	require.NotNil(t, eval.HeartRateStatus)
	assert.NotEqual(t, models.StatusNormal, *eval.HeartRateStatus)
}

func TestSession_ManualModeOverride(t *testing.T) {
	session := newTestSession(t)
	session.SetAutoMode(false)

	session.SetMode(models.ModeActive)
	assert.Equal(t, models.ModeActive, session.Mode())

	// Still-air accel frames must not flip the mode with auto off.
	for i := 0; i < 12; i++ {
		_, err := session.HandleCharacteristicFrame(CharAccel, accelFrame(0, 0, 1.0, 1.0), "VEST-1")
		require.NoError(t, err)
	}
	assert.Equal(t, models.ModeActive, session.Mode())
}

func TestSession_ApplyProfileSwapsRangesAtomically(t *testing.T) {
	session := newTestSession(t)
	original := session.Ranges()

	// A bad edit leaves the old snapshot in place.
	err := session.ApplyProfile(models.VestProfile{Breed: "wolf", Size: "large", AgeYears: 5})
	require.Error(t, err)
	assert.Equal(t, original, session.Ranges())

	// A good edit swaps in the new snapshot.
	err = session.ApplyProfile(models.VestProfile{Breed: models.BreedChihuahua, Size: models.SizeSmall, AgeYears: 1})
	require.NoError(t, err)

	updated := session.Ranges()
	assert.NotEqual(t, original, updated)
	// Small senior/puppy resting bounds: 90-140 plus the +10 age adjustment.
	assert.Equal(t, 100.0, updated.HRRest.Min)
	assert.Equal(t, 150.0, updated.HRRest.Max)
}

func TestSession_InterleavedCharacteristics(t *testing.T) {
	session := newTestSession(t)

	// A PPG frame between two accel frames only touches its own fields.
	_, err := session.HandleCharacteristicFrame(CharAccel, accelFrame(0, 0, 1.0, 1.0), "VEST-1")
	require.NoError(t, err)

	eval, err := session.HandleCharacteristicFrame(CharPPG, []byte{0xF4, 0x01}, "VEST-1")
	require.NoError(t, err)
	assert.Nil(t, eval.Sample.AccelMagnitude)

	eval, err = session.HandleCharacteristicFrame(CharAccel, accelFrame(0, 0, 1.0, 1.0), "VEST-1")
	require.NoError(t, err)
	assert.Nil(t, eval.Sample.PPGRaw)
	assert.NotNil(t, eval.Sample.AccelMagnitude)
}
