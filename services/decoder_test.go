package services

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"hachi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFrame(t1, t2 float32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(t1))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(t2))
	return buf
}

func accelFrame(x, y, z, mag float32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(z))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(mag))
	return buf
}

func newTestDecoder() *FrameDecoder {
	return NewFrameDecoder(LinearPPGEstimator{})
}

func TestDecodeTemperatureFrame(t *testing.T) {
	d := newTestDecoder()

	sample, err := d.DecodeCharacteristic(CharTemperature, tempFrame(101.5, 101.7), "VEST-1", time.Now())
	require.NoError(t, err)

	require.NotNil(t, sample.Temperature1)
	require.NotNil(t, sample.Temperature2)
	require.NotNil(t, sample.TemperatureAvg)
	require.NotNil(t, sample.TemperatureDiff)

	assert.InDelta(t, 101.5, *sample.Temperature1, 0.001)
	assert.InDelta(t, 101.7, *sample.Temperature2, 0.001)
	assert.InDelta(t, 101.6, *sample.TemperatureAvg, 0.001)
	assert.InDelta(t, 0.2, *sample.TemperatureDiff, 0.001)
	assert.Equal(t, models.ProtocolBinary, sample.Protocol)
}

func TestDecodeTemperatureFrame_WrongLength(t *testing.T) {
	d := newTestDecoder()

	_, err := d.DecodeCharacteristic(CharTemperature, []byte{1, 2, 3}, "VEST-1", time.Now())
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, CharTemperature, decodeErr.Characteristic)
	assert.Equal(t, []byte{1, 2, 3}, decodeErr.Payload)
}

func TestDecodePPGFrame(t *testing.T) {
	d := newTestDecoder()

	// 500 = 0x01F4, little end first.
	sample, err := d.DecodeCharacteristic(CharPPG, []byte{0xF4, 0x01}, "VEST-1", time.Now())
	require.NoError(t, err)

	require.NotNil(t, sample.PPGRaw)
	require.NotNil(t, sample.HeartRateEstimate)
	assert.Equal(t, 500, *sample.PPGRaw)
	assert.Equal(t, 60, *sample.HeartRateEstimate)
	assert.Equal(t, models.SignalGood, sample.SignalQuality)
}

func TestDecodePPGFrame_EstimateAndQuality(t *testing.T) {
	d := newTestDecoder()

	tests := []struct {
		raw     uint16
		wantBPM int
		quality string
	}{
		{600, 70, models.SignalGood},
		{401, 50, models.SignalGood},
		{400, 50, models.SignalPoor}, // band is exclusive
		{700, 80, models.SignalPoor},
		{300, 40, models.SignalPoor},
		{815, 92, models.SignalPoor}, // rounds up from 91.5
	}

	for _, tt := range tests {
		payload := []byte{byte(tt.raw & 0xFF), byte(tt.raw >> 8)}
		sample, err := d.DecodeCharacteristic(CharPPG, payload, "VEST-1", time.Now())
		require.NoError(t, err)
		assert.Equal(t, tt.wantBPM, *sample.HeartRateEstimate, "raw %d", tt.raw)
		assert.Equal(t, tt.quality, sample.SignalQuality, "raw %d", tt.raw)
	}
}

func TestDecodeAccelFrame(t *testing.T) {
	d := newTestDecoder()

	sample, err := d.DecodeCharacteristic(CharAccel, accelFrame(0.1, 0.2, 0.97, 1.0), "VEST-1", time.Now())
	require.NoError(t, err)

	require.True(t, sample.HasAccel())
	assert.InDelta(t, 0.1, *sample.AccelX, 0.001)
	assert.InDelta(t, 0.2, *sample.AccelY, 0.001)
	assert.InDelta(t, 0.97, *sample.AccelZ, 0.001)
	assert.InDelta(t, 1.0, *sample.AccelMagnitude, 0.001)
}

func TestDecodeAccelFrame_DerivesMissingMagnitude(t *testing.T) {
	d := newTestDecoder()

	sample, err := d.DecodeCharacteristic(CharAccel, accelFrame(3, 4, 0, 0), "VEST-1", time.Now())
	require.NoError(t, err)

	require.NotNil(t, sample.AccelMagnitude)
	assert.InDelta(t, 5.0, *sample.AccelMagnitude, 0.001)
}

func TestDecodeCharacteristic_Unknown(t *testing.T) {
	d := newTestDecoder()

	_, err := d.DecodeCharacteristic("gyro", []byte{1, 2}, "VEST-1", time.Now())

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeJSON_PartialUpdate(t *testing.T) {
	d := newTestDecoder()

	sample, err := d.DecodeJSON([]byte(`{"heartRate": 30}`), "VEST-1", time.Now())
	require.NoError(t, err)

	require.NotNil(t, sample.HeartRate)
	assert.Equal(t, 30.0, *sample.HeartRate)

	// Absent keys stay absent rather than zero.
	assert.Nil(t, sample.TemperatureC)
	assert.Nil(t, sample.RespiratoryRate)
	assert.Nil(t, sample.Steps)
	assert.Nil(t, sample.AccelMagnitude)
	assert.Equal(t, models.ProtocolJSON, sample.Protocol)
}

func TestDecodeJSON_FullFrame(t *testing.T) {
	d := newTestDecoder()

	payload := []byte(`{
		"device_id": "VEST-9",
		"heartRate": 92,
		"temperature": 38.6,
		"respiratoryRate": 22,
		"activityLevel": 0.4,
		"steps": 1200,
		"stretchPercent": 55.5,
		"accelX": 0.6, "accelY": 0.8, "accelZ": 0
	}`)

	sample, err := d.DecodeJSON(payload, "fallback-device", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "VEST-9", sample.DeviceID)
	assert.Equal(t, 92.0, *sample.HeartRate)
	assert.Equal(t, 38.6, *sample.TemperatureC)
	assert.Equal(t, 22.0, *sample.RespiratoryRate)
	assert.Equal(t, 1200, *sample.Steps)
	assert.Equal(t, 55.5, *sample.StretchPercent)

	// Magnitude derived from the three axes.
	require.NotNil(t, sample.AccelMagnitude)
	assert.InDelta(t, 1.0, *sample.AccelMagnitude, 0.001)
}

func TestDecodeJSON_Malformed(t *testing.T) {
	d := newTestDecoder()

	_, err := d.DecodeJSON([]byte("not json"), "VEST-1", time.Now())
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []byte("not json"), decodeErr.Payload)
}

func TestLinearPPGEstimator(t *testing.T) {
	e := LinearPPGEstimator{}

	assert.Equal(t, 60, e.EstimateBPM(500))
	assert.Equal(t, 70, e.EstimateBPM(600))
	assert.Equal(t, 40, e.EstimateBPM(300))
}
