package services

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"hachi/models"
)

// Characteristic identifies one binary frame layout on the wireless link.
type Characteristic string

const (
	CharTemperature Characteristic = "temp"  // 8 bytes: 2 x float32 LE
	CharPPG         Characteristic = "ppg"   // 2 bytes: low, high
	CharAccel       Characteristic = "accel" // 16 bytes: 4 x float32 LE
)

// Expected binary frame lengths per characteristic.
const (
	tempFrameLen  = 8
	ppgFrameLen   = 2
	accelFrameLen = 16
)

// PPG raw readings inside this band are considered a usable signal.
const (
	ppgQualityLow  = 400
	ppgQualityHigh = 700
)

// DecodeError reports a frame that did not match its expected layout. The
// raw payload is kept so the caller can log it; the frame is dropped and the
// stream continues.
type DecodeError struct {
	Characteristic Characteristic
	Payload        []byte
	Reason         string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s frame: %s", e.Characteristic, e.Reason)
}

// HeartRateEstimator derives a BPM estimate from a raw PPG reading. The
// decoder contract does not care how: swapping in real peak detection must
// not touch the decoder.
type HeartRateEstimator interface {
	EstimateBPM(ppgRaw int) int
}

// LinearPPGEstimator is the placeholder estimator carried over from the vest
// firmware: a linear map around a 500-count baseline, not a real biosignal
// algorithm. Kept verbatim until peak detection lands.
type LinearPPGEstimator struct{}

// EstimateBPM maps the raw reading linearly: 60 BPM at 500 counts, one BPM
// per 10 counts either side.
func (LinearPPGEstimator) EstimateBPM(ppgRaw int) int {
	return int(math.Round(60 + (float64(ppgRaw)-500)/10))
}

// FrameDecoder converts raw transport payloads into normalized VitalSamples.
// Decoding is pure apart from the derived fields (average, delta, magnitude).
type FrameDecoder struct {
	estimator HeartRateEstimator
}

// NewFrameDecoder creates a decoder using the given heart-rate estimator.
func NewFrameDecoder(estimator HeartRateEstimator) *FrameDecoder {
	return &FrameDecoder{estimator: estimator}
}

// DecodeCharacteristic decodes one binary frame for the named characteristic.
func (d *FrameDecoder) DecodeCharacteristic(char Characteristic, payload []byte, deviceID string, at time.Time) (*models.VitalSample, error) {
	switch char {
	case CharTemperature:
		return d.decodeTemperature(payload, deviceID, at)
	case CharPPG:
		return d.decodePPG(payload, deviceID, at)
	case CharAccel:
		return d.decodeAccel(payload, deviceID, at)
	default:
		return nil, &DecodeError{Characteristic: char, Payload: payload, Reason: "unknown characteristic"}
	}
}

func (d *FrameDecoder) decodeTemperature(payload []byte, deviceID string, at time.Time) (*models.VitalSample, error) {
	if len(payload) != tempFrameLen {
		return nil, &DecodeError{
			Characteristic: CharTemperature,
			Payload:        payload,
			Reason:         fmt.Sprintf("expected %d bytes, got %d", tempFrameLen, len(payload)),
		}
	}

	t1 := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4])))
	t2 := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8])))
	avg := (t1 + t2) / 2
	diff := math.Abs(t1 - t2)

	return &models.VitalSample{
		DeviceID:        deviceID,
		Protocol:        models.ProtocolBinary,
		Timestamp:       at,
		Temperature1:    &t1,
		Temperature2:    &t2,
		TemperatureAvg:  &avg,
		TemperatureDiff: &diff,
	}, nil
}

func (d *FrameDecoder) decodePPG(payload []byte, deviceID string, at time.Time) (*models.VitalSample, error) {
	if len(payload) != ppgFrameLen {
		return nil, &DecodeError{
			Characteristic: CharPPG,
			Payload:        payload,
			Reason:         fmt.Sprintf("expected %d bytes, got %d", ppgFrameLen, len(payload)),
		}
	}

	raw := int(payload[0]) | int(payload[1])<<8
	bpm := d.estimator.EstimateBPM(raw)

	quality := models.SignalPoor
	if raw > ppgQualityLow && raw < ppgQualityHigh {
		quality = models.SignalGood
	}

	return &models.VitalSample{
		DeviceID:          deviceID,
		Protocol:          models.ProtocolBinary,
		Timestamp:         at,
		PPGRaw:            &raw,
		HeartRateEstimate: &bpm,
		SignalQuality:     quality,
	}, nil
}

func (d *FrameDecoder) decodeAccel(payload []byte, deviceID string, at time.Time) (*models.VitalSample, error) {
	if len(payload) != accelFrameLen {
		return nil, &DecodeError{
			Characteristic: CharAccel,
			Payload:        payload,
			Reason:         fmt.Sprintf("expected %d bytes, got %d", accelFrameLen, len(payload)),
		}
	}

	x := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4])))
	y := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8])))
	z := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12])))
	mag := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[12:16])))

	// The vest precomputes the magnitude; derive it ourselves when missing.
	if mag == 0 {
		mag = math.Sqrt(x*x + y*y + z*z)
	}

	return &models.VitalSample{
		DeviceID:       deviceID,
		Protocol:       models.ProtocolBinary,
		Timestamp:      at,
		AccelX:         &x,
		AccelY:         &y,
		AccelZ:         &z,
		AccelMagnitude: &mag,
	}, nil
}

// jsonFrame mirrors the sparse telemetry object the JSON-protocol vest sends.
// Absent keys stay nil and simply do not update the sample.
type jsonFrame struct {
	DeviceID        string   `json:"device_id"`
	HeartRate       *float64 `json:"heartRate"`
	Temperature     *float64 `json:"temperature"` // degrees Celsius
	RespiratoryRate *float64 `json:"respiratoryRate"`
	ActivityLevel   *float64 `json:"activityLevel"`
	Steps           *int     `json:"steps"`
	StretchPercent  *float64 `json:"stretchPercent"`
	AccelX          *float64 `json:"accelX"`
	AccelY          *float64 `json:"accelY"`
	AccelZ          *float64 `json:"accelZ"`
}

// DecodeJSON decodes one JSON-protocol frame. A payload that does not parse
// as the expected object fails with a DecodeError and updates nothing.
func (d *FrameDecoder) DecodeJSON(payload []byte, deviceID string, at time.Time) (*models.VitalSample, error) {
	var frame jsonFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, &DecodeError{
			Characteristic: "json",
			Payload:        payload,
			Reason:         err.Error(),
		}
	}

	if frame.DeviceID != "" {
		deviceID = frame.DeviceID
	}

	sample := &models.VitalSample{
		DeviceID:        deviceID,
		Protocol:        models.ProtocolJSON,
		Timestamp:       at,
		HeartRate:       frame.HeartRate,
		TemperatureC:    frame.Temperature,
		RespiratoryRate: frame.RespiratoryRate,
		ActivityLevel:   frame.ActivityLevel,
		Steps:           frame.Steps,
		StretchPercent:  frame.StretchPercent,
		AccelX:          frame.AccelX,
		AccelY:          frame.AccelY,
		AccelZ:          frame.AccelZ,
	}

	// Magnitude is derived when all three axes are present.
	if frame.AccelX != nil && frame.AccelY != nil && frame.AccelZ != nil {
		ax, ay, az := *frame.AccelX, *frame.AccelY, *frame.AccelZ
		mag := math.Sqrt(ax*ax + ay*ay + az*az)
		sample.AccelMagnitude = &mag
	}

	return sample, nil
}
