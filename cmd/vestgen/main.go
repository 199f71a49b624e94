package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hachi/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var (
	rps         = flag.Int("rps", 1, "Frames per second per characteristic")
	deviceID    = flag.String("device", "VEST-MOCK-001", "Device ID for mock data")
	anomaly     = flag.Float64("anomaly", 0.1, "Probability of anomaly (0.0-1.0)")
	mqttBroker  = flag.String("broker", "localhost:1883", "MQTT broker address (host:port)")
	mqttUser    = flag.String("user", "hachi", "MQTT username")
	mqttPass    = flag.String("pass", "hachi2024", "MQTT password")
	topicPrefix = flag.String("prefix", "vest", "Topic prefix for binary characteristic frames")
	jsonTopic   = flag.String("json-topic", "vest_telemetry_queue", "Topic for JSON telemetry frames (bridged to RabbitMQ)")
)

// MockVest emits the same frame mix as a real vest: binary characteristic
// frames, a JSON telemetry frame, and a periodic link heartbeat.
type MockVest struct {
	deviceID         string
	anomalyProbility float64
	baseTempF        float64
	basePPG          float64
	active           bool
	logger           *zap.Logger
}

func NewMockVest(deviceID string, anomalyProb float64, logger *zap.Logger) *MockVest {
	return &MockVest{
		deviceID:         deviceID,
		anomalyProbility: anomalyProb,
		baseTempF:        101.7, // healthy resting canine temperature
		basePPG:          520,   // raw counts near the middle of the good band
		logger:           logger,
	}
}

// TemperatureFrame builds the 8-byte dual-sensor temperature frame.
func (m *MockVest) TemperatureFrame() []byte {
	isAnomaly := rand.Float64() < m.anomalyProbility

	t1 := m.baseTempF + rand.Float64()*0.6 - 0.3
	if isAnomaly {
		if rand.Float64() < 0.5 {
			t1 = 104.0 + rand.Float64()*1.5 // fever
		} else {
			t1 = 98.5 + rand.Float64()*1.0 // hypothermic
		}
	}
	t2 := t1 + rand.Float64()*0.4 - 0.2

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(t1)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(t2)))
	return buf
}

// PPGFrame builds the 2-byte raw PPG frame.
func (m *MockVest) PPGFrame() []byte {
	isAnomaly := rand.Float64() < m.anomalyProbility

	raw := m.basePPG + rand.Float64()*120 - 60
	if isAnomaly {
		if rand.Float64() < 0.5 {
			raw = 800 + rand.Float64()*150 // saturated sensor, poor signal
		} else {
			raw = 200 + rand.Float64()*150 // weak contact
		}
	}

	v := uint16(raw)
	return []byte{byte(v & 0xFF), byte(v >> 8)}
}

// AccelFrame builds the 16-byte accelerometer frame. The mock vest flips
// between rest and activity bouts so the mode controller gets exercised.
func (m *MockVest) AccelFrame() []byte {
	if rand.Float64() < 0.05 {
		m.active = !m.active
	}

	noise := 0.02
	if m.active {
		noise = 0.5
	}

	x := (rand.Float64() - 0.5) * noise
	y := (rand.Float64() - 0.5) * noise
	z := 1.0 + (rand.Float64()-0.5)*noise // gravity on Z in g units
	mag := math.Sqrt(x*x + y*y + z*z)

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(x)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(y)))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(z)))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(float32(mag)))
	return buf
}

// JSONFrame builds one sparse JSON telemetry object.
func (m *MockVest) JSONFrame() []byte {
	isAnomaly := rand.Float64() < m.anomalyProbility

	hr := 80.0 + rand.Float64()*30
	if isAnomaly {
		if rand.Float64() < 0.5 {
			hr = 200 + rand.Float64()*80 // tachycardia
		} else {
			hr = 25 + rand.Float64()*20 // bradycardia
		}
	}

	tempC := 38.6 + rand.Float64()*0.6 - 0.3
	if isAnomaly && rand.Float64() < 0.3 {
		tempC = 40.2 + rand.Float64()*0.8
	}

	resp := 18.0 + rand.Float64()*8
	steps := rand.Intn(40)
	stretch := 40.0 + rand.Float64()*20

	frame := map[string]interface{}{
		"device_id":       m.deviceID,
		"heartRate":       math.Round(hr),
		"temperature":     math.Round(tempC*10) / 10,
		"respiratoryRate": math.Round(resp),
		"steps":           steps,
		"stretchPercent":  math.Round(stretch*10) / 10,
	}

	payload, _ := json.Marshal(frame)
	return payload
}

// HeartbeatFrame builds one link heartbeat payload.
func (m *MockVest) HeartbeatFrame(started time.Time) []byte {
	hb := models.LinkHeartbeat{
		DeviceID:       m.deviceID,
		Timestamp:      time.Now(),
		RadioConnected: true,
		UptimeMs:       time.Since(started).Milliseconds(),
		BatteryPercent: 60 + rand.Intn(40),
		FirmwareRev:    "mock-1.0",
	}
	payload, _ := json.Marshal(hb)
	return payload
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Mock vest generator started",
		zap.String("device_id", *deviceID),
		zap.Int("rps", *rps),
		zap.Float64("anomaly_probability", *anomaly),
		zap.String("mqtt_broker", *mqttBroker),
		zap.String("topic_prefix", *topicPrefix),
	)
	logger.Info("Press Ctrl+C to stop gracefully")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *mqttBroker))
	opts.SetClientID(fmt.Sprintf("%s-generator", *deviceID))
	opts.SetUsername(*mqttUser)
	opts.SetPassword(*mqttPass)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", *mqttBroker))
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(token.Error()))
	}
	defer mqttClient.Disconnect(250)

	vest := NewMockVest(*deviceID, *anomaly, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping generator")
		cancel()
	}()

	interval := time.Second / time.Duration(*rps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	heartbeatTicker := time.NewTicker(15 * time.Second)
	defer heartbeatTicker.Stop()

	logger.Info("Starting to publish mock vest frames",
		zap.Duration("interval", interval))

	started := time.Now()
	frameCount := 0

	publish := func(topic string, payload []byte) {
		token := mqttClient.Publish(topic, 1, false, payload)
		if token.Wait() && token.Error() != nil {
			logger.Error("Failed to publish frame",
				zap.String("topic", topic),
				zap.Error(token.Error()))
			return
		}
		frameCount++
	}

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(started)
			logger.Info("Shutting down gracefully",
				zap.Int("total_frames", frameCount),
				zap.Duration("total_uptime", elapsed))
			return

		case <-heartbeatTicker.C:
			publish(fmt.Sprintf("%s/%s/link", *topicPrefix, *deviceID), vest.HeartbeatFrame(started))

		case <-ticker.C:
			publish(fmt.Sprintf("%s/%s/temp", *topicPrefix, *deviceID), vest.TemperatureFrame())
			publish(fmt.Sprintf("%s/%s/ppg", *topicPrefix, *deviceID), vest.PPGFrame())
			publish(fmt.Sprintf("%s/%s/accel", *topicPrefix, *deviceID), vest.AccelFrame())
			publish(*jsonTopic, vest.JSONFrame())
		}
	}
}
