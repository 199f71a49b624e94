package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hachi/config"
	"hachi/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// CharacteristicFrame is one raw binary frame received from a vest, tagged
// with the characteristic and device parsed from the topic.
type CharacteristicFrame struct {
	Characteristic Characteristic
	DeviceID       string
	Payload        []byte
	Received       time.Time
}

// linkTopicSuffix is the heartbeat topic a vest publishes alongside its
// telemetry characteristics.
const linkTopicSuffix = "link"

// MQTTService subscribes to the binary characteristic topics of all vests.
// Topic layout: <prefix>/<device_id>/<characteristic>.
type MQTTService struct {
	config        *config.Config
	client        mqtt.Client
	logger        *zap.Logger
	frameChan     chan<- *CharacteristicFrame
	heartbeatChan chan<- *models.LinkHeartbeat
}

// NewMQTTService connects to the broker and subscribes to the vest topics.
// Frames land on frameChan, heartbeats on heartbeatChan.
func NewMQTTService(cfg *config.Config, logger *zap.Logger, frameChan chan<- *CharacteristicFrame, heartbeatChan chan<- *models.LinkHeartbeat) (*MQTTService, error) {
	s := &MQTTService{
		config:        cfg,
		logger:        logger,
		frameChan:     frameChan,
		heartbeatChan: heartbeatChan,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.MQTTBroker))
	opts.SetClientID("hachi-service")
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
		s.subscribe()
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return s, nil
}

// subscribe registers the wildcard vest subscription. Re-run on every
// (re)connect because subscriptions do not survive a clean session reset.
func (s *MQTTService) subscribe() {
	topic := fmt.Sprintf("%s/+/+", s.config.MQTTTopicPrefix)

	token := s.client.Subscribe(topic, 1, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		s.logger.Error("Failed to subscribe to vest topics",
			zap.String("topic", topic),
			zap.Error(token.Error()))
		return
	}

	s.logger.Info("Subscribed to vest topics", zap.String("topic", topic))
}

// handleMessage routes one MQTT publish to the frame or heartbeat channel.
func (s *MQTTService) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) != 3 {
		s.logger.Warn("Ignoring message on unexpected topic", zap.String("topic", msg.Topic()))
		return
	}
	deviceID, suffix := parts[1], parts[2]

	if suffix == linkTopicSuffix {
		s.handleHeartbeat(deviceID, msg.Payload())
		return
	}

	// Copy the payload: paho reuses its buffer after the handler returns.
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	frame := &CharacteristicFrame{
		Characteristic: Characteristic(suffix),
		DeviceID:       deviceID,
		Payload:        payload,
		Received:       time.Now(),
	}

	select {
	case s.frameChan <- frame:
	case <-time.After(5 * time.Second):
		s.logger.Error("Timeout sending characteristic frame to processing channel",
			zap.String("device_id", deviceID),
			zap.String("characteristic", suffix))
	}
}

// handleHeartbeat decodes a link heartbeat and forwards it to the monitor.
func (s *MQTTService) handleHeartbeat(deviceID string, payload []byte) {
	var hb models.LinkHeartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		s.logger.Warn("Dropping malformed link heartbeat",
			zap.String("device_id", deviceID),
			zap.ByteString("payload", payload),
			zap.Error(err))
		return
	}

	if hb.DeviceID == "" {
		hb.DeviceID = deviceID
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now()
	}

	select {
	case s.heartbeatChan <- &hb:
	case <-time.After(5 * time.Second):
		s.logger.Error("Timeout sending heartbeat to link monitor",
			zap.String("device_id", hb.DeviceID))
	}
}

// Close disconnects from the broker.
func (s *MQTTService) Close() {
	s.logger.Info("Disconnecting from MQTT broker")
	s.client.Disconnect(250)
}
