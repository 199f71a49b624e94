package services

import (
	"context"
	"fmt"
	"time"

	"hachi/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TelemetryFrame is one raw JSON-protocol payload pulled off the queue. The
// payload is left undecoded so malformed frames reach the session and get the
// drop-and-log treatment instead of dying in the transport.
type TelemetryFrame struct {
	DeviceID string
	Payload  []byte
	Received time.Time
}

// RabbitMQService consumes JSON telemetry frames published by the vest bridge.
type RabbitMQService struct {
	config    *config.Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *zap.Logger
	reconnect chan bool
	isClosing bool
}

// NewRabbitMQService creates a new RabbitMQ service instance.
func NewRabbitMQService(cfg *config.Config, logger *zap.Logger) (*RabbitMQService, error) {
	service := &RabbitMQService{
		config:    cfg,
		logger:    logger,
		reconnect: make(chan bool),
		isClosing: false,
	}

	if err := service.connect(); err != nil {
		return nil, err
	}

	return service, nil
}

// connect establishes the connection and declares exchange and queue.
func (r *RabbitMQService) connect() error {
	var err error

	r.logger.Info("Connecting to RabbitMQ", zap.String("url", r.config.RabbitMQURL))

	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		r.conn, err = amqp.Dial(r.config.RabbitMQURL)
		if err == nil {
			break
		}

		r.logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
	}

	r.logger.Info("Connected to RabbitMQ successfully")

	r.channel, err = r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Telemetry frames are small and frequent; keep a modest prefetch.
	err = r.channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	err = r.channel.ExchangeDeclare(
		r.config.RabbitMQExchange, // name
		"direct",                  // type
		true,                      // durable
		false,                     // auto-deleted
		false,                     // internal
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := r.channel.QueueDeclare(
		r.config.RabbitMQQueue, // name
		true,                   // durable
		false,                  // delete when unused
		false,                  // exclusive
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = r.channel.QueueBind(
		queue.Name,
		r.config.RabbitMQQueue,
		r.config.RabbitMQExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	// The vest publishes over MQTT; the broker bridges those frames through
	// amq.topic, so bind the queue there as well.
	err = r.channel.QueueBind(
		queue.Name,
		r.config.RabbitMQQueue,
		"amq.topic",
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to MQTT exchange: %w", err)
	}

	r.logger.Info("Queue bound",
		zap.String("queue", queue.Name),
		zap.String("exchange", r.config.RabbitMQExchange),
		zap.String("routing_key", r.config.RabbitMQQueue))

	go r.handleReconnect()

	return nil
}

// handleReconnect re-dials when the connection drops.
func (r *RabbitMQService) handleReconnect() {
	for {
		closeErr := <-r.conn.NotifyClose(make(chan *amqp.Error))
		if r.isClosing {
			r.logger.Info("RabbitMQ connection closed gracefully")
			return
		}

		r.logger.Error("RabbitMQ connection lost", zap.Error(closeErr))

		for {
			r.logger.Info("Attempting to reconnect to RabbitMQ...")
			err := r.connect()
			if err == nil {
				r.logger.Info("Successfully reconnected to RabbitMQ")
				r.reconnect <- true
				break
			}

			r.logger.Error("Failed to reconnect", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

// Consume pulls telemetry frames off the queue and forwards them raw.
func (r *RabbitMQService) Consume(ctx context.Context, frameChan chan<- *TelemetryFrame) error {
	for {
		msgs, err := r.channel.Consume(
			r.config.RabbitMQQueue, // queue
			"hachi-service",        // consumer tag
			false,                  // auto-ack (false = manual ack)
			false,                  // exclusive
			false,                  // no-local
			false,                  // no-wait
			nil,                    // args
		)
		if err != nil {
			return fmt.Errorf("failed to register consumer: %w", err)
		}

		r.logger.Info("Started consuming telemetry frames",
			zap.String("queue", r.config.RabbitMQQueue))

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Stopping RabbitMQ consumer")
				return nil

			case <-r.reconnect:
				r.logger.Info("Reconnection detected, restarting consumer")
				break consumeLoop

			case msg, ok := <-msgs:
				if !ok {
					r.logger.Warn("Message channel closed")
					time.Sleep(1 * time.Second)
					break consumeLoop
				}

				if err := r.forwardFrame(msg, frameChan); err != nil {
					r.logger.Error("Failed to forward telemetry frame",
						zap.Error(err),
						zap.String("message_id", msg.MessageId))

					// Requeue so a transient stall does not lose the frame.
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}
}

// forwardFrame hands the raw body to the processing channel. Decoding and
// validation happen downstream in the session.
func (r *RabbitMQService) forwardFrame(msg amqp.Delivery, frameChan chan<- *TelemetryFrame) error {
	frame := &TelemetryFrame{
		DeviceID: msg.AppId,
		Payload:  msg.Body,
		Received: time.Now(),
	}

	r.logger.Debug("Received telemetry frame",
		zap.Int("payload_bytes", len(msg.Body)),
		zap.String("routing_key", msg.RoutingKey))

	select {
	case frameChan <- frame:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout sending to processing channel")
	}
}

// Close gracefully closes the RabbitMQ connection.
func (r *RabbitMQService) Close() error {
	r.isClosing = true

	r.logger.Info("Closing RabbitMQ connection")

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Error("Error closing channel", zap.Error(err))
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			r.logger.Error("Error closing connection", zap.Error(err))
			return err
		}
	}

	r.logger.Info("RabbitMQ connection closed")
	return nil
}

// Publish pushes a raw telemetry payload onto the queue (used by tooling).
func (r *RabbitMQService) Publish(payload []byte, deviceID string) error {
	err := r.channel.Publish(
		r.config.RabbitMQExchange, // exchange
		r.config.RabbitMQQueue,    // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			AppId:        deviceID,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish telemetry frame: %w", err)
	}

	r.logger.Debug("Published telemetry frame", zap.String("device_id", deviceID))

	return nil
}
