package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// MQTTOptions configures the MQTT sink.
type MQTTOptions struct {
	Broker   string // host:port
	ClientID string
	Topic    string // events go to <Topic>/<kind>
	QoS      byte

	// ConnectTimeout bounds the initial connection. Defaults to 5s.
	ConnectTimeout time.Duration
	// RetryInterval is the pause between connection attempts. Defaults to 2s.
	RetryInterval time.Duration
}

// MQTTSink publishes events as JSON to an MQTT broker.
type MQTTSink struct {
	opts   MQTTOptions
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
}

// NewMQTTSink connects to the broker. The client reconnects on its own after
// the initial connection succeeds.
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 2 * time.Second
	}
	s := &MQTTSink{opts: opts}

	co := mqtt.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s", opts.Broker))
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(opts.RetryInterval)
	co.SetMaxReconnectInterval(30 * time.Second)

	co.OnConnect = func(mqtt.Client) {
		s.setConnected(true)
		log.WithField("broker", opts.Broker).Info("MQTT connection established")
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.setConnected(false)
		log.WithFields(log.Fields{"broker": opts.Broker, "error": err}).Warn("MQTT connection lost, will auto-reconnect")
	}

	s.client = mqtt.NewClient(co)

	token := s.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		// Stops the background connect retry.
		s.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		s.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	s.setConnected(true)

	return s, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Publish sends the event to <topic>/<kind>.
func (s *MQTTSink) Publish(ctx context.Context, ev Event) error {
	if !s.isConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := ev.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := s.client.Publish(Topic(s.opts.Topic, ev.Kind), s.opts.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish timeout: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250) // 250ms grace period
	}
	s.setConnected(false)
}

// Topic builds the topic an event kind is published under.
func Topic(prefix string, kind Kind) string {
	if prefix == "" {
		return string(kind)
	}
	return fmt.Sprintf("%s/%s", prefix, kind)
}

func (s *MQTTSink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *MQTTSink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
