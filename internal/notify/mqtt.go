// Package notify publishes printer state changes to an MQTT broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/internal/types"
)

// quiesce is how long Close waits for in-flight messages, in milliseconds
const quiesce = 250

// client is the part of mqtt.Client the publisher uses
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends every state change as a retained JSON message
type Publisher struct {
	client  client
	topic   string
	timeout time.Duration
}

// Dial connects to the broker in cfg
func Dial(cfg config.MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("klipper-led-" + uuid.NewString()).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("failed to connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, err)
	}

	log.WithFields(log.Fields{"broker": cfg.Broker, "topic": cfg.Topic}).Info("Connected to MQTT broker")
	return newPublisher(c, cfg), nil
}

func newPublisher(c client, cfg config.MQTTConfig) *Publisher {
	return &Publisher{client: c, topic: cfg.Topic, timeout: cfg.Timeout}
}

// Notify publishes change and waits for the broker to accept it
func (p *Publisher) Notify(ctx context.Context, change types.StateChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal state change: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("failed to publish to %s: timed out", p.topic)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(quiesce)
}
