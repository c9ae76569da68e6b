package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const mqttQoS = 1

// MQTTPublisher publishes events with QoS 1 on per-tractor topics.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

// DialMQTT connects to broker and returns a publisher for it.
func DialMQTT(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	log.WithField("broker", broker).Info("Connected to MQTT broker")
	return NewMQTTPublisher(client, prefix), nil
}

// Publish sends e and waits for the broker acknowledgement or ctx expiry.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := e.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	token := p.client.Publish(mqttTopic(p.prefix, e), mqttQoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Join(errors.New("mqtt publish not acknowledged"), ctx.Err())
	}
}

// Close disconnects, allowing in-flight messages a short grace period.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
