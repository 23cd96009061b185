package alert

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MQTTPublisher sends alerts as JSON to a broker topic with QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func NewMQTTPublisher(broker, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("home-energy-dashboard-" + uuid.NewString()[:8]).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("topic", topic).Msg("mqtt alert publisher connected")
	return NewMQTTPublisherWithClient(client, topic), nil
}

// NewMQTTPublisherWithClient uses an already connected client.
func NewMQTTPublisherWithClient(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func (p *MQTTPublisher) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", p.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Decode parses a payload written by Notify.
func Decode(payload []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(payload, &a); err != nil {
		return Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	if a.Device == "" {
		return Alert{}, fmt.Errorf("decode alert: missing device")
	}
	return a, nil
}
