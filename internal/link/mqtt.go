// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link moves IMU samples and session results between the strap,
// the broker and the local tools.
package link

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

// BatchHandler receives decoded samples in arrival order.
type BatchHandler func([]imu.Sample)

// Connect opens an auto-reconnecting MQTT client.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("link: MQTT connection lost (%s): %v", clientID, err)
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		log.Printf("link: MQTT reconnecting (%s)", clientID)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("link: connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// MQTTSource decodes binary notify payloads published on a topic.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	scale  imu.Scale
	stats  *Stats
}

// NewMQTTSource returns a source for topic. stats may be nil.
func NewMQTTSource(client mqtt.Client, topic string, scale imu.Scale, stats *Stats) *MQTTSource {
	return &MQTTSource{client: client, topic: topic, scale: scale, stats: stats}
}

// Subscribe delivers every non-empty decoded payload to handler.
func (s *MQTTSource) Subscribe(handler BatchHandler) error {
	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handlePayload(msg.Payload(), handler)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	log.Printf("link: subscribed to %s", s.topic)
	return nil
}

func (s *MQTTSource) handlePayload(payload []byte, handler BatchHandler) {
	samples := s.scale.Decode(payload)
	if len(samples) == 0 {
		return
	}
	if s.stats != nil {
		s.stats.Observe(samples)
	}
	handler(samples)
}

// Topics names where a Publisher sends each kind of message.
type Topics struct {
	Raw     string
	Live    string
	Event   string
	Summary string
}

// Publisher sends raw records and session results to the broker.
type Publisher struct {
	client mqtt.Client
	topics Topics
}

// NewPublisher returns a publisher on client.
func NewPublisher(client mqtt.Client, topics Topics) *Publisher {
	return &Publisher{client: client, topics: topics}
}

// PublishRaw sends one batch of wire records as a single payload.
func (p *Publisher) PublishRaw(recs []imu.IMURaw) error {
	return p.publish(p.topics.Raw, false, imu.EncodeRecords(recs))
}

// PublishLive sends the live tallies, retained so late subscribers see the latest.
func (p *Publisher) PublishLive(u session.LiveUpdate) error {
	return p.publishJSON(p.topics.Live, true, u)
}

// PublishEvent sends one impact.
func (p *Publisher) PublishEvent(e session.Event) error {
	return p.publishJSON(p.topics.Event, false, e)
}

// PublishSummary sends the end-of-session summary, retained.
func (p *Publisher) PublishSummary(s session.Summary) error {
	return p.publishJSON(p.topics.Summary, true, s)
}

// ClearRetained removes the retained live tallies and summary, so subscribers
// that connect during a new session do not see the previous one. Subscribers
// receive the clear as an empty payload.
func (p *Publisher) ClearRetained() error {
	for _, topic := range []string{p.topics.Live, p.topics.Summary} {
		if err := p.publish(topic, true, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	return p.publish(topic, retained, payload)
}

func (p *Publisher) publish(topic string, retained bool, payload []byte) error {
	if topic == "" {
		return nil
	}
	if token := p.client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, token.Error())
	}
	return nil
}
