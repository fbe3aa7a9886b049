// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

// SubscribeSession decodes the live, event and summary topics into sink.
// Empty payloads are ignored.
// ConsolePrinter, the web hub and the terminal view all work as sinks.
func SubscribeSession(client mqtt.Client, topics link.Topics, sink SessionPublisher) error {
	subs := []struct {
		topic  string
		handle func([]byte) error
	}{
		{topics.Live, func(b []byte) error {
			var u session.LiveUpdate
			if err := json.Unmarshal(b, &u); err != nil {
				return err
			}
			return sink.PublishLive(u)
		}},
		{topics.Event, func(b []byte) error {
			var e session.Event
			if err := json.Unmarshal(b, &e); err != nil {
				return err
			}
			return sink.PublishEvent(e)
		}},
		{topics.Summary, func(b []byte) error {
			var s session.Summary
			if err := json.Unmarshal(b, &s); err != nil {
				return err
			}
			return sink.PublishSummary(s)
		}},
	}

	for _, sub := range subs {
		if sub.topic == "" {
			continue
		}
		topic, handle := sub.topic, sub.handle
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			// A retained topic cleared at session start arrives empty.
			if len(msg.Payload()) == 0 {
				return
			}
			if err := handle(msg.Payload()); err != nil {
				log.Printf("console: %s: %v", topic, err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Printf("console: subscribed to %s", topic)
	}
	return nil
}

// RunConsoleMQTT prints the session topics until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	if err := SubscribeSession(client, Topics(cfg), NewConsolePrinter(os.Stdout)); err != nil {
		client.Disconnect(250)
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
