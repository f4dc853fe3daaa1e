// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	slog.Info("connected to MQTT broker", "broker", broker, "client_id", clientID)
	return client, nil
}

// subscribeJSON decodes every message on topic into a T and passes it to fn.
// Undecodable payloads are logged and dropped.
func subscribeJSON[T any](client mqtt.Client, topic string, fn func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			slog.Warn("MQTT payload unmarshal error", "topic", msg.Topic(), "err", err)
			return
		}
		fn(v)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, token.Error())
	}
	slog.Info("subscribed to MQTT topic", "topic", topic)
	return nil
}

// publishJSON marshals v and publishes it without waiting for delivery.
func publishJSON(client mqtt.Client, topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Warn("json marshal error", "topic", topic, "err", err)
		return
	}
	token := client.Publish(topic, 0, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			slog.Warn("MQTT publish error", "topic", topic, "err", token.Error())
		}
	}()
}
