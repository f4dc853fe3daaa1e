// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gesture_computer/internal/imu"
)

// ErrNoSample is returned by sources that had nothing new within their
// read timeout.
var ErrNoSample = errors.New("no sample available")

type mqttSource struct {
	samples chan imu.Sample
	timeout time.Duration
}

// NewMQTTSource subscribes to topic on an already connected client and
// yields the JSON-encoded imu.Sample messages published there.
func NewMQTTSource(client mqtt.Client, topic string, timeout time.Duration) (imu.Source, error) {
	s := newMQTTSource(timeout)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt source: subscribe %s: %w", topic, token.Error())
	}
	slog.Info("mqtt sample source subscribed", "topic", topic)
	return s, nil
}

func newMQTTSource(timeout time.Duration) *mqttSource {
	return &mqttSource{samples: make(chan imu.Sample, 1), timeout: timeout}
}

// handle keeps only the newest message.
func (s *mqttSource) handle(payload []byte) {
	var v imu.Sample
	if err := json.Unmarshal(payload, &v); err != nil {
		slog.Warn("mqtt sample decode failed", "err", err)
		return
	}
	if v.Source == "" {
		v.Source = "mqtt"
	}
	for {
		select {
		case s.samples <- v:
			return
		default:
		}
		select {
		case <-s.samples:
		default:
		}
	}
}

func (s *mqttSource) Read() (imu.Sample, error) {
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	select {
	case v := <-s.samples:
		return v, nil
	case <-t.C:
		return imu.Sample{}, ErrNoSample
	}
}
