// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_computer/internal/config"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
)

// displayData holds the latest data for display
type displayData struct {
	mu sync.RWMutex

	pose     events.Pose
	havePose bool

	state gesture.State

	last     gesture.ActionEvent
	haveLast bool
	lastSeen time.Time
}

type displaySnapshot struct {
	pose     events.Pose
	havePose bool
	state    gesture.State
	last     gesture.ActionEvent
	haveLast bool
	lastAge  time.Duration
}

func (d *displayData) snapshot(now time.Time) displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		pose:     d.pose,
		havePose: d.havePose,
		state:    d.state,
		last:     d.last,
		haveLast: d.haveLast,
		lastAge:  now.Sub(d.lastSeen),
	}
}

// RunDisplay draws the pose and the last recognized gesture on an SSD1306
// OLED at the controller's default I²C address.
func RunDisplay(ctx context.Context, cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	slog.Info("display: initialized", "bounds", dev.Bounds())

	if err := dev.Draw(dev.Bounds(), splashFrame(), image.Point{}); err != nil {
		slog.Warn("display: error showing splash", "err", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &displayData{}
	err = subscribeJSON(client, cfg.TopicPose, func(p events.Pose) {
		data.mu.Lock()
		data.pose, data.havePose = p, true
		data.mu.Unlock()
	})
	if err != nil {
		return err
	}
	err = subscribeJSON(client, cfg.TopicStatus, func(st gesture.Status) {
		data.mu.Lock()
		data.state = st.State
		data.mu.Unlock()
	})
	if err != nil {
		return err
	}
	err = subscribeJSON(client, cfg.TopicGesture, func(ev gesture.ActionEvent) {
		data.mu.Lock()
		data.last, data.haveLast, data.lastSeen = ev, true, time.Now()
		data.mu.Unlock()
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(config.Millis(cfg.DisplayUpdateInterval))
	defer ticker.Stop()
	slog.Info("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := dev.Draw(dev.Bounds(), gestureFrame(data.snapshot(now)), image.Point{}); err != nil {
				slog.Warn("display: error updating", "err", err)
			}
		}
	}
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func gestureFrame(s displaySnapshot) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	if !s.havePose {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Orientation")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(fmt.Sprintf("R:%6.1f P:%5.1f", s.pose.Roll, s.pose.Pitch))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawString(s.state.String())

	if s.haveLast {
		drawer.Dot = fixed.P(0, 42)
		drawer.DrawString(s.last.Name)
		drawer.Dot = fixed.P(0, 56)
		drawer.DrawString(fmt.Sprintf("%s %dms", s.last.Note, s.last.ExecutionMs))
		// invert the gesture lines briefly after a new event
		if s.lastAge < time.Second {
			for y := 30; y < 64; y++ {
				for x := 0; x < 128; x++ {
					img.SetBit(x, y, !img.BitAt(x, y))
				}
			}
		}
	}
	return img
}

func splashFrame() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Gesture Pi")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("tilt to play")

	return img
}
