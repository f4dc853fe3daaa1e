// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/gesture_computer/internal/clock"
	"github.com/relabs-tech/gesture_computer/internal/config"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/imu"
	"github.com/relabs-tech/gesture_computer/internal/journal"
	"github.com/relabs-tech/gesture_computer/internal/metrics/influxdb"
	"github.com/relabs-tech/gesture_computer/internal/pipeline"
	"github.com/relabs-tech/gesture_computer/internal/sensors"
)

// RunPipeline acquires samples, runs the estimator and matcher, and fans
// results out to MQTT and the optional journal and InfluxDB sinks until ctx
// ends.
func RunPipeline(ctx context.Context, cfg *config.Config) error {
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	fmt.Print(banner(table))

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDPipeline)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	clk := clock.NewMonotonic()
	src, closer, err := openSource(cfg, clk, client)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	sinks := &gestureSinks{client: client, cfg: cfg}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		sinks.journal = j
		slog.Info("gesture journal open", "path", cfg.JournalPath)
	}
	if cfg.InfluxDBURL != "" {
		ex := influxdb.New(influxdb.Options{
			URL:    cfg.InfluxDBURL,
			Token:  cfg.InfluxDBToken,
			Org:    cfg.InfluxDBOrg,
			Bucket: cfg.InfluxDBBucket,
		})
		defer func() {
			if err := ex.Close(); err != nil {
				slog.Warn("influxdb export had errors", "err", err)
			}
		}()
		sinks.influx = ex
		slog.Info("influxdb export enabled", "url", cfg.InfluxDBURL, "bucket", cfg.InfluxDBBucket)
	}

	slot := imu.NewSlot()
	bus := &events.Bus{}
	matcher := gesture.NewMatcher(table)
	p := pipeline.New(slot, matcher, clk, bus, pipeline.Options{
		Adaptive: cfg.AdaptiveFilter,
		Wait:     config.Millis(cfg.SampleWait),
	})

	token := client.Subscribe(cfg.TopicReset, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if !parseResetCommand(msg.Payload()) {
			slog.Debug("ignoring reset topic payload", "payload", string(msg.Payload()))
			return
		}
		matcher.Reset()
		slog.Info("matcher reset by command")
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", cfg.TopicReset, token.Error())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sensors.Acquire(ctx, src, slot, config.Millis(cfg.SampleInterval))
	})
	g.Go(func() error {
		return p.Run(ctx, config.Millis(cfg.EstimateInterval))
	})
	g.Go(func() error {
		return sinks.run(ctx, bus)
	})
	g.Go(func() error {
		ticker := time.NewTicker(config.Millis(cfg.StatusInterval))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				st := matcher.Status(clk.NowMillis())
				publishJSON(client, cfg.TopicStatus, true, st)
				slog.Debug("matcher status\n" + st.String())
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("pipeline shut down")
	return nil
}

// gestureSinks drains the bus into MQTT, the journal and InfluxDB.
type gestureSinks struct {
	client  mqtt.Client
	cfg     *config.Config
	journal *journal.Journal
	influx  *influxdb.Exporter
}

func (s *gestureSinks) run(ctx context.Context, bus *events.Bus) error {
	gestures := make(chan gesture.ActionEvent, 16)
	poses := make(chan events.Pose, 16)
	gsub := bus.SubscribeGestures(gestures)
	defer gsub.Unsubscribe()
	psub := bus.SubscribePoses(poses)
	defer psub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-gestures:
			s.gesture(ev)
		case p := <-poses:
			if !p.Fresh {
				continue
			}
			publishJSON(s.client, s.cfg.TopicPose, true, p)
			if s.influx != nil {
				s.influx.WritePose(p, time.Now())
			}
		}
	}
}

func (s *gestureSinks) gesture(ev gesture.ActionEvent) {
	publishJSON(s.client, s.cfg.TopicGesture, false, ev)
	if s.journal != nil {
		if _, err := s.journal.Append(ev); err != nil {
			slog.Warn("journal append failed", "err", err)
		}
	}
	if s.influx != nil {
		s.influx.WriteGesture(ev, time.Now())
	}
}

func loadTable(cfg *config.Config) (gesture.Table, error) {
	if cfg.TemplatesFile != "" {
		t, err := gesture.LoadTable(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded template table", "path", cfg.TemplatesFile, "templates", len(t))
		return t, nil
	}
	// the built-in table takes its windows from config
	return gesture.DefaultTable().WithTimeouts(
		config.Millis(cfg.Point1Timeout),
		config.Millis(cfg.Point2Timeout),
	), nil
}

// openSource builds the configured sample source. The closer is nil when
// the source holds nothing to release.
func openSource(cfg *config.Config, clk clock.Clock, client mqtt.Client) (imu.Source, io.Closer, error) {
	slog.Info("opening sample source", "source", cfg.SampleSource)
	switch cfg.SampleSource {
	case "mock":
		return sensors.NewMockSource(clk), nil, nil
	case "mpu9250":
		src, err := sensors.NewMPU9250Source(sensors.MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			GyroRange:  cfg.IMUGyroRange,
		})
		return src, nil, err
	case "serial":
		return sensors.NewSerialSource(sensors.SerialOptions{
			Port:     cfg.SerialPort,
			BaudRate: cfg.SerialBaudRate,
		})
	case "mqtt":
		src, err := sensors.NewMQTTSource(client, cfg.TopicSample, config.Millis(cfg.SampleInterval)*5)
		return src, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown sample source %q", cfg.SampleSource)
	}
}

// parseResetCommand accepts a bare "reset", {"cmd":"reset"} or
// {"reset":true}.
func parseResetCommand(payload []byte) bool {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return false
	}
	if strings.EqualFold(s, "reset") {
		return true
	}
	if !gjson.Valid(s) {
		return false
	}
	r := gjson.Parse(s)
	return strings.EqualFold(r.Get("cmd").String(), "reset") || r.Get("reset").Bool()
}

func banner(t gesture.Table) string {
	var b strings.Builder
	b.WriteString("gesture computer\n")
	b.WriteString("supported actions:\n")
	for _, tpl := range t {
		fmt.Fprintf(&b, "  %-10s %4.0f° -> %4.0f° -> %4.0f° roll", tpl.Name,
			tpl.Points[0].Roll, tpl.Points[1].Roll, tpl.Points[2].Roll)
		if tpl.ToneHz > 0 {
			fmt.Fprintf(&b, "  tone %.2f Hz", tpl.ToneHz)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
