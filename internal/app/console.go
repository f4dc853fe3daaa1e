// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/relabs-tech/gesture_computer/internal/config"
	"github.com/relabs-tech/gesture_computer/internal/events"
	"github.com/relabs-tech/gesture_computer/internal/gesture"
	"github.com/relabs-tech/gesture_computer/internal/journal"
)

type ConsoleOptions struct {
	History    int  // print this many journal records and exit
	ShowPoses  bool // print every pose message
	ShowStatus bool // print matcher status messages
}

// RunConsole subscribes to the pipeline's topics and prints gestures, the
// tone each one plays, and running tempo statistics.
func RunConsole(ctx context.Context, cfg *config.Config, opts ConsoleOptions) error {
	if opts.History > 0 {
		return printHistory(os.Stdout, cfg.JournalPath, opts.History)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	tempo := newTempoStats()
	var mu sync.Mutex // serializes stdout between handlers

	err = subscribeJSON(client, cfg.TopicGesture, func(ev gesture.ActionEvent) {
		line := tempo.Add(ev)
		mu.Lock()
		defer mu.Unlock()
		fmt.Println(formatGesture(ev))
		fmt.Println(formatTone(ev))
		fmt.Println(line)
	})
	if err != nil {
		return err
	}

	if opts.ShowStatus {
		err = subscribeJSON(client, cfg.TopicStatus, func(st gesture.Status) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Print("[STATUS]\n" + st.String())
		})
		if err != nil {
			return err
		}
	}

	if opts.ShowPoses {
		err = subscribeJSON(client, cfg.TopicPose, func(p events.Pose) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Printf("[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n", p.Roll, p.Pitch, p.Yaw)
		})
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	slog.Info("console: shutting down")
	fmt.Print(tempo.Summary())
	return nil
}

func printHistory(w io.Writer, path string, n int) error {
	if path == "" {
		return fmt.Errorf("history needs JOURNAL_PATH to be set")
	}
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	total, err := j.Count()
	if err != nil {
		return err
	}
	recs, err := j.Recent(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s gestures recorded, showing %d most recent\n", humanize.Comma(int64(total)), len(recs))
	for _, r := range recs {
		fmt.Fprintf(w, "#%-5d %-14s %s\n", r.Seq, humanize.Time(r.Recorded), formatGesture(r.Event))
	}
	return nil
}

func formatGesture(ev gesture.ActionEvent) string {
	return fmt.Sprintf("[GESTURE] %-10s exec=%dms note=%s total=%sms",
		ev.Name, ev.ExecutionMs, ev.Note, humanize.Comma(int64(ev.TotalMs)))
}

// formatTone stands in for the speaker: it names what would be played.
func formatTone(ev gesture.ActionEvent) string {
	if ev.ToneHz <= 0 {
		return fmt.Sprintf("[TONE]    (silent) %s", ev.Note)
	}
	return fmt.Sprintf("[TONE]    play %.2f Hz for %s (%d ms)", ev.ToneHz, ev.Note, ev.Note.Milliseconds())
}

// tempoStats accumulates execution times per action.
type tempoStats struct {
	mu    sync.Mutex
	execs map[string][]float64
}

func newTempoStats() *tempoStats {
	return &tempoStats{execs: map[string][]float64{}}
}

// Add records ev and returns the updated line for its action.
func (t *tempoStats) Add(ev gesture.ActionEvent) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.execs[ev.Name] = append(t.execs[ev.Name], float64(ev.ExecutionMs))
	return t.lineLocked(ev.Name)
}

func (t *tempoStats) lineLocked(name string) string {
	data := stats.Float64Data(t.execs[name])
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	sd, _ := stats.StandardDeviation(data)
	return fmt.Sprintf("[TEMPO]   %-10s n=%s mean=%.0fms median=%.0fms sd=%.1fms",
		name, humanize.Comma(int64(len(data))), mean, median, sd)
}

// Summary returns one tempo line per action seen, sorted by name.
func (t *tempoStats) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.execs))
	for name := range t.execs {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(t.lineLocked(name))
		b.WriteByte('\n')
	}
	return b.String()
}
