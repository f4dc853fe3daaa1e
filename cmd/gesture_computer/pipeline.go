// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_computer/internal/app"
	"github.com/relabs-tech/gesture_computer/internal/config"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run acquisition, orientation and gesture matching",
	Long: `Reads samples from the configured source, estimates orientation,
recognizes gestures and publishes poses, gestures and matcher status to MQTT.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		flags := cmd.Flags()
		cfg := mustLoadConfig(
			config.FlagBinding{Key: "SAMPLE_SOURCE", Flag: flags.Lookup("source")},
			config.FlagBinding{Key: "JOURNAL_PATH", Flag: flags.Lookup("journal")},
			config.FlagBinding{Key: "ADAPTIVE_FILTER", Flag: flags.Lookup("adaptive")},
			config.FlagBinding{Key: "TEMPLATES_FILE", Flag: flags.Lookup("templates")},
		)
		slog.Info("pipeline.Run", "source", cfg.SampleSource)
		if err := app.RunPipeline(cmd.Context(), cfg); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	flags := pipelineCmd.Flags()
	flags.String("source", "mock", "sample source: mock, mpu9250, serial, mqtt")
	flags.String("journal", "", "bbolt file to record gestures in")
	flags.Bool("adaptive", true, "use motion-adaptive accelerometer filtering")
	flags.String("templates", "", "YAML template table (built-in table if empty)")
}
