// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_computer/internal/app"
)

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Show pose and the last gesture on an SSD1306 OLED",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		cfg := mustLoadConfig()
		if err := app.RunDisplay(cmd.Context(), cfg); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(displayCmd)
}
