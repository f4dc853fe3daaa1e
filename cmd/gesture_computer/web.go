// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_computer/internal/app"
	"github.com/relabs-tech/gesture_computer/internal/config"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve pose, status and gestures over HTTP and websockets",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		cfg := mustLoadConfig(
			config.FlagBinding{Key: "WEB_SERVER_PORT", Flag: cmd.Flags().Lookup("port")},
		)
		if err := app.RunWeb(cmd.Context(), cfg); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webCmd)
	webCmd.Flags().Int("port", 8080, "HTTP port to listen on")
}
