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

var optConsole app.ConsoleOptions

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Print gestures, tones and tempo statistics",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		cfg := mustLoadConfig(
			config.FlagBinding{Key: "JOURNAL_PATH", Flag: cmd.Flags().Lookup("journal")},
		)
		if err := app.RunConsole(cmd.Context(), cfg, optConsole); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	flags := consoleCmd.Flags()
	flags.IntVar(&optConsole.History, "history", 0, "print the N most recent journaled gestures and exit")
	flags.BoolVar(&optConsole.ShowPoses, "poses", false, "print every pose")
	flags.BoolVar(&optConsole.ShowStatus, "status", false, "print matcher status updates")
	flags.String("journal", "", "bbolt journal file for --history")
}
