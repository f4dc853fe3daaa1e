// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/gesture_computer/internal/config"
)

var (
	optConfigPath string
	optLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gesture_computer",
	Short: "Recognize tilt gestures from an IMU and play them as notes",
	Long: `gesture_computer turns a stream of accelerometer and magnetometer
samples into roll/pitch/yaw and recognizes three-point tilt gestures,
timing each one into a note duration.`,
	SilenceUsage: true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigPath, "config", "", "KEY=VALUE config file (defaults and GESTURE_* env apply without one)")
	pFlags.StringVar(&optLogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// setDefaultSlog installs a text handler at the level given by --log-level.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(optLogLevel)); err != nil {
		log.Fatalln("invalid --log-level:", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Debug("logger configured", "command", cmd.Name(), "level", level)
}

// mustLoadConfig initializes the global config, binding the given flags.
func mustLoadConfig(bindings ...config.FlagBinding) *config.Config {
	if err := config.InitGlobal(optConfigPath, bindings...); err != nil {
		log.Fatalln("failed to load config:", err)
	}
	return config.Get()
}
