// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chamerge resolves cross-artifact call-graph edges across a
// dependency closure via Class Hierarchy Analysis.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chamerge/internal/config"
	"github.com/AleutianAI/chamerge/internal/logging"
)

// Exit codes, mirroring the teacher's cmd/aleutian convention of named
// os.Exit constants rather than bare integers at call sites.
const (
	ExitSuccess = 0
	ExitError   = 1
)

// --- GLOBAL FLAGS ---
var (
	flagConfigPath string
	flagFixtures   string
	flagLogLevel   string
	flagLogDir     string
	flagLogJSON    bool
)

var (
	cfg    config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chamerge",
	Short: "Merge a focal artifact's partial call graph against its dependency closure",
	Long: `chamerge resolves the external call-graph edges of one focal artifact
against a Class Hierarchy Analysis of its full dependency closure, producing
one merged, fully-resolved call graph.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagConfigPath != "" {
			loaded, err := config.Load(flagConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		} else {
			cfg = config.Default()
		}

		level, err := parseLogLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logger = logging.New(logging.Config{
			Level:   level,
			LogDir:  flagLogDir,
			Service: "chamerge",
			JSON:    flagLogJSON,
		})

		metricsShutdown, err = setupMetrics(flagMetricsAddr)
		if err != nil {
			return fmt.Errorf("setup metrics: %w", err)
		}

		tracingShutdown, err = setupTracing()
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		return nil
	},
}

// metricsShutdown and tracingShutdown are set by PersistentPreRunE and
// invoked once from main after rootCmd.Execute returns.
var (
	metricsShutdown func(context.Context) error
	tracingShutdown func(context.Context) error
)

func parseLogLevel(s string) (logging.Level, error) {
	switch s {
	case "", "info":
		return logging.LevelInfo, nil
	case "debug":
		return logging.LevelDebug, nil
	case "warn":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	default:
		return 0, fmt.Errorf("unrecognized --log-level %q", s)
	}
}

func main() {
	err := rootCmd.Execute()
	if metricsShutdown != nil {
		_ = metricsShutdown(context.Background())
	}
	if tracingShutdown != nil {
		_ = tracingShutdown(context.Background())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge:", err)
		os.Exit(ExitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to a YAML config file (see internal/config)")
	rootCmd.PersistentFlags().StringVar(&flagFixtures, "fixtures", "", "Path to a JSON fixtures file backing the offline dependency/graph/edge store")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Directory to additionally write JSON logs to (stderr is always written)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit stderr logs as JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Address to serve Prometheus /metrics on (empty disables the HTTP server, metrics still registered)")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(cacheCmd)
}
