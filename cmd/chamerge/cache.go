// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chamerge/internal/closurecache"
	"github.com/AleutianAI/chamerge/internal/store/badgerkv"
)

// --- CACHE COMMAND FLAGS ---
var cacheStatsDeps []string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the closure cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report the closure cache's size, and when a given dependency closure was last built",
	Run:   runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheStatsCmd.Flags().StringSliceVar(&cacheStatsDeps, "dep", nil, "Dependency coordinate to report freshness for; repeatable")
}

func runCacheStats(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cache := closurecache.New(cfg.ClosureCache.MaxEntries)
	fmt.Printf("max entries:   %d\n", cfg.ClosureCache.MaxEntries)
	fmt.Printf("live entries:  %d\n", cache.Len())

	if cfg.ClosureCache.BadgerPath == "" {
		fmt.Println("persistence:   disabled (closure-cache.badger-path not set)")
		os.Exit(ExitSuccess)
	}

	dbCfg := badgerkv.DefaultConfig()
	dbCfg.Path = cfg.ClosureCache.BadgerPath
	db, err := badgerkv.OpenDB(dbCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge cache stats:", err)
		os.Exit(ExitError)
	}
	defer db.Close()

	fmt.Printf("persistence:   %s\n", cfg.ClosureCache.BadgerPath)

	if len(cacheStatsDeps) == 0 {
		os.Exit(ExitSuccess)
	}

	cache = cache.WithPersistence(db)
	at, ok, err := cache.LastBuiltAt(ctx, cacheStatsDeps)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge cache stats:", err)
		os.Exit(ExitError)
	}
	if !ok {
		fmt.Println("closure has never been built")
	} else {
		fmt.Printf("closure last built: %s\n", at.Format("2006-01-02T15:04:05Z07:00"))
	}
	os.Exit(ExitSuccess)
}
