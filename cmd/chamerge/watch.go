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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chamerge/internal/merge"
	"github.com/AleutianAI/chamerge/internal/streaming"
	"github.com/AleutianAI/chamerge/internal/watch"
)

// --- WATCH COMMAND FLAGS ---
var (
	watchManifestPath string
	watchOutputDir    string
	watchServe        bool
	watchAddr         string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a coordinates manifest and re-merge on every change",
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchManifestPath, "manifest", "", "Path to a JSON coordinates manifest (required)")
	watchCmd.Flags().StringVar(&watchOutputDir, "output-dir", "", "Directory to write a timestamped snapshot JSON after each merge (default: stdout)")
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "Broadcast merge progress over a websocket server")
	watchCmd.Flags().StringVar(&watchAddr, "addr", ":8787", "Listen address for --serve")
	watchCmd.MarkFlagRequired("manifest")
}

func runWatch(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hub *streaming.Hub
	var server *http.Server
	if watchServe {
		hub = streaming.NewHub(logger.Slog())
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		server = &http.Server{Addr: watchAddr, Handler: mux}
		go func() {
			logger.Info("streaming merge progress", "addr", watchAddr, "path", "/ws")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("websocket server exited", "error", err)
			}
		}()
		defer server.Shutdown(context.Background())
	}

	handler := func(m watch.Manifest) {
		depStore, graphStore, edgeStore, closeStores, err := openStores(ctx)
		if err != nil {
			logger.Error("watch: open stores", "error", err)
			return
		}
		defer closeStores()

		graph, rep, err := runMergePipeline(ctx, depStore, graphStore, edgeStore, m.FocalCoordinate, m.DependencyCoordinates, func(e merge.Event) {
			if hub != nil {
				hub.Broadcast(streaming.FrameFromEvent(e))
			}
		})
		if err != nil {
			logger.Error("watch: merge failed", "error", err)
			return
		}

		if err := writeSnapshot(graph, snapshotPath()); err != nil {
			logger.Error("watch: write snapshot", "error", err)
			return
		}
		logger.Info("merge complete", "dependenciesDropped", rep.Snapshot().DependenciesDropped)
	}

	w, err := watch.New(watchManifestPath, handler, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chamerge watch:", err)
		os.Exit(ExitError)
	}
	if err := w.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chamerge watch:", err)
		os.Exit(ExitError)
	}
	defer w.Stop()

	logger.Info("watching manifest", "path", watchManifestPath)
	<-ctx.Done()
	logger.Info("shutting down")
}

func snapshotPath() string {
	if watchOutputDir == "" {
		return ""
	}
	return filepath.Join(watchOutputDir, fmt.Sprintf("merge-%d.json", time.Now().UnixNano()))
}
