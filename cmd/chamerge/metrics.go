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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var flagMetricsAddr string

// metricsServer is the HTTP server scraping otel.Meter-recorded metrics
// (internal/merge's mergesTotal, mergeDuration, harvestedArcs counters and
// histograms) when --metrics-addr is set, nil otherwise.
var metricsServer *http.Server

// setupMetrics wires the global otel MeterProvider to a Prometheus exporter
// and, if addr is non-empty, starts an HTTP server exposing /metrics. The
// returned shutdown func must be called before process exit.
func setupMetrics(addr string) (shutdown func(context.Context) error, err error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	if addr == "" {
		return provider.Shutdown, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if serveErr := metricsServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			if logger != nil {
				logger.Error("metrics server stopped", "error", serveErr)
			}
		}
	}()

	return func(ctx context.Context) error {
		if shutdownErr := metricsServer.Shutdown(ctx); shutdownErr != nil {
			return shutdownErr
		}
		return provider.Shutdown(ctx)
	}, nil
}
