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

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing registers a real SDK-backed TracerProvider in place of the
// package-default no-op, matching the FOSS tier of cmd/aleutian's diagnostics
// tracer: spans get proper W3C trace/span IDs and sampling decisions even
// though nothing here exports them to a collector. Wiring an OTLP exporter
// is left to whoever deploys chamerge, the same way the teacher's Enterprise
// tier is opt-in via an endpoint the FOSS build doesn't carry.
func setupTracing() (shutdown func(context.Context) error, err error) {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
