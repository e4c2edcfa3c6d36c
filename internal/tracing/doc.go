// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package tracing provides OpenTelemetry traces and metrics for stepwise runs.

A Provider owns a trace provider and a meter provider. Spans can be written
to any io.Writer through the stdout exporter, and metrics are exported
through the OpenTelemetry Prometheus exporter into a private registry that
WriteMetrics renders in the Prometheus text format.

# Quick Start

	provider, err := tracing.NewProvider(tracing.Config{
	    ServiceName:    "stepwise",
	    ServiceVersion: version,
	    TraceWriter:    os.Stderr,
	})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	exec := executor.New(
	    executor.WithTracer(provider.Tracer("executor")),
	    executor.WithRecorder(provider.Metrics()),
	)

# Run Spans

StartRun opens the root span of one debugging run. Breakpoint hits and
other notable moments are attached to it as span events:

	ctx, span := tracing.StartRun(ctx, tracer, runID, "bubble")
	defer span.End()
	span.AddEvent("breakpoint", map[string]any{"position": 3})
*/
package tracing
