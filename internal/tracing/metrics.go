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

package tracing

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector records stepping and debugging metrics. It satisfies
// both executor.StepRecorder and debug.Recorder.
type MetricsCollector struct {
	meter metric.Meter

	// Counters
	runsTotal      metric.Int64Counter
	stepsTotal     metric.Int64Counter
	breakpointHits metric.Int64Counter
	watchTriggers  metric.Int64Counter
	logpointsTotal metric.Int64Counter
	snapshotsTotal metric.Int64Counter
	pausesTotal    metric.Int64Counter

	// Histograms
	runDuration metric.Float64Histogram

	// Gauges
	activeRuns   map[string]bool
	activeRunsMu sync.RWMutex
}

// NewMetricsCollector creates a metrics collector using the given meter provider.
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("stepwise")

	mc := &MetricsCollector{
		meter:      meter,
		activeRuns: make(map[string]bool),
	}

	var err error

	mc.runsTotal, err = meter.Int64Counter(
		"stepwise_runs_total",
		metric.WithDescription("Total number of algorithm runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	mc.stepsTotal, err = meter.Int64Counter(
		"stepwise_steps_total",
		metric.WithDescription("Total number of execution steps produced"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	mc.breakpointHits, err = meter.Int64Counter(
		"stepwise_breakpoint_hits_total",
		metric.WithDescription("Total number of breakpoint hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	mc.watchTriggers, err = meter.Int64Counter(
		"stepwise_watch_triggers_total",
		metric.WithDescription("Total number of watch change notifications"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	mc.logpointsTotal, err = meter.Int64Counter(
		"stepwise_logpoints_total",
		metric.WithDescription("Total number of logpoint messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	mc.snapshotsTotal, err = meter.Int64Counter(
		"stepwise_snapshots_total",
		metric.WithDescription("Total number of snapshots captured"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	mc.pausesTotal, err = meter.Int64Counter(
		"stepwise_pauses_total",
		metric.WithDescription("Total number of pauses handed to the user"),
		metric.WithUnit("{pause}"),
	)
	if err != nil {
		return nil, err
	}

	mc.runDuration, err = meter.Float64Histogram(
		"stepwise_run_duration_seconds",
		metric.WithDescription("Algorithm run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"stepwise_active_runs",
		metric.WithDescription("Number of runs in progress"),
		metric.WithUnit("{run}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			mc.activeRunsMu.RLock()
			count := len(mc.activeRuns)
			mc.activeRunsMu.RUnlock()
			observer.Observe(int64(count))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordRunStart marks a run as active.
func (mc *MetricsCollector) RecordRunStart(ctx context.Context, runID, algorithm string) {
	mc.activeRunsMu.Lock()
	mc.activeRuns[runID] = true
	mc.activeRunsMu.Unlock()
}

// RecordRunComplete records a finished run with its status and duration.
func (mc *MetricsCollector) RecordRunComplete(ctx context.Context, runID, algorithm, status string, duration time.Duration) {
	mc.activeRunsMu.Lock()
	delete(mc.activeRuns, runID)
	mc.activeRunsMu.Unlock()

	attrs := metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("status", status),
	)
	mc.runsTotal.Add(ctx, 1, attrs)
	mc.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep counts one produced step.
func (mc *MetricsCollector) RecordStep(ctx context.Context, algorithm, kind string) {
	mc.stepsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("kind", kind),
	))
}

// RecordBreakpointHit counts one breakpoint hit.
func (mc *MetricsCollector) RecordBreakpointHit(ctx context.Context, breakpointType string) {
	mc.breakpointHits.Add(ctx, 1, metric.WithAttributes(attribute.String("type", breakpointType)))
}

// RecordWatchTrigger counts one watch notification.
func (mc *MetricsCollector) RecordWatchTrigger(ctx context.Context) {
	mc.watchTriggers.Add(ctx, 1)
}

// RecordLogpoint counts one logpoint message.
func (mc *MetricsCollector) RecordLogpoint(ctx context.Context) {
	mc.logpointsTotal.Add(ctx, 1)
}

// RecordSnapshot counts one captured snapshot.
func (mc *MetricsCollector) RecordSnapshot(ctx context.Context) {
	mc.snapshotsTotal.Add(ctx, 1)
}

// RecordPause counts one pause handed to the user, labelled with the
// command that ended it.
func (mc *MetricsCollector) RecordPause(ctx context.Context, command string) {
	mc.pausesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

// ActiveRuns returns the number of runs in progress.
func (mc *MetricsCollector) ActiveRuns() int {
	mc.activeRunsMu.RLock()
	defer mc.activeRunsMu.RUnlock()
	return len(mc.activeRuns)
}
