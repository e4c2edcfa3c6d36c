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
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunSpan wraps the root span of one debugging run.
type RunSpan struct {
	span trace.Span
}

// StartRun creates the root span for a run of algorithm.
func StartRun(ctx context.Context, tracer trace.Tracer, runID, algorithm string) (context.Context, *RunSpan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("run: %s", algorithm),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("algorithm.name", algorithm),
			attribute.String("run.id", runID),
			attribute.String("span.type", "stepwise.run"),
		),
	)
	return ctx, &RunSpan{span: span}
}

// SetAttributes adds key-value attributes to the span.
func (r *RunSpan) SetAttributes(attrs map[string]any) {
	if r == nil || r.span == nil {
		return
	}
	r.span.SetAttributes(toAttributes(attrs)...)
}

// AddEvent records a timestamped event within the span.
func (r *RunSpan) AddEvent(name string, attrs map[string]any) {
	if r == nil || r.span == nil {
		return
	}
	r.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

// RecordError records err and marks the span failed.
func (r *RunSpan) RecordError(err error) {
	if r == nil || r.span == nil || err == nil {
		return
	}
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
}

// End completes the span. A span with no recorded error is marked OK.
func (r *RunSpan) End(err error) {
	if r == nil || r.span == nil {
		return
	}
	if err != nil {
		r.RecordError(err)
	} else {
		r.span.SetStatus(codes.Ok, "")
	}
	r.span.End()
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		default:
			out = append(out, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return out
}
