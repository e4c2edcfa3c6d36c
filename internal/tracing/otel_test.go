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
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestProvider_WriteMetrics(t *testing.T) {
	provider, err := NewProvider(Config{ServiceName: "stepwise-test", ServiceVersion: "1.0.0"})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	ctx := context.Background()
	mc := provider.Metrics()
	mc.RecordStep(ctx, "bubble", "compare")
	mc.RecordStep(ctx, "bubble", "swap")
	mc.RecordBreakpointHit(ctx, "line")

	var buf bytes.Buffer
	require.NoError(t, provider.WriteMetrics(&buf))

	out := buf.String()
	assert.Contains(t, out, "stepwise_steps_total")
	assert.Contains(t, out, "stepwise_breakpoint_hits_total")
	assert.Contains(t, out, `algorithm="bubble"`)
	assert.Contains(t, out, `kind="swap"`)
}

func TestProvider_TraceWriter(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewProvider(Config{TraceWriter: &buf})
	require.NoError(t, err)

	_, span := provider.Tracer("test").Start(context.Background(), "test-operation")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "test-operation")
}

func TestProvider_NoTraceWriter(t *testing.T) {
	provider, err := NewProvider(Config{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "silent")
	span.End()
	assert.NoError(t, provider.ForceFlush(context.Background()))
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"always", 1, "ParentBased{root:AlwaysOnSampler"},
		{"never", 0, "ParentBased{root:AlwaysOffSampler"},
		{"ratio", 0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := NewSampler(tt.rate)
			assert.Contains(t, sampler.Description(), tt.want)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "stepwise", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, 1.0, cfg.SampleRate)

	cfg = Config{SampleRate: 0.25}.withDefaults()
	assert.Equal(t, 0.25, cfg.SampleRate)
}

var _ sdktrace.Sampler = NewSampler(1)
