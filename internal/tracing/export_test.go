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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTLPExporter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OTLPConfig
		wantErr string
	}{
		{name: "grpc default", cfg: OTLPConfig{Endpoint: "localhost:4317", Insecure: true}},
		{name: "grpc tls", cfg: OTLPConfig{Endpoint: "collector:4317", Protocol: ProtocolGRPC}},
		{name: "http", cfg: OTLPConfig{Endpoint: "localhost:4318", Protocol: ProtocolHTTP, Insecure: true,
			Headers: map[string]string{"x-team": "algo"}}},
		{name: "missing endpoint", cfg: OTLPConfig{}, wantErr: "endpoint is required"},
		{name: "bad protocol", cfg: OTLPConfig{Endpoint: "x:1", Protocol: "udp"}, wantErr: "unknown otlp protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := NewOTLPExporter(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = exp.Shutdown(ctx)
		})
	}
}

func TestProvider_OTLP(t *testing.T) {
	p, err := NewProvider(Config{OTLP: &OTLPConfig{Endpoint: "localhost:4317", Insecure: true}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestProvider_OTLPInvalid(t *testing.T) {
	_, err := NewProvider(Config{OTLP: &OTLPConfig{Endpoint: "localhost:4317", Protocol: "carrier-pigeon"}})
	assert.Error(t, err)
}
