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

import "io"

// Config holds observability configuration.
type Config struct {
	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// TraceWriter receives finished spans as JSON. Nil disables span export.
	TraceWriter io.Writer

	// OTLP ships spans to a collector when set.
	OTLP *OTLPConfig

	// PrettyPrint indents exported spans.
	PrettyPrint bool

	// SampleRate is the fraction of root spans recorded (0.0 - 1.0).
	// Zero is treated as 1.0.
	SampleRate float64
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "stepwise"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		c.SampleRate = 1
	}
	return c
}
