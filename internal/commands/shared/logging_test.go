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

package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tombee/stepwise/internal/log"
)

func clearLogEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"STEPWISE_DEBUG", "STEPWISE_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE"} {
		t.Setenv(v, "")
	}
}

func TestNewLogger_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		session   *log.Config
		verbose   bool
		quiet     bool
		wantDebug bool
		wantInfo  bool
	}{
		{name: "default warn", wantDebug: false, wantInfo: false},
		{name: "session info", session: &log.Config{Level: "info"}, wantInfo: true},
		{name: "env beats session", env: map[string]string{"LOG_LEVEL": "error"}, session: &log.Config{Level: "info"}},
		{name: "verbose wins", session: &log.Config{Level: "error"}, verbose: true, wantDebug: true, wantInfo: true},
		{name: "quiet wins", env: map[string]string{"LOG_LEVEL": "debug"}, quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLogEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			ResetFlagsForTest()
			defer ResetFlagsForTest()
			globals.verbose, globals.quiet = tt.verbose, tt.quiet

			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.session)
			logger.Debug("debug line")
			logger.Info("info line")

			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v\n%s", got, tt.wantDebug, buf.String())
			}
			if got := strings.Contains(buf.String(), "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v\n%s", got, tt.wantInfo, buf.String())
			}
		})
	}
}

func TestNewLogger_JSONFlag(t *testing.T) {
	clearLogEnv(t)
	ResetFlagsForTest()
	defer ResetFlagsForTest()
	SetJSONForTest(true)

	var buf bytes.Buffer
	NewLogger(&buf, nil).Warn("careful")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}
}
