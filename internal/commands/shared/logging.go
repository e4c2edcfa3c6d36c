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
	"io"
	"log/slog"
	"os"

	"github.com/tombee/stepwise/internal/log"
)

// NewLogger builds the process logger. The environment sets the baseline,
// the session's log section overrides it, and --verbose or --quiet win.
func NewLogger(w io.Writer, session *log.Config) *slog.Logger {
	cfg := log.FromEnv()
	if session != nil {
		if session.Level != "" && !envLevelSet() {
			cfg.Level = session.Level
		}
		if session.Format != "" {
			cfg.Format = session.Format
		}
	}

	switch {
	case GetVerbose():
		cfg.Level = "debug"
	case GetQuiet():
		cfg.Level = "error"
	}
	if GetJSON() {
		cfg.Format = log.FormatJSON
	}

	cfg.Output = w
	return log.New(cfg)
}

func envLevelSet() bool {
	for _, v := range []string{"STEPWISE_DEBUG", "STEPWISE_LOG_LEVEL", "LOG_LEVEL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
