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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/internal/log"
	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
	"github.com/tombee/stepwise/pkg/executor"
)

// Session is the complete description of one debugging session.
type Session struct {
	Algorithm   string           `yaml:"algorithm"`
	Input       []int            `yaml:"input"`
	Executor    executor.Config  `yaml:"executor"`
	Debug       DebugConfig      `yaml:"debug"`
	Breakpoints []BreakpointSpec `yaml:"breakpoints,omitempty"`
	Watches     []WatchSpec      `yaml:"watches,omitempty"`
	Logpoints   []LogpointSpec   `yaml:"logpoints,omitempty"`
	Log         LogConfig        `yaml:"log"`
}

// DebugConfig holds the controller options and the driver position mode.
type DebugConfig struct {
	debug.Options `yaml:",inline"`

	// Position is "index" (step ordinal) or "kind" (operation kind code).
	Position string `yaml:"position"`
}

// BreakpointSpec declares one breakpoint. A spec with a condition is
// conditional; a spec with a hit count is a hit-count breakpoint at line;
// anything else is a line breakpoint.
type BreakpointSpec struct {
	Line      *int   `yaml:"line,omitempty"`
	Condition string `yaml:"condition,omitempty"`
	HitCount  int    `yaml:"hit_count,omitempty"`
	Mode      string `yaml:"mode,omitempty"`
}

// WatchSpec declares a watch expression.
type WatchSpec struct {
	Expression string `yaml:"expression"`

	// NotifyOnChange defaults to true when omitted.
	NotifyOnChange *bool `yaml:"notify_on_change,omitempty"`
}

// Notifies reports whether the watch emits change events.
func (w WatchSpec) Notifies() bool {
	return w.NotifyOnChange == nil || *w.NotifyOnChange
}

// LogpointSpec declares a logpoint.
type LogpointSpec struct {
	Line     int    `yaml:"line"`
	Template string `yaml:"template"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a session with every default filled in and no
// algorithm or input.
func Default() *Session {
	return &Session{
		Executor: executor.DefaultConfig(),
		Debug: DebugConfig{
			Options:  debug.DefaultOptions(),
			Position: string(debug.PositionIndex),
		},
		Log: LogConfig{
			Level:  log.DefaultConfig().Level,
			Format: string(log.DefaultConfig().Format),
		},
	}
}

// Load reads a session file, applies defaults, and validates it.
func Load(path string) (*Session, error) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, &stepwiseerrors.ConfigError{
			Key:    "validation",
			Reason: "session validation failed",
			Cause:  err,
		}
	}
	return s, nil
}

// LoadFile reads a session file and applies defaults without validating
// it, so that flags can be merged first.
func LoadFile(path string) (*Session, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, &stepwiseerrors.ConfigError{
			Key:    "config_file",
			Reason: fmt.Sprintf("failed to load from %s", path),
			Cause:  err,
		}
	}
	s, err := Parse(data)
	if err != nil {
		return nil, &stepwiseerrors.ConfigError{
			Key:    "config_file",
			Reason: fmt.Sprintf("failed to parse %s", path),
			Cause:  err,
		}
	}
	return s, nil
}

// Parse decodes a session from YAML and applies defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Session, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// Marshal encodes the session as YAML.
func (s *Session) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyDefaults fills in zero values with defaults.
func (s *Session) applyDefaults() {
	defaults := Default()

	if s.Debug.MaxSnapshots == 0 {
		s.Debug.MaxSnapshots = defaults.Debug.MaxSnapshots
	}
	if s.Debug.SnapshotInterval == 0 {
		s.Debug.SnapshotInterval = defaults.Debug.SnapshotInterval
	}
	if s.Debug.Position == "" {
		s.Debug.Position = defaults.Debug.Position
	}
	if s.Log.Level == "" {
		s.Log.Level = defaults.Log.Level
	}
	if s.Log.Format == "" {
		s.Log.Format = defaults.Log.Format
	}
	for i := range s.Breakpoints {
		if s.Breakpoints[i].HitCount > 0 && s.Breakpoints[i].Mode == "" {
			s.Breakpoints[i].Mode = string(debug.HitEqual)
		}
	}
}

// PositionMode returns the parsed driver position mode.
func (s *Session) PositionMode() debug.PositionMode {
	mode, err := debug.ParsePositionMode(s.Debug.Position)
	if err != nil {
		return debug.PositionIndex
	}
	return mode
}

// Logging returns the logging configuration for the session.
func (s *Session) Logging() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = strings.ToLower(s.Log.Level)
	cfg.Format = log.Format(strings.ToLower(s.Log.Format))
	return cfg
}

func readFile(path string) ([]byte, error) {
	// Expand home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}
