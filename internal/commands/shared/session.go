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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tombee/stepwise/internal/config"
	"github.com/tombee/stepwise/internal/debug"
	pkgerrors "github.com/tombee/stepwise/pkg/errors"
)

// SessionFlags are the flags that build or override a session.
type SessionFlags struct {
	Input        []int
	Breaks       []int
	Conditions   []string
	HitCounts    []string
	Watches      []string
	Logpoints    []string
	Position     string
	MaxSteps     int
	MaxSnapshots int
	AutoSnapshot bool
	Interval     int
}

// Register adds the session flags to fs.
func (f *SessionFlags) Register(fs *pflag.FlagSet) {
	fs.IntSliceVarP(&f.Input, "input", "i", nil, "Input sequence, e.g. 5,2,1")
	fs.IntSliceVarP(&f.Breaks, "break", "b", nil, "Line breakpoint at position N (repeatable)")
	fs.StringArrayVar(&f.Conditions, "when", nil, "Conditional breakpoint expression (repeatable)")
	fs.StringArrayVar(&f.HitCounts, "hit", nil, "Hit-count breakpoint as N:COUNT[:MODE], MODE is =, >= or % (repeatable)")
	fs.StringArrayVarP(&f.Watches, "watch", "w", nil, "Watch expression (repeatable)")
	fs.StringArrayVar(&f.Logpoints, "log", nil, "Logpoint as N:TEMPLATE, e.g. '2:swaps={swaps}' (repeatable)")
	fs.StringVar(&f.Position, "position", "", "Breakpoint position key: index or kind")
	fs.IntVar(&f.MaxSteps, "max-steps", 0, "Abort runs producing more than N steps (0 = unlimited)")
	fs.IntVar(&f.MaxSnapshots, "max-snapshots", 0, "Snapshot history size")
	fs.BoolVar(&f.AutoSnapshot, "auto-snapshot", false, "Capture a snapshot automatically")
	fs.IntVar(&f.Interval, "snapshot-interval", 0, "Steps between automatic snapshots")
}

// LoadSession builds a session from the --config file, or the defaults
// when none is given, then applies the positional algorithm and any
// flags that were set. The session is not validated.
func LoadSession(fs *pflag.FlagSet, algorithm string, f *SessionFlags) (*config.Session, error) {
	s := config.Default()
	if path := GetConfigPath(); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, NewInvalidSessionError("failed to load session", err)
		}
		s = loaded
	}

	if algorithm != "" {
		s.Algorithm = algorithm
	}
	if err := f.Apply(fs, s); err != nil {
		return nil, NewInvalidSessionError("invalid flags", err)
	}
	return s, nil
}

// ValidateSession validates s and maps failures to an exit error.
func ValidateSession(s *config.Session) error {
	if err := s.Validate(); err != nil {
		return NewInvalidSessionError("invalid session", &pkgerrors.ConfigError{
			Key:    "validation",
			Reason: "session validation failed",
			Cause:  err,
		})
	}
	return nil
}

// Apply merges the flags that were set into s. Scalar flags replace the
// session value; breakpoint, watch and logpoint flags append to it.
func (f *SessionFlags) Apply(fs *pflag.FlagSet, s *config.Session) error {
	changed := func(name string) bool {
		flag := fs.Lookup(name)
		return flag != nil && flag.Changed
	}

	if changed("input") {
		s.Input = append([]int(nil), f.Input...)
	}
	if changed("position") {
		s.Debug.Position = f.Position
	}
	if changed("max-steps") {
		s.Executor.MaxSteps = f.MaxSteps
	}
	if changed("max-snapshots") {
		s.Debug.MaxSnapshots = f.MaxSnapshots
	}
	if changed("auto-snapshot") {
		s.Debug.AutoSnapshot = f.AutoSnapshot
	}
	if changed("snapshot-interval") {
		s.Debug.SnapshotInterval = f.Interval
	}

	for _, at := range f.Breaks {
		s.Breakpoints = append(s.Breakpoints, config.BreakpointSpec{Line: intPtr(at)})
	}
	for _, cond := range f.Conditions {
		s.Breakpoints = append(s.Breakpoints, config.BreakpointSpec{Condition: cond})
	}
	for _, spec := range f.HitCounts {
		bp, err := ParseHitSpec(spec)
		if err != nil {
			return err
		}
		s.Breakpoints = append(s.Breakpoints, bp)
	}
	for _, expr := range f.Watches {
		s.Watches = append(s.Watches, config.WatchSpec{Expression: expr})
	}
	for _, spec := range f.Logpoints {
		lp, err := ParseLogSpec(spec)
		if err != nil {
			return err
		}
		s.Logpoints = append(s.Logpoints, lp)
	}
	return nil
}

// ParseHitSpec parses N:COUNT[:MODE].
func ParseHitSpec(spec string) (config.BreakpointSpec, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return config.BreakpointSpec{}, fmt.Errorf("invalid --hit %q: want N:COUNT[:MODE]", spec)
	}

	at, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return config.BreakpointSpec{}, fmt.Errorf("invalid --hit %q: position: %w", spec, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return config.BreakpointSpec{}, fmt.Errorf("invalid --hit %q: count: %w", spec, err)
	}

	mode := string(debug.HitEqual)
	if len(parts) == 3 {
		m, err := debug.ParseHitMode(strings.TrimSpace(parts[2]))
		if err != nil {
			return config.BreakpointSpec{}, fmt.Errorf("invalid --hit %q: %w", spec, err)
		}
		mode = string(m)
	}
	return config.BreakpointSpec{Line: intPtr(at), HitCount: count, Mode: mode}, nil
}

// ParseLogSpec parses N:TEMPLATE. The template may contain colons.
func ParseLogSpec(spec string) (config.LogpointSpec, error) {
	pos, template, ok := strings.Cut(spec, ":")
	if !ok || template == "" {
		return config.LogpointSpec{}, fmt.Errorf("invalid --log %q: want N:TEMPLATE", spec)
	}
	at, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil {
		return config.LogpointSpec{}, fmt.Errorf("invalid --log %q: position: %w", spec, err)
	}
	return config.LogpointSpec{Line: at, Template: template}, nil
}

func intPtr(v int) *int {
	return &v
}
