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
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/internal/log"
	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
	"github.com/tombee/stepwise/pkg/executor"
	"github.com/tombee/stepwise/pkg/expression"
)

// Validate checks that the session can run: the algorithm is known, the
// input is non-empty, every expression compiles, and every enumerated
// value is recognised. All problems are reported, each as a
// *errors.ConfigError, joined with errors.Join.
func (s *Session) Validate() error {
	var errs []error
	add := func(key string, cause error, format string, args ...any) {
		errs = append(errs, &stepwiseerrors.ConfigError{
			Key:    key,
			Reason: fmt.Sprintf(format, args...),
			Cause:  cause,
		})
	}

	if s.Algorithm == "" {
		add("algorithm", nil, "is required (one of %s)", strings.Join(executor.Names(), ", "))
	} else if _, err := executor.Lookup(s.Algorithm); err != nil {
		add("algorithm", err, "unknown algorithm %q (one of %s)", s.Algorithm, strings.Join(executor.Names(), ", "))
	}
	if len(s.Input) == 0 {
		add("input", nil, "must not be empty")
	}

	if s.Executor.MaxSteps < 0 {
		add("executor.max_steps", nil, "must not be negative, got %d", s.Executor.MaxSteps)
	}
	if err := s.Debug.Options.Validate(); err != nil {
		add("debug", err, "%v", err)
	}
	if _, err := debug.ParsePositionMode(s.Debug.Position); err != nil {
		add("debug.position", err, "%v", err)
	}

	eval := expression.New()
	compiles := func(key, expr string) {
		if err := eval.Validate(expr); err != nil {
			add(key, err, "%v", err)
		}
	}

	for i, bp := range s.Breakpoints {
		key := fmt.Sprintf("breakpoints[%d]", i)
		switch {
		case bp.Condition != "":
			if bp.Line != nil || bp.HitCount != 0 {
				add(key, nil, "a conditional breakpoint takes no line or hit_count")
			}
			compiles(key+".condition", bp.Condition)
		case bp.Line == nil:
			add(key, nil, "needs a line or a condition")
		case bp.HitCount < 0:
			add(key+".hit_count", nil, "must be positive, got %d", bp.HitCount)
		case bp.HitCount > 0:
			if _, err := debug.ParseHitMode(bp.Mode); err != nil {
				add(key+".mode", err, "%v", err)
			}
		case bp.Mode != "":
			add(key+".mode", nil, "mode requires hit_count")
		}
	}

	for i, w := range s.Watches {
		compiles(fmt.Sprintf("watches[%d].expression", i), w.Expression)
	}

	for i, lp := range s.Logpoints {
		key := fmt.Sprintf("logpoints[%d].template", i)
		segments, err := expression.Segments(lp.Template)
		if err != nil {
			add(key, err, "%v", err)
			continue
		}
		for _, seg := range segments {
			compiles(key, seg)
		}
	}

	if _, err := log.ParseLevel(s.Log.Level); err != nil {
		add("log.level", err, "must be one of [trace, debug, info, warn, error], got %q", s.Log.Level)
	}
	if f := log.Format(strings.ToLower(s.Log.Format)); f != log.FormatJSON && f != log.FormatText {
		add("log.format", nil, "must be one of [json, text], got %q", s.Log.Format)
	}

	return errors.Join(errs...)
}

// Lint returns warnings for expressions that read variables the
// algorithm never binds. Such expressions evaluate against nil and are
// usually typos.
func (s *Session) Lint() []string {
	algo, err := executor.Lookup(s.Algorithm)
	if err != nil {
		return nil
	}
	known := slices.Concat(executor.StandardVariables, algo.Locals, []string{
		expression.StepIndexKey,
		expression.DescriptionKey,
		expression.StatusKey,
		expression.AffectedKey,
	})

	var warnings []string
	check := func(where, expr string) {
		if err := expression.ValidateReferences(expr, known); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", where, err))
		}
	}
	for i, bp := range s.Breakpoints {
		if bp.Condition != "" {
			check(fmt.Sprintf("breakpoints[%d].condition", i), bp.Condition)
		}
	}
	for i, w := range s.Watches {
		check(fmt.Sprintf("watches[%d].expression", i), w.Expression)
	}
	for i, lp := range s.Logpoints {
		segments, _ := expression.Segments(lp.Template)
		for _, seg := range segments {
			check(fmt.Sprintf("logpoints[%d].template", i), seg)
		}
	}
	return warnings
}

// Install registers the session's breakpoints, watches, and logpoints on
// ctrl in declaration order.
func (s *Session) Install(ctrl *debug.Controller) error {
	for i, bp := range s.Breakpoints {
		switch {
		case bp.Condition != "":
			ctrl.AddConditionalBreakpoint(bp.Condition)
		case bp.Line == nil:
			return &stepwiseerrors.ConfigError{Key: fmt.Sprintf("breakpoints[%d]", i), Reason: "needs a line or a condition"}
		case bp.HitCount > 0:
			if _, err := ctrl.AddHitCountBreakpoint(*bp.Line, bp.HitCount, debug.HitMode(bp.Mode)); err != nil {
				return &stepwiseerrors.ConfigError{Key: fmt.Sprintf("breakpoints[%d]", i), Reason: err.Error(), Cause: err}
			}
		default:
			ctrl.AddLineBreakpoint(*bp.Line)
		}
	}
	for _, w := range s.Watches {
		ctrl.AddWatch(w.Expression, w.Notifies())
	}
	for _, lp := range s.Logpoints {
		ctrl.AddLogpoint(lp.Line, lp.Template)
	}
	return nil
}
