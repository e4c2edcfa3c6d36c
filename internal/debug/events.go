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

package debug

import (
	"time"

	"github.com/tombee/stepwise/pkg/executor"
)

// EventKind identifies the kind of a debugger event.
type EventKind string

const (
	// KindBreakpointHit is emitted when ShouldPause matches a breakpoint.
	KindBreakpointHit EventKind = "breakpoint_hit"

	// KindWatchTriggered is emitted when a watched value changes.
	KindWatchTriggered EventKind = "watch_triggered"

	// KindLogpoint is emitted when a logpoint matches and formats its message.
	KindLogpoint EventKind = "logpoint"
)

// Event is implemented by BreakpointHit, WatchTriggered, and LogpointHit.
type Event interface {
	Kind() EventKind
}

// Context is the live debug context, rebuilt on every UpdateContext.
type Context struct {
	// Step is the step most recently passed to UpdateContext.
	Step executor.ExecutionStep `json:"step"`

	// StepIndex is the index supplied with the step.
	StepIndex int `json:"stepIndex"`

	// Variables are the bindings supplied with the step.
	Variables map[string]any `json:"variables"`
}

// BreakpointHit reports that execution should pause.
type BreakpointHit struct {
	Context    Context    `json:"context"`
	Breakpoint Breakpoint `json:"breakpoint"`
	Position   int        `json:"position"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Kind implements Event.
func (BreakpointHit) Kind() EventKind { return KindBreakpointHit }

// WatchTriggered reports a change in a watched expression's value.
// OldValue is nil on the first observation.
type WatchTriggered struct {
	Watch    Watch `json:"watch"`
	OldValue any   `json:"oldValue"`
	NewValue any   `json:"newValue"`
}

// Kind implements Event.
func (WatchTriggered) Kind() EventKind { return KindWatchTriggered }

// LogpointHit carries a formatted logpoint message.
type LogpointHit struct {
	Logpoint Logpoint `json:"logpoint"`
	Message  string   `json:"message"`
	Position int      `json:"position"`
}

// Kind implements Event.
func (LogpointHit) Kind() EventKind { return KindLogpoint }

// Command is the decision a Pauser returns for a paused step.
type Command string

const (
	// CommandContinue resumes execution until the next breakpoint or completion.
	CommandContinue Command = "continue"

	// CommandNext resumes and pauses again on the following step.
	CommandNext Command = "next"

	// CommandAbort cancels execution immediately.
	CommandAbort Command = "abort"
)
