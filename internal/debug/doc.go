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

// Package debug layers a debugger over the executor's step sequence.
//
// # Controller
//
// The Controller owns breakpoints, watches, logpoints, a logical call
// stack, and a bounded ring buffer of snapshots. It is driven entirely by
// its caller: UpdateContext makes a step the live context and re-evaluates
// watches, ShouldPause decides whether to stop at a position.
//
// Breakpoints come in three forms. Line breakpoints match a position
// exactly. Conditional breakpoints match whenever their expression is
// truthy, every time it is. Hit-count breakpoints count every call at
// their position and match when the count is equal to ("="), a multiple
// of ("%"), or at least (">=") their target.
//
// # Events
//
// A Bus dispatches BreakpointHit, WatchTriggered, and LogpointHit events
// synchronously to per-kind subscribers. A handler error is returned from
// the UpdateContext or ShouldPause call that emitted it.
//
// # Position Keys
//
// ShouldPause takes an explicit integer key. The Adapter can supply either
// the step ordinal (PositionIndex) or the operation kind code
// (PositionKind), so a hit-count breakpoint can count, for example, every
// comparison.
//
// # Example Usage
//
//	ctrl := debug.NewController(debug.DefaultOptions())
//	ctrl.AddConditionalBreakpoint("swaps > 1")
//	ctrl.AddWatch("array", true)
//
//	adapter := debug.NewAdapter(exec, ctrl, debug.AdapterOptions{
//		Pauser: debug.NewShell(ctrl, os.Stdin, os.Stdout),
//	})
//	state, err := adapter.Run(ctx)
package debug
