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

// Package config loads and validates stepwise session files.
//
// A session file names an algorithm and its input and declares the
// breakpoints, watches, and logpoints to install before the run:
//
//	algorithm: bubble
//	input: [5, 2, 1]
//	executor: {max_steps: 10000, break_on_error: true}
//	debug: {max_snapshots: 50, auto_snapshot: true, position: index}
//	breakpoints:
//	  - {line: 3}
//	  - {condition: "swaps > 1"}
//	  - {line: 1, hit_count: 2, mode: "%"}
//	watches: [{expression: swaps, notify_on_change: true}]
//	logpoints: [{line: 2, template: "swaps={swaps} arr={array}"}]
//	log: {level: info, format: text}
//
// Missing values take the defaults from Default. Command-line flags are
// merged over a loaded session before it is validated.
package config
