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

// CallFrame is one entry of the logical call stack.
type CallFrame struct {
	Name   string         `json:"name"`
	Line   int            `json:"line"`
	Locals map[string]any `json:"locals,omitempty"`
}

func copyFrames(frames []CallFrame) []CallFrame {
	if len(frames) == 0 {
		return nil
	}
	out := make([]CallFrame, len(frames))
	for i, f := range frames {
		out[i] = CallFrame{Name: f.Name, Line: f.Line, Locals: deepCopyMap(f.Locals)}
	}
	return out
}
