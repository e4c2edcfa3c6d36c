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

import "time"

// Snapshot is a deep copy of the bindings at one step.
type Snapshot struct {
	StepIndex int            `json:"stepIndex"`
	Variables map[string]any `json:"variables"`
	Stack     []CallFrame    `json:"stack,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (s Snapshot) copy() Snapshot {
	s.Variables = deepCopyMap(s.Variables)
	s.Stack = copyFrames(s.Stack)
	return s
}

// ring is a fixed-capacity FIFO of snapshots. The oldest entry is
// overwritten once the buffer is full.
type ring struct {
	buf   []Snapshot
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Snapshot, capacity)}
}

func (r *ring) push(s Snapshot) {
	if len(r.buf) == 0 {
		return
	}
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int {
	return r.n
}

// at returns the i-th retained snapshot, oldest first.
func (r *ring) at(i int) (Snapshot, bool) {
	if i < 0 || i >= r.n {
		return Snapshot{}, false
	}
	return r.buf[(r.start+i)%len(r.buf)], true
}

func (r *ring) items() []Snapshot {
	out := make([]Snapshot, 0, r.n)
	for i := range r.n {
		s, _ := r.at(i)
		out = append(out, s.copy())
	}
	return out
}

func (r *ring) reset() {
	clear(r.buf)
	r.start, r.n = 0, 0
}
