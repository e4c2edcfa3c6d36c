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

// Watch is an expression re-evaluated on every UpdateContext.
type Watch struct {
	ID             int    `json:"id"`
	Expression     string `json:"expression"`
	NotifyOnChange bool   `json:"notifyOnChange"`

	// LastValue is the most recent successfully evaluated value. HasValue
	// distinguishes a nil result from no observation at all.
	LastValue any  `json:"lastValue"`
	HasValue  bool `json:"hasValue"`
}

func (w *Watch) copy() Watch {
	c := *w
	c.LastValue = deepCopy(w.LastValue)
	return c
}
