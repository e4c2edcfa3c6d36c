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
	"fmt"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

// Default option values.
const (
	DefaultMaxSnapshots     = 100
	DefaultSnapshotInterval = 1
)

// Options holds controller configuration.
type Options struct {
	// MaxSnapshots is the capacity of the snapshot ring buffer.
	MaxSnapshots int `yaml:"max_snapshots" json:"max_snapshots"`

	// AutoSnapshot captures a snapshot from UpdateContext every
	// SnapshotInterval steps.
	AutoSnapshot bool `yaml:"auto_snapshot" json:"auto_snapshot"`

	// SnapshotInterval is the number of steps between automatic snapshots.
	SnapshotInterval int `yaml:"snapshot_interval" json:"snapshot_interval"`

	// TrackCallStack enables PushCallFrame and PopCallFrame. Nil means
	// enabled; when explicitly false both are no-ops.
	TrackCallStack *bool `yaml:"track_call_stack,omitempty" json:"track_call_stack,omitempty"`
}

// CallStackEnabled reports whether call-frame tracking is on.
func (o Options) CallStackEnabled() bool {
	return o.TrackCallStack == nil || *o.TrackCallStack
}

// DefaultOptions returns the default controller options.
func DefaultOptions() Options {
	return Options{
		MaxSnapshots:     DefaultMaxSnapshots,
		SnapshotInterval: DefaultSnapshotInterval,
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.MaxSnapshots < 0 {
		return &stepwiseerrors.ValidationError{
			Field:   "max_snapshots",
			Message: fmt.Sprintf("must not be negative, got %d", o.MaxSnapshots),
		}
	}
	if o.SnapshotInterval < 0 {
		return &stepwiseerrors.ValidationError{
			Field:   "snapshot_interval",
			Message: fmt.Sprintf("must not be negative, got %d", o.SnapshotInterval),
		}
	}
	return nil
}

// withDefaults fills zero-valued sizes. AutoSnapshot is taken as given.
func (o Options) withDefaults() Options {
	if o.MaxSnapshots <= 0 {
		o.MaxSnapshots = DefaultMaxSnapshots
	}
	if o.SnapshotInterval <= 0 {
		o.SnapshotInterval = DefaultSnapshotInterval
	}
	return o
}
