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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_OrderAndKinds(t *testing.T) {
	b := NewBus()
	var order []string
	b.On(KindLogpoint, func(Event) error {
		order = append(order, "first")
		return nil
	})
	b.On(KindLogpoint, func(Event) error {
		order = append(order, "second")
		return nil
	})
	b.On(KindWatchTriggered, func(Event) error {
		order = append(order, "watch")
		return nil
	})

	assert.NoError(t, b.Emit(LogpointHit{Message: "m"}))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 2, b.Len(KindLogpoint))
	assert.Zero(t, b.Len(KindBreakpointHit))
	assert.NoError(t, b.Emit(BreakpointHit{}), "no subscribers is not an error")
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	off := b.On(KindLogpoint, func(Event) error {
		calls++
		return nil
	})
	other := b.On(KindLogpoint, func(Event) error { return nil })

	off()
	off()
	assert.Equal(t, 1, b.Len(KindLogpoint), "second unsubscribe is a no-op")

	assert.NoError(t, b.Emit(LogpointHit{}))
	assert.Zero(t, calls)

	other()
	assert.Zero(t, b.Len(KindLogpoint))
}

func TestBus_UnsubscribeDuringEmit(t *testing.T) {
	b := NewBus()
	var calls []int
	var off func()
	off = b.On(KindLogpoint, func(Event) error {
		calls = append(calls, 1)
		off()
		return nil
	})
	b.On(KindLogpoint, func(Event) error {
		calls = append(calls, 2)
		return nil
	})

	assert.NoError(t, b.Emit(LogpointHit{}))
	assert.NoError(t, b.Emit(LogpointHit{}))
	assert.Equal(t, []int{1, 2, 2}, calls)
}

func TestBus_HandlerErrorStopsDispatch(t *testing.T) {
	b := NewBus()
	boom := errors.New("boom")
	reached := false
	b.On(KindWatchTriggered, func(Event) error { return boom })
	b.On(KindWatchTriggered, func(Event) error {
		reached = true
		return nil
	})

	assert.ErrorIs(t, b.Emit(WatchTriggered{}), boom)
	assert.False(t, reached)
}

func TestBus_ListenTyped(t *testing.T) {
	b := NewBus()
	var got []string
	off := Listen(b, func(e LogpointHit) error {
		got = append(got, e.Message)
		return nil
	})

	assert.NoError(t, b.Emit(LogpointHit{Message: "a"}))
	assert.NoError(t, b.Emit(WatchTriggered{}))
	off()
	assert.NoError(t, b.Emit(LogpointHit{Message: "b"}))
	assert.Equal(t, []string{"a"}, got)
}

func TestBus_Clear(t *testing.T) {
	b := NewBus()
	b.On(KindLogpoint, func(Event) error { return errors.New("should not run") })
	b.On(KindBreakpointHit, func(Event) error { return nil })

	b.Clear()
	assert.Zero(t, b.Len(KindLogpoint))
	assert.Zero(t, b.Len(KindBreakpointHit))
	assert.NoError(t, b.Emit(LogpointHit{}))
}
