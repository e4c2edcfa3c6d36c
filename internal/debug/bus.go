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

// Handler receives events of the kind it subscribed to. A returned error
// stops dispatch and is returned to the emitter.
type Handler func(Event) error

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches events synchronously to per-kind subscriber lists in
// subscription order. A Bus is not safe for concurrent use.
type Bus struct {
	subs   map[EventKind][]subscription
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventKind][]subscription)}
}

// On subscribes h to events of kind. The returned function unsubscribes
// and may be called any number of times.
func (b *Bus) On(kind EventKind, h Handler) func() {
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: h})

	return func() {
		list := b.subs[kind]
		for i, s := range list {
			if s.id == id {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit dispatches e to the subscribers registered when Emit was called.
func (b *Bus) Emit(e Event) error {
	list := b.subs[e.Kind()]
	if len(list) == 0 {
		return nil
	}
	for _, s := range append([]subscription(nil), list...) {
		if err := s.fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of subscribers for kind.
func (b *Bus) Len(kind EventKind) int {
	return len(b.subs[kind])
}

// Clear drops every subscriber.
func (b *Bus) Clear() {
	clear(b.subs)
}

// Listen subscribes a handler typed on a concrete event.
//
//	debug.Listen(bus, func(e debug.WatchTriggered) error {
//		fmt.Println(e.Watch.Expression, e.OldValue, "->", e.NewValue)
//		return nil
//	})
func Listen[E Event](b *Bus, fn func(E) error) func() {
	var zero E
	return b.On(zero.Kind(), func(e Event) error {
		typed, ok := e.(E)
		if !ok {
			return nil
		}
		return fn(typed)
	})
}
