// Package observer provides the synchronous publish/subscribe primitive the state stores notify through.
package observer

import (
	"sync"
	"sync/atomic"
)

// Listener receives the complete current state on every change.
type Listener[T any] func(state T)

// Subject delivers published state to its listeners synchronously, in registration order.
// Subscribing and unsubscribing are safe from any goroutine. Publish is expected to be
// driven by a single writer.
type Subject[T any] struct {
	mu        sync.Mutex
	listeners []subscription[T]
	nextID    uint64
	emitting  atomic.Bool
}

type subscription[T any] struct {
	id uint64
	fn Listener[T]
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is idempotent.
func (s *Subject[T]) Subscribe(fn Listener[T]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a fresh slice keeps any in-flight emission iterating over its own snapshot
	kept := make([]subscription[T], 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	s.listeners = kept
}

// Publish hands state to every listener registered when the call starts.
// Listeners added while an emission is running only see later emissions.
func (s *Subject[T]) Publish(state T) {
	s.mu.Lock()
	snapshot := s.listeners[:len(s.listeners):len(s.listeners)]
	s.mu.Unlock()

	s.emitting.Store(true)
	defer s.emitting.Store(false)
	for _, l := range snapshot {
		l.fn(state)
	}
}

// Emitting reports whether a Publish call is currently delivering to listeners.
func (s *Subject[T]) Emitting() bool {
	return s.emitting.Load()
}

// Len returns the number of registered listeners.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
