package events

import "sync"

// State holds a current value and announces every change to listeners.
// New listeners always receive the current value first.
type State[T any] struct {
	mu    sync.RWMutex
	value T
	event *ChannelEvent[T]
}

// NewState creates a State seeded with initial
func NewState[T any](initial T) *State[T] {
	s := &State[T]{
		value: initial,
		event: NewChannelEvent[T](true),
	}
	s.event.Notify(initial)
	return s
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies listeners
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	s.event.Notify(value)
}

// Update applies fn to the current value under the lock and publishes the result
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	next := fn(s.value)
	s.value = next
	s.mu.Unlock()
	s.event.Notify(next)
	return next
}

// Listen registers ch for changes, see ChannelEvent.Listen
func (s *State[T]) Listen(ch chan<- T) func() {
	return s.event.Listen(ch)
}
