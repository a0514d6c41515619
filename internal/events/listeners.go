package events

import (
	"sync"
)

// listenerSet is the registry shared by ChannelEvent and CallbackEvent.
// L is the listener type (a channel or a callback) and T the value type.
type listenerSet[L any, T any] struct {
	mu        sync.RWMutex
	listeners map[uint64]L
	nextID    uint64
	replay    bool
	last      T
	hasLast   bool
}

func newListenerSet[L any, T any](replay bool) *listenerSet[L, T] {
	return &listenerSet[L, T]{
		listeners: make(map[uint64]L),
		replay:    replay,
	}
}

// add registers a listener and returns its id plus the value to replay, if any
func (s *listenerSet[L, T]) add(listener L) (uint64, T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return id, s.last, s.replay && s.hasLast
}

// addAndReplay registers a listener and hands it the replay value, if any,
// before the lock is released. A Notify racing with registration then reaches
// the listener only after the replay. deliver MUST NOT block or re-enter the set.
func (s *listenerSet[L, T]) addAndReplay(listener L, deliver func(L, T)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	if s.replay && s.hasLast {
		deliver(listener, s.last)
	}
	return id
}

func (s *listenerSet[L, T]) remove(id uint64) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// snapshot remembers value for replay and returns a copy of the listeners,
// so delivery can happen without holding the lock
func (s *listenerSet[L, T]) snapshot(value T) []L {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replay {
		s.last = value
		s.hasLast = true
	}
	out := make([]L, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *listenerSet[L, T]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}
