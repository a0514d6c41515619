package events

// ChannelEvent fans a value out to registered channels
type ChannelEvent[T any] struct {
	set *listenerSet[chan<- T, T]
}

// NewChannelEvent creates a ChannelEvent. With replayLast set, a listener
// registered after the first Notify receives the latest value right away,
// ahead of any value notified later.
func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{set: newListenerSet[chan<- T, T](replayLast)}
}

// Listen registers ch and returns a function that removes it again.
// Calling the returned function more than once is safe.
func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("events: channel cannot be nil")
	}
	id := e.set.addAndReplay(ch, trySend[T])
	return func() { e.set.remove(id) }
}

// Notify delivers value to every listener. Sends never block: a listener
// whose buffer is full misses this value.
func (e *ChannelEvent[T]) Notify(value T) {
	for _, ch := range e.set.snapshot(value) {
		trySend(ch, value)
	}
}

// ListenerCount returns the number of registered channels
func (e *ChannelEvent[T]) ListenerCount() int {
	return e.set.count()
}

func trySend[T any](ch chan<- T, value T) {
	select {
	case ch <- value:
	default:
	}
}
