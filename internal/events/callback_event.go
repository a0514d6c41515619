package events

// CallbackEvent calls registered functions synchronously on Notify.
// Used for hooks that must not be dropped, such as haptic pulses and
// timer completion.
type CallbackEvent[T any] struct {
	set *listenerSet[func(T), T]
}

// NewCallbackEvent creates a CallbackEvent, see NewChannelEvent for replayLast.
// The replay runs outside the lock so a callback may Listen or Notify; a
// concurrent Notify can reach the new callback before the replay does.
func NewCallbackEvent[T any](replayLast bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{set: newListenerSet[func(T), T](replayLast)}
}

// Listen registers callback and returns its deregistration function
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("events: callback cannot be nil")
	}
	id, last, replay := e.set.add(callback)
	if replay {
		callback(last)
	}
	return func() { e.set.remove(id) }
}

// Notify calls every callback with value on the calling goroutine
func (e *CallbackEvent[T]) Notify(value T) {
	for _, callback := range e.set.snapshot(value) {
		callback(value)
	}
}

// ListenerCount returns the number of registered callbacks
func (e *CallbackEvent[T]) ListenerCount() int {
	return e.set.count()
}
