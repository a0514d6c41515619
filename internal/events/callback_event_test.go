package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackEvent_ListenNotify(t *testing.T) {
	event := NewCallbackEvent[string](false)

	var received []string
	unregister := event.Listen(func(v string) { received = append(received, v) })

	event.Notify("a")
	event.Notify("b")
	assert.Equal(t, []string{"a", "b"}, received)

	unregister()
	unregister()
	event.Notify("c")
	assert.Equal(t, []string{"a", "b"}, received)
	assert.Equal(t, 0, event.ListenerCount())
}

func TestCallbackEvent_ReplayLast(t *testing.T) {
	type pulse struct {
		Long bool
	}
	event := NewCallbackEvent[pulse](true)
	event.Notify(pulse{Long: true})

	var got []pulse
	defer event.Listen(func(p pulse) { got = append(got, p) })()
	assert.Equal(t, []pulse{{Long: true}}, got)
}

func TestCallbackEvent_UnregisterDuringNotify(t *testing.T) {
	event := NewCallbackEvent[string](false)

	var received []string
	var unregister func()
	unregister = event.Listen(func(v string) {
		received = append(received, v)
		if v == "stop" {
			unregister()
		}
	})

	event.Notify("one")
	event.Notify("stop")
	event.Notify("two")

	assert.Equal(t, []string{"one", "stop"}, received)
	assert.Equal(t, 0, event.ListenerCount())
}

func TestCallbackEvent_NilCallbackPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewCallbackEvent[int](false).Listen(nil)
	})
}
