package settimer

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitTimeout = 2 * time.Second

// waitForState drains ch until match accepts a state
func waitForState(t *testing.T, ch <-chan State, match func(State) bool) State {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-ch:
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for timer state")
			return State{}
		}
	}
}

func hasStatus(status Status) func(State) bool {
	return func(s State) bool { return s.Status == status }
}

type pulseRecorder struct {
	mu     sync.Mutex
	pulses []Pulse
}

func (r *pulseRecorder) record(p Pulse) {
	r.mu.Lock()
	r.pulses = append(r.pulses, p)
	r.mu.Unlock()
}

func (r *pulseRecorder) get() []Pulse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Pulse(nil), r.pulses...)
}

func newTestTimer(t *testing.T, cfg Config) *Timer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	timer := New(cfg, logger)
	t.Cleanup(timer.Shutdown)
	return timer
}

func TestTimer_CountdownCompletesWithPulses(t *testing.T) {
	pulses := &pulseRecorder{}
	results := make(chan Result, 1)

	timer := newTestTimer(t, Config{
		Kind:         KindRest,
		Target:       5 * time.Second,
		TickInterval: 2 * time.Millisecond,
		OnHaptic:     pulses.record,
		OnComplete:   func(r Result) { results <- r },
	})
	timer.Start()

	select {
	case r := <-results:
		assert.Equal(t, Result{Kind: KindRest, Target: 5 * time.Second, Actual: 5 * time.Second}, r)
	case <-time.After(waitTimeout):
		t.Fatal("timer did not complete")
	}

	assert.Equal(t, []Pulse{
		{SecondsLeft: 3},
		{SecondsLeft: 2},
		{SecondsLeft: 1},
		{Long: true},
	}, pulses.get())

	state := timer.State()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, time.Duration(0), state.Display())
}

func TestTimer_HapticWindowConfigurable(t *testing.T) {
	pulses := &pulseRecorder{}
	done := make(chan struct{})

	newTestTimer(t, Config{
		Kind:          KindTimedDuration,
		Target:        4 * time.Second,
		AutoStart:     true,
		HapticSeconds: -1,
		TickInterval:  2 * time.Millisecond,
		OnHaptic:      pulses.record,
		OnComplete:    func(Result) { close(done) },
	})

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timer did not complete")
	}
	assert.Equal(t, []Pulse{{Long: true}}, pulses.get())
}

func TestTimer_StopAndResume(t *testing.T) {
	timer := newTestTimer(t, Config{
		Kind:         KindRest,
		Target:       time.Hour,
		TickInterval: time.Millisecond,
	})
	states := make(chan State, 256)
	defer timer.Listen(states)()

	timer.Start()
	waitForState(t, states, func(s State) bool { return s.Elapsed >= 3*time.Second })

	timer.Stop()
	stopped := waitForState(t, states, hasStatus(StatusStopped))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped.Elapsed, timer.State().Elapsed, "stopped timer must not advance")

	timer.Resume()
	waitForState(t, states, func(s State) bool {
		return s.Status == StatusRunning && s.Elapsed > stopped.Elapsed
	})
}

func TestTimer_Adjust(t *testing.T) {
	results := make(chan Result, 1)
	timer := newTestTimer(t, Config{
		Kind:         KindRest,
		Target:       60 * time.Second,
		TickInterval: time.Hour,
		OnComplete:   func(r Result) { results <- r },
	})
	states := make(chan State, 16)
	defer timer.Listen(states)()

	timer.Start()
	waitForState(t, states, hasStatus(StatusRunning))

	timer.Adjust(15 * time.Second)
	s := waitForState(t, states, func(s State) bool { return s.Target == 75*time.Second })
	assert.Equal(t, StatusRunning, s.Status)
	assert.Equal(t, 75*time.Second, s.Display())

	// shrinking below the elapsed time clamps and completes
	timer.Adjust(-2 * time.Minute)
	waitForState(t, states, hasStatus(StatusCompleted))

	select {
	case r := <-results:
		assert.Equal(t, time.Duration(0), r.Actual)
		assert.Equal(t, time.Duration(0), r.Target)
	case <-time.After(waitTimeout):
		t.Fatal("adjusting to zero did not complete the timer")
	}
}

func TestTimer_EnduranceCountsUp(t *testing.T) {
	results := make(chan Result, 1)
	timer := newTestTimer(t, Config{
		Kind:         KindEndurance,
		Target:       3 * time.Second,
		TickInterval: 2 * time.Millisecond,
		OnComplete:   func(r Result) { results <- r },
	})
	states := make(chan State, 64)
	defer timer.Listen(states)()

	// endurance targets are fixed
	timer.Adjust(time.Minute)
	assert.Equal(t, 3*time.Second, timer.State().Target)

	timer.Start()
	s := waitForState(t, states, func(s State) bool { return s.Elapsed == time.Second })
	assert.Equal(t, time.Second, s.Display())

	select {
	case r := <-results:
		assert.Equal(t, KindEndurance, r.Kind)
		assert.Equal(t, 3*time.Second, r.Actual)
	case <-time.After(waitTimeout):
		t.Fatal("endurance timer did not complete")
	}
}

func TestTimer_ZeroTargetCompletesOnStart(t *testing.T) {
	results := make(chan Result, 1)
	timer := newTestTimer(t, Config{
		Kind:         KindTimedDuration,
		TickInterval: time.Hour,
		OnComplete:   func(r Result) { results <- r },
	})
	timer.Start()

	select {
	case r := <-results:
		assert.Equal(t, time.Duration(0), r.Actual)
	case <-time.After(waitTimeout):
		t.Fatal("zero target timer did not complete")
	}
	assert.Equal(t, StatusCompleted, timer.State().Status)
}

func TestTimer_AutoStart(t *testing.T) {
	timer := newTestTimer(t, Config{
		Kind:         KindRest,
		Target:       time.Minute,
		AutoStart:    true,
		TickInterval: time.Hour,
	})
	states := make(chan State, 16)
	defer timer.Listen(states)()

	waitForState(t, states, hasStatus(StatusRunning))
}

func TestTimer_InvalidTransitionsIgnored(t *testing.T) {
	timer := newTestTimer(t, Config{Kind: KindRest, Target: time.Minute, TickInterval: time.Hour})

	timer.Stop()
	timer.Resume()
	assert.Equal(t, StatusIdle, timer.State().Status)

	states := make(chan State, 16)
	defer timer.Listen(states)()
	timer.Start()
	waitForState(t, states, hasStatus(StatusRunning))

	timer.Resume()
	timer.Start()
	assert.Equal(t, StatusRunning, timer.State().Status)
}

func TestTimer_ListenReplaysCurrentState(t *testing.T) {
	timer := newTestTimer(t, Config{Kind: KindRest, Target: 90 * time.Second, TickInterval: time.Hour})

	states := make(chan State, 1)
	defer timer.Listen(states)()

	s := waitForState(t, states, hasStatus(StatusIdle))
	assert.Equal(t, 90*time.Second, s.Remaining())
}

func TestTimer_ShutdownIsIdempotent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	timer := New(Config{Kind: KindRest, Target: time.Minute}, logger)

	timer.Shutdown()
	timer.Shutdown()

	// commands after shutdown must not block
	timer.Start()
	assert.Equal(t, StatusIdle, timer.State().Status)
}

func TestNew_NilLoggerPanics(t *testing.T) {
	require.PanicsWithValue(t, "Timer: logger cannot be nil", func() {
		New(Config{}, nil)
	})
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{90 * time.Second, "1:30"},
		{1500 * time.Millisecond, "0:02"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClock(tt.in))
		})
	}
}

func TestKind_CountsDown(t *testing.T) {
	assert.True(t, KindRest.CountsDown())
	assert.True(t, KindTimedDuration.CountsDown())
	assert.False(t, KindEndurance.CountsDown())
	assert.Equal(t, "endurance", KindEndurance.String())
	assert.Equal(t, "stopped", StatusStopped.String())
}
