package settimer

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

// DefaultHapticSeconds is how many final seconds get a short pulse
const DefaultHapticSeconds = 3

// timerCommand represents commands sent to the timer goroutine
type timerCommand struct {
	op    timerOp
	delta time.Duration
}

type timerOp int

const (
	opStart timerOp = iota
	opStop
	opResume
	opAdjust
)

// Config describes a single set timer
type Config struct {
	Kind   Kind
	Target time.Duration
	// AutoStart moves the timer to running as soon as it is created
	AutoStart bool
	// HapticSeconds is the size of the final countdown window that pulses.
	// Zero means DefaultHapticSeconds, negative disables the short pulses.
	HapticSeconds int
	// TickInterval is the wall time of one counter second, 1s when zero
	TickInterval time.Duration
	// OnHaptic and OnComplete are registered before the timer starts
	OnHaptic   func(Pulse)
	OnComplete func(Result)
}

// Timer runs one rest, timed-duration or endurance countdown. All counting
// happens on a single goroutine; the public methods only validate and post
// commands to it.
type Timer struct {
	cfg    Config
	logger logrus.FieldLogger

	mu    sync.RWMutex
	state State

	stateEvent    *events.ChannelEvent[State]
	hapticEvent   *events.CallbackEvent[Pulse]
	completeEvent *events.CallbackEvent[Result]

	cmdChan      chan timerCommand
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a Timer and starts its goroutine
func New(cfg Config, logger logrus.FieldLogger) *Timer {
	if logger == nil {
		panic("Timer: logger cannot be nil")
	}
	if cfg.HapticSeconds == 0 {
		cfg.HapticSeconds = DefaultHapticSeconds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Target < 0 {
		cfg.Target = 0
	}

	t := &Timer{
		cfg:           cfg,
		logger:        logger.WithField("component", "Timer"),
		state:         State{Kind: cfg.Kind, Status: StatusIdle, Target: cfg.Target},
		stateEvent:    events.NewChannelEvent[State](true),
		hapticEvent:   events.NewCallbackEvent[Pulse](false),
		completeEvent: events.NewCallbackEvent[Result](false),
		cmdChan:       make(chan timerCommand, 1),
		doneChan:      make(chan struct{}),
	}
	if cfg.OnHaptic != nil {
		t.hapticEvent.Listen(cfg.OnHaptic)
	}
	if cfg.OnComplete != nil {
		t.completeEvent.Listen(cfg.OnComplete)
	}
	t.stateEvent.Notify(t.state)

	t.wg.Add(1)
	safego.Go(t.logger, func() { t.run() })

	if cfg.AutoStart {
		t.Start()
	}
	return t
}

// State returns the current snapshot
func (t *Timer) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Listen registers ch for state changes; the current state is sent first
func (t *Timer) Listen(ch chan<- State) func() {
	return t.stateEvent.Listen(ch)
}

// OnHaptic registers a haptic pulse callback
func (t *Timer) OnHaptic(fn func(Pulse)) func() {
	return t.hapticEvent.Listen(fn)
}

// OnComplete registers a completion callback
func (t *Timer) OnComplete(fn func(Result)) func() {
	return t.completeEvent.Listen(fn)
}

// Start moves an idle timer to running
func (t *Timer) Start() {
	if status := t.State().Status; status != StatusIdle {
		t.logger.Debugf("Cannot start timer in status %s", status)
		return
	}
	t.send(timerCommand{op: opStart})
}

// Stop cancels a running timer. The caller is expected to have confirmed
// the cancellation with the user.
func (t *Timer) Stop() {
	if status := t.State().Status; status != StatusRunning {
		t.logger.Debugf("Cannot stop timer in status %s", status)
		return
	}
	t.send(timerCommand{op: opStop})
}

// Resume continues a stopped timer from where it was stopped
func (t *Timer) Resume() {
	if status := t.State().Status; status != StatusStopped {
		t.logger.Debugf("Cannot resume timer in status %s", status)
		return
	}
	t.send(timerCommand{op: opResume})
}

// Adjust moves the target of a countdown by delta. The target never drops
// below the time already elapsed.
func (t *Timer) Adjust(delta time.Duration) {
	state := t.State()
	if !state.Kind.CountsDown() || state.Status == StatusCompleted {
		t.logger.Debugf("Cannot adjust %s timer in status %s", state.Kind, state.Status)
		return
	}
	t.send(timerCommand{op: opAdjust, delta: delta})
}

// Shutdown stops the timer goroutine. Safe to call multiple times.
func (t *Timer) Shutdown() {
	t.shutdownOnce.Do(func() {
		close(t.doneChan)
		t.wg.Wait()
	})
}

func (t *Timer) send(cmd timerCommand) {
	select {
	case t.cmdChan <- cmd:
	case <-t.doneChan:
	}
}

// tickResult holds what the goroutine must publish after a tick
type tickResult struct {
	state     State
	skip      bool
	pulse     *Pulse
	completed bool
}

// handleTick advances the counter by one second under lock
func (t *Timer) handleTick() tickResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status != StatusRunning {
		return tickResult{skip: true}
	}

	t.state.Elapsed += time.Second
	if t.state.Elapsed >= t.state.Target {
		t.state.Elapsed = t.state.Target
		t.state.Status = StatusCompleted
		return tickResult{state: t.state, completed: true}
	}

	result := tickResult{state: t.state}
	secondsLeft := int(t.state.Remaining() / time.Second)
	if secondsLeft <= t.cfg.HapticSeconds {
		result.pulse = &Pulse{SecondsLeft: secondsLeft}
	}
	return result
}

// apply executes a command under lock and reports whether it completed the timer
func (t *Timer) apply(cmd timerCommand) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd.op {
	case opStart:
		if t.state.Status == StatusIdle {
			t.state.Status = StatusRunning
		}
	case opStop:
		if t.state.Status == StatusRunning {
			t.state.Status = StatusStopped
		}
	case opResume:
		if t.state.Status == StatusStopped {
			t.state.Status = StatusRunning
		}
	case opAdjust:
		if t.state.Status != StatusCompleted {
			t.state.Target += cmd.delta
			if t.state.Target < t.state.Elapsed {
				t.state.Target = t.state.Elapsed
			}
		}
	}

	if t.state.Status == StatusRunning && t.state.Elapsed >= t.state.Target {
		t.state.Status = StatusCompleted
		return t.state, true
	}
	return t.state, false
}

func (t *Timer) complete(state State) {
	t.logger.Infof("%s timer complete after %s", state.Kind, FormatClock(state.Elapsed))
	t.hapticEvent.Notify(Pulse{Long: true})
	t.completeEvent.Notify(Result{Kind: state.Kind, Target: state.Target, Actual: state.Elapsed})
}

// run is the goroutine that owns the ticker
func (t *Timer) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.TickInterval)
	ticker.Stop() // started on the first start/resume command
	defer ticker.Stop()

	for {
		select {
		case <-t.doneChan:
			return

		case cmd := <-t.cmdChan:
			state, completed := t.apply(cmd)
			t.stateEvent.Notify(state)
			switch {
			case completed:
				ticker.Stop()
				t.complete(state)
			case state.Status == StatusRunning && (cmd.op == opStart || cmd.op == opResume):
				ticker.Reset(t.cfg.TickInterval)
				t.logger.Debugf("%s timer running (%s left)", state.Kind, FormatClock(state.Remaining()))
			case state.Status == StatusStopped && cmd.op == opStop:
				ticker.Stop()
				t.logger.Infof("%s timer stopped at %s", state.Kind, FormatClock(state.Elapsed))
			}

		case <-ticker.C:
			result := t.handleTick()
			if result.skip {
				continue
			}
			t.stateEvent.Notify(result.state)
			if result.completed {
				ticker.Stop()
				t.complete(result.state)
				continue
			}
			if result.pulse != nil {
				t.hapticEvent.Notify(*result.pulse)
			}
		}
	}
}
