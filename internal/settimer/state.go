package settimer

import (
	"fmt"
	"time"
)

// Kind selects how a Timer counts
type Kind int

const (
	KindRest          Kind = iota // counts down the rest between sets
	KindTimedDuration             // counts down a timed work set
	KindEndurance                 // counts up toward a target hold/endurance time
)

func (k Kind) String() string {
	switch k {
	case KindRest:
		return "rest"
	case KindTimedDuration:
		return "timed"
	case KindEndurance:
		return "endurance"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CountsDown reports whether the displayed counter decreases
func (k Kind) CountsDown() bool {
	return k != KindEndurance
}

// Status is the lifecycle state of a Timer
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is the observable snapshot of a Timer
type State struct {
	Kind    Kind
	Status  Status
	Target  time.Duration
	Elapsed time.Duration
}

// Remaining returns how much of the target is left
func (s State) Remaining() time.Duration {
	if s.Elapsed >= s.Target {
		return 0
	}
	return s.Target - s.Elapsed
}

// Display returns the value shown on screen: remaining time for countdowns,
// elapsed time for count-ups
func (s State) Display() time.Duration {
	if s.Kind.CountsDown() {
		return s.Remaining()
	}
	return s.Elapsed
}

// Pulse is a haptic feedback request
type Pulse struct {
	// Long is set for the completion pulse
	Long bool
	// SecondsLeft is the remaining seconds when the pulse fired
	SecondsLeft int
}

// Result is reported once when a Timer completes
type Result struct {
	Kind   Kind
	Target time.Duration
	Actual time.Duration
}

// FormatClock renders d as m:ss, or h:mm:ss past an hour
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
