package workout

import (
	"fmt"
	"time"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
)

// SetData holds the actual values recorded for a movement set
type SetData struct {
	Kind     SetKind
	Reps     int
	Weight   float64
	Duration time.Duration
}

// NewSetData returns the planned values of s as the starting point for the
// actual values. Rest sets carry no data and panic.
func NewSetData(s Set) SetData {
	switch v := s.(type) {
	case WeightSet:
		return SetData{Kind: KindWeight, Reps: v.Reps, Weight: v.Weight}
	case BodyWeightSet:
		return SetData{Kind: KindBodyWeight, Reps: v.Reps, Weight: v.AdditionalWeight}
	case TimedDurationSet:
		return SetData{Kind: KindTimedDuration, Duration: v.Duration}
	case EnduranceSet:
		return SetData{Kind: KindEndurance, Duration: v.Duration}
	default:
		panic(fmt.Sprintf("workout: illegal state: no set data for %s set", s.Kind()))
	}
}

// WithReps returns a copy with reps set, clamped at zero
func (d SetData) WithReps(reps int) SetData {
	if reps < 0 {
		reps = 0
	}
	d.Reps = reps
	return d
}

// AdjustReps returns a copy with reps moved by delta, clamped at zero
func (d SetData) AdjustReps(delta int) SetData {
	return d.WithReps(d.Reps + delta)
}

// WithWeight returns a copy with the load set, clamped at zero
func (d SetData) WithWeight(kg float64) SetData {
	if kg < 0 {
		kg = 0
	}
	d.Weight = kg
	return d
}

// AdjustWeight returns a copy with the load moved by delta, clamped at zero
func (d SetData) AdjustWeight(delta float64) SetData {
	return d.WithWeight(d.Weight + delta)
}

// WithDuration returns a copy with the duration set, clamped at zero
func (d SetData) WithDuration(duration time.Duration) SetData {
	if duration < 0 {
		duration = 0
	}
	d.Duration = duration
	return d
}

// Timed reports whether the set is driven by a timer
func (d SetData) Timed() bool {
	return d.Kind == KindTimedDuration || d.Kind == KindEndurance
}

// String renders the actual values for logs and the history list
func (d SetData) String() string {
	switch d.Kind {
	case KindWeight:
		return fmt.Sprintf("%d x %s kg", d.Reps, formatKg(d.Weight))
	case KindBodyWeight:
		if d.Weight > 0 {
			return fmt.Sprintf("%d reps +%s kg", d.Reps, formatKg(d.Weight))
		}
		return fmt.Sprintf("%d reps", d.Reps)
	default:
		return formatDuration(d.Duration)
	}
}

func formatKg(kg float64) string {
	return plates.FormatWeight(kg)
}

func formatDuration(d time.Duration) string {
	return settimer.FormatClock(d)
}
