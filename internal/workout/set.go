package workout

import (
	"fmt"
	"time"
)

// SetKind identifies the variant of a Set
type SetKind string

const (
	KindWeight        SetKind = "weight"
	KindBodyWeight    SetKind = "bodyweight"
	KindTimedDuration SetKind = "timed"
	KindEndurance     SetKind = "endurance"
	KindRest          SetKind = "rest"
)

// Set is one planned entry of an exercise. The variants are closed: only
// the types in this file implement it.
type Set interface {
	SetID() string
	Kind() SetKind
	isSet()
}

// WeightSet is a set of reps with an external load
type WeightSet struct {
	ID     string
	Reps   int
	Weight float64
}

// BodyWeightSet is a set of reps with optional extra load (vest, belt)
type BodyWeightSet struct {
	ID               string
	Reps             int
	AdditionalWeight float64
}

// TimedDurationSet is work for a fixed time, counted down
type TimedDurationSet struct {
	ID        string
	Duration  time.Duration
	AutoStart bool
}

// EnduranceSet is a hold or effort counted up toward a target time
type EnduranceSet struct {
	ID        string
	Duration  time.Duration
	AutoStart bool
}

// RestSet is a rest period between sets
type RestSet struct {
	ID       string
	Duration time.Duration
}

func (s WeightSet) SetID() string        { return s.ID }
func (s BodyWeightSet) SetID() string    { return s.ID }
func (s TimedDurationSet) SetID() string { return s.ID }
func (s EnduranceSet) SetID() string     { return s.ID }
func (s RestSet) SetID() string          { return s.ID }

func (WeightSet) Kind() SetKind        { return KindWeight }
func (BodyWeightSet) Kind() SetKind    { return KindBodyWeight }
func (TimedDurationSet) Kind() SetKind { return KindTimedDuration }
func (EnduranceSet) Kind() SetKind     { return KindEndurance }
func (RestSet) Kind() SetKind          { return KindRest }

func (WeightSet) isSet()        {}
func (BodyWeightSet) isSet()    {}
func (TimedDurationSet) isSet() {}
func (EnduranceSet) isSet()     {}
func (RestSet) isSet()          {}

// IsMovement reports whether s records work rather than rest
func IsMovement(s Set) bool {
	_, rest := s.(RestSet)
	return !rest
}

// Describe renders the planned target of s, e.g. "5 x 60 kg" or "1:30"
func Describe(s Set) string {
	switch v := s.(type) {
	case WeightSet:
		return fmt.Sprintf("%d x %s kg", v.Reps, formatKg(v.Weight))
	case BodyWeightSet:
		if v.AdditionalWeight > 0 {
			return fmt.Sprintf("%d reps +%s kg", v.Reps, formatKg(v.AdditionalWeight))
		}
		return fmt.Sprintf("%d reps", v.Reps)
	case TimedDurationSet:
		return "work " + formatDuration(v.Duration)
	case EnduranceSet:
		return "hold " + formatDuration(v.Duration)
	case RestSet:
		return "rest " + formatDuration(v.Duration)
	default:
		panic(fmt.Sprintf("workout: unknown set type %T", s))
	}
}
