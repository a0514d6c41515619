package workout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
)

// StepKind is the kind of screen a session state maps to. The zero value
// StepNone never comes out of a Session.
type StepKind int

const (
	StepNone StepKind = iota
	StepSet
	StepRest
	StepCompleted
)

func (k StepKind) String() string {
	switch k {
	case StepNone:
		return "none"
	case StepSet:
		return "set"
	case StepRest:
		return "rest"
	case StepCompleted:
		return "completed"
	default:
		return fmt.Sprintf("step(%d)", int(k))
	}
}

// State is one position in a running workout
type State struct {
	Step     StepKind
	Position int
	Exercise Exercise
	// SetNumber is the 1-based movement set within the exercise, 0 on rest
	SetNumber int
	SetCount  int
	Set       Set
	// Data is the actual values of a movement set
	Data      SetData
	Equipment *plates.Equipment
	Breakdown string
	// PlateChange describes the plates to move for this set, or for the
	// upcoming set while resting
	PlateChange string
	// UpNext describes the next movement set while resting
	UpNext string
}

// CompletedSet is handed to the Recorder when a movement set is finished
type CompletedSet struct {
	WorkoutID    string
	WorkoutName  string
	ExerciseID   string
	ExerciseName string
	SetID        string
	SetNumber    int
	Data         SetData
	CompletedAt  time.Time
}

// Recorder persists completed sets
type Recorder interface {
	RecordSet(ctx context.Context, set CompletedSet) error
}

type step struct {
	exercise int
	set      int
}

// Session walks a workout set by set. It is safe for concurrent use; state
// changes are published to listeners after the lock is released.
type Session struct {
	mu        sync.Mutex
	workout   Workout
	steps     []step
	position  int
	data      map[int]SetData
	registry  plates.Registry
	loadings  map[string][]float64
	completed int
	total     int

	recorder Recorder
	logger   logrus.FieldLogger
	now      func() time.Time
	event    *events.ChannelEvent[State]
}

// NewSession starts w at its first set
func NewSession(w Workout, equipments []plates.Equipment, recorder Recorder, logger logrus.FieldLogger) *Session {
	if recorder == nil {
		panic("Session: recorder cannot be nil")
	}
	if logger == nil {
		panic("Session: logger cannot be nil")
	}

	s := &Session{
		workout:  w,
		data:     make(map[int]SetData),
		registry: plates.NewRegistry(equipments),
		loadings: make(map[string][]float64),
		recorder: recorder,
		logger:   logger.WithField("component", "Session"),
		now:      time.Now,
		event:    events.NewChannelEvent[State](true),
	}
	for ei, ex := range w.Exercises {
		for si, set := range ex.Sets {
			s.steps = append(s.steps, step{exercise: ei, set: si})
			if IsMovement(set) {
				s.total++
			}
		}
	}
	// nothing to rest for after the final set
	for len(s.steps) > 0 && !IsMovement(s.setAt(len(s.steps)-1)) {
		s.steps = s.steps[:len(s.steps)-1]
	}

	s.event.Notify(s.Current())
	return s
}

// Workout returns the workout being performed
func (s *Session) Workout() Workout {
	return s.workout
}

// Current returns the current state
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Listen registers ch for state changes; the current state is sent first
func (s *Session) Listen(ch chan<- State) func() {
	return s.event.Listen(ch)
}

// Progress returns the number of completed and total movement sets
func (s *Session) Progress() (completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.total
}

// CurrentSetData returns the actual values of the current movement set.
// Panics when the session is not on a movement set.
func (s *Session) CurrentSetData() SetData {
	s.mu.Lock()
	if msg := s.requireSetLocked("CurrentSetData"); msg != "" {
		s.mu.Unlock()
		panic(msg)
	}
	data := s.dataLocked(s.position)
	s.mu.Unlock()
	return data
}

// StoreSetData replaces the actual values of the current movement set.
// Panics when the session is not on a movement set or data is for another
// kind of set.
func (s *Session) StoreSetData(data SetData) {
	s.mu.Lock()
	if msg := s.requireSetLocked("StoreSetData"); msg != "" {
		s.mu.Unlock()
		panic(msg)
	}
	if want := s.setAt(s.position).Kind(); data.Kind != want {
		s.mu.Unlock()
		panic(fmt.Sprintf("workout: illegal state: %s data stored on a %s set", data.Kind, want))
	}
	s.data[s.position] = data.WithReps(data.Reps).WithWeight(data.Weight).WithDuration(data.Duration)
	state := s.stateLocked()
	s.mu.Unlock()

	s.event.Notify(state)
}

// GoToNextState finishes the current state and moves on. A finished movement
// set is handed to the Recorder; recording failures are logged and do not
// block progression. On the completed state this is a no-op.
func (s *Session) GoToNextState(ctx context.Context) State {
	s.mu.Lock()
	if s.position >= len(s.steps) {
		state := s.stateLocked()
		s.mu.Unlock()
		return state
	}

	var finished *CompletedSet
	if current := s.stateLocked(); current.Step == StepSet {
		finished = &CompletedSet{
			WorkoutID:    s.workout.ID,
			WorkoutName:  s.workout.Name,
			ExerciseID:   current.Exercise.ID,
			ExerciseName: current.Exercise.Name,
			SetID:        current.Set.SetID(),
			SetNumber:    current.SetNumber,
			Data:         current.Data,
			CompletedAt:  s.now(),
		}
		if current.Equipment != nil {
			s.loadings[current.Equipment.ID] = plates.LoadPlan(*current.Equipment, current.Data.Weight).PerSide
		}
		s.completed++
	}
	s.position++
	state := s.stateLocked()
	s.mu.Unlock()

	if finished != nil {
		s.logger.Infof("Completed %s set %d: %s", finished.ExerciseName, finished.SetNumber, finished.Data)
		if err := s.recorder.RecordSet(ctx, *finished); err != nil {
			s.logger.WithError(err).Errorf("Failed to record %s set %d", finished.ExerciseName, finished.SetNumber)
		}
	}
	if state.Step == StepCompleted {
		s.logger.Infof("Workout %s completed", s.workout.Name)
	}
	s.event.Notify(state)
	return state
}

// UpdateEquipments replaces the equipment used for breakdowns and plate changes
func (s *Session) UpdateEquipments(equipments []plates.Equipment) {
	s.mu.Lock()
	s.registry = plates.NewRegistry(equipments)
	state := s.stateLocked()
	s.mu.Unlock()

	s.event.Notify(state)
}

// requireSetLocked returns the illegal-state message for op, or "" when the
// current state is a movement set. MUST be called with mu held; callers
// release mu before panicking with the message.
func (s *Session) requireSetLocked(op string) string {
	if s.position < len(s.steps) && IsMovement(s.setAt(s.position)) {
		return ""
	}
	step := StepCompleted
	if s.position < len(s.steps) {
		step = StepRest
	}
	return fmt.Sprintf("workout: illegal state: %s called on a %s state", op, step)
}

func (s *Session) setAt(position int) Set {
	st := s.steps[position]
	return s.workout.Exercises[st.exercise].Sets[st.set]
}

// dataLocked returns stored or planned data. MUST be called with mu held.
func (s *Session) dataLocked(position int) SetData {
	if data, ok := s.data[position]; ok {
		return data
	}
	return NewSetData(s.setAt(position))
}

// equipmentLocked resolves the equipment of an exercise. MUST be called with mu held.
func (s *Session) equipmentLocked(ex Exercise) *plates.Equipment {
	if ex.EquipmentID == "" {
		return nil
	}
	eq, ok := s.registry.Lookup(ex.EquipmentID)
	if !ok {
		return nil
	}
	return &eq
}

// plateChangeLocked describes how to get from the last loading of eq to the
// loading for weight. MUST be called with mu held.
func (s *Session) plateChangeLocked(eq *plates.Equipment, weight float64) string {
	if eq == nil || (eq.Kind != plates.Barbell && eq.Kind != plates.PlateLoadedCable) {
		return ""
	}
	next := plates.LoadPlan(*eq, weight)
	change := plates.DescribeChange(s.loadings[eq.ID], next.PerSide)
	if next.Remainder > 0 {
		change += fmt.Sprintf(" (%s kg short per side)", plates.FormatWeight(next.Remainder))
	}
	return change
}

// stateLocked builds the State for the current position. MUST be called with mu held.
func (s *Session) stateLocked() State {
	if s.position >= len(s.steps) {
		return State{Step: StepCompleted, Position: s.position}
	}

	st := s.steps[s.position]
	ex := s.workout.Exercises[st.exercise]
	set := s.setAt(s.position)
	state := State{
		Position: s.position,
		Exercise: ex,
		Set:      set,
		SetCount: movementCount(ex.Sets),
	}

	if !IsMovement(set) {
		state.Step = StepRest
		for next := s.position + 1; next < len(s.steps); next++ {
			nextSet := s.setAt(next)
			if !IsMovement(nextSet) {
				continue
			}
			nextEx := s.workout.Exercises[s.steps[next].exercise]
			data := s.dataLocked(next)
			state.UpNext = fmt.Sprintf("%s: %s", nextEx.Name, Describe(nextSet))
			state.PlateChange = s.plateChangeLocked(s.equipmentLocked(nextEx), data.Weight)
			break
		}
		return state
	}

	state.Step = StepSet
	state.SetNumber = movementCount(ex.Sets[:st.set+1])
	state.Data = s.dataLocked(s.position)
	state.Equipment = s.equipmentLocked(ex)
	if state.Equipment != nil && state.Data.Weight > 0 {
		state.Breakdown = plates.Breakdown(*state.Equipment, state.Data.Weight)
		state.PlateChange = s.plateChangeLocked(state.Equipment, state.Data.Weight)
	}
	return state
}

func movementCount(sets []Set) int {
	n := 0
	for _, s := range sets {
		if IsMovement(s) {
			n++
		}
	}
	return n
}
