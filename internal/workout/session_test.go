package workout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
)

type fakeRecorder struct {
	mu   sync.Mutex
	sets []CompletedSet
	err  error
}

func (r *fakeRecorder) RecordSet(_ context.Context, set CompletedSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, set)
	return r.err
}

func (r *fakeRecorder) recorded() []CompletedSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CompletedSet(nil), r.sets...)
}

func testEquipment() []plates.Equipment {
	return []plates.Equipment{
		plates.NewBarbell("barbell", 20, plates.StandardPlates()),
		{ID: "vest", Name: "Vest", Kind: plates.WeightVest},
	}
}

func squatWorkout() Workout {
	return Workout{
		ID:   "w1",
		Name: "Legs",
		Exercises: []Exercise{
			{
				ID:          "squat",
				Name:        "Squat",
				EquipmentID: "barbell",
				Sets: []Set{
					WeightSet{ID: "s1", Reps: 5, Weight: 60},
					RestSet{ID: "r1", Duration: 2 * time.Minute},
					WeightSet{ID: "s2", Reps: 5, Weight: 80},
					RestSet{ID: "r2", Duration: 2 * time.Minute},
				},
			},
			{
				ID:   "plank",
				Name: "Plank",
				Sets: []Set{
					EnduranceSet{ID: "p1", Duration: time.Minute},
					RestSet{ID: "r3", Duration: time.Minute},
				},
			},
		},
	}
}

func newTestSession(t *testing.T, w Workout) (*Session, *fakeRecorder, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	recorder := &fakeRecorder{}
	return NewSession(w, testEquipment(), recorder, logger), recorder, hook
}

func TestSession_WalksAllStates(t *testing.T) {
	s, recorder, _ := newTestSession(t, squatWorkout())
	ctx := context.Background()

	state := s.Current()
	assert.Equal(t, StepSet, state.Step)
	assert.Equal(t, "Squat", state.Exercise.Name)
	assert.Equal(t, 1, state.SetNumber)
	assert.Equal(t, 2, state.SetCount)
	assert.Equal(t, SetData{Kind: KindWeight, Reps: 5, Weight: 60}, state.Data)
	assert.Equal(t, "Bar 20 kg + 20 kg per side", state.Breakdown)

	var steps []StepKind
	for state.Step != StepCompleted {
		state = s.GoToNextState(ctx)
		steps = append(steps, state.Step)
	}
	// the trailing rest after the plank is dropped
	assert.Equal(t, []StepKind{StepRest, StepSet, StepRest, StepSet, StepCompleted}, steps)

	done, total := s.Progress()
	assert.Equal(t, 3, done)
	assert.Equal(t, 3, total)

	sets := recorder.recorded()
	require.Len(t, sets, 3)
	assert.Equal(t, "Legs", sets[0].WorkoutName)
	assert.Equal(t, "s2", sets[1].SetID)
	assert.Equal(t, 2, sets[1].SetNumber)
	assert.Equal(t, KindEndurance, sets[2].Data.Kind)
	assert.False(t, sets[2].CompletedAt.IsZero())

	// completed is terminal
	assert.Equal(t, StepCompleted, s.GoToNextState(ctx).Step)
	assert.Len(t, recorder.recorded(), 3)
}

func TestSession_StoreSetData(t *testing.T) {
	s, recorder, _ := newTestSession(t, squatWorkout())

	data := s.CurrentSetData().WithReps(3).AdjustWeight(2.5)
	s.StoreSetData(data)
	assert.Equal(t, SetData{Kind: KindWeight, Reps: 3, Weight: 62.5}, s.Current().Data)
	assert.Equal(t, "Bar 20 kg + 21.25 kg per side", s.Current().Breakdown)

	// raw negative values are clamped
	s.StoreSetData(SetData{Kind: KindWeight, Reps: -4, Weight: -1})
	assert.Equal(t, SetData{Kind: KindWeight}, s.CurrentSetData())

	s.StoreSetData(data)
	s.GoToNextState(context.Background())
	require.Len(t, recorder.recorded(), 1)
	assert.Equal(t, data, recorder.recorded()[0].Data)
}

func TestSession_IllegalStatePanics(t *testing.T) {
	s, _, _ := newTestSession(t, squatWorkout())

	assert.PanicsWithValue(t, "workout: illegal state: weight data stored on a endurance set", func() {
		s.mu.Lock()
		s.position = 4
		s.mu.Unlock()
		s.StoreSetData(SetData{Kind: KindWeight, Reps: 1})
	})

	s.mu.Lock()
	s.position = 1
	s.mu.Unlock()
	require.Equal(t, StepRest, s.Current().Step)

	assert.PanicsWithValue(t, "workout: illegal state: CurrentSetData called on a rest state", func() {
		s.CurrentSetData()
	})
	assert.Panics(t, func() {
		s.StoreSetData(SetData{Kind: KindWeight})
	})

	// the lock must have been released by the panicking calls
	assert.Equal(t, StepRest, s.Current().Step)

	assert.Panics(t, func() { NewSetData(RestSet{}) })
}

func TestSession_IllegalStateIsRecoverable(t *testing.T) {
	w := Workout{
		ID:   "w2",
		Name: "Warmup first",
		Exercises: []Exercise{{
			ID:   "row",
			Name: "Row",
			Sets: []Set{
				RestSet{ID: "r0", Duration: time.Minute},
				WeightSet{ID: "s1", Reps: 8, Weight: 40},
			},
		}},
	}
	s, _, _ := newTestSession(t, w)
	require.Equal(t, StepRest, s.Current().Step)

	recovered := func(fn func()) (value any) {
		defer func() { value = recover() }()
		fn()
		return nil
	}

	value := recovered(func() { s.CurrentSetData() })
	assert.Equal(t, "workout: illegal state: CurrentSetData called on a rest state", value)
	value = recovered(func() { s.StoreSetData(SetData{Kind: KindWeight, Reps: 1}) })
	assert.Equal(t, "workout: illegal state: StoreSetData called on a rest state", value)

	// the session keeps working after a recovered panic
	next := s.GoToNextState(context.Background())
	require.Equal(t, StepSet, next.Step)
	assert.Equal(t, 8, s.CurrentSetData().Reps)

	s.GoToNextState(context.Background())
	value = recovered(func() { s.CurrentSetData() })
	assert.Equal(t, "workout: illegal state: CurrentSetData called on a completed state", value)
	assert.Equal(t, StepCompleted, s.Current().Step)
}

func TestStepKind_ZeroValueIsNotAState(t *testing.T) {
	var step StepKind
	assert.Equal(t, StepNone, step)
	assert.Equal(t, "none", step.String())
	assert.NotEqual(t, StepSet, State{}.Step)
}

func TestSession_RestShowsUpcomingPlateChange(t *testing.T) {
	s, _, _ := newTestSession(t, squatWorkout())
	assert.Equal(t, "Add 20", s.Current().PlateChange)

	rest := s.GoToNextState(context.Background())
	require.Equal(t, StepRest, rest.Step)
	assert.Equal(t, "Squat: 5 x 80 kg", rest.UpNext)
	assert.Equal(t, "Remove 20, add 25 + 5", rest.PlateChange)
}

func TestSession_RecorderErrorDoesNotBlock(t *testing.T) {
	logger, hook := test.NewNullLogger()
	recorder := &fakeRecorder{err: errors.New("disk full")}
	s := NewSession(squatWorkout(), testEquipment(), recorder, logger)

	state := s.GoToNextState(context.Background())
	assert.Equal(t, StepRest, state.Step)

	var errorsLogged int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestSession_UpdateEquipments(t *testing.T) {
	s, _, _ := newTestSession(t, squatWorkout())

	s.UpdateEquipments([]plates.Equipment{plates.NewBarbell("barbell", 15, plates.StandardPlates())})
	assert.Equal(t, "Bar 15 kg + 22.5 kg per side", s.Current().Breakdown)

	s.UpdateEquipments(nil)
	assert.Nil(t, s.Current().Equipment)
	assert.Empty(t, s.Current().Breakdown)
}

func TestSession_ListenPublishesChanges(t *testing.T) {
	s, _, _ := newTestSession(t, squatWorkout())
	ch := make(chan State, 8)
	defer s.Listen(ch)()

	first := <-ch
	assert.Equal(t, 0, first.Position)

	s.GoToNextState(context.Background())
	next := <-ch
	assert.Equal(t, StepRest, next.Step)
}

func TestSession_OnlyRestSetsIsCompleted(t *testing.T) {
	w := Workout{Name: "Idle", Exercises: []Exercise{{Name: "Nap", Sets: []Set{RestSet{Duration: time.Minute}}}}}
	s, _, _ := newTestSession(t, w)
	assert.Equal(t, StepCompleted, s.Current().Step)
}

func TestNewSession_NilDependenciesPanic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Panics(t, func() { NewSession(squatWorkout(), nil, nil, logger) })
	assert.Panics(t, func() { NewSession(squatWorkout(), nil, &fakeRecorder{}, nil) })
}

func TestSetData_Adjust(t *testing.T) {
	d := SetData{Kind: KindWeight, Reps: 1, Weight: 2.5}
	assert.Equal(t, 0, d.AdjustReps(-5).Reps)
	assert.Equal(t, 0.0, d.AdjustWeight(-5).Weight)
	assert.Equal(t, time.Duration(0), d.WithDuration(-time.Second).Duration)
	assert.Equal(t, "1 x 2.5 kg", d.String())
	assert.True(t, SetData{Kind: KindEndurance}.Timed())
}
