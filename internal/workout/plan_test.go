package workout

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
)

const samplePlans = `
equipment:
  - id: bb
    kind: barbell
    bar_weight: 20
    plates:
      - { weight: 20, count: 2 }
workouts:
  - id: push
    name: Push
    exercises:
      - id: bench
        name: Bench press
        equipment: bb
        sets:
          - { type: weight, id: warmup, reps: 8, weight: 40, rest: 90s }
          - { type: weight, reps: 5, weight: 60, repeat: 2 }
      - name: Dead hang
        sets:
          - { type: endurance, duration: 45s, auto_start: true }
          - { type: rest, duration: 1m }
          - { type: timed, duration: 30s }
          - { type: bodyweight, reps: 10 }
`

func TestParsePlans(t *testing.T) {
	plans, err := ParsePlans([]byte(samplePlans))
	require.NoError(t, err)

	require.Len(t, plans.Equipment, 1)
	assert.Equal(t, plates.Barbell, plans.Equipment[0].Kind)

	w, ok := plans.Workout("push")
	require.True(t, ok)
	require.Len(t, w.Exercises, 2)

	bench := w.Exercises[0]
	assert.Equal(t, "bb", bench.EquipmentID)
	require.Len(t, bench.Sets, 4)
	assert.Equal(t, WeightSet{ID: "warmup", Reps: 8, Weight: 40}, bench.Sets[0])
	rest, ok := bench.Sets[1].(RestSet)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, rest.Duration)
	assert.NotEmpty(t, rest.ID)
	assert.NotEqual(t, bench.Sets[2].SetID(), bench.Sets[3].SetID())

	hang := w.Exercises[1]
	assert.NotEmpty(t, hang.ID)
	assert.Equal(t, EnduranceSet{ID: hang.Sets[0].SetID(), Duration: 45 * time.Second, AutoStart: true}, hang.Sets[0])
	assert.Equal(t, KindRest, hang.Sets[1].Kind())
	assert.Equal(t, KindTimedDuration, hang.Sets[2].Kind())
	assert.Equal(t, KindBodyWeight, hang.Sets[3].Kind())

	_, ok = plans.Workout("PUSH")
	assert.True(t, ok, "lookup by name is case-insensitive")
}

func TestParsePlans_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no workouts", "workouts: []", "no workouts defined"},
		{"unknown type", "workouts: [{name: A, exercises: [{name: B, sets: [{type: superset}]}]}]", `unknown set type "superset"`},
		{"missing type", "workouts: [{name: A, exercises: [{name: B, sets: [{reps: 3}]}]}]", "type is required"},
		{"unknown equipment", "workouts: [{name: A, exercises: [{name: B, equipment: rack, sets: [{type: weight}]}]}]", `unknown equipment "rack"`},
		{"negative reps", "workouts: [{name: A, exercises: [{name: B, sets: [{type: weight, reps: -1}]}]}]", "negative values"},
		{"only rest", "workouts: [{name: A, exercises: [{name: B, sets: [{type: rest, duration: 1m}]}]}]", "no movement sets"},
		{"unnamed workout", "workouts: [{exercises: [{name: B, sets: [{type: weight}]}]}]", "name is required"},
		{"bad duration", "workouts: [{name: A, exercises: [{name: B, sets: [{type: timed, duration: soon}]}]}]", "parsing workout plans"},
		{"bad equipment kind", "equipment: [{id: x, kind: sled}]\nworkouts: []", "unknown equipment kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlans([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlans), 0o600))

	plans, err := LoadPlans(path)
	require.NoError(t, err)
	assert.Len(t, plans.Workouts, 1)

	_, err = LoadPlans(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	assert.NotEmpty(t, plans.Workouts)
	for _, w := range plans.Workouts {
		s, _, _ := newTestSession(t, w)
		s.UpdateEquipments(plans.Equipment)
		assert.Equal(t, StepSet, s.Current().Step, w.Name)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "5 x 62.5 kg", Describe(WeightSet{Reps: 5, Weight: 62.5}))
	assert.Equal(t, "8 reps", Describe(BodyWeightSet{Reps: 8}))
	assert.Equal(t, "8 reps +10 kg", Describe(BodyWeightSet{Reps: 8, AdditionalWeight: 10}))
	assert.Equal(t, "work 0:30", Describe(TimedDurationSet{Duration: 30 * time.Second}))
	assert.Equal(t, "hold 1:00", Describe(EnduranceSet{Duration: time.Minute}))
	assert.Equal(t, "rest 2:00", Describe(RestSet{Duration: 2 * time.Minute}))
}
