package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

var day = time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Record(ctx, SetRecord{
		WorkoutName:  "Legs",
		ExerciseName: "Squat",
		SetNumber:    1,
		Kind:         workout.KindWeight,
		Reps:         5,
		Weight:       90,
		CompletedAt:  day,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 105.0, first.EstimatedOneRM)

	_, err = store.Record(ctx, SetRecord{
		WorkoutName:  "Legs",
		ExerciseName: "Plank",
		SetNumber:    1,
		Kind:         workout.KindEndurance,
		Duration:     75 * time.Second,
		CompletedAt:  day.Add(time.Minute),
	})
	require.NoError(t, err)

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Plank", records[0].ExerciseName)
	assert.Equal(t, 75*time.Second, records[0].Duration)
	assert.Equal(t, 0.0, records[0].EstimatedOneRM)
	assert.True(t, day.Add(time.Minute).Equal(records[0].CompletedAt))

	assert.Equal(t, first.ID, records[1].ID)
	assert.Equal(t, workout.KindWeight, records[1].Kind)
	assert.Equal(t, 90.0, records[1].Weight)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_ForExerciseAndPersonalBest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, set := range []struct {
		reps   int
		weight float64
	}{{5, 100}, {3, 110}, {8, 80}} {
		_, err := store.Record(ctx, SetRecord{
			ExerciseName: "Bench Press",
			SetNumber:    i + 1,
			Kind:         workout.KindWeight,
			Reps:         set.reps,
			Weight:       set.weight,
			CompletedAt:  day.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := store.Record(ctx, SetRecord{ExerciseName: "Row", Kind: workout.KindWeight, Reps: 1, Weight: 200, CompletedAt: day})
	require.NoError(t, err)

	records, err := store.ForExercise(ctx, "bench press", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 3, records[0].SetNumber)

	best, ok, err := store.PersonalBest(ctx, "Bench Press")
	require.NoError(t, err)
	require.True(t, ok)
	// 110 x 3 = 121, 100 x 5 = 116.67, 80 x 8 = 101.33
	assert.Equal(t, 121.0, best.EstimatedOneRM)

	_, ok, err = store.PersonalBest(ctx, "Deadlift")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RecordSetImplementsRecorder(t *testing.T) {
	store := openTestStore(t)
	var recorder workout.Recorder = store

	err := recorder.RecordSet(context.Background(), workout.CompletedSet{
		WorkoutID:    "w",
		WorkoutName:  "Pull",
		ExerciseID:   "e",
		ExerciseName: "Pull-up",
		SetID:        "s",
		SetNumber:    2,
		Data:         workout.SetData{Kind: workout.KindBodyWeight, Reps: 8, Weight: 10},
		CompletedAt:  day,
	})
	require.NoError(t, err)

	records, err := store.ForExercise(context.Background(), "pull-up", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, workout.KindBodyWeight, records[0].Kind)
	assert.Equal(t, 8, records[0].Reps)
	assert.Equal(t, 0.0, records[0].EstimatedOneRM)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = store.Record(ctx, SetRecord{ExerciseName: "Squat", Kind: workout.KindWeight, Reps: 1, Weight: 100})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].CompletedAt.IsZero())
}

func TestEpleyOneRM(t *testing.T) {
	assert.Equal(t, 0.0, EpleyOneRM(100, 0))
	assert.Equal(t, 0.0, EpleyOneRM(0, 5))
	assert.Equal(t, 103.33, EpleyOneRM(100, 1))
	assert.Equal(t, 120.0, EpleyOneRM(90, 10))
}
