package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/config"
	"github.com/lowaak/smart-trainer/lift-companion/internal/history"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

func TestWithBarbell(t *testing.T) {
	configured := plates.NewBarbell("barbell", 15, []plates.PlateStock{{Weight: 10, Count: 4}})

	planned := []plates.Equipment{
		{ID: "vest", Name: "Vest", Kind: plates.WeightVest},
		{ID: "barbell", Name: "Olympic barbell", Kind: plates.Barbell, BarWeight: 20},
	}
	merged := withBarbell(planned, configured)
	require.Len(t, merged, 2)
	assert.Equal(t, "Olympic barbell", merged[1].Name)
	assert.Equal(t, 15.0, merged[1].BarWeight)
	assert.Equal(t, 20.0, planned[1].BarWeight)

	merged = withBarbell(planned[:1], configured)
	require.Len(t, merged, 2)
	assert.Equal(t, "barbell", merged[0].ID)
}

func TestLoadPlans_FallsBackToBuiltIn(t *testing.T) {
	logger, _ := test.NewNullLogger()
	t.Setenv("HOME", t.TempDir())
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	dir := t.TempDir()
	require.NoError(t, flags.Parse([]string{
		"--env-file", "",
		"--workouts", filepath.Join(dir, "missing.yaml"),
		"--bar-weight", "15",
	}))
	cfg, err := config.Load(flags)
	require.NoError(t, err)

	plans, err := loadPlans(cfg, logger)
	require.NoError(t, err)
	assert.NotEmpty(t, plans.Workouts)
	barbell, ok := plates.NewRegistry(plans.Equipment).Lookup("barbell")
	require.True(t, ok)
	assert.Equal(t, 15.0, barbell.BarWeight)
}

func TestDescribeRecord(t *testing.T) {
	assert.Equal(t, "5 x 100 kg  (1RM 116.67 kg)", describeRecord(history.SetRecord{
		Kind: workout.KindWeight, Reps: 5, Weight: 100, EstimatedOneRM: 116.67,
	}))
	assert.Equal(t, "12 reps", describeRecord(history.SetRecord{Kind: workout.KindBodyWeight, Reps: 12}))
	assert.Equal(t, "8 reps +10 kg", describeRecord(history.SetRecord{Kind: workout.KindBodyWeight, Reps: 8, Weight: 10}))
	assert.Equal(t, "1:30", describeRecord(history.SetRecord{Kind: workout.KindEndurance, Duration: 90 * time.Second}))
}
