package companion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferences_RoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	prefs := LoadPreferences(path, logger)
	assert.Empty(t, prefs.PreferredHRAddress())
	assert.Empty(t, prefs.LastWorkout())
	assert.Empty(t, prefs.LastEquipment())

	prefs.SetPreferredHRAddress("AA:BB:CC:DD:EE:FF")
	prefs.SetLastWorkout("full-body-a")
	prefs.SetLastEquipment("barbell")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `preferred_hr_address = "AA:BB:CC:DD:EE:FF"`)

	reloaded := LoadPreferences(path, logger)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", reloaded.PreferredHRAddress())
	assert.Equal(t, "full-body-a", reloaded.LastWorkout())
	assert.Equal(t, "barbell", reloaded.LastEquipment())
}

func TestPreferences_UnchangedValueIsNotWritten(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "prefs.toml")

	prefs := LoadPreferences(path, logger)
	prefs.SetLastWorkout("")
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPreferences_CorruptFileIsIgnored(t *testing.T) {
	logger, hook := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("preferred_hr_address = [unterminated"), 0o644))

	prefs := LoadPreferences(path, logger)
	assert.Empty(t, prefs.PreferredHRAddress())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "Ignoring unreadable preferences")

	prefs.SetLastWorkout("w1")
	assert.Equal(t, "w1", LoadPreferences(path, logger).LastWorkout())
}
