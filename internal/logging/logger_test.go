package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, GetLevel(""))
	assert.Equal(t, logrus.InfoLevel, GetLevel("verbose"))
}

func TestSetup_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lift-companion")
	logger, closer := Setup(LoggerSetupParams{LogFileName: path, LogLevel: "debug", LogFormatJSON: true})
	defer closer.Close()

	logger.WithField("component", "Test").Debug("hello file")

	raw, err := os.ReadFile(path + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello file"`)
	assert.Contains(t, string(raw), `"component":"Test"`)
}

func TestSetup_LevelFiltersUIHook(t *testing.T) {
	hook := NewUIHook(4)
	logger, closer := Setup(LoggerSetupParams{LogLevel: "warn", UIHook: hook})
	defer closer.Close()

	logger.Info("hidden")
	logger.WithField("component", "Timer").Warn("visible")

	require.Len(t, hook.Lines(), 1)
	line := <-hook.Lines()
	assert.Contains(t, line, "WARN  [Timer] visible")
}

func TestUIHook_DropsWhenFull(t *testing.T) {
	hook := NewUIHook(1)
	logger, closer := Setup(LoggerSetupParams{UIHook: hook})
	defer closer.Close()

	logger.Info("one")
	logger.Info("two")

	assert.Len(t, hook.Lines(), 1)
	assert.Equal(t, uint64(1), hook.Dropped())
}

func TestFormatLine(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 7, 8, 9, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "Failed to record set",
		Data:    logrus.Fields{"component": "Session", logrus.ErrorKey: errors.New("disk full")},
	}
	assert.Equal(t, "07:08:09 ERROR [Session] Failed to record set: disk full", FormatLine(entry))
}
