package safego

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestGo_RunsFunction(t *testing.T) {
	logger, hook := test.NewNullLogger()
	done := make(chan struct{})

	Go(logger, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
	assert.Empty(t, hook.AllEntries())
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
