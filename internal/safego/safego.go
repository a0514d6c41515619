package safego

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Go runs fn on a new goroutine. The terminal UI owns stdout, so a panic is
// written to the log with its stack before it is re-raised.
func Go(logger logrus.FieldLogger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).Errorf("PANIC: %v", r)
				panic(r)
			}
		}()
		fn()
	}()
}
