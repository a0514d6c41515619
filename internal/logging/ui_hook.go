package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// UIHook mirrors log entries into a buffered channel of display lines.
// Lines are dropped while the channel is full so logging never blocks.
type UIHook struct {
	lines   chan string
	dropped atomic.Uint64
}

func NewUIHook(buffer int) *UIHook {
	if buffer <= 0 {
		buffer = 1
	}
	return &UIHook{lines: make(chan string, buffer)}
}

// Lines returns the channel the UI reads from
func (h *UIHook) Lines() <-chan string {
	return h.lines
}

// Dropped returns how many lines were discarded on a full channel
func (h *UIHook) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *UIHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *UIHook) Fire(entry *logrus.Entry) error {
	select {
	case h.lines <- FormatLine(entry):
	default:
		h.dropped.Add(1)
	}
	return nil
}

// FormatLine renders an entry as "15:04:05 INFO  [Component] message"
func FormatLine(entry *logrus.Entry) string {
	line := fmt.Sprintf("%s %-5.5s ", entry.Time.Format("15:04:05"), levelLabel(entry.Level))
	if component, ok := entry.Data["component"]; ok {
		line += fmt.Sprintf("[%v] ", component)
	}
	line += entry.Message
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		line += fmt.Sprintf(": %v", err)
	}
	return line
}

func levelLabel(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(level.String())
}
