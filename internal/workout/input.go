package workout

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseReps reads a rep count typed by the user. Anything that is not a
// plain non-negative integer is rejected.
func ParseReps(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !isDigits(text) {
		return 0, false
	}
	reps, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return reps, true
}

// ParseWeight reads a non-negative weight in kg. Both "." and "," are
// accepted as decimal separator.
func ParseWeight(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" || strings.Trim(text, "0123456789.") != "" {
		return 0, false
	}
	kg, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(kg, 0) {
		return 0, false
	}
	return kg, true
}

// ParseDuration reads "m:ss" or plain seconds
func ParseDuration(text string) (time.Duration, bool) {
	text = strings.TrimSpace(text)
	minutes, seconds, found := strings.Cut(text, ":")
	if !found {
		s, ok := ParseReps(text)
		return time.Duration(s) * time.Second, ok
	}
	m, ok := ParseReps(minutes)
	if !ok {
		return 0, false
	}
	s, ok := ParseReps(seconds)
	if !ok || s >= 60 || len(seconds) != 2 {
		return 0, false
	}
	return time.Duration(m)*time.Minute + time.Duration(s)*time.Second, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
