package history

import "math"

// EpleyOneRM estimates the one-rep max of weight lifted for reps
func EpleyOneRM(weight float64, reps int) float64 {
	if reps <= 0 || weight <= 0 {
		return 0
	}
	return math.Round(weight*(1+float64(reps)/30)*100) / 100
}
