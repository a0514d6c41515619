package companion

import "time"

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeDevices  UIMode = iota // Heart-rate monitor scanning and connection
	UIModeWorkouts               // Workout selection
	UIModeExercise               // The running workout, set by set
	UIModePlates                 // Plate calculator
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  rune // The number key to activate this mode (1-9)
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModeDevices, DisplayName: "Devices", KeyBinding: '1'},
	{Mode: UIModeWorkouts, DisplayName: "Workouts", KeyBinding: '2'},
	{Mode: UIModeExercise, DisplayName: "Exercise", KeyBinding: '3'},
	{Mode: UIModePlates, DisplayName: "Plates", KeyBinding: '4'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

const (
	DefaultRepStep    = 1
	DefaultWeightStep = 2.5
	// DefaultTimerStep is how far [ and ] move a countdown
	DefaultTimerStep = 15 * time.Second
)

// ConfirmAction identifies what a confirmation dialog guards
type ConfirmAction int

const (
	ConfirmStopTimer ConfirmAction = iota
	ConfirmEndWorkout
)

// InputField identifies what a text prompt edits
type InputField int

const (
	InputReps InputField = iota
	InputWeight
	InputDuration
	InputPlatesTotal
	InputBarWeight
)

func (f InputField) Label() string {
	switch f {
	case InputReps:
		return "Reps: "
	case InputWeight:
		return "Weight (kg): "
	case InputDuration:
		return "Duration (m:ss): "
	case InputPlatesTotal:
		return "Total (kg): "
	case InputBarWeight:
		return "Bar weight (kg): "
	default:
		return "> "
	}
}
