package companion

import (
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
)

// UIViewImpl defines the interface for framework-specific UI implementations
type UIViewImpl interface {
	// Initialize is called after construction to set up framework-specific widgets
	// controller is used to handle UI events
	Initialize(controller *UIController)

	// SetupKeyboardHandlers sets up keyboard event handlers
	SetupKeyboardHandlers(controller *UIController)

	// Run starts the UI framework and blocks until it exits
	Run() error

	// Stop stops the UI framework
	Stop()

	// Draw refreshes/redraws the UI
	Draw() error

	// --- Mode Management ---

	SetMode(mode UIMode)
	GetCurrentMode() UIMode

	// --- Log View (shared across modes) ---

	GetLogViewHeight() int
	ClearLogView()
	WriteLogLine(line string) error

	// --- Heart rate (shared across modes) ---

	UpdateHeartRate(hr HeartRate)

	// --- Devices Mode ---

	SetScanDeviceList(devices []*UIDeviceModel)
	SetConnectedDevice(status hrmonitor.Status)

	// --- Workouts Mode ---

	SetWorkoutList(list WorkoutList)

	// --- Exercise Mode ---

	UpdateSession(view SessionView)
	UpdateTimer(view TimerView)
	// Pulse signals a haptic pulse of the running timer
	Pulse(pulse settimer.Pulse)

	// --- Plates Mode ---

	UpdatePlates(view PlatesView)

	// --- Dialogs ---

	// ShowConfirmation opens a yes/no dialog, nil closes it
	ShowConfirmation(confirmation *Confirmation)
	// ShowInput opens a text prompt, nil closes it
	ShowInput(req *InputRequest)
}
