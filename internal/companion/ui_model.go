package companion

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrtrend"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

// HeartRateMonitor is the part of hrmonitor.Monitor the UI depends on
type HeartRateMonitor interface {
	StartScan()
	StopScan() error
	IsScanning() bool
	ListenToScanDevices(ch chan<- []bt.BTDevice) func()
	ListenToStatus(ch chan<- hrmonitor.Status) func()
	ConnectAndSubscribe(address string) error
	Disconnect() error
	Latest() int
}

type UIDeviceModel struct {
	Name    string
	Address string
	RSSI    int16
}

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
}

// HeartRate is the polled heart rate with the estimator output at that time
type HeartRate struct {
	// BPM is 0 when there is no current reading
	BPM     int
	Reading hrtrend.Reading
}

type WorkoutList struct {
	Workouts []workout.Workout
	// Selected is the index to preselect, -1 for none
	Selected int
}

type SessionView struct {
	Active      bool
	WorkoutName string
	State       workout.State
	Completed   int
	Total       int
}

type TimerView struct {
	Active bool
	State  settimer.State
}

type PlatesView struct {
	Equipments []plates.Equipment
	Selected   int
	Total      float64
	Breakdown  string
	Loading    plates.Loading
	// Nearest is the closest total the equipment can make
	Nearest float64
}

// SelectedEquipment returns the equipment the calculator works with
func (v PlatesView) SelectedEquipment() (plates.Equipment, bool) {
	if v.Selected < 0 || v.Selected >= len(v.Equipments) {
		return plates.Equipment{}, false
	}
	return v.Equipments[v.Selected], true
}

// Confirmation asks the user to confirm an action, nil when none is pending
type Confirmation struct {
	Action ConfirmAction
	Prompt string
}

// InputRequest opens a text prompt, nil when none is open
type InputRequest struct {
	Field   InputField
	Initial string
}

type UIModel struct {
	logEvent              *events.ChannelEvent[string]
	scanDevicesEvent      *events.ChannelEvent[[]*UIDeviceModel]
	scanDevices           []*UIDeviceModel
	connectedDeviceEvent  *events.ChannelEvent[hrmonitor.Status]
	connectedDevice       hrmonitor.Status
	closeApplicationEvent *events.ChannelEvent[struct{}]
	uiStateEvent          *events.ChannelEvent[UIState]
	uiState               UIState
	heartRateEvent        *events.ChannelEvent[HeartRate]
	heartRate             HeartRate
	workoutsEvent         *events.ChannelEvent[WorkoutList]
	workouts              WorkoutList
	sessionEvent          *events.ChannelEvent[SessionView]
	session               SessionView
	timerEvent            *events.ChannelEvent[TimerView]
	timer                 TimerView
	hapticEvent           *events.ChannelEvent[settimer.Pulse]
	platesEvent           *events.ChannelEvent[PlatesView]
	plates                PlatesView
	confirmationEvent     *events.ChannelEvent[*Confirmation]
	confirmation          *Confirmation
	inputEvent            *events.ChannelEvent[*InputRequest]
	input                 *InputRequest
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                logrus.FieldLogger
}

const maxLogLines = 1000

func NewUIModel(monitor HeartRateMonitor, logger logrus.FieldLogger, uiLogChan <-chan string) *UIModel {
	if monitor == nil {
		panic("UIModel: monitor cannot be nil")
	}
	if logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("UIModel: uiLogChan cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewChannelEvent[string](false),
		scanDevicesEvent:      events.NewChannelEvent[[]*UIDeviceModel](true),
		connectedDeviceEvent:  events.NewChannelEvent[hrmonitor.Status](true),
		connectedDevice:       hrmonitor.Status{Battery: -1},
		closeApplicationEvent: events.NewChannelEvent[struct{}](true),
		uiStateEvent:          events.NewChannelEvent[UIState](true),
		uiState:               UIState{Mode: UIModeDevices},
		heartRateEvent:        events.NewChannelEvent[HeartRate](true),
		workoutsEvent:         events.NewChannelEvent[WorkoutList](true),
		workouts:              WorkoutList{Selected: -1},
		sessionEvent:          events.NewChannelEvent[SessionView](true),
		timerEvent:            events.NewChannelEvent[TimerView](true),
		hapticEvent:           events.NewChannelEvent[settimer.Pulse](false),
		platesEvent:           events.NewChannelEvent[PlatesView](true),
		plates:                PlatesView{Selected: -1},
		confirmationEvent:     events.NewChannelEvent[*Confirmation](true),
		inputEvent:            events.NewChannelEvent[*InputRequest](true),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                logger.WithField("component", "UIModel"),
	}

	model.wg.Add(1)
	safego.Go(model.logger, func() { model.listenToScanDevices(ctx, monitor) })

	model.wg.Add(1)
	safego.Go(model.logger, func() { model.listenToConnectedDevice(ctx, monitor) })

	model.wg.Add(1)
	safego.Go(model.logger, func() { model.readFromLogChannel(ctx, uiLogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Debug("Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Debug("Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Listen(ch)
}

func (m *UIModel) ListenToScanDevices(ch chan<- []*UIDeviceModel) func() {
	return m.scanDevicesEvent.Listen(ch)
}

// GetScanDevices returns the current scan list, sorted by address
func (m *UIModel) GetScanDevices() []*UIDeviceModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.scanDevices)
}

func (m *UIModel) ListenToConnectedDevice(ch chan<- hrmonitor.Status) func() {
	return m.connectedDeviceEvent.Listen(ch)
}

// GetConnectedDevice returns the heart-rate monitor in use
func (m *UIModel) GetConnectedDevice() hrmonitor.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectedDevice
}

func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Notify(struct{}{})
}

func (m *UIModel) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Listen(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Notify(state)
}

func (m *UIModel) ListenToHeartRate(ch chan<- HeartRate) func() {
	return m.heartRateEvent.Listen(ch)
}

func (m *UIModel) GetHeartRate() HeartRate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heartRate
}

func (m *UIModel) SetHeartRate(hr HeartRate) {
	m.mu.Lock()
	m.heartRate = hr
	m.mu.Unlock()

	m.heartRateEvent.Notify(hr)
}

func (m *UIModel) ListenToWorkouts(ch chan<- WorkoutList) func() {
	return m.workoutsEvent.Listen(ch)
}

func (m *UIModel) GetWorkouts() WorkoutList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workouts
}

func (m *UIModel) SetWorkouts(list WorkoutList) {
	m.mu.Lock()
	m.workouts = list
	m.mu.Unlock()

	m.workoutsEvent.Notify(list)
}

func (m *UIModel) ListenToSession(ch chan<- SessionView) func() {
	return m.sessionEvent.Listen(ch)
}

func (m *UIModel) GetSession() SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *UIModel) SetSession(view SessionView) {
	m.mu.Lock()
	m.session = view
	m.mu.Unlock()

	m.sessionEvent.Notify(view)
}

func (m *UIModel) ListenToTimer(ch chan<- TimerView) func() {
	return m.timerEvent.Listen(ch)
}

func (m *UIModel) GetTimer() TimerView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timer
}

func (m *UIModel) SetTimer(view TimerView) {
	m.mu.Lock()
	m.timer = view
	m.mu.Unlock()

	m.timerEvent.Notify(view)
}

// ListenToHaptic registers a channel for timer pulses. Pulses are not replayed.
func (m *UIModel) ListenToHaptic(ch chan<- settimer.Pulse) func() {
	return m.hapticEvent.Listen(ch)
}

func (m *UIModel) NotifyHaptic(pulse settimer.Pulse) {
	m.hapticEvent.Notify(pulse)
}

func (m *UIModel) ListenToPlates(ch chan<- PlatesView) func() {
	return m.platesEvent.Listen(ch)
}

func (m *UIModel) GetPlates() PlatesView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plates
}

func (m *UIModel) SetPlates(view PlatesView) {
	m.mu.Lock()
	m.plates = view
	m.mu.Unlock()

	m.platesEvent.Notify(view)
}

func (m *UIModel) ListenToConfirmation(ch chan<- *Confirmation) func() {
	return m.confirmationEvent.Listen(ch)
}

// RequestConfirmation replaces any pending confirmation
func (m *UIModel) RequestConfirmation(c Confirmation) {
	m.mu.Lock()
	m.confirmation = &c
	m.mu.Unlock()

	m.confirmationEvent.Notify(&c)
}

// TakeConfirmation clears and returns the pending confirmation
func (m *UIModel) TakeConfirmation() *Confirmation {
	m.mu.Lock()
	pending := m.confirmation
	m.confirmation = nil
	m.mu.Unlock()

	if pending != nil {
		m.confirmationEvent.Notify(nil)
	}
	return pending
}

func (m *UIModel) ListenToInput(ch chan<- *InputRequest) func() {
	return m.inputEvent.Listen(ch)
}

// RequestInput opens a text prompt, replacing any open one
func (m *UIModel) RequestInput(req InputRequest) {
	m.mu.Lock()
	m.input = &req
	m.mu.Unlock()

	m.inputEvent.Notify(&req)
}

// TakeInput closes and returns the open prompt
func (m *UIModel) TakeInput() *InputRequest {
	m.mu.Lock()
	open := m.input
	m.input = nil
	m.mu.Unlock()

	if open != nil {
		m.inputEvent.Notify(nil)
	}
	return open
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n >= len(m.logLines) {
		return slices.Clone(m.logLines)
	}
	return slices.Clone(m.logLines[len(m.logLines)-n:])
}

// listenToScanDevices converts the monitor's scan list for the view
func (m *UIModel) listenToScanDevices(ctx context.Context, monitor HeartRateMonitor) {
	defer m.wg.Done()

	deviceChan := make(chan []bt.BTDevice, 1)
	unregister := monitor.ListenToScanDevices(deviceChan)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case devices, ok := <-deviceChan:
			if !ok {
				return
			}
			result := convertBTDevicesToUIModels(devices)

			m.mu.Lock()
			m.scanDevices = result
			m.mu.Unlock()

			m.scanDevicesEvent.Notify(slices.Clone(result))
		}
	}
}

// listenToConnectedDevice mirrors the monitor's connection status
func (m *UIModel) listenToConnectedDevice(ctx context.Context, monitor HeartRateMonitor) {
	defer m.wg.Done()

	statusChan := make(chan hrmonitor.Status, 1)
	unregister := monitor.ListenToStatus(statusChan)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-statusChan:
			if !ok {
				return
			}
			m.mu.Lock()
			m.connectedDevice = status
			m.mu.Unlock()

			m.connectedDeviceEvent.Notify(status)
		}
	}
}

func convertBTDevicesToUIModels(btDevices []bt.BTDevice) []*UIDeviceModel {
	uiDeviceModels := make([]*UIDeviceModel, 0, len(btDevices))
	for _, btDevice := range btDevices {
		rssi, err := btDevice.GetScanRSSI()
		if err != nil {
			rssi = 0
		}
		uiDeviceModels = append(uiDeviceModels, &UIDeviceModel{
			Name:    btDevice.GetLocalName(),
			Address: btDevice.GetAddressString(),
			RSSI:    rssi,
		})
	}
	slices.SortFunc(uiDeviceModels, func(a, b *UIDeviceModel) int {
		return strings.Compare(a.Address, b.Address)
	})
	return uiDeviceModels
}
