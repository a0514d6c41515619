package companion

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/hrtrend"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

// NewUIControllerArg holds the dependencies of a UIController
type NewUIControllerArg struct {
	Model     *UIModel
	Monitor   HeartRateMonitor
	Estimator *hrtrend.Estimator
	Workouts  []workout.Workout
	// Equipments is used for sessions and the plate calculator
	Equipments []plates.Equipment
	Recorder   workout.Recorder
	Prefs      *Preferences
	// HapticSeconds follows settimer.Config: 0 is the default window,
	// negative disables the countdown pulses
	HapticSeconds int
	// TimerTick is the wall time of one timer second, 1s when zero
	TimerTick time.Duration
	Logger    logrus.FieldLogger
}

type timerCompletion struct {
	generation uint64
	result     settimer.Result
}

// UIController handles UI events and coordinates the monitor, the running
// session and its timers with the UIModel
type UIController struct {
	model         *UIModel
	monitor       HeartRateMonitor
	estimator     *hrtrend.Estimator
	workouts      []workout.Workout
	recorder      workout.Recorder
	prefs         *Preferences
	hapticSeconds int
	timerTick     time.Duration
	logger        logrus.FieldLogger

	// protected by mu
	mu               sync.Mutex
	equipments       []plates.Equipment
	session          *workout.Session
	unlistenSession  func()
	lastPosition     int
	lastExerciseID   string
	timer            *settimer.Timer
	unlistenTimer    func()
	timerGeneration  uint64
	autoConnectTried map[string]bool

	sessionChan   chan workout.State
	timerChan     chan settimer.State
	timerDoneChan chan timerCompletion

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewUIController creates a new UIController with the given dependencies
func NewUIController(args NewUIControllerArg) *UIController {
	if args.Model == nil {
		panic("UIController: model cannot be nil")
	}
	if args.Monitor == nil {
		panic("UIController: monitor cannot be nil")
	}
	if args.Estimator == nil {
		panic("UIController: estimator cannot be nil")
	}
	if args.Recorder == nil {
		panic("UIController: recorder cannot be nil")
	}
	if args.Prefs == nil {
		panic("UIController: prefs cannot be nil")
	}
	if args.Logger == nil {
		panic("UIController: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &UIController{
		model:            args.Model,
		monitor:          args.Monitor,
		estimator:        args.Estimator,
		workouts:         args.Workouts,
		recorder:         args.Recorder,
		prefs:            args.Prefs,
		hapticSeconds:    args.HapticSeconds,
		timerTick:        args.TimerTick,
		logger:           args.Logger.WithField("component", "UIController"),
		equipments:       slices.Clone(args.Equipments),
		lastPosition:     -1,
		autoConnectTried: make(map[string]bool),
		sessionChan:      make(chan workout.State, 8),
		timerChan:        make(chan settimer.State, 8),
		timerDoneChan:    make(chan timerCompletion, 4),
		ctx:              ctx,
		cancel:           cancel,
	}

	c.model.SetWorkouts(WorkoutList{Workouts: c.workouts, Selected: c.indexOfWorkout(c.prefs.LastWorkout())})
	c.model.SetPlates(platesViewFor(c.equipments, c.indexOfEquipment(c.prefs.LastEquipment()), 0))

	c.wg.Add(1)
	safego.Go(c.logger, func() { c.runSessionLoop() })

	c.wg.Add(1)
	safego.Go(c.logger, func() { c.listenToAutoConnect() })

	return c
}

// --- Device Methods ---

// listenToAutoConnect connects the preferred heart-rate monitor once per
// scan when it shows up
func (c *UIController) listenToAutoConnect() {
	defer c.wg.Done()

	ch := make(chan []*UIDeviceModel, 1)
	unregister := c.model.ListenToScanDevices(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case devices, ok := <-ch:
			if !ok {
				return
			}
			preferred := c.prefs.PreferredHRAddress()
			if preferred == "" || c.model.GetConnectedDevice().Address == preferred {
				continue
			}
			for _, device := range devices {
				if device.Address != preferred {
					continue
				}
				c.mu.Lock()
				tried := c.autoConnectTried[preferred]
				c.autoConnectTried[preferred] = true
				c.mu.Unlock()
				if !tried {
					c.logger.Infof("Auto-connecting %s from preferences", preferred)
					c.ScanDeviceSelected(device)
				}
				break
			}
		}
	}
}

// ScanDeviceSelected connects to the selected heart-rate monitor in the background
func (c *UIController) ScanDeviceSelected(device *UIDeviceModel) {
	if device == nil {
		return
	}
	address := device.Address
	c.wg.Add(1)
	safego.Go(c.logger, func() {
		defer c.wg.Done()
		if err := c.monitor.ConnectAndSubscribe(address); err != nil {
			c.logger.WithError(err).Errorf("Connection to %s failed", address)
			return
		}
		c.prefs.SetPreferredHRAddress(address)
		c.estimator.Reset()
	})
}

// DisconnectDevice releases the heart-rate monitor
func (c *UIController) DisconnectDevice() {
	if c.model.GetConnectedDevice().Address == "" {
		c.logger.Info("No heart-rate monitor connected")
		return
	}
	if err := c.monitor.Disconnect(); err != nil {
		c.logger.WithError(err).Error("Disconnect failed")
	}
}

func (c *UIController) StartDeviceScan() {
	if c.monitor.IsScanning() {
		c.logger.Debug("Already scanning")
		return
	}
	c.mu.Lock()
	clear(c.autoConnectTried)
	c.mu.Unlock()
	c.monitor.StartScan()
}

func (c *UIController) StopDeviceScan() {
	if !c.monitor.IsScanning() {
		c.logger.Debug("Already not scanning")
		return
	}
	if err := c.monitor.StopScan(); err != nil {
		c.logger.WithError(err).Error("Error stopping scan")
	}
}

func (c *UIController) ToggleDeviceScan() {
	if c.monitor.IsScanning() {
		c.StopDeviceScan()
	} else {
		c.StartDeviceScan()
	}
}

// OnModeChange handles when the user requests a mode change
func (c *UIController) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Debugf("Switching to %s mode", info.DisplayName)
	}
	// scan only while the device screen is shown
	if mode == UIModeDevices {
		c.StartDeviceScan()
	} else {
		c.StopDeviceScan()
	}
	c.model.SetMode(mode)
}

// OnEscapeKey handles when the Escape key is pressed
func (c *UIController) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// --- Workout Methods ---

// OnWorkoutSelected starts a session for the workout at index, replacing
// any session in progress
func (c *UIController) OnWorkoutSelected(index int) {
	if index < 0 || index >= len(c.workouts) {
		c.logger.Warnf("Invalid workout index: %d", index)
		return
	}
	w := c.workouts[index]
	c.logger.Infof("Workout selected: %s", w.Name)

	c.mu.Lock()
	c.endSessionLocked()
	c.session = workout.NewSession(w, c.equipments, c.recorder, c.logger)
	c.lastPosition = -1
	c.lastExerciseID = ""
	c.unlistenSession = c.session.Listen(c.sessionChan)
	c.mu.Unlock()

	c.prefs.SetLastWorkout(w.ID)
	c.model.SetWorkouts(WorkoutList{Workouts: c.workouts, Selected: index})
	c.OnModeChange(UIModeExercise)
}

// RequestEndWorkout asks before abandoning the session in progress
func (c *UIController) RequestEndWorkout() {
	if c.currentSession() == nil {
		c.logger.Info("No workout in progress")
		return
	}
	c.model.RequestConfirmation(Confirmation{Action: ConfirmEndWorkout, Prompt: "End the workout?"})
}

func (c *UIController) endWorkout() {
	c.mu.Lock()
	c.endSessionLocked()
	c.model.SetSession(SessionView{})
	c.mu.Unlock()

	c.logger.Info("Workout ended")
	c.OnModeChange(UIModeWorkouts)
}

// endSessionLocked drops the session and its timer. MUST be called with mu held.
func (c *UIController) endSessionLocked() {
	c.replaceTimerLocked(nil)
	if c.unlistenSession != nil {
		c.unlistenSession()
		c.unlistenSession = nil
	}
	c.session = nil
}

func (c *UIController) currentSession() *workout.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CompleteSet finishes the current state: a movement set is recorded with
// its actual values, a rest is skipped
func (c *UIController) CompleteSet() {
	session := c.currentSession()
	if session == nil {
		c.logger.Info("No workout in progress, select one first (press 2)")
		return
	}
	state := session.Current()
	switch state.Step {
	case workout.StepSet:
		data := state.Data
		if data.Timed() {
			if timer := c.currentTimerState(); timer.Active && timer.State.Elapsed > 0 {
				data = data.WithDuration(timer.State.Elapsed)
			}
		}
		c.advance(state.Position, &data)
	case workout.StepRest:
		c.logger.Debug("Skipping rest")
		c.advance(state.Position, nil)
	case workout.StepCompleted:
		c.logger.Info("Workout already completed")
	}
}

// PrimaryAction is the space bar: complete a set, or start, stop and
// resume the timer of a timed set or rest
func (c *UIController) PrimaryAction() {
	session := c.currentSession()
	if session == nil {
		c.logger.Info("No workout in progress, select one first (press 2)")
		return
	}
	state := session.Current()
	if state.Step == workout.StepSet && !state.Data.Timed() {
		c.CompleteSet()
		return
	}
	timer := c.currentTimerState()
	if !timer.Active {
		return
	}
	switch timer.State.Status {
	case settimer.StatusIdle:
		c.StartTimer()
	case settimer.StatusRunning:
		c.RequestStopTimer()
	case settimer.StatusStopped:
		c.ResumeTimer()
	}
}

// advance stores data on the set at position, when given, and moves on.
// Nothing happens when the session has already left position.
func (c *UIController) advance(position int, data *workout.SetData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	state := c.session.Current()
	if state.Position != position {
		c.logger.Debugf("Ignoring stale completion for position %d", position)
		return
	}
	if data != nil && state.Step == workout.StepSet {
		c.session.StoreSetData(*data)
	}
	c.session.GoToNextState(c.ctx)
}

// AdjustReps moves the reps of the current set by delta
func (c *UIController) AdjustReps(delta int) {
	c.updateSetData(func(d workout.SetData) (workout.SetData, bool) {
		if d.Timed() {
			return d, false
		}
		return d.AdjustReps(delta), true
	})
}

// AdjustWeight moves the load of the current set by delta kg
func (c *UIController) AdjustWeight(delta float64) {
	c.updateSetData(func(d workout.SetData) (workout.SetData, bool) {
		if d.Timed() {
			return d, false
		}
		return d.AdjustWeight(delta), true
	})
}

// updateSetData applies fn to the current movement set. It does nothing on
// rest and completed states.
func (c *UIController) updateSetData(fn func(workout.SetData) (workout.SetData, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.session.Current().Step != workout.StepSet {
		return
	}
	data, ok := fn(c.session.CurrentSetData())
	if !ok {
		return
	}
	c.session.StoreSetData(data)
}

// RequestInput opens a prompt for field, prefilled with the current value
func (c *UIController) RequestInput(field InputField) {
	var initial string
	switch field {
	case InputReps, InputWeight, InputDuration:
		session := c.currentSession()
		if session == nil {
			return
		}
		state := session.Current()
		if state.Step != workout.StepSet {
			return
		}
		switch {
		case field == InputDuration && state.Data.Timed():
			initial = settimer.FormatClock(state.Data.Duration)
		case field == InputReps && !state.Data.Timed():
			initial = fmt.Sprint(state.Data.Reps)
		case field == InputWeight && !state.Data.Timed():
			initial = plates.FormatWeight(state.Data.Weight)
		default:
			return
		}
	case InputPlatesTotal:
		if total := c.model.GetPlates().Total; total > 0 {
			initial = plates.FormatWeight(total)
		}
	case InputBarWeight:
		eq, ok := c.model.GetPlates().SelectedEquipment()
		if !ok || !usesBar(eq) {
			c.logger.Info("Select a barbell or plate-loaded cable first")
			return
		}
		initial = plates.FormatWeight(eq.BarWeight)
	}
	c.model.RequestInput(InputRequest{Field: field, Initial: initial})
}

// SubmitInput applies text to the open prompt. Text that is not a valid
// non-negative number is ignored.
func (c *UIController) SubmitInput(text string) {
	req := c.model.TakeInput()
	if req == nil {
		return
	}
	switch req.Field {
	case InputReps:
		reps, ok := workout.ParseReps(text)
		if !ok {
			c.logger.Debugf("Ignoring reps %q", text)
			return
		}
		c.updateSetData(func(d workout.SetData) (workout.SetData, bool) {
			return d.WithReps(reps), !d.Timed()
		})
	case InputWeight:
		kg, ok := workout.ParseWeight(text)
		if !ok {
			c.logger.Debugf("Ignoring weight %q", text)
			return
		}
		c.updateSetData(func(d workout.SetData) (workout.SetData, bool) {
			return d.WithWeight(kg), !d.Timed()
		})
	case InputDuration:
		duration, ok := workout.ParseDuration(text)
		if !ok {
			c.logger.Debugf("Ignoring duration %q", text)
			return
		}
		c.updateSetData(func(d workout.SetData) (workout.SetData, bool) {
			return d.WithDuration(duration), d.Timed()
		})
	case InputPlatesTotal:
		kg, ok := workout.ParseWeight(text)
		if !ok {
			c.logger.Debugf("Ignoring total %q", text)
			return
		}
		c.ShowPlates(kg)
	case InputBarWeight:
		kg, ok := workout.ParseWeight(text)
		if !ok {
			c.logger.Debugf("Ignoring bar weight %q", text)
			return
		}
		c.SetBarWeight(kg)
	}
}

// CancelInput closes the open prompt without applying it
func (c *UIController) CancelInput() {
	c.model.TakeInput()
}

// --- Timer Methods ---

func (c *UIController) StartTimer() {
	c.withTimer(func(t *settimer.Timer) { t.Start() })
}

// RequestStopTimer asks the user to confirm before a running timer stops
func (c *UIController) RequestStopTimer() {
	if timer := c.currentTimerState(); !timer.Active || timer.State.Status != settimer.StatusRunning {
		return
	}
	c.model.RequestConfirmation(Confirmation{Action: ConfirmStopTimer, Prompt: "Stop the timer?"})
}

func (c *UIController) ResumeTimer() {
	c.withTimer(func(t *settimer.Timer) { t.Resume() })
}

// AdjustTimer moves the target of a countdown by delta
func (c *UIController) AdjustTimer(delta time.Duration) {
	c.withTimer(func(t *settimer.Timer) { t.Adjust(delta) })
}

// ConfirmationAnswered resolves the pending confirmation
func (c *UIController) ConfirmationAnswered(confirmed bool) {
	pending := c.model.TakeConfirmation()
	if pending == nil || !confirmed {
		return
	}
	switch pending.Action {
	case ConfirmStopTimer:
		c.withTimer(func(t *settimer.Timer) { t.Stop() })
	case ConfirmEndWorkout:
		c.endWorkout()
	}
}

func (c *UIController) withTimer(fn func(*settimer.Timer)) {
	c.mu.Lock()
	timer := c.timer
	c.mu.Unlock()
	if timer == nil {
		c.logger.Debug("No timer on this screen")
		return
	}
	fn(timer)
}

func (c *UIController) currentTimerState() TimerView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerViewLocked()
}

// timerViewLocked MUST be called with mu held.
func (c *UIController) timerViewLocked() TimerView {
	if c.timer == nil {
		return TimerView{}
	}
	return TimerView{Active: true, State: c.timer.State()}
}

// publishTimer holds mu so a replaced timer is never published after its successor
func (c *UIController) publishTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.SetTimer(c.timerViewLocked())
}

// --- Plates Methods ---

// OnEquipmentSelected picks the equipment of the plate calculator
func (c *UIController) OnEquipmentSelected(index int) {
	c.mu.Lock()
	equipments := slices.Clone(c.equipments)
	c.mu.Unlock()
	if index < 0 || index >= len(equipments) {
		c.logger.Warnf("Invalid equipment index: %d", index)
		return
	}
	c.prefs.SetLastEquipment(equipments[index].ID)
	c.model.SetPlates(platesViewFor(equipments, index, c.model.GetPlates().Total))
}

// ShowPlates computes the loading of the selected equipment for total kg
func (c *UIController) ShowPlates(total float64) {
	c.mu.Lock()
	equipments := slices.Clone(c.equipments)
	c.mu.Unlock()
	view := platesViewFor(equipments, c.model.GetPlates().Selected, total)
	if view.Breakdown != "" {
		c.logger.Infof("%s kg: %s", plates.FormatWeight(total), view.Breakdown)
	}
	c.model.SetPlates(view)
}

// SetBarWeight changes the bar of the selected equipment
func (c *UIController) SetBarWeight(kg float64) {
	eq, ok := c.model.GetPlates().SelectedEquipment()
	if !ok || !usesBar(eq) {
		return
	}
	eq.BarWeight = kg
	c.UpdateEquipment(eq)
	c.logger.Infof("%s bar set to %s kg", eq.Name, plates.FormatWeight(kg))
}

// UpdateEquipment replaces the equipment with the same id, for the plate
// calculator and the running session
func (c *UIController) UpdateEquipment(eq plates.Equipment) {
	c.mu.Lock()
	idx := slices.IndexFunc(c.equipments, func(e plates.Equipment) bool { return e.ID == eq.ID })
	if idx < 0 {
		c.equipments = append(c.equipments, eq)
	} else {
		c.equipments[idx] = eq
	}
	equipments := slices.Clone(c.equipments)
	if c.session != nil {
		c.session.UpdateEquipments(equipments)
	}
	c.mu.Unlock()

	current := c.model.GetPlates()
	c.model.SetPlates(platesViewFor(equipments, current.Selected, current.Total))
}

func usesBar(eq plates.Equipment) bool {
	return eq.Kind == plates.Barbell || eq.Kind == plates.PlateLoadedCable
}

func platesViewFor(equipments []plates.Equipment, selected int, total float64) PlatesView {
	if selected < 0 && len(equipments) > 0 {
		selected = 0
	}
	view := PlatesView{Equipments: equipments, Selected: selected, Total: total}
	if eq, ok := view.SelectedEquipment(); ok && total > 0 {
		view.Breakdown = plates.Breakdown(eq, total)
		view.Loading = plates.LoadPlan(eq, total)
		view.Nearest = plates.Nearest(eq, total)
	}
	return view
}

func (c *UIController) indexOfWorkout(id string) int {
	return slices.IndexFunc(c.workouts, func(w workout.Workout) bool { return id != "" && w.ID == id })
}

func (c *UIController) indexOfEquipment(id string) int {
	return slices.IndexFunc(c.equipments, func(e plates.Equipment) bool { return id != "" && e.ID == id })
}

// --- Session loop ---

// runSessionLoop publishes session and timer changes and drives the timer
// of each state. Channel payloads only signal a change; the current
// session and timer are read so that stale signals are harmless.
func (c *UIController) runSessionLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.sessionChan:
			c.handleSessionChange()
		case <-c.timerChan:
			c.publishTimer()
		case done := <-c.timerDoneChan:
			c.handleTimerComplete(done)
		}
	}
}

func (c *UIController) handleSessionChange() {
	c.mu.Lock()
	session := c.session
	if session == nil {
		c.mu.Unlock()
		return
	}
	state := session.Current()
	completed, total := session.Progress()

	if state.Position != c.lastPosition {
		c.lastPosition = state.Position
		if state.Step != workout.StepCompleted && state.Exercise.ID != c.lastExerciseID {
			if c.lastExerciseID != "" {
				c.logger.Infof("Next exercise: %s", state.Exercise.Name)
			}
			c.lastExerciseID = state.Exercise.ID
			c.estimator.Reset()
		}
		c.replaceTimerLocked(timerConfigFor(state))
	} else if cfg := timerConfigFor(state); cfg != nil && c.timer != nil {
		// an edited duration restarts a timer that has not run yet
		if current := c.timer.State(); current.Status == settimer.StatusIdle && current.Target != cfg.Target {
			c.replaceTimerLocked(cfg)
		}
	}
	// published under mu so an ended session is never shown again
	c.model.SetSession(SessionView{
		Active:      true,
		WorkoutName: session.Workout().Name,
		State:       state,
		Completed:   completed,
		Total:       total,
	})
	c.mu.Unlock()
}

func (c *UIController) handleTimerComplete(done timerCompletion) {
	c.mu.Lock()
	current := done.generation == c.timerGeneration && c.session != nil
	session := c.session
	c.mu.Unlock()
	if !current {
		return
	}

	state := session.Current()
	switch state.Step {
	case workout.StepRest:
		c.advance(state.Position, nil)
	case workout.StepSet:
		if state.Data.Timed() {
			data := state.Data.WithDuration(done.result.Actual)
			c.advance(state.Position, &data)
		}
	}
}

// timerConfigFor returns the timer a state needs, nil when it needs none
func timerConfigFor(state workout.State) *settimer.Config {
	switch set := state.Set.(type) {
	case workout.RestSet:
		if state.Step == workout.StepRest {
			return &settimer.Config{Kind: settimer.KindRest, Target: set.Duration, AutoStart: true}
		}
	case workout.TimedDurationSet:
		return &settimer.Config{Kind: settimer.KindTimedDuration, Target: state.Data.Duration, AutoStart: set.AutoStart}
	case workout.EnduranceSet:
		return &settimer.Config{Kind: settimer.KindEndurance, Target: state.Data.Duration, AutoStart: set.AutoStart}
	}
	return nil
}

// replaceTimerLocked shuts the current timer down and starts one for cfg,
// none when cfg is nil. MUST be called with mu held.
func (c *UIController) replaceTimerLocked(cfg *settimer.Config) {
	if c.unlistenTimer != nil {
		c.unlistenTimer()
		c.unlistenTimer = nil
	}
	if c.timer != nil {
		c.timer.Shutdown()
		c.timer = nil
	}
	c.timerGeneration++
	if cfg == nil {
		c.model.SetTimer(TimerView{})
		return
	}

	generation := c.timerGeneration
	cfg.HapticSeconds = c.hapticSeconds
	cfg.TickInterval = c.timerTick
	cfg.OnHaptic = c.model.NotifyHaptic
	cfg.OnComplete = func(result settimer.Result) {
		select {
		case c.timerDoneChan <- timerCompletion{generation: generation, result: result}:
		default:
			c.logger.Warn("Dropped timer completion")
		}
	}
	c.timer = settimer.New(*cfg, c.logger)
	c.unlistenTimer = c.timer.Listen(c.timerChan)
}

// Shutdown stops the session, its timer and all goroutines
func (c *UIController) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.mu.Lock()
		c.endSessionLocked()
		c.mu.Unlock()
	})
}
