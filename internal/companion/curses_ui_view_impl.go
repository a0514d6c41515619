package companion

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

// Page names for tview.Pages
const (
	pageDevices  = "devices"
	pageWorkouts = "workouts"
	pageExercise = "exercise"
	pagePlates   = "plates"
	pageConfirm  = "confirm"
	pageInput    = "input"
)

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger      logrus.FieldLogger
	app         *tview.Application
	model       *UIModel
	currentMode UIMode

	// dialogs are open while the confirm or input page is shown
	dialogMu   sync.Mutex
	dialogOpen bool

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	heartRateBar *tview.TextView
	logView      *tview.TextView
	mainFlex     *tview.Flex

	// Devices mode components
	devicesFlex       *tview.Flex
	scanDeviceList    *tview.List
	connectedText     *tview.TextView
	devicesTabWidgets []tview.Primitive

	// Workouts mode components
	workoutsFlex        *tview.Flex
	workoutList         *tview.List
	workoutDetailsPanel *tview.TextView
	workoutsTabWidgets  []tview.Primitive
	workouts            []workout.Workout

	// Exercise mode components
	exerciseFlex       *tview.Flex
	sessionPanel       *tview.TextView
	timerPanel         *tview.TextView
	exerciseTabWidgets []tview.Primitive

	// Plates mode components
	platesFlex       *tview.Flex
	equipmentList    *tview.List
	platesPanel      *tview.TextView
	platesTabWidgets []tview.Primitive

	// Dialogs
	confirmModal *tview.Modal
	inputField   *tview.InputField
}

func NewCursesUIView(logger logrus.FieldLogger, app *tview.Application, model *UIModel) *CursesUIViewImpl {
	if logger == nil {
		panic("CursesUIViewImpl: logger cannot be nil")
	}
	return &CursesUIViewImpl{
		logger:      logger.WithField("component", "CursesUI"),
		app:         app,
		model:       model,
		currentMode: UIModeDevices,
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// no SetChangedFunc with app.Draw(): it can hang once the app has stopped
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.heartRateBar = tview.NewTextView().
		SetDynamicColors(true)
	ui.heartRateBar.SetBorder(true).SetTitle(" Heart rate ")
	ui.heartRateBar.SetText(formatHeartRate(HeartRate{}))

	ui.pages = tview.NewPages()

	ui.initDevicesMode(controller)
	ui.initWorkoutsMode(controller)
	ui.initExerciseMode(controller)
	ui.initPlatesMode(controller)
	ui.initDialogs(controller)

	ui.pages.AddPage(pageDevices, ui.devicesFlex, true, true)
	ui.pages.AddPage(pageWorkouts, ui.workoutsFlex, true, false)
	ui.pages.AddPage(pageExercise, ui.exerciseFlex, true, false)
	ui.pages.AddPage(pagePlates, ui.platesFlex, true, false)
	ui.pages.AddPage(pageConfirm, ui.confirmModal, true, false)
	ui.pages.AddPage(pageInput, centered(ui.inputField, 50, 3), true, false)

	// heart rate across the top, mode content on the left, logs on the right
	body := tview.NewFlex().
		AddItem(ui.pages, 0, 3, true).
		AddItem(ui.logView, 0, 2, false)
	ui.mainFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.heartRateBar, 3, 0, false).
		AddItem(body, 0, 1, true)

	ui.setFocusForCurrentMode()
}

func newPanel(title string) *tview.TextView {
	panel := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	panel.SetBorder(true).SetTitle(title)
	return panel
}

func newInstructions(text string) *tview.TextView {
	instructions := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructions.SetText(text)
	return instructions
}

const modeKeys = "[yellow]1[white] Devices  |  [yellow]2[white] Workouts  |  [yellow]3[white] Exercise  |  [yellow]4[white] Plates"

func (ui *CursesUIViewImpl) initDevicesMode(controller *UIController) {
	ui.scanDeviceList = tview.NewList().
		ShowSecondaryText(false).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			devices := ui.model.GetScanDevices()
			if index >= len(devices) {
				ui.logger.Debugf("Index %d out of range (have %d devices)", index, len(devices))
				return
			}
			selected := devices[index]
			ui.logger.Infof("Connecting to %s (%s)", selected.Name, selected.Address)
			controller.ScanDeviceSelected(selected)
		})
	ui.scanDeviceList.SetBorder(true).SetTitle(" Heart-rate monitors ")

	ui.connectedText = newPanel(" Connected ")
	ui.connectedText.SetText(formatConnectedDevice(hrmonitor.Status{Battery: -1}))

	ui.devicesTabWidgets = append(ui.devicesTabWidgets, ui.scanDeviceList)

	ui.devicesFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(newInstructions("[yellow]S[white] Toggle Scan  |  [yellow]Enter[white] Connect  |  [yellow]D[white] Disconnect\n"+modeKeys), 2, 0, false).
		AddItem(ui.scanDeviceList, 0, 4, true).
		AddItem(ui.connectedText, 3, 0, false)
}

func (ui *CursesUIViewImpl) initWorkoutsMode(controller *UIController) {
	ui.workoutList = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			controller.OnWorkoutSelected(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.updateWorkoutDetailsDisplay(index)
		})
	ui.workoutList.SetBorder(true).SetTitle(" Workouts ")

	ui.workoutDetailsPanel = newPanel(" Workout Details ")
	ui.updateWorkoutDetailsDisplay(-1)

	ui.workoutsTabWidgets = append(ui.workoutsTabWidgets, ui.workoutList, ui.workoutDetailsPanel)

	columns := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.workoutList, 0, 1, true).
		AddItem(ui.workoutDetailsPanel, 0, 1, false)
	ui.workoutsFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(newInstructions("[yellow]Enter[white] Start workout  |  [yellow]Tab[white] Details\n"+modeKeys), 2, 0, false).
		AddItem(columns, 0, 1, true)
}

func (ui *CursesUIViewImpl) initExerciseMode(controller *UIController) {
	ui.sessionPanel = newPanel(" Set ")
	ui.sessionPanel.SetText(formatSession(SessionView{}))

	ui.timerPanel = newPanel(" Timer ")
	ui.timerPanel.SetText(formatTimer(TimerView{}))

	ui.exerciseTabWidgets = append(ui.exerciseTabWidgets, ui.sessionPanel)

	ui.exerciseFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(newInstructions(modeKeys), 1, 0, false).
		AddItem(ui.sessionPanel, 0, 3, true).
		AddItem(ui.timerPanel, 7, 0, false)
}

func (ui *CursesUIViewImpl) initPlatesMode(controller *UIController) {
	ui.equipmentList = tview.NewList().
		ShowSecondaryText(false).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			controller.OnEquipmentSelected(index)
		})
	ui.equipmentList.SetBorder(true).SetTitle(" Equipment ")

	ui.platesPanel = newPanel(" Loading ")

	ui.platesTabWidgets = append(ui.platesTabWidgets, ui.equipmentList)

	columns := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.equipmentList, 0, 1, true).
		AddItem(ui.platesPanel, 0, 2, false)
	ui.platesFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(newInstructions("[yellow]Enter[white] Select  |  [yellow]T[white] Total  |  [yellow]B[white] Bar weight\n"+modeKeys), 2, 0, false).
		AddItem(columns, 0, 1, true)
}

func (ui *CursesUIViewImpl) initDialogs(controller *UIController) {
	ui.confirmModal = tview.NewModal().
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			controller.ConfirmationAnswered(buttonLabel == "Yes")
		})

	ui.inputField = tview.NewInputField().
		SetFieldWidth(12).
		SetDoneFunc(func(key tcell.Key) {
			switch key {
			case tcell.KeyEnter:
				controller.SubmitInput(ui.inputField.GetText())
			case tcell.KeyEscape:
				controller.CancelInput()
			}
		})
	ui.inputField.SetBorder(true)
}

// centered wraps p in a flex that keeps it in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}
	ui.currentMode = mode

	switch mode {
	case UIModeDevices:
		ui.pages.SwitchToPage(pageDevices)
	case UIModeWorkouts:
		ui.pages.SwitchToPage(pageWorkouts)
	case UIModeExercise:
		ui.pages.SwitchToPage(pageExercise)
	case UIModePlates:
		ui.pages.SwitchToPage(pagePlates)
	}
	ui.setFocusForCurrentMode()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	return ui.currentMode
}

func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	if widgets := ui.getTabWidgetsForCurrentMode(); len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

func (ui *CursesUIViewImpl) getTabWidgetsForCurrentMode() []tview.Primitive {
	switch ui.currentMode {
	case UIModeDevices:
		return ui.devicesTabWidgets
	case UIModeWorkouts:
		return ui.workoutsTabWidgets
	case UIModeExercise:
		return ui.exerciseTabWidgets
	case UIModePlates:
		return ui.platesTabWidgets
	default:
		return nil
	}
}

func (ui *CursesUIViewImpl) isDialogOpen() bool {
	ui.dialogMu.Lock()
	defer ui.dialogMu.Unlock()
	return ui.dialogOpen
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// the dialog widgets handle their own keys
		if ui.isDialogOpen() {
			return event
		}

		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				controller.OnModeChange(mode)
				return nil
			}
		}

		switch event.Key() {
		case tcell.KeyTab:
			widgets := ui.getTabWidgetsForCurrentMode()
			for i, widget := range widgets {
				if widget.HasFocus() {
					ui.app.SetFocus(widgets[(i+1)%len(widgets)])
					break
				}
			}
			return nil
		case tcell.KeyEscape:
			controller.OnEscapeKey()
			return nil
		}

		switch ui.currentMode {
		case UIModeDevices:
			return ui.handleDevicesKey(controller, event)
		case UIModeExercise:
			return ui.handleExerciseKey(controller, event)
		case UIModePlates:
			return ui.handlePlatesKey(controller, event)
		}
		return event
	})
}

func (ui *CursesUIViewImpl) handleDevicesKey(controller *UIController, event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch event.Rune() {
	case 's':
		controller.ToggleDeviceScan()
	case 'd':
		controller.DisconnectDevice()
	default:
		return event
	}
	return nil
}

func (ui *CursesUIViewImpl) handleExerciseKey(controller *UIController, event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter:
		controller.CompleteSet()
		return nil
	case tcell.KeyUp:
		controller.AdjustWeight(DefaultWeightStep)
		return nil
	case tcell.KeyDown:
		controller.AdjustWeight(-DefaultWeightStep)
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch event.Rune() {
	case ' ':
		controller.PrimaryAction()
	case '+', '=':
		controller.AdjustReps(DefaultRepStep)
	case '-':
		controller.AdjustReps(-DefaultRepStep)
	case '[':
		controller.AdjustTimer(-DefaultTimerStep)
	case ']':
		controller.AdjustTimer(DefaultTimerStep)
	case 'r':
		controller.RequestInput(InputReps)
	case 'w':
		controller.RequestInput(InputWeight)
	case 't':
		controller.RequestInput(InputDuration)
	case 'x':
		controller.RequestEndWorkout()
	default:
		return event
	}
	return nil
}

func (ui *CursesUIViewImpl) handlePlatesKey(controller *UIController, event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch event.Rune() {
	case 't':
		controller.RequestInput(InputPlatesTotal)
	case 'b':
		controller.RequestInput(InputBarWeight)
	default:
		return event
	}
	return nil
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

func (ui *CursesUIViewImpl) UpdateHeartRate(hr HeartRate) {
	ui.heartRateBar.SetText(formatHeartRate(hr))
}

// SetScanDeviceList updates the device list, keeping the selection
func (ui *CursesUIViewImpl) SetScanDeviceList(devices []*UIDeviceModel) {
	var currentSelectionText string
	if current := ui.scanDeviceList.GetCurrentItem(); current < ui.scanDeviceList.GetItemCount() {
		currentSelectionText, _ = ui.scanDeviceList.GetItemText(current)
	}

	ui.scanDeviceList.Clear()
	selectedIdx := -1
	for i, device := range devices {
		text := formatScanDeviceName(device)
		if text == currentSelectionText {
			selectedIdx = i
		}
		ui.scanDeviceList.AddItem(text, "", 0, nil)
	}
	if selectedIdx > -1 {
		ui.scanDeviceList.SetCurrentItem(selectedIdx)
	}
}

func (ui *CursesUIViewImpl) SetConnectedDevice(status hrmonitor.Status) {
	ui.connectedText.SetText(formatConnectedDevice(status))
}

// SetWorkoutList populates the workout selection list
func (ui *CursesUIViewImpl) SetWorkoutList(list WorkoutList) {
	ui.workouts = list.Workouts
	ui.workoutList.Clear()
	for _, w := range list.Workouts {
		ui.workoutList.AddItem(w.Name, fmt.Sprintf("%d exercises", len(w.Exercises)), 0, nil)
	}
	if list.Selected >= 0 && list.Selected < len(list.Workouts) {
		ui.workoutList.SetCurrentItem(list.Selected)
		ui.updateWorkoutDetailsDisplay(list.Selected)
	} else if len(list.Workouts) > 0 {
		ui.updateWorkoutDetailsDisplay(0)
	}
}

func (ui *CursesUIViewImpl) updateWorkoutDetailsDisplay(index int) {
	if ui.workoutDetailsPanel == nil {
		return
	}
	if index < 0 || index >= len(ui.workouts) {
		ui.workoutDetailsPanel.SetText("\n\n  [yellow]Workouts[white]\n\n  Select a workout from the list to view details.\n")
		return
	}
	ui.workoutDetailsPanel.SetText(formatWorkoutDetails(ui.workouts[index]))
}

func (ui *CursesUIViewImpl) UpdateSession(view SessionView) {
	ui.sessionPanel.SetText(formatSession(view))
}

func (ui *CursesUIViewImpl) UpdateTimer(view TimerView) {
	ui.timerPanel.SetText(formatTimer(view))
	ui.timerPanel.SetBorderColor(tview.Styles.BorderColor)
}

// Pulse flashes the timer border, red for the completion pulse
func (ui *CursesUIViewImpl) Pulse(pulse settimer.Pulse) {
	if pulse.Long {
		ui.timerPanel.SetBorderColor(tcell.ColorRed)
		return
	}
	ui.timerPanel.SetBorderColor(tcell.ColorYellow)
}

func (ui *CursesUIViewImpl) UpdatePlates(view PlatesView) {
	current := ui.equipmentList.GetCurrentItem()
	ui.equipmentList.Clear()
	for _, eq := range view.Equipments {
		ui.equipmentList.AddItem(eq.Name, "", 0, nil)
	}
	switch {
	case view.Selected >= 0 && view.Selected < len(view.Equipments):
		ui.equipmentList.SetCurrentItem(view.Selected)
	case current < len(view.Equipments):
		ui.equipmentList.SetCurrentItem(current)
	}
	ui.platesPanel.SetText(formatPlates(view))
}

// ShowConfirmation opens or closes the confirmation dialog
func (ui *CursesUIViewImpl) ShowConfirmation(confirmation *Confirmation) {
	if confirmation == nil {
		ui.closeDialog(pageConfirm)
		return
	}
	ui.confirmModal.SetText(confirmation.Prompt)
	ui.confirmModal.SetFocus(0)
	ui.openDialog(pageConfirm)
	ui.app.SetFocus(ui.confirmModal)
}

// ShowInput opens or closes the text prompt
func (ui *CursesUIViewImpl) ShowInput(req *InputRequest) {
	if req == nil {
		ui.closeDialog(pageInput)
		return
	}
	ui.inputField.SetLabel(req.Field.Label())
	ui.inputField.SetText(req.Initial)
	ui.openDialog(pageInput)
	ui.app.SetFocus(ui.inputField)
}

func (ui *CursesUIViewImpl) openDialog(page string) {
	ui.dialogMu.Lock()
	ui.dialogOpen = true
	ui.dialogMu.Unlock()
	ui.pages.ShowPage(page)
}

func (ui *CursesUIViewImpl) closeDialog(page string) {
	ui.pages.HidePage(page)
	ui.dialogMu.Lock()
	ui.dialogOpen = ui.isPageVisible(pageConfirm) || ui.isPageVisible(pageInput)
	ui.dialogMu.Unlock()
	ui.setFocusForCurrentMode()
}

func (ui *CursesUIViewImpl) isPageVisible(name string) bool {
	return slices.Contains(ui.pages.GetPageNames(true), name)
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}
