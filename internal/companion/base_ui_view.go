package companion

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
)

// BaseUIView contains the base logic shared by all UI implementations
type BaseUIView struct {
	uiViewImpl   UIViewImpl
	uiModel      *UIModel
	uiController *UIController
	context      context.Context
	cancelFunc   context.CancelFunc
	waitGroup    sync.WaitGroup
	logger       logrus.FieldLogger
}

// NewBaseUIViewArg holds the arguments for creating a new BaseUIView
type NewBaseUIViewArg struct {
	UIViewImpl   UIViewImpl
	UIModel      *UIModel
	UIController *UIController
	Logger       logrus.FieldLogger
}

// NewBaseUIView creates a new BaseUIView with the given implementation
func NewBaseUIView(args NewBaseUIViewArg) *BaseUIView {
	if args.Logger == nil {
		panic("BaseUIView: logger cannot be nil")
	}
	if args.UIViewImpl == nil {
		panic("BaseUIView: UIViewImpl cannot be nil")
	}
	if args.UIModel == nil {
		panic("BaseUIView: UIModel cannot be nil")
	}
	if args.UIController == nil {
		panic("BaseUIView: UIController cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseUIView{
		uiViewImpl:   args.UIViewImpl,
		uiModel:      args.UIModel,
		uiController: args.UIController,
		context:      ctx,
		cancelFunc:   cancel,
		logger:       args.Logger.WithField("component", "BaseUIView"),
	}

	args.UIViewImpl.Initialize(args.UIController)
	args.UIViewImpl.SetupKeyboardHandlers(args.UIController)
	args.UIViewImpl.SetMode(args.UIModel.GetUIState().Mode)

	base.waitGroup.Add(1)
	safego.Go(base.logger, func() { base.monitorLogResize() })
	base.updateLogDisplay()

	base.setupEventListeners()

	return base
}

// listen runs apply for every value sent on a model event until shutdown,
// redrawing after each one
func listen[T any](base *BaseUIView, register func(chan<- T) func(), apply func(T)) {
	ch := make(chan T, 1)
	unregister := register(ch)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer unregister()
		for {
			select {
			case <-base.context.Done():
				return
			case value, ok := <-ch:
				if !ok {
					return
				}
				apply(value)
				base.draw()
			}
		}
	})
}

func (base *BaseUIView) setupEventListeners() {
	view := base.uiViewImpl
	model := base.uiModel

	// a new log line only signals that the tail changed
	listen(base, model.ListenToLog, func(string) { base.updateLogDisplay() })
	listen(base, model.ListenToScanDevices, view.SetScanDeviceList)
	listen(base, model.ListenToConnectedDevice, func(status hrmonitor.Status) { view.SetConnectedDevice(status) })
	listen(base, model.ListenToUIState, func(state UIState) { view.SetMode(state.Mode) })
	listen(base, model.ListenToHeartRate, view.UpdateHeartRate)
	listen(base, model.ListenToWorkouts, view.SetWorkoutList)
	listen(base, model.ListenToSession, view.UpdateSession)
	listen(base, model.ListenToTimer, view.UpdateTimer)
	listen(base, model.ListenToHaptic, func(pulse settimer.Pulse) { view.Pulse(pulse) })
	listen(base, model.ListenToPlates, view.UpdatePlates)
	listen(base, model.ListenToConfirmation, view.ShowConfirmation)
	listen(base, model.ListenToInput, view.ShowInput)

	closeChan := make(chan struct{}, 1)
	closeUnregister := model.ListenToCloseApplication(closeChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer closeUnregister()
		select {
		case <-base.context.Done():
		case <-closeChan:
			view.Stop()
		}
	})
}

func (base *BaseUIView) draw() {
	if err := base.uiViewImpl.Draw(); err != nil {
		base.logger.WithError(err).Error("Error drawing")
	}
}

func (base *BaseUIView) updateLogDisplay() {
	height := base.uiViewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	logLines := base.uiModel.GetLogTail(height)

	base.uiViewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.uiViewImpl.WriteLogLine(line); err != nil {
			base.logger.WithError(err).Error("Error writing to log view")
		}
	}
}

func (base *BaseUIView) monitorLogResize() {
	defer base.waitGroup.Done()
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.uiViewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				base.draw()
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseUIView) Shutdown() {
	base.logger.Debug("Shutting down")
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Debug("Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseUIView) Run() error {
	return base.uiViewImpl.Run()
}
