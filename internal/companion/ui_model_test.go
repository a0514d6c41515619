package companion

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
)

// fakeMonitor feeds scan lists and status changes straight to the model
type fakeMonitor struct {
	scanEvent   *events.ChannelEvent[[]bt.BTDevice]
	statusEvent *events.ChannelEvent[hrmonitor.Status]
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		scanEvent:   events.NewChannelEvent[[]bt.BTDevice](true),
		statusEvent: events.NewChannelEvent[hrmonitor.Status](true),
	}
}

func (m *fakeMonitor) StartScan()       {}
func (m *fakeMonitor) StopScan() error  { return nil }
func (m *fakeMonitor) IsScanning() bool { return false }
func (m *fakeMonitor) ListenToScanDevices(ch chan<- []bt.BTDevice) func() {
	return m.scanEvent.Listen(ch)
}
func (m *fakeMonitor) ListenToStatus(ch chan<- hrmonitor.Status) func() {
	return m.statusEvent.Listen(ch)
}
func (m *fakeMonitor) ConnectAndSubscribe(string) error { return nil }
func (m *fakeMonitor) Disconnect() error                { return nil }
func (m *fakeMonitor) Latest() int                      { return 0 }

func newTestModel(t *testing.T) (*UIModel, *fakeMonitor, chan string) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	monitor := newFakeMonitor()
	logChan := make(chan string, 16)
	model := NewUIModel(monitor, logger, logChan)
	t.Cleanup(model.Shutdown)
	return model, monitor, logChan
}

func TestUIModel_PanicsOnNilDependencies(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Panics(t, func() { NewUIModel(nil, logger, make(chan string)) })
	assert.Panics(t, func() { NewUIModel(newFakeMonitor(), nil, make(chan string)) })
	assert.Panics(t, func() { NewUIModel(newFakeMonitor(), logger, nil) })
}

func TestUIModel_LogTailIsCapped(t *testing.T) {
	model, _, logChan := newTestModel(t)

	for i := range maxLogLines + 5 {
		logChan <- fmt.Sprintf("line %d", i)
	}
	require.Eventually(t, func() bool {
		tail := model.GetLogTail(1)
		return len(tail) == 1 && tail[0] == fmt.Sprintf("line %d", maxLogLines+4)
	}, waitFor, tick)

	all := model.GetLogTail(maxLogLines * 2)
	assert.Len(t, all, maxLogLines)
	assert.Equal(t, "line 5", all[0])
	assert.Empty(t, model.GetLogTail(0))
}

func TestUIModel_SetModeNotifiesOnChange(t *testing.T) {
	model, _, _ := newTestModel(t)
	assert.Equal(t, UIModeDevices, model.GetUIState().Mode)

	ch := make(chan UIState, 4)
	defer model.ListenToUIState(ch)()

	model.SetMode(UIModeDevices)
	model.SetMode(UIModePlates)
	model.SetMode(UIModePlates)

	select {
	case state := <-ch:
		assert.Equal(t, UIModePlates, state.Mode)
	case <-time.After(waitFor):
		t.Fatal("no mode change")
	}
	select {
	case state := <-ch:
		t.Fatalf("unexpected notification: %v", state)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUIModel_ScanDevicesSortedByAddress(t *testing.T) {
	model, monitor, _ := newTestModel(t)
	logger, _ := test.NewNullLogger()

	second := hrmonitor.NewSimDevice(logger, hrmonitor.SimDeviceConfig{Address: "00:00:00:00:00:02", LocalName: "B"})
	first := hrmonitor.NewSimDevice(logger, hrmonitor.SimDeviceConfig{Address: "00:00:00:00:00:01", LocalName: "A"})
	monitor.scanEvent.Notify([]bt.BTDevice{second, first})

	require.Eventually(t, func() bool { return len(model.GetScanDevices()) == 2 }, waitFor, tick)
	devices := model.GetScanDevices()
	assert.Equal(t, "00:00:00:00:00:01", devices[0].Address)
	assert.Equal(t, "A", devices[0].Name)
	assert.Equal(t, "00:00:00:00:00:02", devices[1].Address)
}

func TestUIModel_MirrorsConnectionStatus(t *testing.T) {
	model, monitor, _ := newTestModel(t)
	assert.Equal(t, -1, model.GetConnectedDevice().Battery)

	monitor.statusEvent.Notify(hrmonitor.Status{Address: "x", Name: "Strap", Connected: true, Battery: 80})
	require.Eventually(t, func() bool { return model.GetConnectedDevice().Connected }, waitFor, tick)
	assert.Equal(t, 80, model.GetConnectedDevice().Battery)
}

func TestUIModel_ConfirmationAndInputAreTakenOnce(t *testing.T) {
	model, _, _ := newTestModel(t)

	ch := make(chan *Confirmation, 4)
	defer model.ListenToConfirmation(ch)()

	assert.Nil(t, model.TakeConfirmation())
	model.RequestConfirmation(Confirmation{Action: ConfirmEndWorkout, Prompt: "End?"})
	assert.Equal(t, ConfirmEndWorkout, (<-ch).Action)

	taken := model.TakeConfirmation()
	require.NotNil(t, taken)
	assert.Equal(t, "End?", taken.Prompt)
	assert.Nil(t, <-ch)
	assert.Nil(t, model.TakeConfirmation())

	model.RequestInput(InputRequest{Field: InputWeight, Initial: "60"})
	req := model.TakeInput()
	require.NotNil(t, req)
	assert.Equal(t, "60", req.Initial)
	assert.Nil(t, model.TakeInput())
}

func TestUIModel_HapticIsNotReplayed(t *testing.T) {
	model, _, _ := newTestModel(t)
	model.NotifyHaptic(settimer.Pulse{SecondsLeft: 3})

	ch := make(chan settimer.Pulse, 1)
	defer model.ListenToHaptic(ch)()
	select {
	case pulse := <-ch:
		t.Fatalf("unexpected replay: %+v", pulse)
	case <-time.After(20 * time.Millisecond):
	}

	model.NotifyHaptic(settimer.Pulse{Long: true})
	assert.True(t, (<-ch).Long)
}
