package hrmonitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
)

func newTestSimDevice(t *testing.T) *SimDevice {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewSimDevice(logger, SimDeviceConfig{InitialBPM: 80, Seed: 7})
}

func TestSimDevice_Ramp(t *testing.T) {
	d := newTestSimDevice(t)
	require.NoError(t, d.Ramp(85, 2))

	var seen []int
	for range 4 {
		d.Tick()
		seen = append(seen, d.State().BPM)
	}
	assert.Equal(t, []int{82, 84, 85, 85}, seen)
	assert.Equal(t, SimHold, d.State().Mode)

	require.NoError(t, d.Ramp(80, 10))
	d.Tick()
	assert.Equal(t, 80, d.State().BPM)
}

func TestSimDevice_WalkStaysInRangeAndNearTarget(t *testing.T) {
	d := newTestSimDevice(t)
	require.NoError(t, d.Walk(120))

	for range 500 {
		d.Tick()
		bpm := d.State().BPM
		require.GreaterOrEqual(t, bpm, simMinBPM)
		require.LessOrEqual(t, bpm, simMaxBPM)
	}
	assert.InDelta(t, 120, d.State().BPM, 25)
}

func TestSimDevice_RejectsOutOfRange(t *testing.T) {
	d := newTestSimDevice(t)
	assert.Error(t, d.Set(10))
	assert.Error(t, d.Walk(400))
	assert.Error(t, d.Ramp(120, 0))
	assert.Equal(t, 80, d.State().BPM)
}

func TestSimDevice_NotifiesOnlyWhenConnectedAndSubscribed(t *testing.T) {
	d := newTestSimDevice(t)

	var got [][]byte
	require.NoError(t, d.EnableNotifications(bt.ServiceUUIDHeartRate, bt.CharUUIDHeartRateMeasurement, func(buf []byte) {
		got = append(got, buf)
	}))
	d.Tick()
	assert.Empty(t, got, "not connected")

	d.SetConnected(true)
	require.NoError(t, d.EnableNotifications(bt.ServiceUUIDHeartRate, bt.CharUUIDHeartRateMeasurement, func(buf []byte) {
		got = append(got, buf)
	}))
	d.Tick()
	require.Len(t, got, 1)
	m, err := ParseMeasurement(got[0])
	require.NoError(t, err)
	assert.Equal(t, 80, m.BPM)

	d.SetConnected(false)
	assert.False(t, d.State().Subscribed, "disconnect drops the subscription")

	assert.Error(t, d.EnableNotifications(bt.ServiceUUIDBattery, bt.CharUUIDBatteryLevel, func([]byte) {}))
	battery, err := d.ReadCharacteristic(bt.ServiceUUIDBattery, bt.CharUUIDBatteryLevel)
	require.NoError(t, err)
	assert.Equal(t, []byte{100}, battery)
}

func serve(t *testing.T, d *SimDevice, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	d.Router().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) SimState {
	t.Helper()
	var state SimState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	return state
}

func TestSimAPI_State(t *testing.T) {
	d := newTestSimDevice(t)
	rec := serve(t, d, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	state := decodeState(t, rec)
	assert.Equal(t, 80, state.BPM)
	assert.Equal(t, SimHold, state.Mode)
	assert.Equal(t, "Sim HR Strap", state.Name)
	assert.False(t, state.Connected)
}

func TestSimAPI_Set(t *testing.T) {
	d := newTestSimDevice(t)

	rec := serve(t, d, http.MethodPost, "/api/set?bpm=142&contact=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec)
	assert.Equal(t, 142, state.BPM)
	assert.False(t, state.Contact)

	assert.Equal(t, http.StatusBadRequest, serve(t, d, http.MethodPost, "/api/set?bpm=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, d, http.MethodPost, "/api/set?bpm=500", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, d, http.MethodPost, "/api/set?contact=maybe", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, d, http.MethodGet, "/api/set?bpm=100", "").Code)
}

func TestSimAPI_RampAndWalk(t *testing.T) {
	d := newTestSimDevice(t)

	rec := serve(t, d, http.MethodPost, "/api/ramp", `{"target":160,"rate_per_second":1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec)
	assert.Equal(t, SimRamp, state.Mode)
	assert.Equal(t, 160, state.Target)
	assert.Equal(t, 1.5, state.RatePerSecond)

	rec = serve(t, d, http.MethodPost, "/api/ramp", `{"target":160}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate must be positive")

	assert.Equal(t, http.StatusBadRequest, serve(t, d, http.MethodPost, "/api/walk", `not json`).Code)

	rec = serve(t, d, http.MethodPost, "/api/walk", `{"target":110}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, SimWalk, decodeState(t, rec).Mode)
}

func TestSimAPI_NotifyAndIndex(t *testing.T) {
	d := newTestSimDevice(t)
	d.SetConnected(true)

	notified := 0
	require.NoError(t, d.EnableNotifications(bt.ServiceUUIDHeartRate, bt.CharUUIDHeartRateMeasurement, func([]byte) {
		notified++
	}))

	assert.Equal(t, http.StatusNoContent, serve(t, d, http.MethodPost, "/api/notify", "").Code)
	assert.Equal(t, 1, notified)

	rec := serve(t, d, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/ramp")
}

func TestSimServer_ServesOverTCP(t *testing.T) {
	d := newTestSimDevice(t)
	logger, _ := test.NewNullLogger()

	server, err := StartSimServer(d, "127.0.0.1:0", logger)
	require.NoError(t, err)
	defer server.Shutdown()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + server.Addr() + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	server.Shutdown()
	server.Shutdown()
}
