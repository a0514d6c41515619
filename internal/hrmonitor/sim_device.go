package hrmonitor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
)

type SimMode string

const (
	// SimHold keeps the heart rate where it is
	SimHold SimMode = "hold"
	// SimWalk drifts randomly around the target
	SimWalk SimMode = "walk"
	// SimRamp moves toward the target at a fixed rate, then holds
	SimRamp SimMode = "ramp"
)

const (
	simMinBPM = 35
	simMaxBPM = 230

	walkNoise = 1.5
	walkPull  = 0.05
)

// SimState is the simulated strap as reported by the control API
type SimState struct {
	Address       string  `json:"address"`
	Name          string  `json:"name"`
	BPM           int     `json:"bpm"`
	Mode          SimMode `json:"mode"`
	Target        int     `json:"target"`
	RatePerSecond float64 `json:"rate_per_second"`
	Contact       bool    `json:"contact"`
	Battery       int     `json:"battery"`
	Connected     bool    `json:"connected"`
	Subscribed    bool    `json:"subscribed"`
}

type SimDeviceConfig struct {
	Address    string
	LocalName  string
	InitialBPM int
	// Seed makes the random walk reproducible
	Seed uint64
}

// SimDevice implements bt.BTDevice for a heart-rate strap that does not exist
type SimDevice struct {
	logger    logrus.FieldLogger
	address   string
	localName string

	mu                sync.RWMutex
	state             bt.BTDeviceState
	heartRateCallback func([]byte)
	bpm               float64
	mode              SimMode
	target            float64
	rate              float64
	contact           bool
	battery           int
	rng               *rand.Rand
}

var _ bt.BTDevice = (*SimDevice)(nil)

func NewSimDevice(logger logrus.FieldLogger, config SimDeviceConfig) *SimDevice {
	if logger == nil {
		panic("SimDevice: logger cannot be nil")
	}
	if config.Address == "" {
		config.Address = "00:11:22:33:44:01"
	}
	if config.LocalName == "" {
		config.LocalName = "Sim HR Strap"
	}
	if config.InitialBPM <= 0 {
		config.InitialBPM = 70
	}
	return &SimDevice{
		logger:    logger.WithField("component", "SimDevice"),
		address:   config.Address,
		localName: config.LocalName,
		state:     bt.Disconnected,
		bpm:       float64(config.InitialBPM),
		mode:      SimHold,
		target:    float64(config.InitialBPM),
		contact:   true,
		battery:   100,
		rng:       rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
}

// State returns a snapshot for the control API
func (d *SimDevice) State() SimState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return SimState{
		Address:       d.address,
		Name:          d.localName,
		BPM:           int(math.Round(d.bpm)),
		Mode:          d.mode,
		Target:        int(math.Round(d.target)),
		RatePerSecond: d.rate,
		Contact:       d.contact,
		Battery:       d.battery,
		Connected:     d.state == bt.Connected,
		Subscribed:    d.heartRateCallback != nil,
	}
}

// Set holds the heart rate at bpm
func (d *SimDevice) Set(bpm int) error {
	if err := checkBPM(bpm); err != nil {
		return err
	}
	d.mu.Lock()
	d.bpm = float64(bpm)
	d.target = float64(bpm)
	d.mode = SimHold
	d.rate = 0
	d.mu.Unlock()
	d.logger.Infof("Holding at %d bpm", bpm)
	return nil
}

// Ramp moves the heart rate toward target by ratePerSecond every tick
func (d *SimDevice) Ramp(target int, ratePerSecond float64) error {
	if err := checkBPM(target); err != nil {
		return err
	}
	if ratePerSecond <= 0 || math.IsNaN(ratePerSecond) || math.IsInf(ratePerSecond, 0) {
		return fmt.Errorf("rate must be positive, got %v", ratePerSecond)
	}
	d.mu.Lock()
	d.target = float64(target)
	d.rate = ratePerSecond
	d.mode = SimRamp
	d.mu.Unlock()
	d.logger.Infof("Ramping to %d bpm at %.2f bpm/s", target, ratePerSecond)
	return nil
}

// Walk drifts randomly around target
func (d *SimDevice) Walk(target int) error {
	if err := checkBPM(target); err != nil {
		return err
	}
	d.mu.Lock()
	d.target = float64(target)
	d.mode = SimWalk
	d.rate = 0
	d.mu.Unlock()
	d.logger.Infof("Walking around %d bpm", target)
	return nil
}

func (d *SimDevice) SetContact(contact bool) {
	d.mu.Lock()
	d.contact = contact
	d.mu.Unlock()
}

func checkBPM(bpm int) error {
	if bpm < simMinBPM || bpm > simMaxBPM {
		return fmt.Errorf("bpm must be within %d..%d, got %d", simMinBPM, simMaxBPM, bpm)
	}
	return nil
}

// Tick advances the simulation by one second and sends a notification when
// a subscriber is connected
func (d *SimDevice) Tick() {
	d.mu.Lock()
	switch d.mode {
	case SimWalk:
		d.bpm += d.rng.NormFloat64()*walkNoise + walkPull*(d.target-d.bpm)
	case SimRamp:
		delta := d.target - d.bpm
		if math.Abs(delta) <= d.rate {
			d.bpm = d.target
			d.mode = SimHold
			d.rate = 0
		} else {
			d.bpm += math.Copysign(d.rate, delta)
		}
	}
	d.bpm = math.Max(simMinBPM, math.Min(simMaxBPM, d.bpm))
	d.mu.Unlock()

	d.TriggerHeartRateNotification()
}

// TriggerHeartRateNotification sends the current heart rate to the subscriber
func (d *SimDevice) TriggerHeartRateNotification() {
	d.mu.RLock()
	callback := d.heartRateCallback
	connected := d.state == bt.Connected
	bpm := int(math.Round(d.bpm))
	contact := d.contact
	d.mu.RUnlock()

	if callback != nil && connected {
		callback(EncodeMeasurement(bpm, contact))
	}
}

// SetConnected changes the connection state
func (d *SimDevice) SetConnected(connected bool) {
	d.mu.Lock()
	if connected {
		d.state = bt.Connected
	} else {
		d.state = bt.Disconnected
		d.heartRateCallback = nil
	}
	d.mu.Unlock()
	d.logger.Infof("State changed to %s", d.GetStateDescription())
}

func (d *SimDevice) GetAddressString() string {
	return d.address
}

func (d *SimDevice) GetScanRSSI() (int16, error) {
	return -50, nil
}

func (d *SimDevice) GetScanLastSeen() time.Time {
	return time.Now()
}

func (d *SimDevice) SetScanLastSeen(time.Time) {}

func (d *SimDevice) GetLocalName() string {
	return d.localName
}

func (d *SimDevice) IsConnected() bool {
	return d.GetState() == bt.Connected
}

func (d *SimDevice) GetState() bt.BTDeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *SimDevice) GetStateDescription() string {
	return d.GetState().String()
}

func (d *SimDevice) IsRecentlyScanned() bool {
	return true
}

func (d *SimDevice) WaitForConnection(time.Duration) error {
	if !d.IsConnected() {
		return fmt.Errorf("sim device %s is not connected", d.address)
	}
	return nil
}

func (d *SimDevice) EnableNotifications(serviceUuid string, characteristicUuid string, callbackFunc func(buf []byte)) error {
	if serviceUuid != bt.ServiceUUIDHeartRate || characteristicUuid != bt.CharUUIDHeartRateMeasurement {
		return fmt.Errorf("unknown service/characteristic: %s/%s", serviceUuid, characteristicUuid)
	}
	d.mu.Lock()
	d.heartRateCallback = callbackFunc
	d.mu.Unlock()
	if callbackFunc == nil {
		d.logger.Info("Heart rate notifications disabled")
	} else {
		d.logger.Info("Heart rate notifications enabled")
	}
	return nil
}

func (d *SimDevice) DisableNotifications(serviceUuid string, characteristicUuid string) error {
	return d.EnableNotifications(serviceUuid, characteristicUuid, nil)
}

func (d *SimDevice) ReadCharacteristic(serviceUuid string, characteristicUuid string) ([]byte, error) {
	switch {
	case serviceUuid == bt.ServiceUUIDBattery && characteristicUuid == bt.CharUUIDBatteryLevel:
		d.mu.RLock()
		defer d.mu.RUnlock()
		return []byte{byte(d.battery)}, nil
	case serviceUuid == bt.ServiceUUIDHeartRate && characteristicUuid == bt.CharUUIDBodySensorLocation:
		// chest
		return []byte{0x01}, nil
	default:
		return nil, fmt.Errorf("unknown service/characteristic: %s/%s", serviceUuid, characteristicUuid)
	}
}

func (d *SimDevice) GetServiceUUIDs() []string {
	return []string{bt.ServiceUUIDHeartRate, bt.ServiceUUIDBattery}
}

func (d *SimDevice) HasServiceUUID(uuid string) bool {
	return uuid == bt.ServiceUUIDHeartRate || uuid == bt.ServiceUUIDBattery
}
