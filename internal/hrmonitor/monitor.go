package hrmonitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	// DefaultStaleAfter is how long a sample counts as current without a new notification
	DefaultStaleAfter = 5 * time.Second
)

// Sample is the latest decoded heart rate
type Sample struct {
	BPM     int
	Contact bool
	At      time.Time
}

// Status describes the heart-rate monitor the Monitor is subscribed to
type Status struct {
	Address   string
	Name      string
	Connected bool
	// Battery level in percent, -1 when unknown
	Battery int
}

// Monitor connects to one heart-rate strap through a bt manager, subscribes
// to its measurement notifications and keeps the latest sample
type Monitor struct {
	manager bt.BTManagerInterface
	logger  logrus.FieldLogger
	now     func() time.Time

	connectTimeout time.Duration
	staleAfter     time.Duration

	sample *events.State[Sample]
	status *events.State[Status]

	mu      sync.Mutex
	address string

	connectedChan chan []bt.BTDevice
	unlisten      func()
	doneChan      chan struct{}
	wg            sync.WaitGroup
	shutdownOnce  sync.Once
}

// NewMonitor creates a Monitor and starts watching the manager's connected devices
func NewMonitor(manager bt.BTManagerInterface, logger logrus.FieldLogger) *Monitor {
	if manager == nil {
		panic("Monitor: manager cannot be nil")
	}
	if logger == nil {
		panic("Monitor: logger cannot be nil")
	}
	m := &Monitor{
		manager:        manager,
		logger:         logger.WithField("component", "HRMonitor"),
		now:            time.Now,
		connectTimeout: DefaultConnectTimeout,
		staleAfter:     DefaultStaleAfter,
		sample:         events.NewState(Sample{}),
		status:         events.NewState(Status{Battery: -1}),
		connectedChan:  make(chan []bt.BTDevice, 4),
		doneChan:       make(chan struct{}),
	}
	m.unlisten = manager.ListenToConnectedDevices(m.connectedChan)

	m.wg.Add(1)
	safego.Go(m.logger, func() {
		defer m.wg.Done()
		m.watchConnections()
	})
	return m
}

func (m *Monitor) StartScan() {
	m.logger.Info("Starting heart-rate monitor scan")
	m.manager.StartScan([]string{bt.ServiceUUIDHeartRate})
}

func (m *Monitor) StopScan() error {
	if err := m.manager.StopScan(); err != nil {
		return fmt.Errorf("stopping scan: %w", err)
	}
	m.logger.Info("Scanning stopped")
	return nil
}

func (m *Monitor) IsScanning() bool {
	return m.manager.IsScanning()
}

// ListenToScanDevices registers ch for the scan list
func (m *Monitor) ListenToScanDevices(ch chan<- []bt.BTDevice) func() {
	return m.manager.ListenToDeviceList(ch)
}

// ConnectAndSubscribe connects to address if needed and enables heart-rate
// notifications. An already subscribed strap is released first.
func (m *Monitor) ConnectAndSubscribe(address string) error {
	device := m.manager.GetBTDeviceByAddressString(address)
	if device == nil {
		return fmt.Errorf("device not found: %s", address)
	}
	deviceName := fmt.Sprintf("%s (%s)", device.GetLocalName(), address)

	m.mu.Lock()
	previous := m.address
	m.mu.Unlock()
	if previous != "" && previous != address {
		if err := m.Disconnect(); err != nil {
			m.logger.WithError(err).Warnf("Could not release %s", previous)
		}
	}

	if !device.IsConnected() {
		m.logger.Infof("Connecting to device: %s", deviceName)
		if err := m.manager.Connect(device); err != nil {
			return fmt.Errorf("failed to initiate connection: %w", err)
		}
		if err := device.WaitForConnection(m.connectTimeout); err != nil {
			return fmt.Errorf("connection timeout: %w", err)
		}
		m.logger.Infof("Connected to %s", deviceName)
	}

	err := device.EnableNotifications(bt.ServiceUUIDHeartRate, bt.CharUUIDHeartRateMeasurement, m.handleNotification)
	if err != nil {
		return fmt.Errorf("failed to enable heart-rate notifications: %w", err)
	}

	m.mu.Lock()
	m.address = address
	m.mu.Unlock()

	m.status.Set(Status{
		Address:   address,
		Name:      device.GetLocalName(),
		Connected: true,
		Battery:   m.readBattery(device),
	})
	m.logger.Infof("Subscribed to heart rate of %s", deviceName)
	return nil
}

// readBattery returns the battery level, -1 when the strap has no battery service
func (m *Monitor) readBattery(device bt.BTDevice) int {
	buf, err := device.ReadCharacteristic(bt.ServiceUUIDBattery, bt.CharUUIDBatteryLevel)
	if err != nil || len(buf) == 0 {
		m.logger.WithError(err).Debug("Battery level not available")
		return -1
	}
	return int(buf[0])
}

// Disconnect releases the subscribed strap
func (m *Monitor) Disconnect() error {
	m.mu.Lock()
	address := m.address
	m.address = ""
	m.mu.Unlock()

	if address == "" {
		return nil
	}
	m.resetState()

	device := m.manager.GetBTDeviceByAddressString(address)
	if device == nil {
		return fmt.Errorf("device not found: %s", address)
	}
	m.logger.Infof("Disconnecting: %s", device.GetLocalName())

	if device.IsConnected() {
		if err := device.DisableNotifications(bt.ServiceUUIDHeartRate, bt.CharUUIDHeartRateMeasurement); err != nil {
			m.logger.WithError(err).Warn("Failed to disable notifications")
		}
	}
	if err := m.manager.Disconnect(device); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

func (m *Monitor) handleNotification(buf []byte) {
	measurement, err := ParseMeasurement(buf)
	if err != nil {
		m.logger.WithError(err).Warnf("Parse error (raw: %v)", buf)
		return
	}
	m.logger.Debugf("Heart rate: %d bpm", measurement.BPM)
	m.sample.Set(Sample{
		BPM:     measurement.BPM,
		Contact: measurement.HasContact(),
		At:      m.now(),
	})
}

// Latest returns the current heart rate, or 0 when there is none: no strap,
// no skin contact or no notification within the stale window
func (m *Monitor) Latest() int {
	s := m.sample.Get()
	if s.BPM <= 0 || !s.Contact || m.now().Sub(s.At) > m.staleAfter {
		return 0
	}
	return s.BPM
}

func (m *Monitor) Status() Status {
	return m.status.Get()
}

func (m *Monitor) ListenToSamples(ch chan<- Sample) func() {
	return m.sample.Listen(ch)
}

func (m *Monitor) ListenToStatus(ch chan<- Status) func() {
	return m.status.Listen(ch)
}

func (m *Monitor) resetState() {
	m.sample.Set(Sample{})
	m.status.Set(Status{Battery: -1})
}

// watchConnections notices when the subscribed strap drops out. Lists can
// arrive late, so the device itself is asked whether it is still connected.
func (m *Monitor) watchConnections() {
	for {
		select {
		case <-m.doneChan:
			return
		case <-m.connectedChan:
			m.mu.Lock()
			address := m.address
			m.mu.Unlock()
			if address == "" {
				continue
			}
			if device := m.manager.GetBTDeviceByAddressString(address); device != nil && device.IsConnected() {
				continue
			}
			m.logger.Warnf("Heart-rate monitor %s disconnected", address)
			m.mu.Lock()
			if m.address == address {
				m.address = ""
			}
			m.mu.Unlock()
			m.resetState()
		}
	}
}

// Shutdown disconnects the strap and stops the watcher. It does not shut
// down the manager, which the caller owns.
func (m *Monitor) Shutdown() {
	m.shutdownOnce.Do(func() {
		if err := m.Disconnect(); err != nil {
			m.logger.WithError(err).Warn("Error disconnecting during shutdown")
		}
		m.unlisten()
		close(m.doneChan)
		m.wg.Wait()
	})
}
