package hrmonitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

// SimManager implements bt.BTManagerInterface around one SimDevice
type SimManager struct {
	logger       logrus.FieldLogger
	device       *SimDevice
	tickInterval time.Duration

	scanDeviceListEvent   *events.ChannelEvent[[]bt.BTDevice]
	connectedDevicesEvent *events.ChannelEvent[[]bt.BTDevice]

	mu           sync.RWMutex
	scanning     bool
	notifyCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ bt.BTManagerInterface = (*SimManager)(nil)

// NewSimManager creates a manager whose device ticks once per tickInterval
// while connected, one second when zero
func NewSimManager(device *SimDevice, logger logrus.FieldLogger, tickInterval time.Duration) *SimManager {
	if device == nil {
		panic("SimManager: device cannot be nil")
	}
	if logger == nil {
		panic("SimManager: logger cannot be nil")
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SimManager{
		logger:                logger.WithField("component", "SimManager"),
		device:                device,
		tickInterval:          tickInterval,
		scanDeviceListEvent:   events.NewChannelEvent[[]bt.BTDevice](true),
		connectedDevicesEvent: events.NewChannelEvent[[]bt.BTDevice](true),
		ctx:                   ctx,
		cancel:                cancel,
	}
}

func (m *SimManager) Device() *SimDevice {
	return m.device
}

func (m *SimManager) Enable() error {
	m.logger.Info("Enabled")
	return nil
}

func (m *SimManager) GetBTDeviceByAddressString(addressString string) bt.BTDevice {
	if addressString == m.device.GetAddressString() {
		return m.device
	}
	return nil
}

// StartScan reports the simulated strap right away; it advertises the heart
// rate service so every filter used here matches
func (m *SimManager) StartScan(serviceUuidFilter []string) {
	m.mu.Lock()
	m.scanning = true
	m.mu.Unlock()
	m.logger.WithField("filter", serviceUuidFilter).Info("Starting scan")
	m.scanDeviceListEvent.Notify(m.GetScanDevices())
}

func (m *SimManager) StopScan() error {
	m.mu.Lock()
	m.scanning = false
	m.mu.Unlock()
	return nil
}

func (m *SimManager) IsScanning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanning
}

func (m *SimManager) Connect(device bt.BTDevice) error {
	if device.GetAddressString() != m.device.GetAddressString() {
		return fmt.Errorf("unknown device: %s", device.GetAddressString())
	}
	m.device.SetConnected(true)
	m.startNotifications()
	m.connectedDevicesEvent.Notify(m.GetConnectedDevices())
	m.logger.Infof("Connected to %s", device.GetAddressString())
	return nil
}

func (m *SimManager) Disconnect(device bt.BTDevice) error {
	if device.GetAddressString() != m.device.GetAddressString() {
		return fmt.Errorf("unknown device: %s", device.GetAddressString())
	}
	m.logger.Infof("Disconnecting from %s", device.GetAddressString())
	m.device.SetConnected(false)
	m.stopNotifications()
	m.connectedDevicesEvent.Notify(m.GetConnectedDevices())
	return nil
}

// startNotifications ticks the device until stopNotifications
func (m *SimManager) startNotifications() {
	m.mu.Lock()
	if m.notifyCancel != nil {
		m.mu.Unlock()
		return
	}
	notifyCtx, notifyCancel := context.WithCancel(m.ctx)
	m.notifyCancel = notifyCancel
	m.mu.Unlock()

	m.wg.Add(1)
	safego.Go(m.logger, func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.tickInterval)
		defer ticker.Stop()

		m.logger.Debug("Started sending notifications")
		for {
			select {
			case <-notifyCtx.Done():
				m.logger.Debug("Stopped sending notifications")
				return
			case <-ticker.C:
				m.device.Tick()
			}
		}
	})
}

func (m *SimManager) stopNotifications() {
	m.mu.Lock()
	if m.notifyCancel != nil {
		m.notifyCancel()
		m.notifyCancel = nil
	}
	m.mu.Unlock()
}

func (m *SimManager) GetConnectedDevices() []bt.BTDevice {
	if m.device.IsConnected() {
		return []bt.BTDevice{m.device}
	}
	return []bt.BTDevice{}
}

func (m *SimManager) GetScanDevices() []bt.BTDevice {
	if m.IsScanning() {
		return []bt.BTDevice{m.device}
	}
	return []bt.BTDevice{}
}

func (m *SimManager) ListenToDeviceList(ch chan<- []bt.BTDevice) func() {
	return m.scanDeviceListEvent.Listen(ch)
}

func (m *SimManager) ListenToConnectedDevices(ch chan<- []bt.BTDevice) func() {
	return m.connectedDevicesEvent.Listen(ch)
}

func (m *SimManager) Shutdown() {
	m.logger.Info("Shutting down")
	if m.device.IsConnected() {
		if err := m.Disconnect(m.device); err != nil {
			m.logger.WithError(err).Warn("Error disconnecting")
		}
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Shutdown complete")
}
