package bt

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

const DefaultScanTimeout = 10 * time.Second

// BTManagerInterface is implemented by the adapter-backed BTManager and by
// the simulated heart-rate manager
type BTManagerInterface interface {
	Enable() error
	GetBTDeviceByAddressString(addressString string) BTDevice
	StartScan(serviceUuidFilter []string)
	StopScan() error
	IsScanning() bool
	Connect(device BTDevice) error
	Disconnect(device BTDevice) error
	GetConnectedDevices() []BTDevice
	GetScanDevices() []BTDevice
	ListenToDeviceList(ch chan<- []BTDevice) func()
	ListenToConnectedDevices(ch chan<- []BTDevice) func()
	Shutdown()
}

var _ BTManagerInterface = (*BTManager)(nil)

type BTManager struct {
	adapter               *bluetooth.Adapter
	devicesByAddress      map[string]*btDeviceImpl
	mu                    sync.RWMutex
	scanning              bool
	scanTimeout           time.Duration
	scanDeviceListEvent   *events.ChannelEvent[[]BTDevice]
	scanContextCancel     context.CancelFunc
	connectedDevicesEvent *events.ChannelEvent[[]BTDevice]
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                logrus.FieldLogger
}

func NewBTManager(adapter *bluetooth.Adapter, logger logrus.FieldLogger, scanTimeout ...time.Duration) *BTManager {
	if adapter == nil {
		panic("BTManager: adapter cannot be nil")
	}
	if logger == nil {
		panic("BTManager: logger cannot be nil")
	}
	timeout := DefaultScanTimeout
	if len(scanTimeout) > 0 && scanTimeout[0] > 0 {
		timeout = scanTimeout[0]
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BTManager{
		adapter:               adapter,
		devicesByAddress:      make(map[string]*btDeviceImpl),
		scanTimeout:           timeout,
		scanDeviceListEvent:   events.NewChannelEvent[[]BTDevice](true),
		connectedDevicesEvent: events.NewChannelEvent[[]BTDevice](true),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                logger.WithField("component", "BTManager"),
	}
}

// GetBTDeviceByAddressString returns the device with that address, or nil
func (m *BTManager) GetBTDeviceByAddressString(addressString string) BTDevice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if device, ok := m.devicesByAddress[addressString]; ok {
		return device
	}
	return nil
}

func (m *BTManager) lookupDevice(addressString string) (*btDeviceImpl, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	device, ok := m.devicesByAddress[addressString]
	if !ok {
		return nil, fmt.Errorf("unknown device %s", addressString)
	}
	return device, nil
}

// getOrCreateDevice returns the device for address and whether it was just created
func (m *BTManager) getOrCreateDevice(address bluetooth.Address) (*btDeviceImpl, bool) {
	addressStr := address.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	if device, ok := m.devicesByAddress[addressStr]; ok {
		return device, false
	}
	device := newBtDeviceImpl(m.logger, address, m.scanTimeout)
	m.devicesByAddress[addressStr] = device
	return device, true
}

func (m *BTManager) Enable() error {
	m.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		d, _ := m.getOrCreateDevice(device.Address)
		if connected {
			m.logger.Infof("Device connected: %s", device.Address.String())
			d.setConnectedDevice(&device)
		} else {
			m.logger.Infof("Device disconnected: %s", device.Address.String())
			d.setConnectedDevice(nil)
		}
		m.emitConnectedDevicesChange()
	})

	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("enabling bluetooth adapter: %w", err)
	}
	return nil
}

// StartScan scans until StopScan, keeping only peripherals that advertise one
// of the filter services. A nil filter keeps everything.
func (m *BTManager) StartScan(serviceUuidFilter []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filterSet := make(map[string]struct{}, len(serviceUuidFilter))
	for _, filter := range serviceUuidFilter {
		filterSet[strings.ToLower(filter)] = struct{}{}
	}
	m.logger.WithField("filter", serviceUuidFilter).Info("Starting scan")

	if m.scanning && m.scanContextCancel != nil {
		m.logger.Info("A scan is already running, restarting it")
		m.scanContextCancel()
	}

	m.scanning = true
	scanCtx, scanCancel := context.WithCancel(m.ctx)
	m.scanContextCancel = scanCancel

	m.wg.Add(3)
	safego.Go(m.logger, func() {
		defer m.wg.Done()
		m.cleanupStaleDevices(scanCtx)
	})

	safego.Go(m.logger, func() {
		defer m.wg.Done()
		defer m.logger.Debug("exiting scan handling loop")

		err := m.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if scanCtx.Err() != nil {
				// results still arrive until the adapter itself is stopped
				return
			}
			if len(filterSet) > 0 && !matchesFilter(result.ServiceUUIDs(), filterSet) {
				return
			}

			d, created := m.getOrCreateDevice(result.Address)
			d.setScanResult(&result)
			d.SetScanLastSeen(time.Now())
			if created {
				d.setServiceUUIDs(result.ServiceUUIDs())
				m.logger.Infof("Found device: %s (%s) [RSSI: %d]", d.GetLocalName(), result.Address.String(), result.RSSI)
			}
		})
		if err != nil {
			m.logger.WithError(err).Error("Scan error")
		}
	})

	safego.Go(m.logger, func() {
		defer m.wg.Done()
		defer m.logger.Debug("exiting scan emit event ticker loop")

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				m.scanDeviceListEvent.Notify(m.GetScanDevices())
			}
		}
	})
}

func matchesFilter(uuids []bluetooth.UUID, filterSet map[string]struct{}) bool {
	for _, uuid := range uuids {
		if _, ok := filterSet[uuid.String()]; ok {
			return true
		}
	}
	return false
}

// Shutdown disconnects every device, stops scanning and waits for the
// background goroutines
func (m *BTManager) Shutdown() {
	m.logger.Info("Shutting down")
	for _, dev := range m.GetConnectedDevices() {
		if err := m.Disconnect(dev); err != nil {
			m.logger.WithError(err).Errorf("Error disconnecting from %v", dev.GetAddressString())
		} else {
			m.logger.Infof("Disconnected from %v", dev.GetAddressString())
		}
	}
	if err := m.StopScan(); err != nil {
		m.logger.WithError(err).Error("Error stopping scan")
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Shutdown complete")
}

// cleanupStaleDevices forgets devices that are neither connected nor seen
// within the scan timeout
func (m *BTManager) cleanupStaleDevices(ctx context.Context) {
	defer m.logger.Debug("exiting cleanup stale devices loop")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			var removed []string
			m.mu.Lock()
			for mac, btDevice := range m.devicesByAddress {
				if btDevice.GetState() == Disconnected && now.Sub(btDevice.GetScanLastSeen()) > m.scanTimeout {
					delete(m.devicesByAddress, mac)
					removed = append(removed, mac)
				}
			}
			m.mu.Unlock()

			for _, mac := range removed {
				m.logger.Debugf("Device timeout: %s (not seen for %v)", mac, m.scanTimeout)
			}
		}
	}
}

func (m *BTManager) StopScan() error {
	m.mu.Lock()
	wasScanning := m.scanning
	m.scanning = false
	if m.scanContextCancel != nil {
		m.scanContextCancel()
		m.scanContextCancel = nil
	}
	m.mu.Unlock()

	if !wasScanning {
		return nil
	}
	return m.adapter.StopScan()
}

func (m *BTManager) IsScanning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanning
}

// Connect initiates a connection. The outcome arrives through the connect
// handler, use WaitForConnection on the device to wait for it.
func (m *BTManager) Connect(device BTDevice) error {
	addressStr := device.GetAddressString()
	m.logger.Infof("Attempting to connect to device: %s", addressStr)

	d, err := m.lookupDevice(addressStr)
	if err != nil {
		return err
	}

	d.setState(Connecting)
	if _, err := m.adapter.Connect(d.getAddress(), bluetooth.ConnectionParams{}); err != nil {
		d.setState(Disconnected)
		return fmt.Errorf("connecting to %s: %w", addressStr, err)
	}
	m.logger.Infof("Connection initiated to device: %s", addressStr)
	return nil
}

func (m *BTManager) Disconnect(device BTDevice) error {
	addressStr := device.GetAddressString()
	m.logger.Infof("Attempting to disconnect from device: %s", addressStr)

	d, err := m.lookupDevice(addressStr)
	if err != nil {
		return err
	}
	if d.GetState() == Disconnected {
		return nil
	}
	inner := d.getConnectedDevice()
	if inner == nil {
		d.setState(Disconnected)
		return nil
	}
	return inner.Disconnect()
}

func (m *BTManager) GetConnectedDevices() []BTDevice {
	return m.collect(BTDevice.IsConnected)
}

func (m *BTManager) GetScanDevices() []BTDevice {
	return m.collect(BTDevice.IsRecentlyScanned)
}

// collect returns the devices matching keep, ordered by address
func (m *BTManager) collect(keep func(BTDevice) bool) []BTDevice {
	m.mu.RLock()
	result := make([]BTDevice, 0, len(m.devicesByAddress))
	for _, d := range m.devicesByAddress {
		if keep(d) {
			result = append(result, d)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b BTDevice) int {
		return strings.Compare(a.GetAddressString(), b.GetAddressString())
	})
	return result
}

// ListenToDeviceList registers ch for the scan list, published once per second
// while scanning
func (m *BTManager) ListenToDeviceList(ch chan<- []BTDevice) func() {
	return m.scanDeviceListEvent.Listen(ch)
}

func (m *BTManager) ListenToConnectedDevices(ch chan<- []BTDevice) func() {
	return m.connectedDevicesEvent.Listen(ch)
}

func (m *BTManager) emitConnectedDevicesChange() {
	m.connectedDevicesEvent.Notify(m.GetConnectedDevices())
}
