package bt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

type BTDeviceState int

const (
	Disconnected BTDeviceState = iota
	Connecting
	Connected
)

func (s BTDeviceState) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	default:
		return "Unknown"
	}
}

// BTDevice is a scanned or connected peripheral
type BTDevice interface {
	GetAddressString() string
	GetScanRSSI() (int16, error)
	GetScanLastSeen() time.Time
	SetScanLastSeen(time.Time)
	GetLocalName() string
	IsConnected() bool
	GetState() BTDeviceState
	GetStateDescription() string
	IsRecentlyScanned() bool
	WaitForConnection(timeout time.Duration) error
	EnableNotifications(serviceUuid string, characteristicUuid string, callbackFunc func(buf []byte)) error
	DisableNotifications(serviceUuid string, characteristicUuid string) error
	ReadCharacteristic(serviceUuid string, characteristicUuid string) ([]byte, error)
	GetServiceUUIDs() []string
	HasServiceUUID(uuid string) bool
}

type btDeviceImpl struct {
	address         bluetooth.Address
	scanLastSeen    time.Time
	scanResult      *bluetooth.ScanResult
	connectedDevice *bluetooth.Device // nil while not connected
	state           BTDeviceState
	serviceUuidStrs []string
	mu              sync.RWMutex
	scanTimeout     time.Duration
	logger          logrus.FieldLogger

	// bleMu serializes discovery and characteristic operations and guards the caches below
	bleMu                  sync.Mutex
	serviceByUuid          map[string]*bluetooth.DeviceService
	characteristicByUuid   map[string]*bluetooth.DeviceCharacteristic
	serviceCharsDiscovered map[string]bool
	allServicesDiscovered  bool
}

func newBtDeviceImpl(logger logrus.FieldLogger, address bluetooth.Address, scanTimeout time.Duration) *btDeviceImpl {
	if logger == nil {
		panic("BTDevice: logger cannot be nil")
	}
	if scanTimeout <= 0 {
		panic("BTDevice: scanTimeout must be > 0")
	}
	return &btDeviceImpl{
		logger:                 logger.WithField("address", address.String()),
		address:                address,
		scanTimeout:            scanTimeout,
		scanLastSeen:           time.Unix(0, 0),
		state:                  Disconnected,
		serviceByUuid:          make(map[string]*bluetooth.DeviceService),
		characteristicByUuid:   make(map[string]*bluetooth.DeviceCharacteristic),
		serviceCharsDiscovered: make(map[string]bool),
	}
}

func (b *btDeviceImpl) getAddress() bluetooth.Address {
	return b.address
}

func (b *btDeviceImpl) GetAddressString() string {
	return b.address.String()
}

func (b *btDeviceImpl) GetServiceUUIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.serviceUuidStrs...)
}

func (b *btDeviceImpl) HasServiceUUID(uuid string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.serviceUuidStrs {
		if u == uuid {
			return true
		}
	}
	return false
}

func (b *btDeviceImpl) setServiceUUIDs(serviceUuids []bluetooth.UUID) {
	strs := make([]string, 0, len(serviceUuids))
	for _, uuid := range serviceUuids {
		strs = append(strs, uuid.String())
	}
	b.mu.Lock()
	b.serviceUuidStrs = strs
	b.mu.Unlock()
}

// WaitForConnection polls until the connect handler has attached the device
func (b *btDeviceImpl) WaitForConnection(timeout time.Duration) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	timeoutChan := time.After(timeout)

	for {
		if b.IsConnected() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-timeoutChan:
			return fmt.Errorf("timeout after %v waiting for connection", timeout)
		}
	}
}

func (b *btDeviceImpl) EnableNotifications(serviceUuidStr, characteristicUuidStr string, callbackFunc func(buf []byte)) error {
	b.bleMu.Lock()
	defer b.bleMu.Unlock()

	b.logger.Debugf("BTDevice: EnableNotifications service=%s char=%s", serviceUuidStr, characteristicUuidStr)
	characteristic, err := b.lookupCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return err
	}
	if err := characteristic.EnableNotifications(callbackFunc); err != nil {
		return fmt.Errorf("failed to enable notifications: %w", err)
	}
	b.logger.Infof("BTDevice: Notifications enabled for %s", characteristicUuidStr)
	return nil
}

func (b *btDeviceImpl) DisableNotifications(serviceUuidStr, characteristicUuidStr string) error {
	b.bleMu.Lock()
	defer b.bleMu.Unlock()

	characteristic, err := b.lookupCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return err
	}
	// a nil callback unsubscribes
	if err := characteristic.EnableNotifications(nil); err != nil {
		return fmt.Errorf("failed to disable notifications: %w", err)
	}
	b.logger.Infof("BTDevice: Notifications disabled for %s", characteristicUuidStr)
	return nil
}

func (b *btDeviceImpl) ReadCharacteristic(serviceUuidStr, characteristicUuidStr string) ([]byte, error) {
	b.bleMu.Lock()
	defer b.bleMu.Unlock()

	characteristic, err := b.lookupCharacteristic(serviceUuidStr, characteristicUuidStr)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 512)
	n, err := characteristic.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic: %w", err)
	}
	return buf[:n], nil
}

func (b *btDeviceImpl) GetScanRSSI() (int16, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.scanResult == nil {
		return 0, errors.New("no rssi available")
	}
	return b.scanResult.RSSI, nil
}

func (b *btDeviceImpl) GetState() BTDeviceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *btDeviceImpl) GetStateDescription() string {
	return b.GetState().String()
}

func (b *btDeviceImpl) GetLocalName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.scanResult != nil {
		if name := b.scanResult.LocalName(); name != "" {
			return name
		}
	}
	return "Unknown"
}

func (b *btDeviceImpl) GetScanLastSeen() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scanLastSeen
}

func (b *btDeviceImpl) SetScanLastSeen(t time.Time) {
	b.mu.Lock()
	b.scanLastSeen = t
	b.mu.Unlock()
}

func (b *btDeviceImpl) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connectedDevice != nil
}

func (b *btDeviceImpl) IsRecentlyScanned() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scanResult != nil && time.Since(b.scanLastSeen) <= b.scanTimeout
}

func (b *btDeviceImpl) setScanResult(scanResult *bluetooth.ScanResult) {
	b.mu.Lock()
	b.scanResult = scanResult
	b.mu.Unlock()
}

// setConnectedDevice attaches or detaches the connection. The discovery
// caches belong to one connection and are dropped with it.
func (b *btDeviceImpl) setConnectedDevice(device *bluetooth.Device) {
	b.mu.Lock()
	b.connectedDevice = device
	if device != nil {
		b.state = Connected
	} else {
		b.state = Disconnected
	}
	b.mu.Unlock()

	b.bleMu.Lock()
	b.serviceByUuid = make(map[string]*bluetooth.DeviceService)
	b.characteristicByUuid = make(map[string]*bluetooth.DeviceCharacteristic)
	b.serviceCharsDiscovered = make(map[string]bool)
	b.allServicesDiscovered = false
	b.bleMu.Unlock()
}

func (b *btDeviceImpl) getConnectedDevice() *bluetooth.Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connectedDevice
}

func (b *btDeviceImpl) setState(state BTDeviceState) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()
}

// lookupCharacteristic MUST be called with bleMu held
func (b *btDeviceImpl) lookupCharacteristic(serviceUuidStr, characteristicUuidStr string) (*bluetooth.DeviceCharacteristic, error) {
	serviceUuid, err := bluetooth.ParseUUID(serviceUuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", serviceUuidStr, err)
	}
	characteristicUuid, err := bluetooth.ParseUUID(characteristicUuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", characteristicUuidStr, err)
	}
	return b.getDeviceCharacteristic(serviceUuid, characteristicUuid)
}

// getDeviceService MUST be called with bleMu held.
// All services are discovered at once: discovering them one by one
// interrupts services that are already in use.
func (b *btDeviceImpl) getDeviceService(serviceUuid bluetooth.UUID) (*bluetooth.DeviceService, error) {
	connectedDevice := b.getConnectedDevice()
	if connectedDevice == nil {
		return nil, errors.New("no connected device")
	}

	serviceUuidStr := serviceUuid.String()
	if service, ok := b.serviceByUuid[serviceUuidStr]; ok {
		return service, nil
	}

	if !b.allServicesDiscovered {
		b.logger.Debugf("BTDevice: Discovering all services")
		deviceServices, err := connectedDevice.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("error discovering services: %w", err)
		}
		for i := range deviceServices {
			svc := &deviceServices[i]
			b.serviceByUuid[svc.UUID().String()] = svc
		}
		b.allServicesDiscovered = true
	}

	service, ok := b.serviceByUuid[serviceUuidStr]
	if !ok {
		return nil, fmt.Errorf("service %v not found on device", serviceUuidStr)
	}
	return service, nil
}

// getDeviceCharacteristic MUST be called with bleMu held
func (b *btDeviceImpl) getDeviceCharacteristic(serviceUuid, charUuid bluetooth.UUID) (*bluetooth.DeviceCharacteristic, error) {
	serviceUuidStr := serviceUuid.String()
	comboUuidStr := serviceUuidStr + "_" + charUuid.String()

	if characteristic, ok := b.characteristicByUuid[comboUuidStr]; ok {
		return characteristic, nil
	}

	if !b.serviceCharsDiscovered[serviceUuidStr] {
		service, err := b.getDeviceService(serviceUuid)
		if err != nil {
			return nil, err
		}
		b.logger.Debugf("BTDevice: Discovering all characteristics for service %s", serviceUuidStr)
		discovered, err := service.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("could not discover characteristics for service %v: %w", serviceUuidStr, err)
		}
		for i := range discovered {
			char := &discovered[i]
			b.characteristicByUuid[serviceUuidStr+"_"+char.UUID().String()] = char
		}
		b.serviceCharsDiscovered[serviceUuidStr] = true
	}

	characteristic, ok := b.characteristicByUuid[comboUuidStr]
	if !ok {
		return nil, fmt.Errorf("characteristic %v not found in service %v", charUuid.String(), serviceUuidStr)
	}
	return characteristic, nil
}
