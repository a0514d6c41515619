package bt

// GATT assigned numbers in their 128-bit form, lowercase as bluetooth.UUID.String prints them
const (
	ServiceUUIDHeartRate         = "0000180d-0000-1000-8000-00805f9b34fb"
	CharUUIDHeartRateMeasurement = "00002a37-0000-1000-8000-00805f9b34fb"
	CharUUIDBodySensorLocation   = "00002a38-0000-1000-8000-00805f9b34fb"

	ServiceUUIDBattery   = "0000180f-0000-1000-8000-00805f9b34fb"
	CharUUIDBatteryLevel = "00002a19-0000-1000-8000-00805f9b34fb"
)
