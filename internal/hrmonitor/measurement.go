package hrmonitor

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Heart Rate Measurement flag bits
const (
	flagUint16          = 0x01
	flagContactDetected = 0x02
	flagContactSupport  = 0x04
	flagEnergyExpended  = 0x08
	flagRRIntervals     = 0x10
)

// Measurement is one decoded Heart Rate Measurement notification.
// See: https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
type Measurement struct {
	BPM int
	// ContactSupported reports whether the strap can detect skin contact,
	// Contact is only meaningful when it can
	ContactSupported bool
	Contact          bool
	// EnergyExpended in kJ, nil when the notification does not carry it
	EnergyExpended *int
	RRIntervals    []time.Duration
}

// HasContact is false only when the sensor reports that it lost skin contact
func (m Measurement) HasContact() bool {
	return !m.ContactSupported || m.Contact
}

// ParseMeasurement decodes the Heart Rate Measurement characteristic
func ParseMeasurement(buf []byte) (Measurement, error) {
	if len(buf) < 2 {
		return Measurement{}, fmt.Errorf("heart rate data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	m := Measurement{
		ContactSupported: flags&flagContactSupport != 0,
		Contact:          flags&flagContactDetected != 0,
	}

	var offset int
	if flags&flagUint16 != 0 {
		if len(buf) < 3 {
			return Measurement{}, fmt.Errorf("heart rate UINT16 data too short: %d bytes", len(buf))
		}
		m.BPM = int(binary.LittleEndian.Uint16(buf[1:3]))
		offset = 3
	} else {
		m.BPM = int(buf[1])
		offset = 2
	}

	if flags&flagEnergyExpended != 0 {
		if len(buf) < offset+2 {
			return Measurement{}, fmt.Errorf("energy expended missing: %d bytes", len(buf))
		}
		energy := int(binary.LittleEndian.Uint16(buf[offset : offset+2]))
		m.EnergyExpended = &energy
		offset += 2
	}

	if flags&flagRRIntervals != 0 {
		for ; offset+1 < len(buf); offset += 2 {
			raw := binary.LittleEndian.Uint16(buf[offset : offset+2])
			// 1/1024 s resolution
			m.RRIntervals = append(m.RRIntervals, time.Duration(raw)*time.Second/1024)
		}
	}

	return m, nil
}

// EncodeMeasurement produces the notification payload a strap sends for bpm,
// using the 16-bit format only when the value needs it
func EncodeMeasurement(bpm int, contact bool) []byte {
	if bpm < 0 {
		bpm = 0
	}
	flags := byte(flagContactSupport)
	if contact {
		flags |= flagContactDetected
	}
	if bpm > 0xFF {
		buf := []byte{flags | flagUint16, 0, 0}
		binary.LittleEndian.PutUint16(buf[1:], uint16(min(bpm, 0xFFFF)))
		return buf
	}
	return []byte{flags, byte(bpm)}
}
