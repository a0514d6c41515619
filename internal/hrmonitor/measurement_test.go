package hrmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		bpm         int
		contact     bool
		energy      *int
		rrIntervals []time.Duration
	}{
		{name: "uint8 without contact support", buf: []byte{0x00, 72}, bpm: 72, contact: true},
		{name: "uint16", buf: []byte{0x01, 0x2C, 0x01}, bpm: 300, contact: true},
		{name: "contact supported and detected", buf: []byte{0x06, 95}, bpm: 95, contact: true},
		{name: "contact lost", buf: []byte{0x04, 95}, bpm: 95, contact: false},
		{name: "energy expended", buf: []byte{0x08, 120, 0x10, 0x02}, bpm: 120, contact: true, energy: intPtr(528)},
		{
			name:        "rr intervals",
			buf:         []byte{0x10, 60, 0x00, 0x04, 0x00, 0x02},
			bpm:         60,
			contact:     true,
			rrIntervals: []time.Duration{time.Second, 500 * time.Millisecond},
		},
		{
			name:        "everything",
			buf:         []byte{0x1F, 0x96, 0x00, 0x01, 0x00, 0x00, 0x02},
			bpm:         150,
			contact:     true,
			energy:      intPtr(1),
			rrIntervals: []time.Duration{500 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMeasurement(tt.buf)
			require.NoError(t, err)
			assert.Equal(t, tt.bpm, m.BPM)
			assert.Equal(t, tt.contact, m.HasContact())
			assert.Equal(t, tt.energy, m.EnergyExpended)
			assert.Equal(t, tt.rrIntervals, m.RRIntervals)
		})
	}
}

func TestParseMeasurement_Errors(t *testing.T) {
	for _, buf := range [][]byte{nil, {0x00}, {0x01, 0x20}, {0x08, 70, 0x01}} {
		_, err := ParseMeasurement(buf)
		assert.Error(t, err, "%v", buf)
	}
}

func TestParseMeasurement_IgnoresTrailingHalfInterval(t *testing.T) {
	m, err := ParseMeasurement([]byte{0x10, 60, 0x00, 0x04, 0x07})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, m.RRIntervals)
}

func TestEncodeMeasurement(t *testing.T) {
	assert.Equal(t, []byte{0x06, 80}, EncodeMeasurement(80, true))
	assert.Equal(t, []byte{0x04, 80}, EncodeMeasurement(80, false))
	assert.Equal(t, []byte{0x04, 0}, EncodeMeasurement(-3, false))

	for _, bpm := range []int{0, 1, 80, 255, 256, 300} {
		for _, contact := range []bool{true, false} {
			m, err := ParseMeasurement(EncodeMeasurement(bpm, contact))
			require.NoError(t, err)
			assert.Equal(t, bpm, m.BPM)
			assert.Equal(t, contact, m.HasContact())
		}
	}
}

func intPtr(v int) *int {
	return &v
}
