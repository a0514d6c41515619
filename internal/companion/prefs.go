package companion

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

type preferencesData struct {
	PreferredHRAddress string `toml:"preferred_hr_address"`
	LastWorkout        string `toml:"last_workout"`
	LastEquipment      string `toml:"last_equipment"`
}

// Preferences remembers choices between runs in a TOML file
type Preferences struct {
	filePath string
	logger   logrus.FieldLogger

	mu   sync.Mutex
	data preferencesData
}

// LoadPreferences reads filePath. A missing or unreadable file leaves
// every preference empty.
func LoadPreferences(filePath string, logger logrus.FieldLogger) *Preferences {
	if logger == nil {
		panic("Preferences: logger cannot be nil")
	}
	p := &Preferences{
		filePath: filePath,
		logger:   logger.WithField("component", "Preferences"),
	}
	p.load()
	return p
}

func (p *Preferences) PreferredHRAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.PreferredHRAddress
}

func (p *Preferences) SetPreferredHRAddress(address string) {
	p.update(func(d *preferencesData) { d.PreferredHRAddress = address })
}

func (p *Preferences) LastWorkout() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.LastWorkout
}

func (p *Preferences) SetLastWorkout(id string) {
	p.update(func(d *preferencesData) { d.LastWorkout = id })
}

func (p *Preferences) LastEquipment() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.LastEquipment
}

func (p *Preferences) SetLastEquipment(id string) {
	p.update(func(d *preferencesData) { d.LastEquipment = id })
}

// update applies fn and writes the file when something changed
func (p *Preferences) update(fn func(*preferencesData)) {
	p.mu.Lock()
	before := p.data
	fn(&p.data)
	if p.data == before {
		p.mu.Unlock()
		return
	}
	data := p.data
	p.mu.Unlock()

	p.save(data)
}

func (p *Preferences) load() {
	_, err := toml.DecodeFile(p.filePath, &p.data)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.logger.Debugf("No preferences at %s", p.filePath)
	case err != nil:
		p.logger.WithError(err).Warnf("Ignoring unreadable preferences %s", p.filePath)
		p.data = preferencesData{}
	default:
		p.logger.Debugf("Loaded preferences from %s", p.filePath)
	}
}

func (p *Preferences) save(data preferencesData) {
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0o755); err != nil {
		p.logger.WithError(err).Warn("Could not create preferences directory")
		return
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		p.logger.WithError(err).Warn("Could not encode preferences")
		return
	}
	if err := os.WriteFile(p.filePath, buf.Bytes(), 0o644); err != nil {
		p.logger.WithError(err).Warnf("Could not write %s", p.filePath)
		return
	}
	p.logger.Debugf("Saved preferences to %s", p.filePath)
}
