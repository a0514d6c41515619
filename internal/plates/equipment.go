package plates

import (
	"fmt"
	"strings"
)

// EquipmentKind says how a total weight is split across the equipment
type EquipmentKind int

const (
	Barbell EquipmentKind = iota
	Dumbbells
	PlateLoadedCable
	WeightVest
	Machine
)

var kindNames = map[EquipmentKind]string{
	Barbell:          "barbell",
	Dumbbells:        "dumbbells",
	PlateLoadedCable: "plate_loaded_cable",
	WeightVest:       "weight_vest",
	Machine:          "machine",
}

func (k EquipmentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("equipment(%d)", int(k))
}

// ParseEquipmentKind accepts the names produced by String, case-insensitively
func ParseEquipmentKind(s string) (EquipmentKind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for kind, name := range kindNames {
		if name == needle {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown equipment kind %q", s)
}

// MarshalText implements encoding.TextMarshaler for YAML and TOML files
func (k EquipmentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML and TOML files
func (k *EquipmentKind) UnmarshalText(text []byte) error {
	kind, err := ParseEquipmentKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// PlateStock is how many plates of one weight are available in total
type PlateStock struct {
	Weight float64 `yaml:"weight" toml:"weight"`
	Count  int     `yaml:"count" toml:"count"`
}

// Equipment is one piece of gym equipment a set can be performed with
type Equipment struct {
	ID   string        `yaml:"id" toml:"id"`
	Name string        `yaml:"name" toml:"name"`
	Kind EquipmentKind `yaml:"kind" toml:"kind"`
	// BarWeight is the empty bar for barbells and the carriage or handle for
	// plate-loaded cables
	BarWeight float64      `yaml:"bar_weight" toml:"bar_weight"`
	Plates    []PlateStock `yaml:"plates" toml:"plates"`
	// Increments lists the selectable weights of dumbbell racks and stacks
	Increments []float64 `yaml:"increments" toml:"increments"`
}

// StandardPlates is a typical home gym plate set, counted across both sides
func StandardPlates() []PlateStock {
	return []PlateStock{
		{Weight: 25, Count: 2},
		{Weight: 20, Count: 4},
		{Weight: 15, Count: 2},
		{Weight: 10, Count: 4},
		{Weight: 5, Count: 4},
		{Weight: 2.5, Count: 4},
		{Weight: 1.25, Count: 4},
	}
}

// NewBarbell returns a barbell with the given bar weight and plate stock
func NewBarbell(id string, barWeight float64, stock []PlateStock) Equipment {
	return Equipment{
		ID:        id,
		Name:      "Barbell",
		Kind:      Barbell,
		BarWeight: barWeight,
		Plates:    stock,
	}
}

// Registry indexes equipment by id
type Registry map[string]Equipment

// NewRegistry builds a Registry; later entries win on duplicate ids
func NewRegistry(equipments []Equipment) Registry {
	r := make(Registry, len(equipments))
	for _, eq := range equipments {
		r[eq.ID] = eq
	}
	return r
}

// Lookup returns the equipment with id
func (r Registry) Lookup(id string) (Equipment, bool) {
	eq, ok := r[id]
	return eq, ok
}
