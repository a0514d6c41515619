package workout

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
)

//go:embed default_plans.yaml
var defaultPlans []byte

// Workout is a named, ordered list of exercises
type Workout struct {
	ID        string
	Name      string
	Exercises []Exercise
}

// Exercise is a movement performed for a list of sets on one piece of equipment
type Exercise struct {
	ID          string
	Name        string
	EquipmentID string
	Sets        []Set
}

// Plans is the content of a workout plan file
type Plans struct {
	Equipment []plates.Equipment
	Workouts  []Workout
}

// Workout returns the workout with the given id or name
func (p Plans) Workout(key string) (Workout, bool) {
	for _, w := range p.Workouts {
		if w.ID == key || strings.EqualFold(w.Name, key) {
			return w, true
		}
	}
	return Workout{}, false
}

type planFile struct {
	Equipment []plates.Equipment `yaml:"equipment"`
	Workouts  []workoutEntry     `yaml:"workouts"`
}

type workoutEntry struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Exercises []exerciseEntry `yaml:"exercises"`
}

type exerciseEntry struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Equipment string     `yaml:"equipment"`
	Sets      []setEntry `yaml:"sets"`
}

// setEntry is the flat YAML form of every Set variant, selected by Type
type setEntry struct {
	Type      SetKind       `yaml:"type"`
	ID        string        `yaml:"id"`
	Reps      int           `yaml:"reps"`
	Weight    float64       `yaml:"weight"`
	Duration  time.Duration `yaml:"duration"`
	AutoStart bool          `yaml:"auto_start"`
	// Rest appends a rest set after this one
	Rest time.Duration `yaml:"rest"`
	// Repeat expands the entry into that many identical sets
	Repeat int `yaml:"repeat"`
}

// LoadPlans reads a workout plan file
func LoadPlans(path string) (Plans, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plans{}, fmt.Errorf("reading workout plans: %w", err)
	}
	plans, err := ParsePlans(data)
	if err != nil {
		return Plans{}, fmt.Errorf("%s: %w", path, err)
	}
	return plans, nil
}

// DefaultPlans returns the built-in plans used when no plan file exists
func DefaultPlans() Plans {
	plans, err := ParsePlans(defaultPlans)
	if err != nil {
		panic(fmt.Sprintf("workout: built-in plans are invalid: %v", err))
	}
	return plans
}

// ParsePlans decodes and validates YAML plan data. Missing ids are filled
// with random UUIDs.
func ParsePlans(data []byte) (Plans, error) {
	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Plans{}, fmt.Errorf("parsing workout plans: %w", err)
	}

	registry := plates.NewRegistry(file.Equipment)
	plans := Plans{Equipment: file.Equipment}
	for i, entry := range file.Workouts {
		w, err := entry.toWorkout(registry)
		if err != nil {
			return Plans{}, fmt.Errorf("workout %d (%s): %w", i+1, entry.Name, err)
		}
		plans.Workouts = append(plans.Workouts, w)
	}
	if len(plans.Workouts) == 0 {
		return Plans{}, fmt.Errorf("no workouts defined")
	}
	return plans, nil
}

func (e workoutEntry) toWorkout(registry plates.Registry) (Workout, error) {
	if strings.TrimSpace(e.Name) == "" {
		return Workout{}, fmt.Errorf("name is required")
	}
	if len(e.Exercises) == 0 {
		return Workout{}, fmt.Errorf("no exercises")
	}

	w := Workout{ID: idOrNew(e.ID), Name: e.Name}
	for i, ex := range e.Exercises {
		exercise, err := ex.toExercise(registry)
		if err != nil {
			return Workout{}, fmt.Errorf("exercise %d (%s): %w", i+1, ex.Name, err)
		}
		w.Exercises = append(w.Exercises, exercise)
	}
	return w, nil
}

func (e exerciseEntry) toExercise(registry plates.Registry) (Exercise, error) {
	if strings.TrimSpace(e.Name) == "" {
		return Exercise{}, fmt.Errorf("name is required")
	}
	if e.Equipment != "" {
		if _, ok := registry.Lookup(e.Equipment); !ok {
			return Exercise{}, fmt.Errorf("unknown equipment %q", e.Equipment)
		}
	}

	exercise := Exercise{ID: idOrNew(e.ID), Name: e.Name, EquipmentID: e.Equipment}
	movements := 0
	for i, entry := range e.Sets {
		sets, err := entry.toSets()
		if err != nil {
			return Exercise{}, fmt.Errorf("set %d: %w", i+1, err)
		}
		for _, s := range sets {
			if IsMovement(s) {
				movements++
			}
		}
		exercise.Sets = append(exercise.Sets, sets...)
	}
	if movements == 0 {
		return Exercise{}, fmt.Errorf("no movement sets")
	}
	return exercise, nil
}

func (e setEntry) toSets() ([]Set, error) {
	if e.Reps < 0 || e.Weight < 0 || e.Duration < 0 || e.Rest < 0 || e.Repeat < 0 {
		return nil, fmt.Errorf("negative values are not allowed")
	}
	repeat := e.Repeat
	if repeat == 0 {
		repeat = 1
	}

	var out []Set
	for i := 0; i < repeat; i++ {
		id := e.ID
		if repeat > 1 || id == "" {
			id = uuid.NewString()
		}
		s, err := e.toSet(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if e.Rest > 0 {
			out = append(out, RestSet{ID: uuid.NewString(), Duration: e.Rest})
		}
	}
	return out, nil
}

func (e setEntry) toSet(id string) (Set, error) {
	switch e.Type {
	case KindWeight:
		return WeightSet{ID: id, Reps: e.Reps, Weight: e.Weight}, nil
	case KindBodyWeight:
		return BodyWeightSet{ID: id, Reps: e.Reps, AdditionalWeight: e.Weight}, nil
	case KindTimedDuration:
		return TimedDurationSet{ID: id, Duration: e.Duration, AutoStart: e.AutoStart}, nil
	case KindEndurance:
		return EnduranceSet{ID: id, Duration: e.Duration, AutoStart: e.AutoStart}, nil
	case KindRest:
		return RestSet{ID: id, Duration: e.Duration}, nil
	case "":
		return nil, fmt.Errorf("type is required")
	default:
		return nil, fmt.Errorf("unknown set type %q", e.Type)
	}
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
