package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
)

const (
	EnvPrefix = "LIFTC"

	HRSourceBLE = "ble"
	HRSourceSim = "sim"
)

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type HRConfig struct {
	Source       string        `mapstructure:"source"`
	SimPort      int           `mapstructure:"sim_port"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type EquipmentConfig struct {
	BarWeight float64   `mapstructure:"bar_weight"`
	Plates    []float64 `mapstructure:"plates"`
}

type WorkoutsConfig struct {
	File string `mapstructure:"file"`
}

type HistoryConfig struct {
	DB string `mapstructure:"db"`
}

type TimerConfig struct {
	HapticSeconds int `mapstructure:"haptic_seconds"`
}

type PrefsConfig struct {
	File string `mapstructure:"file"`
}

// Config is the resolved application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Workouts  WorkoutsConfig  `mapstructure:"workouts"`
	History   HistoryConfig   `mapstructure:"history"`
	HR        HRConfig        `mapstructure:"hr"`
	Equipment EquipmentConfig `mapstructure:"equipment"`
	Timer     TimerConfig     `mapstructure:"timer"`
	Prefs     PrefsConfig     `mapstructure:"prefs"`

	// ConfigFile is the file that was read, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-file":      "log.file",
	"log-level":     "log.level",
	"log-json":      "log.json",
	"workouts":      "workouts.file",
	"history-db":    "history.db",
	"hr-source":     "hr.source",
	"sim-port":      "hr.sim_port",
	"poll-interval": "hr.poll_interval",
	"bar-weight":    "equipment.bar_weight",
	"plates":        "equipment.plates",
	"haptic":        "timer.haptic_seconds",
	"prefs":         "prefs.file",
}

// DefaultDir is where config, logs, history and preferences live by default
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lift-companion")
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (YAML or TOML), default "+filepath.Join(DefaultDir(), "config.yaml"))
	flags.String("env-file", ".env", "optional dotenv file loaded before reading the environment")
	flags.String("log-file", "", "log file, rotated automatically")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.Bool("log-json", false, "write JSON log lines")
	flags.String("workouts", "", "workout plan file (YAML)")
	flags.String("history-db", "", "set history database (SQLite)")
	flags.String("hr-source", "", "heart-rate source: ble or sim")
	flags.Int("sim-port", 0, "control API port of the simulated heart-rate monitor")
	flags.Duration("poll-interval", 0, "heart-rate poll interval")
	flags.Float64("bar-weight", 0, "barbell weight in kg")
	flags.StringSlice("plates", nil, "available plate weights in kg")
	flags.Int("haptic", 0, "final seconds of a countdown that pulse, 0 disables")
	flags.String("prefs", "", "preferences file (TOML)")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()
	v.SetDefault("log.file", filepath.Join(dir, "lift-companion.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("workouts.file", filepath.Join(dir, "workouts.yaml"))
	v.SetDefault("history.db", filepath.Join(dir, "history.db"))
	v.SetDefault("hr.source", HRSourceBLE)
	v.SetDefault("hr.sim_port", 8089)
	v.SetDefault("hr.poll_interval", time.Second)
	v.SetDefault("equipment.bar_weight", 20.0)
	v.SetDefault("equipment.plates", []float64{25, 20, 15, 10, 5, 2.5, 1.25})
	v.SetDefault("timer.haptic_seconds", 3)
	v.SetDefault("prefs.file", filepath.Join(dir, "prefs.toml"))
}

// Load resolves the configuration from defaults, the config file, the
// environment (LIFTC_*, after an optional dotenv file) and flags, in
// increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if flags == nil {
		flags = pflag.NewFlagSet("config", pflag.ContinueOnError)
		RegisterFlags(flags)
	}

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	configFile, _ := flags.GetString("config")
	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(DefaultDir(), "config.yaml")
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
		configFile = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigFile = configFile
	cfg.HR.Source = strings.ToLower(strings.TrimSpace(cfg.HR.Source))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that the rest of the program relies on
func (c *Config) Validate() error {
	var errs []error
	switch c.HR.Source {
	case HRSourceBLE, HRSourceSim:
	default:
		errs = append(errs, fmt.Errorf("hr.source must be %q or %q, got %q", HRSourceBLE, HRSourceSim, c.HR.Source))
	}
	if c.HR.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("hr.poll_interval must be positive, got %s", c.HR.PollInterval))
	}
	if c.HR.SimPort <= 0 || c.HR.SimPort > 65535 {
		errs = append(errs, fmt.Errorf("hr.sim_port out of range: %d", c.HR.SimPort))
	}
	if c.Equipment.BarWeight < 0 {
		errs = append(errs, fmt.Errorf("equipment.bar_weight cannot be negative"))
	}
	for _, p := range c.Equipment.Plates {
		if p <= 0 {
			errs = append(errs, fmt.Errorf("equipment.plates must be positive, got %v", p))
			break
		}
	}
	if c.Timer.HapticSeconds < 0 {
		errs = append(errs, fmt.Errorf("timer.haptic_seconds cannot be negative"))
	}
	return errors.Join(errs...)
}

// Barbell returns the configured barbell, two plates of each weight per side
func (c *Config) Barbell() plates.Equipment {
	stock := make([]plates.PlateStock, 0, len(c.Equipment.Plates))
	for _, w := range c.Equipment.Plates {
		stock = append(stock, plates.PlateStock{Weight: w, Count: 4})
	}
	return plates.NewBarbell("barbell", c.Equipment.BarWeight, stock)
}

// TimerHapticSeconds maps the configured window to settimer's convention,
// where a negative value disables pulses
func (c *Config) TimerHapticSeconds() int {
	if c.Timer.HapticSeconds == 0 {
		return -1
	}
	return c.Timer.HapticSeconds
}
