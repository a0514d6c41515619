package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/config"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/logging"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

var rootCmd = &cobra.Command{
	Use:           "lift-companion",
	Short:         "Terminal workout companion with heart-rate trend, set timers and a plate calculator",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompanion,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(runCmd, platesCmd, historyCmd, watchCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setupLogger logs to the configured file, and to stdout when the command
// does not own the terminal
func setupLogger(cfg *config.Config, toStdout bool, hook *logging.UIHook) (*logrus.Logger, io.Closer) {
	logger, closer := logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   toStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
		UIHook:        hook,
	})
	if cfg.ConfigFile != "" {
		logger.Debugf("Using config %s", cfg.ConfigFile)
	}
	return logger, closer
}

// loadPlans reads the workout plan file, falling back to the built-in plans
// when it does not exist. The configured barbell replaces the plan's.
func loadPlans(cfg *config.Config, logger logrus.FieldLogger) (workout.Plans, error) {
	plans, err := workout.LoadPlans(cfg.Workouts.File)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Infof("No workout plans at %s, using the built-in plans", cfg.Workouts.File)
		plans = workout.DefaultPlans()
	case err != nil:
		return workout.Plans{}, err
	}
	plans.Equipment = withBarbell(plans.Equipment, cfg.Barbell())
	return plans, nil
}

func withBarbell(equipments []plates.Equipment, barbell plates.Equipment) []plates.Equipment {
	equipments = slices.Clone(equipments)
	idx := slices.IndexFunc(equipments, func(e plates.Equipment) bool { return e.ID == barbell.ID })
	if idx < 0 {
		return append([]plates.Equipment{barbell}, equipments...)
	}
	barbell.Name = equipments[idx].Name
	equipments[idx] = barbell
	return equipments
}

// hrSource is the bluetooth manager behind the heart-rate monitor, with the
// control API when the strap is simulated
type hrSource struct {
	manager bt.BTManagerInterface
	server  *hrmonitor.SimServer
}

func openHRSource(cfg *config.Config, logger logrus.FieldLogger) (*hrSource, error) {
	if cfg.HR.Source == config.HRSourceSim {
		device := hrmonitor.NewSimDevice(logger, hrmonitor.SimDeviceConfig{})
		server, err := hrmonitor.StartSimServer(device, fmt.Sprintf("127.0.0.1:%d", cfg.HR.SimPort), logger)
		if err != nil {
			return nil, err
		}
		return &hrSource{
			manager: hrmonitor.NewSimManager(device, logger, 0),
			server:  server,
		}, nil
	}

	manager := bt.NewBTManager(bluetooth.DefaultAdapter, logger)
	if err := manager.Enable(); err != nil {
		return nil, fmt.Errorf("enabling bluetooth: %w", err)
	}
	return &hrSource{manager: manager}, nil
}

func (s *hrSource) Close() {
	if s.server != nil {
		s.server.Shutdown()
	}
	s.manager.Shutdown()
}
