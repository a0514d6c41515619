package main

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/lift-companion/internal/companion"
	"github.com/lowaak/smart-trainer/lift-companion/internal/history"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrtrend"
	"github.com/lowaak/smart-trainer/lift-companion/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the terminal UI (default)",
	Args:  cobra.NoArgs,
	RunE:  runCompanion,
}

func runCompanion(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	uiHook := logging.NewUIHook(256)
	logger, logCloser := setupLogger(cfg, false, uiHook)
	defer logCloser.Close()

	store, err := history.Open(cmd.Context(), cfg.History.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	plans, err := loadPlans(cfg, logger)
	if err != nil {
		return err
	}

	source, err := openHRSource(cfg, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	monitor := hrmonitor.NewMonitor(source.manager, logger)
	defer monitor.Shutdown()

	estimator := hrtrend.NewEstimator()
	model := companion.NewUIModel(monitor, logger, uiHook.Lines())
	defer model.Shutdown()

	poller := companion.NewHeartRatePoller(monitor, estimator, model, cfg.HR.PollInterval, logger)
	defer poller.Shutdown()

	controller := companion.NewUIController(companion.NewUIControllerArg{
		Model:         model,
		Monitor:       monitor,
		Estimator:     estimator,
		Workouts:      plans.Workouts,
		Equipments:    plans.Equipment,
		Recorder:      store,
		Prefs:         companion.LoadPreferences(cfg.Prefs.File, logger),
		HapticSeconds: cfg.TimerHapticSeconds(),
		Logger:        logger,
	})
	defer controller.Shutdown()

	app := tview.NewApplication()
	view := companion.NewCursesUIView(logger, app, model)
	base := companion.NewBaseUIView(companion.NewBaseUIViewArg{
		UIViewImpl:   view,
		UIModel:      model,
		UIController: controller,
		Logger:       logger,
	})
	defer base.Shutdown()

	logger.Infof("Loaded %d workouts, %d pieces of equipment", len(plans.Workouts), len(plans.Equipment))
	if source.server != nil {
		logger.Infof("Simulated heart-rate strap, control API on http://%s", source.server.Addr())
	}
	controller.OnModeChange(companion.UIModeDevices)

	if err := base.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
