package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/lift-companion/internal/bt"
	"github.com/lowaak/smart-trainer/lift-companion/internal/companion"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/hrtrend"
)

const watchScanTimeout = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [address]",
	Short: "Print heart rate and trend without the terminal UI",
	Long: "Connects to the heart-rate monitor at address, or the remembered one, " +
		"or the first one found, and prints one line per poll until interrupted.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, logCloser := setupLogger(cfg, false, nil)
		defer logCloser.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, err := openHRSource(cfg, logger)
		if err != nil {
			return err
		}
		defer source.Close()
		if source.server != nil {
			fmt.Printf("Simulated strap, control API on http://%s\n", source.server.Addr())
		}

		monitor := hrmonitor.NewMonitor(source.manager, logger)
		defer monitor.Shutdown()

		var address string
		if len(args) == 1 {
			address = args[0]
		} else {
			address = companion.LoadPreferences(cfg.Prefs.File, logger).PreferredHRAddress()
		}
		address, err = scanFor(ctx, monitor, address, logger)
		if err != nil {
			return err
		}
		if err := monitor.ConnectAndSubscribe(address); err != nil {
			return err
		}
		status := monitor.Status()
		fmt.Printf("Connected to %s (%s)\n", status.Name, status.Address)

		printReadings(ctx, monitor, hrtrend.NewEstimator(), cfg.HR.PollInterval)
		return nil
	},
}

// scanFor scans until address shows up, or any heart-rate monitor when
// address is empty, and returns the address to connect to
func scanFor(ctx context.Context, monitor *hrmonitor.Monitor, address string, logger logrus.FieldLogger) (string, error) {
	ch := make(chan []bt.BTDevice, 4)
	defer monitor.ListenToScanDevices(ch)()

	monitor.StartScan()
	defer func() {
		if err := monitor.StopScan(); err != nil {
			logger.WithError(err).Warn("Could not stop scan")
		}
	}()

	timeout := time.NewTimer(watchScanTimeout)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeout.C:
			if address != "" {
				return "", fmt.Errorf("%s not found within %s", address, watchScanTimeout)
			}
			return "", fmt.Errorf("no heart-rate monitor found within %s", watchScanTimeout)
		case devices := <-ch:
			if address == "" && len(devices) > 0 {
				return devices[0].GetAddressString(), nil
			}
			if slices.ContainsFunc(devices, func(d bt.BTDevice) bool { return d.GetAddressString() == address }) {
				return address, nil
			}
		}
	}
}

func printReadings(ctx context.Context, monitor *hrmonitor.Monitor, estimator *hrtrend.Estimator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	trendColors := map[hrtrend.Trend]*color.Color{
		hrtrend.TrendIncreasing: color.New(color.FgRed, color.Bold),
		hrtrend.TrendDecreasing: color.New(color.FgBlue, color.Bold),
		hrtrend.TrendStable:     color.New(color.FgGreen),
		hrtrend.TrendUnknown:    color.New(color.FgHiBlack),
	}
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			bpm := monitor.Latest()
			if bpm <= 0 {
				fmt.Printf("%s  -- bpm\n", now.Format(time.TimeOnly))
				continue
			}
			estimator.Register(bpm)
			reading := estimator.Snapshot()
			line := fmt.Sprintf("%s  %3d bpm  %s %-10s", now.Format(time.TimeOnly), bpm, reading.Trend.Arrow(), reading.Trend)
			if reading.Rate != nil {
				line += fmt.Sprintf("  %+.2f bpm/s  confidence %.2f", *reading.Rate, reading.Confidence)
			}
			trendColors[reading.Trend].Println(line)
		}
	}
}
