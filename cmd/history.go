package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/lift-companion/internal/history"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [exercise]",
	Short: "List recently completed sets, optionally of one exercise",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, logCloser := setupLogger(cfg, false, nil)
		defer logCloser.Close()

		ctx := cmd.Context()
		store, err := history.Open(ctx, cfg.History.DB)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Debugf("Reading history from %s", cfg.History.DB)

		boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
		boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		magenta := color.New(color.FgMagenta).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		var records []history.SetRecord
		if len(args) == 1 {
			exercise := args[0]
			records, err = store.ForExercise(ctx, exercise, historyLimit)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", boldGreen("History for"), exercise)
			best, ok, err := store.PersonalBest(ctx, exercise)
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("  %s: %s kg x %d (%s %s kg)\n", boldCyan("Personal best"),
					plates.FormatWeight(best.Weight), best.Reps, yellow("estimated 1RM"), plates.FormatWeight(best.EstimatedOneRM))
			}
		} else {
			records, err = store.Recent(ctx, historyLimit)
			if err != nil {
				return err
			}
			fmt.Println(boldGreen("Recent sets"))
		}

		if len(records) == 0 {
			fmt.Println(magenta("  No sets recorded yet."))
			return nil
		}
		for _, rec := range records {
			fmt.Printf("  %s  %s  %s\n", gray(rec.CompletedAt.Local().Format(time.DateTime)), boldCyan(rec.ExerciseName), describeRecord(rec))
		}
		return nil
	},
}

func describeRecord(rec history.SetRecord) string {
	switch rec.Kind {
	case workout.KindTimedDuration, workout.KindEndurance:
		return settimer.FormatClock(rec.Duration)
	case workout.KindBodyWeight:
		if rec.Weight > 0 {
			return fmt.Sprintf("%d reps +%s kg", rec.Reps, plates.FormatWeight(rec.Weight))
		}
		return fmt.Sprintf("%d reps", rec.Reps)
	default:
		text := fmt.Sprintf("%d x %s kg", rec.Reps, plates.FormatWeight(rec.Weight))
		if rec.EstimatedOneRM > 0 {
			text += fmt.Sprintf("  (1RM %s kg)", plates.FormatWeight(rec.EstimatedOneRM))
		}
		return text
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of sets to show")
}
