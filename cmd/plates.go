package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

var platesEquipment string

var platesCmd = &cobra.Command{
	Use:   "plates <total-kg>",
	Short: "Show how to load a total weight on a piece of equipment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		total, ok := workout.ParseWeight(args[0])
		if !ok || total <= 0 {
			return fmt.Errorf("invalid weight %q", args[0])
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, logCloser := setupLogger(cfg, false, nil)
		defer logCloser.Close()

		plans, err := loadPlans(cfg, logger)
		if err != nil {
			return err
		}
		registry := plates.NewRegistry(plans.Equipment)
		eq, ok := registry.Lookup(platesEquipment)
		if !ok {
			ids := make([]string, 0, len(plans.Equipment))
			for _, e := range plans.Equipment {
				ids = append(ids, e.ID)
			}
			return fmt.Errorf("unknown equipment %q, available: %s", platesEquipment, strings.Join(ids, ", "))
		}

		boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
		boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("%s %s kg on %s\n", boldGreen("Loading"), plates.FormatWeight(total), eq.Name)
		fmt.Printf("  %s: %s\n", boldCyan("Breakdown"), plates.Breakdown(eq, total))

		loading := plates.LoadPlan(eq, total)
		if loading.Sides > 0 {
			label := "Per side"
			if loading.Sides == 1 {
				label = "Plates"
			}
			fmt.Printf("  %s: %s\n", boldCyan(label), yellow(plates.FormatPlates(loading.PerSide)))
			if loading.Remainder > 0 {
				fmt.Printf("  %s\n", red(fmt.Sprintf("%s kg per side cannot be loaded with the available plates, loaded %s kg",
					plates.FormatWeight(loading.Remainder), plates.FormatWeight(loading.Loaded(eq)))))
			}
		}
		if nearest := plates.Nearest(eq, total); nearest != total {
			fmt.Printf("  %s: %s kg\n", boldCyan("Nearest possible"), plates.FormatWeight(nearest))
		}
		return nil
	},
}

func init() {
	platesCmd.Flags().StringVarP(&platesEquipment, "equipment", "e", "barbell", "equipment id from the workout plans")
}
