package companion

import (
	"fmt"
	"strings"

	"github.com/lowaak/smart-trainer/lift-companion/internal/hrmonitor"
	"github.com/lowaak/smart-trainer/lift-companion/internal/plates"
	"github.com/lowaak/smart-trainer/lift-companion/internal/settimer"
	"github.com/lowaak/smart-trainer/lift-companion/internal/workout"
)

// The functions below render model values as tview text with color tags

func formatScanDeviceName(device *UIDeviceModel) string {
	name := device.Name
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s) %d dBm", name, device.Address, device.RSSI)
}

func formatConnectedDevice(status hrmonitor.Status) string {
	if !status.Connected {
		return " [gray]None[white]"
	}
	text := fmt.Sprintf(" [green]●[white] %s [gray](%s)[white]", status.Name, status.Address)
	if status.Battery >= 0 {
		text += fmt.Sprintf("  battery %d%%", status.Battery)
	}
	return text
}

// formatHeartRate renders the heart-rate bar: bpm tinted by trend, the
// trend arrow, the rate and its confidence
func formatHeartRate(hr HeartRate) string {
	if hr.BPM <= 0 {
		return " [red]♥[white] [gray]-- bpm  no heart rate[white]"
	}
	trend := hr.Reading.Trend
	text := fmt.Sprintf(" [red]♥[white] [%s]%d[white] bpm  [%s]%s %s[white]", trend.Color(), hr.BPM, trend.Color(), trend.Arrow(), trend)
	if hr.Reading.Rate != nil {
		text += fmt.Sprintf("  %+.2f bpm/s  [gray]confidence %.2f[white]", *hr.Reading.Rate, hr.Reading.Confidence)
	}
	return text
}

func formatWorkoutDetails(w workout.Workout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  [yellow]%s[white]\n\n", w.Name)
	for _, ex := range w.Exercises {
		fmt.Fprintf(&b, "  [cyan]%s[white]", ex.Name)
		if ex.EquipmentID != "" {
			fmt.Fprintf(&b, " [gray](%s)[white]", ex.EquipmentID)
		}
		b.WriteString("\n")
		for _, set := range ex.Sets {
			if workout.IsMovement(set) {
				fmt.Fprintf(&b, "    %s\n", workout.Describe(set))
			} else {
				fmt.Fprintf(&b, "    [gray]%s[white]\n", workout.Describe(set))
			}
		}
	}
	b.WriteString("\n  [green]Press Enter to start this workout[white]\n")
	return b.String()
}

func formatSession(view SessionView) string {
	if !view.Active {
		return "\n  [gray]No workout in progress[white]\n\n  Go to Workouts (press 2) to start one.\n"
	}

	var b strings.Builder
	state := view.State
	fmt.Fprintf(&b, "\n  [yellow]%s[white]  [gray]%d/%d sets[white]\n\n", view.WorkoutName, view.Completed, view.Total)

	switch state.Step {
	case workout.StepCompleted:
		b.WriteString("  [green]Workout complete![white]\n\n  Sets are saved to the history.\n")
		return b.String()

	case workout.StepRest:
		fmt.Fprintf(&b, "  [cyan]Rest[white]  [gray]after %s[white]\n\n", state.Exercise.Name)
		if state.UpNext != "" {
			fmt.Fprintf(&b, "  [gray]Up next:[white] %s\n", state.UpNext)
		}
		if state.PlateChange != "" {
			fmt.Fprintf(&b, "  [gray]Plates:[white]  %s\n", state.PlateChange)
		}

	case workout.StepSet:
		fmt.Fprintf(&b, "  [cyan]%s[white]  set %d of %d\n\n", state.Exercise.Name, state.SetNumber, state.SetCount)
		data := state.Data
		if data.Timed() {
			fmt.Fprintf(&b, "  [gray]Duration:[white] [yellow]%s[white]\n", settimer.FormatClock(data.Duration))
		} else {
			fmt.Fprintf(&b, "  [gray]Reps:[white]     [yellow]%d[white]\n", data.Reps)
			if data.Weight > 0 || data.Kind == workout.KindWeight {
				fmt.Fprintf(&b, "  [gray]Weight:[white]   [yellow]%s[white] kg\n", plates.FormatWeight(data.Weight))
			}
		}
		if state.Breakdown != "" {
			fmt.Fprintf(&b, "\n  [gray]Load:[white]     %s\n", state.Breakdown)
		}
		if state.PlateChange != "" {
			fmt.Fprintf(&b, "  [gray]Plates:[white]   %s\n", state.PlateChange)
		}
	}

	b.WriteString("\n  [gray]─────────────────────────[white]\n")
	b.WriteString(exerciseHelp(state))
	return b.String()
}

func exerciseHelp(state workout.State) string {
	switch {
	case state.Step == workout.StepRest:
		return "  [yellow]Space[white] Stop/Resume  [yellow][ ][white] -/+15s  [yellow]Enter[white] Skip rest\n"
	case state.Step == workout.StepSet && state.Data.Timed():
		return "  [yellow]Space[white] Start/Stop/Resume  [yellow]t[white] Duration  [yellow]Enter[white] Done\n"
	default:
		return "  [yellow]Space[white]/[yellow]Enter[white] Done  [yellow]+ -[white] Reps  [yellow]↑ ↓[white] Weight\n" +
			"  [yellow]r[white] Type reps  [yellow]w[white] Type weight  [yellow]x[white] End workout\n"
	}
}

func formatTimer(view TimerView) string {
	if !view.Active {
		return "\n  [gray]No timer[white]\n"
	}
	state := view.State
	color := "white"
	switch state.Status {
	case settimer.StatusRunning:
		color = "green"
	case settimer.StatusStopped:
		color = "yellow"
	case settimer.StatusCompleted:
		color = "gray"
	}
	text := fmt.Sprintf("\n  [%s]%s[white]\n\n", color, settimer.FormatClock(state.Display()))
	text += fmt.Sprintf("  [gray]%s timer, %s, target %s[white]\n", state.Kind, state.Status, settimer.FormatClock(state.Target))
	return text
}

func formatPlates(view PlatesView) string {
	eq, ok := view.SelectedEquipment()
	if !ok {
		return "\n  [gray]No equipment configured[white]\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n  [yellow]%s[white] [gray](%s)[white]\n", eq.Name, eq.Kind)
	if usesBar(eq) {
		fmt.Fprintf(&b, "  [gray]Bar:[white] %s kg\n", plates.FormatWeight(eq.BarWeight))
	}
	b.WriteString("\n")

	if view.Total <= 0 {
		b.WriteString("  Press [yellow]t[white] to enter a total weight.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  [gray]Total:[white] [yellow]%s[white] kg\n\n", plates.FormatWeight(view.Total))
	if view.Breakdown != "" {
		fmt.Fprintf(&b, "  %s\n", view.Breakdown)
	}
	if len(view.Loading.PerSide) > 0 {
		label := "Per side"
		if view.Loading.Sides == 1 {
			label = "Plates"
		}
		fmt.Fprintf(&b, "  [gray]%s:[white] %s\n", label, plates.FormatPlates(view.Loading.PerSide))
	}
	if view.Loading.Remainder > 0 {
		fmt.Fprintf(&b, "  [red]%s kg per side cannot be loaded, bar holds %s kg[white]\n",
			plates.FormatWeight(view.Loading.Remainder), plates.FormatWeight(view.Loading.Loaded(eq)))
	}
	if view.Nearest > 0 && view.Nearest != view.Total {
		fmt.Fprintf(&b, "  [gray]Nearest possible:[white] %s kg\n", plates.FormatWeight(view.Nearest))
	}
	return b.String()
}
