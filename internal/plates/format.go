package plates

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatWeight renders kg with at most two decimals and no trailing zeros
func FormatWeight(kg float64) string {
	rounded := math.Round(kg*100) / 100
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// FormatPlates renders a plate list as "20 + 10 + 2.5"
func FormatPlates(plates []float64) string {
	if len(plates) == 0 {
		return "-"
	}
	parts := make([]string, len(plates))
	for i, p := range plates {
		parts[i] = FormatWeight(p)
	}
	return strings.Join(parts, " + ")
}

// Breakdown describes how total is made up on eq, e.g.
// "Bar 20 kg + 20 kg per side". Non-positive totals give "".
func Breakdown(eq Equipment, total float64) string {
	if total <= 0 {
		return ""
	}

	switch eq.Kind {
	case Barbell:
		perSide := PlatesPerSide(eq, total)
		if perSide == 0 {
			return fmt.Sprintf("Bar %s kg", FormatWeight(eq.BarWeight))
		}
		return fmt.Sprintf("Bar %s kg + %s kg per side", FormatWeight(eq.BarWeight), FormatWeight(perSide))
	case Dumbbells:
		return fmt.Sprintf("2 x %s kg", FormatWeight(total/2))
	case PlateLoadedCable:
		plates := PlatesPerSide(eq, total)
		if eq.BarWeight <= 0 {
			return fmt.Sprintf("Plates %s kg", FormatWeight(plates))
		}
		return fmt.Sprintf("Handle %s kg + plates %s kg", FormatWeight(eq.BarWeight), FormatWeight(plates))
	case WeightVest:
		return fmt.Sprintf("Vest %s kg", FormatWeight(total))
	case Machine:
		return fmt.Sprintf("Stack %s kg", FormatWeight(total))
	default:
		return fmt.Sprintf("%s kg", FormatWeight(total))
	}
}

// DescribeChange renders the plate change between two loadings for one side
func DescribeChange(from, to []float64) string {
	remove, add := PlateChanges(from, to)
	switch {
	case len(remove) == 0 && len(add) == 0:
		return "No plate change"
	case len(remove) == 0:
		return "Add " + FormatPlates(add)
	case len(add) == 0:
		return "Remove " + FormatPlates(remove)
	default:
		return fmt.Sprintf("Remove %s, add %s", FormatPlates(remove), FormatPlates(add))
	}
}
