package plates

import (
	"math"
	"sort"
)

// Loading is the plate selection for one side of the equipment
type Loading struct {
	// Sides is 2 for barbells, 1 for plate-loaded cables, 0 when no plates are used
	Sides int
	// PerSide lists the plates on one side, heaviest (innermost) first
	PerSide []float64
	// Remainder is the weight per side that the available plates cannot make up
	Remainder float64
}

// Loaded returns the total weight including the bar
func (l Loading) Loaded(eq Equipment) float64 {
	sum := 0.0
	for _, p := range l.PerSide {
		sum += p
	}
	return eq.BarWeight + sum*float64(l.Sides)
}

// PlatesPerSide returns the plate weight needed on each side for total.
// Equipment without plates returns 0.
func PlatesPerSide(eq Equipment, total float64) float64 {
	var perSide float64
	switch eq.Kind {
	case Barbell:
		perSide = (total - eq.BarWeight) / 2
	case PlateLoadedCable:
		perSide = total - eq.BarWeight
	default:
		return 0
	}
	if perSide < 0 {
		return 0
	}
	return perSide
}

// LoadPlan picks plates greedily, heaviest first, from the available stock
func LoadPlan(eq Equipment, total float64) Loading {
	sides := 0
	switch eq.Kind {
	case Barbell:
		sides = 2
	case PlateLoadedCable:
		sides = 1
	default:
		return Loading{}
	}

	stock := append([]PlateStock(nil), eq.Plates...)
	sort.SliceStable(stock, func(i, j int) bool { return stock[i].Weight > stock[j].Weight })

	// grams avoid float drift on 1.25 kg plates
	left := toGrams(PlatesPerSide(eq, total))
	loading := Loading{Sides: sides}
	for _, s := range stock {
		plate := toGrams(s.Weight)
		if plate <= 0 {
			continue
		}
		for n := s.Count / sides; n > 0 && plate <= left; n-- {
			loading.PerSide = append(loading.PerSide, s.Weight)
			left -= plate
		}
	}
	loading.Remainder = fromGrams(left)
	return loading
}

// PlateChanges returns the plates to take off and put on one side to go from
// one loading to the next. Plates are stacked heaviest first, so everything
// outside the shared inner stack has to come off.
func PlateChanges(from, to []float64) (remove, add []float64) {
	common := 0
	for common < len(from) && common < len(to) && toGrams(from[common]) == toGrams(to[common]) {
		common++
	}
	for i := len(from) - 1; i >= common; i-- {
		remove = append(remove, from[i])
	}
	add = append(add, to[common:]...)
	return remove, add
}

// Nearest snaps total to the closest selectable weight in eq.Increments.
// Equipment without increments returns total unchanged.
func Nearest(eq Equipment, total float64) float64 {
	if len(eq.Increments) == 0 {
		return total
	}
	best := eq.Increments[0]
	for _, w := range eq.Increments[1:] {
		if math.Abs(w-total) < math.Abs(best-total) {
			best = w
		}
	}
	return best
}

func toGrams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

func fromGrams(g int64) float64 {
	return float64(g) / 1000
}
