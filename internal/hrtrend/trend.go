package hrtrend

// Trend is the displayed direction of the heart rate
type Trend int

const (
	TrendUnknown Trend = iota
	TrendIncreasing
	TrendDecreasing
	TrendStable
)

func (t Trend) String() string {
	switch t {
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	case TrendStable:
		return "stable"
	default:
		return "unknown"
	}
}

// Arrow returns a single glyph for compact displays
func (t Trend) Arrow() string {
	switch t {
	case TrendIncreasing:
		return "↑"
	case TrendDecreasing:
		return "↓"
	case TrendStable:
		return "→"
	default:
		return "·"
	}
}

// Color returns the tview color name used to tint the heart rate
func (t Trend) Color() string {
	switch t {
	case TrendIncreasing:
		return "orangered"
	case TrendDecreasing:
		return "deepskyblue"
	case TrendStable:
		return "green"
	default:
		return "gray"
	}
}

// classify maps a rate in bpm/s to a direction. An active direction is held
// until the rate falls back inside the narrower exit band, which stops the
// display from flickering around the threshold.
func classify(rate float64, current Trend) Trend {
	exit := trendThreshold - trendHysteresis
	switch current {
	case TrendIncreasing:
		if rate > exit {
			return TrendIncreasing
		}
	case TrendDecreasing:
		if rate < -exit {
			return TrendDecreasing
		}
	}

	switch {
	case rate >= trendThreshold:
		return TrendIncreasing
	case rate <= -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
