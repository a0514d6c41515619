package hrtrend

import "math"

// flatEpsilon is the variance below which a series counts as constant
const flatEpsilon = 1e-12

// linearFit is an ordinary least squares fit of value over time
type linearFit struct {
	// Slope in bpm per millisecond
	Slope float64
	// RSquared is the coefficient of determination in [0,1]
	RSquared float64
}

// fitLine regresses values on timestamps (ms). ok is false when the fit is
// undefined: fewer than two points, all samples at the same instant, or a
// perfectly flat series where R² has no meaning.
func fitLine(points []sample) (fit linearFit, ok bool) {
	n := float64(len(points))
	if len(points) < 2 {
		return linearFit{}, false
	}

	origin := points[0].atMs
	var sumX, sumY float64
	for _, p := range points {
		sumX += float64(p.atMs - origin)
		sumY += p.value
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy, syy float64
	for _, p := range points {
		dx := float64(p.atMs-origin) - meanX
		dy := p.value - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	if sxx < flatEpsilon || syy < flatEpsilon {
		return linearFit{}, false
	}

	r2 := (sxy * sxy) / (sxx * syy)
	return linearFit{
		Slope:    sxy / sxx,
		RSquared: math.Max(0, math.Min(1, r2)),
	}, true
}

// weightedAverage weights values linearly by position, oldest first, so the
// newest value counts len(values) times as much as the oldest
func weightedAverage(values []float64) float64 {
	var sum, weights float64
	for i, v := range values {
		w := float64(i + 1)
		sum += w * v
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
