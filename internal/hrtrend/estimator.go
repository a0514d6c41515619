package hrtrend

import (
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/lift-companion/internal/events"
)

const (
	kalmanProcessNoise     = 0.1
	kalmanMeasurementNoise = 2.0
	kalmanInitialError     = 1.0
	emaAlpha               = 0.3

	historyCapacity     = 20
	trendCapacity       = 5
	minRegressionPoints = 3

	fallbackMinElapsedMs = 3000
	fallbackConfidence   = 0.5

	trendThreshold             = 0.3 // bpm/s
	trendHysteresis            = 0.1 // bpm/s
	requiredConsistentReadings = 3
	minConfidence              = 0.5

	ratePrecision = 3
)

type sample struct {
	atMs  int64
	value float64
}

// Reading is what the display consumes after each registered sample
type Reading struct {
	// Rate is the smoothed change rate in bpm/s, nil until one can be computed
	Rate       *float64
	Confidence float64
	Trend      Trend
}

// Estimator turns a roughly 1 Hz stream of heart-rate samples into a smoothed
// change rate, a confidence score and a trend direction.
// It is safe for concurrent use.
type Estimator struct {
	mu  sync.Mutex
	now func() time.Time

	kalman   kalmanFilter
	ema      float64
	emaReady bool
	history  []sample
	rates    []float64

	rawTrend   Trend
	consistent int

	reading Reading
	event   *events.ChannelEvent[Reading]
}

// NewEstimator creates an Estimator that timestamps samples with time.Now
func NewEstimator() *Estimator {
	return NewEstimatorWithClock(time.Now)
}

// NewEstimatorWithClock creates an Estimator with a custom clock
func NewEstimatorWithClock(now func() time.Time) *Estimator {
	if now == nil {
		panic("Estimator: clock cannot be nil")
	}
	return &Estimator{
		now:     now,
		kalman:  newKalmanFilter(kalmanProcessNoise, kalmanMeasurementNoise),
		history: make([]sample, 0, historyCapacity),
		rates:   make([]float64, 0, trendCapacity),
		event:   events.NewChannelEvent[Reading](true),
	}
}

// Register adds a sample taken now
func (e *Estimator) Register(bpm int) {
	e.RegisterAt(bpm, e.now())
}

// RegisterAt adds a sample taken at the given instant. Non-positive samples
// are dropped without touching any state.
func (e *Estimator) RegisterAt(bpm int, at time.Time) {
	if bpm <= 0 {
		return
	}

	e.mu.Lock()
	filtered := e.kalman.update(float64(bpm))
	if !e.emaReady {
		e.ema = filtered
		e.emaReady = true
	} else {
		e.ema = emaAlpha*filtered + (1-emaAlpha)*e.ema
	}

	if len(e.history) == historyCapacity {
		e.history = append(e.history[:0], e.history[1:]...)
	}
	e.history = append(e.history, sample{atMs: at.UnixMilli(), value: e.ema})

	if len(e.history) >= minRegressionPoints {
		e.updateRate()
		e.updateTrend()
	}
	reading := e.snapshotLocked()
	e.mu.Unlock()

	e.event.Notify(reading)
}

// updateRate runs the regression, or the two-point fallback when the
// regression is undefined. MUST be called with mu held.
func (e *Estimator) updateRate() {
	var rate float64

	if fit, ok := fitLine(e.history); ok {
		rate = fit.Slope * 1000
		e.reading.Confidence = fit.RSquared
	} else {
		oldest := e.history[0]
		newest := e.history[len(e.history)-1]
		elapsed := newest.atMs - oldest.atMs
		if elapsed < fallbackMinElapsedMs {
			e.reading.Confidence = 0
			return
		}
		rate = (newest.value - oldest.value) / float64(elapsed) * 1000
		e.reading.Confidence = fallbackConfidence
	}

	if len(e.rates) == trendCapacity {
		e.rates = append(e.rates[:0], e.rates[1:]...)
	}
	e.rates = append(e.rates, rate)

	smoothed := roundTo(weightedAverage(e.rates), ratePrecision)
	e.reading.Rate = &smoothed
}

// updateTrend classifies the published rate and only moves the published
// trend after enough consecutive agreeing classifications.
// MUST be called with mu held.
func (e *Estimator) updateTrend() {
	if e.reading.Confidence < minConfidence || e.reading.Rate == nil {
		e.reading.Trend = TrendUnknown
		e.rawTrend = TrendUnknown
		e.consistent = 0
		return
	}

	raw := classify(*e.reading.Rate, e.rawTrend)
	if raw == e.rawTrend {
		e.consistent++
	} else {
		e.rawTrend = raw
		e.consistent = 1
	}

	if e.consistent >= requiredConsistentReadings {
		e.reading.Trend = raw
	}
}

// snapshotLocked copies the reading so callers never share the rate pointer.
// MUST be called with mu held.
func (e *Estimator) snapshotLocked() Reading {
	out := e.reading
	if e.reading.Rate != nil {
		rate := *e.reading.Rate
		out.Rate = &rate
	}
	return out
}

// Snapshot returns the current reading
func (e *Estimator) Snapshot() Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// ChangeRate returns the smoothed rate in bpm/s, or nil if not yet known
func (e *Estimator) ChangeRate() *float64 {
	return e.Snapshot().Rate
}

// Confidence returns the confidence of the last estimate in [0,1]
func (e *Estimator) Confidence() float64 {
	return e.Snapshot().Confidence
}

// Trend returns the published trend
func (e *Estimator) Trend() Trend {
	return e.Snapshot().Trend
}

// HistoryLen returns the number of filtered samples currently buffered
func (e *Estimator) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// Listen registers ch to receive a Reading after every accepted sample and reset
func (e *Estimator) Listen(ch chan<- Reading) func() {
	return e.event.Listen(ch)
}

// Reset clears all filter state and buffers, e.g. when the exercise changes
func (e *Estimator) Reset() {
	e.mu.Lock()
	e.kalman.reset()
	e.ema = 0
	e.emaReady = false
	e.history = e.history[:0]
	e.rates = e.rates[:0]
	e.rawTrend = TrendUnknown
	e.consistent = 0
	e.reading = Reading{}
	e.mu.Unlock()

	e.event.Notify(Reading{})
}
