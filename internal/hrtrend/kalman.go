package hrtrend

// kalmanFilter is a one-dimensional Kalman filter with constant process and
// measurement noise, used to take the jitter out of raw bpm samples
type kalmanFilter struct {
	processNoise     float64
	measurementNoise float64
	estimate         float64
	errorCovariance  float64
	initialized      bool
}

func newKalmanFilter(processNoise, measurementNoise float64) kalmanFilter {
	return kalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		errorCovariance:  kalmanInitialError,
	}
}

// update folds one measurement into the estimate and returns the new estimate.
// The first measurement seeds the filter.
func (k *kalmanFilter) update(measurement float64) float64 {
	if !k.initialized {
		k.estimate = measurement
		k.errorCovariance = kalmanInitialError
		k.initialized = true
		return k.estimate
	}

	// predict
	k.errorCovariance += k.processNoise

	// correct
	gain := k.errorCovariance / (k.errorCovariance + k.measurementNoise)
	k.estimate += gain * (measurement - k.estimate)
	k.errorCovariance *= 1 - gain

	return k.estimate
}

func (k *kalmanFilter) reset() {
	k.estimate = 0
	k.errorCovariance = kalmanInitialError
	k.initialized = false
}
