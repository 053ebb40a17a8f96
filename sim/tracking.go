package sim

import (
	"math"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

// NewVarianceAccumulator starts a running error summary at the first error
// init. Each call folds in one more error, discounting older ones by decay,
// and reports the effective sample count with the weighted mean and variance.
func NewVarianceAccumulator(init, decay float64) func(float64) (n, mean, variance float64) {
	var (
		n = 1.0
		m = init
		v = 0.0
	)
	return func(obs float64) (float64, float64, float64) {
		d := obs - m
		dm := (1 - decay) * d

		n = 1 + decay*n
		m += dm
		v = decay * (v + dm*d)
		return n, m, v
	}
}

// AngleBetween returns the rotation angle, in radians, taking a to b.
func AngleBetween(a, b ekf.Quaternion) float64 {
	dot := math.Abs(a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z)
	return 2 * math.Acos(math.Min(dot, 1))
}

// TrackingError is a Consumer measuring the angle between each estimate and
// the true attitude reported by Truth at the same step.
type TrackingError struct {
	Truth func() ekf.Quaternion
	Decay float64

	acc func(float64) (float64, float64, float64)

	N        float64 // Effective number of observations
	Mean     float64 // Weighted mean error, rad
	Variance float64 // Weighted error variance, rad²
	Max      float64 // Largest error seen, rad
}

// NewTrackingError compares estimates against truth, weighting past errors by decay.
func NewTrackingError(truth func() ekf.Quaternion, decay float64) *TrackingError {
	return &TrackingError{Truth: truth, Decay: decay}
}

func (e *TrackingError) Consume(s Snapshot) error {
	a := AngleBetween(s.Q, e.Truth())
	if e.acc == nil {
		e.acc = NewVarianceAccumulator(a, e.Decay)
		e.N, e.Mean = 1, a
	} else {
		e.N, e.Mean, e.Variance = e.acc(a)
	}
	e.Max = math.Max(e.Max, a)
	return nil
}
