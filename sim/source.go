/*
Package sim feeds an ekf.Estimator from a stream of samples and hands each
resulting orientation to a set of consumers.

Samples come from a Source: a recorded CSV file, a synthetic rotation with
known truth, or any other Source wrapped by PlaceholderSource to replace its
measurements with a constant one.
*/
package sim

import (
	"math"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

// Sample is one IMU reading: body rates for the predict step and, when
// HasZ is set, a measurement for the update step.
type Sample struct {
	T     float64    // Time stamp, s
	Omega [3]float64 // Angular rate, rad/s, body frame
	Z     [3]float64 // Measurement, in the units of ekf.Estimator.PredictMeasurement
	HasZ  bool
}

// Source provides samples in time order. Next returns io.EOF once the stream
// is exhausted.
type Source interface {
	Next() (Sample, error)
}

// AccelMeasurement converts an accelerometer reading (specific force, any
// units) into a measurement for the estimator. At rest the specific force
// points up, so the normalized reading is the body-frame "up" direction,
// scaled to match H*q. It returns false if a is too small to normalize.
func AccelMeasurement(a [3]float64) (z [3]float64, ok bool) {
	n := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	if !(n > ekf.NormTolerance) || math.IsInf(n, 0) {
		return z, false
	}
	for i := range a {
		z[i] = ekf.MeasurementScale * a[i] / n
	}
	return z, true
}

// PlaceholderSource replaces the measurement of every sample of Source with Z.
type PlaceholderSource struct {
	Source Source
	Z      [3]float64
}

// ReferenceMeasurement is the constant measurement of the reference scenario.
var ReferenceMeasurement = [3]float64{0.99, 0.01, 0.02}

// NewPlaceholderSource wraps s so that every sample carries the measurement z.
func NewPlaceholderSource(s Source, z [3]float64) *PlaceholderSource {
	return &PlaceholderSource{Source: s, Z: z}
}

func (p *PlaceholderSource) Next() (Sample, error) {
	s, err := p.Source.Next()
	if err != nil {
		return s, err
	}
	s.Z, s.HasZ = p.Z, true
	return s, nil
}
