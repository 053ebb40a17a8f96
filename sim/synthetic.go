package sim

import (
	"io"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

// SyntheticConfig defines a rotation at constant body rate.
type SyntheticConfig struct {
	DT          float64        // Sampling interval, s
	Samples     int            // Number of samples before io.EOF
	Rate        [3]float64     // Body rate, rad/s
	Initial     ekf.Quaternion // Initial attitude; zero means ekf.Identity
	Noise       float64        // Std dev of the noise added to rates and measurements
	UpdateEvery int            // Measure every this many samples; zero means every sample
	Seed        int64
}

// SyntheticSource synthesizes gyro rates and measurements for a body
// rotating at a constant rate, and keeps the true attitude for comparison.
type SyntheticSource struct {
	c     SyntheticConfig
	rng   *rand.Rand
	step  quat.Number // Exact rotation over one interval, body frame
	truth ekf.Quaternion
	i     int
}

// NewSyntheticSource validates c and returns a source for it. The same
// configuration always produces the same samples.
func NewSyntheticSource(c SyntheticConfig) (*SyntheticSource, error) {
	switch {
	case !(c.DT > 0) || math.IsInf(c.DT, 0):
		return nil, errors.Errorf("sim: synthetic dt must be positive, got %v", c.DT)
	case c.Samples < 0:
		return nil, errors.Errorf("sim: synthetic sample count must be non-negative, got %d", c.Samples)
	case !(c.Noise >= 0):
		return nil, errors.Errorf("sim: synthetic noise must be non-negative, got %v", c.Noise)
	case c.UpdateEvery < 0:
		return nil, errors.Errorf("sim: synthetic update interval must be non-negative, got %d", c.UpdateEvery)
	}
	if c.UpdateEvery == 0 {
		c.UpdateEvery = 1
	}
	if c.Initial == (ekf.Quaternion{}) {
		c.Initial = ekf.Identity
	}
	q0, ok := c.Initial.Normalized()
	if !ok {
		return nil, errors.New("sim: synthetic initial attitude is degenerate")
	}

	// dq/dt = q*(0, w)/2, so one interval of constant rate is q*exp((0, w)*dt/2).
	half := quat.Number{Imag: c.Rate[0] * c.DT / 2, Jmag: c.Rate[1] * c.DT / 2, Kmag: c.Rate[2] * c.DT / 2}

	return &SyntheticSource{
		c:     c,
		rng:   rand.New(rand.NewSource(c.Seed)),
		step:  quat.Exp(half),
		truth: q0,
	}, nil
}

// Next advances the true attitude by one interval and returns the sample
// that drives the estimator across it.
func (s *SyntheticSource) Next() (Sample, error) {
	if s.i >= s.c.Samples {
		return Sample{}, io.EOF
	}
	smp := Sample{T: float64(s.i) * s.c.DT}
	for k := range smp.Omega {
		smp.Omega[k] = s.c.Rate[k] + s.noise()
	}

	s.truth, _ = ekf.FromNumber(quat.Mul(s.truth.Number(), s.step)).Normalized()
	s.i++

	if s.i%s.c.UpdateEvery == 0 {
		z := ekf.ObservationModel(s.truth)
		for k := range z {
			smp.Z[k] = ekf.MeasurementScale*z[k] + s.noise()
		}
		smp.HasZ = true
	}
	return smp, nil
}

func (s *SyntheticSource) noise() float64 {
	if s.c.Noise == 0 {
		return 0
	}
	return s.c.Noise * s.rng.NormFloat64()
}

// Truth returns the true attitude after the last sample returned by Next.
func (s *SyntheticSource) Truth() ekf.Quaternion {
	return s.truth
}
