/*
Package ekf implements an Extended Kalman filter estimating the orientation of
an IMU as a unit quaternion, from gyro rates and a partial (gravity-derived)
orientation measurement.

Q is the quaternion rotating the body frame to the reference frame.
W is the gyro rate vector in the body frame, rad/s.
Z is the measured direction of "up", body frame, scaled by MeasurementScale.

Equations of Motion (first-order Euler step, F = I + 0.5*Omega(W)*dt)
Q -> Q + 0.5*Omega(W)*Q*dt, then renormalized

Measurement Prediction
Z = H(Q)*Q, with H the Jacobian of the observation model
h(Q) = (2*(q1*q3-q0*q2), 2*(q0*q1+q2*q3), q0*q0-q1*q1-q2*q2+q3*q3)
*/
package ekf

import (
	"errors"
	"fmt"
	"math"
)

const (
	Pi  = math.Pi
	Deg = Pi / 180

	// DefaultSampleRate is the IMU sampling rate of the reference recordings, Hz.
	DefaultSampleRate = 144.0
	// DefaultProcessNoise is the per-step variance added to each quaternion component.
	DefaultProcessNoise = 1e-5
	// DefaultMeasurementNoise is the variance of each measurement component.
	DefaultMeasurementNoise = 1e-3
	// DefaultInitialCovariance is the initial variance of each quaternion component.
	DefaultInitialCovariance = 0.1

	// MeasurementScale relates the observation model to the innovation:
	// H(q)*q == MeasurementScale*h(q) since h is quadratic in q.
	MeasurementScale = 2.0

	// NormTolerance is the smallest quaternion norm that may be renormalized.
	NormTolerance = 1e-12
	// ConditionLimit is the largest acceptable condition number of the
	// innovation covariance before the gain is considered undefined.
	ConditionLimit = 1e12
)

// ErrNumerical is matched (errors.Is) by every *NumericalError.
var ErrNumerical = errors.New("ekf: numerical error")

// ErrInvalidConfig is wrapped by the errors returned from NewWithConfig.
var ErrInvalidConfig = errors.New("ekf: invalid config")

// NumericalError reports a predict or update step that could not produce a
// defined result. The estimator state is unchanged when it is returned.
type NumericalError struct {
	Op     string // "predict" or "update"
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("ekf: %s: %s", e.Op, e.Reason)
}

// Is lets errors.Is(err, ErrNumerical) match any NumericalError.
func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

// CovarianceForm selects how P is corrected after a measurement update.
type CovarianceForm int

const (
	// CovarianceStandard is P = (I-K*H)*P. Cheapest, but only approximately
	// preserves symmetry under rounding.
	CovarianceStandard CovarianceForm = iota
	// CovarianceJoseph is P = (I-K*H)*P*(I-K*H)' + K*R*K'.
	CovarianceJoseph
)

func (f CovarianceForm) String() string {
	switch f {
	case CovarianceStandard:
		return "standard"
	case CovarianceJoseph:
		return "joseph"
	}
	return fmt.Sprintf("CovarianceForm(%d)", int(f))
}

// Config holds the constants an Estimator is built from.
type Config struct {
	DT                float64        // Sampling interval, s
	ProcessNoise      float64        // Diagonal of Q
	MeasurementNoise  float64        // Diagonal of R
	InitialCovariance float64        // Diagonal of the initial P
	CovarianceForm    CovarianceForm // Update form for P
}

// DefaultConfig returns the configuration of the 144 Hz reference scenario.
func DefaultConfig() Config {
	return Config{
		DT:                1 / DefaultSampleRate,
		ProcessNoise:      DefaultProcessNoise,
		MeasurementNoise:  DefaultMeasurementNoise,
		InitialCovariance: DefaultInitialCovariance,
		CovarianceForm:    CovarianceStandard,
	}
}

// Validate checks that the configuration describes a usable filter.
func (c Config) Validate() error {
	finite := func(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
	switch {
	case !finite(c.DT) || c.DT <= 0:
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.DT)
	case !finite(c.ProcessNoise) || c.ProcessNoise < 0:
		return fmt.Errorf("%w: process noise must be non-negative, got %v", ErrInvalidConfig, c.ProcessNoise)
	case !finite(c.MeasurementNoise) || c.MeasurementNoise < 0:
		return fmt.Errorf("%w: measurement noise must be non-negative, got %v", ErrInvalidConfig, c.MeasurementNoise)
	case !finite(c.InitialCovariance) || c.InitialCovariance < 0:
		return fmt.Errorf("%w: initial covariance must be non-negative, got %v", ErrInvalidConfig, c.InitialCovariance)
	case c.CovarianceForm != CovarianceStandard && c.CovarianceForm != CovarianceJoseph:
		return fmt.Errorf("%w: unknown covariance form %v", ErrInvalidConfig, c.CovarianceForm)
	}
	return nil
}
