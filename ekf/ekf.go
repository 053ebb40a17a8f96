package ekf

import (
	"math"

	"github.com/skelterjohn/go.matrix"
)

// Estimator holds the state of the orientation Kalman filter. It is not safe
// for concurrent use; track independent bodies with independent Estimators.
type Estimator struct {
	dt   float64
	p0   float64
	form CovarianceForm

	q Quaternion          // Orientation estimate, always of unit norm
	p *matrix.DenseMatrix // Covariance of orientation uncertainty, 4x4
	n *matrix.DenseMatrix // Process noise covariance per step, 4x4
	r *matrix.DenseMatrix // Measurement noise covariance, 3x3
}

// New returns an Estimator sampling every dt seconds, with process noise
// processNoise*I and measurement noise measurementNoise*I.
// The initial orientation is the identity, with covariance 0.1*I.
func New(dt, processNoise, measurementNoise float64) (*Estimator, error) {
	c := DefaultConfig()
	c.DT = dt
	c.ProcessNoise = processNoise
	c.MeasurementNoise = measurementNoise
	return NewWithConfig(c)
}

// NewWithConfig returns an Estimator built from c.
func NewWithConfig(c Config) (*Estimator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &Estimator{
		dt:   c.DT,
		p0:   c.InitialCovariance,
		form: c.CovarianceForm,
		n:    matrix.Scaled(matrix.Eye(4), c.ProcessNoise),
		r:    matrix.Scaled(matrix.Eye(3), c.MeasurementNoise),
	}
	s.Reset()
	return s, nil
}

// Reset returns the estimate to the identity orientation and the initial covariance.
func (s *Estimator) Reset() {
	s.q = Identity
	s.p = matrix.Scaled(matrix.Eye(4), s.p0)
}

// DT returns the sampling interval, s.
func (s *Estimator) DT() float64 {
	return s.dt
}

// Orientation returns a snapshot of the current orientation estimate.
func (s *Estimator) Orientation() Quaternion {
	return s.q
}

// Covariance returns a copy of the current error covariance P.
func (s *Estimator) Covariance() [4][4]float64 {
	return toArray4(s.p)
}

// Trace returns the trace of P.
func (s *Estimator) Trace() float64 {
	return trace(s.p)
}

// SymmetryError returns the largest asymmetry |P[i][j]-P[j][i]|.
func (s *Estimator) SymmetryError() float64 {
	return symmetryError(s.p)
}

// PredictMeasurement returns the measurement expected at the current state, H*q.
func (s *Estimator) PredictMeasurement() (z [3]float64) {
	hq := matrix.Product(jacobianDense(s.q), quaternionColumn(s.q))
	for i := range z {
		z[i] = hq.Get(i, 0)
	}
	return
}

// Predict performs the prediction phase of the Kalman filter, integrating the
// gyro rates w (rad/s, body frame) over one sampling interval.
func (s *Estimator) Predict(w [3]float64) error {
	omega := omegaDense(w)
	e := quaternionColumn(s.q)

	// First-order Euler step, not the exponential map.
	de := matrix.Scaled(matrix.Product(omega, e), 0.5*s.dt)
	q, ok := toQuaternion(matrix.Sum(e, de))
	if !ok {
		return &NumericalError{Op: "predict", Reason: "quaternion norm not finite or zero"}
	}

	f := matrix.Sum(matrix.Eye(4), matrix.Scaled(omega, 0.5*s.dt))
	p := matrix.Sum(matrix.Product(f, matrix.Product(s.p, f.Transpose())), s.n)

	s.q, s.p = q, p
	return nil
}

// Update applies the Kalman filter correction for the measurement z.
// On error the state is left untouched.
func (s *Estimator) Update(z [3]float64) error {
	e := quaternionColumn(s.q)
	h := jacobianDense(s.q)
	ht := h.Transpose()

	ss := matrix.Sum(matrix.Product(h, matrix.Product(s.p, ht)), s.r)
	ssInv, err := invertInnovation(ss)
	if err != nil {
		return err
	}
	kk := matrix.Product(s.p, matrix.Product(ht, ssInv))

	y := matrix.Difference(column(z[:]), matrix.Product(h, e))
	q, ok := toQuaternion(matrix.Sum(e, matrix.Product(kk, y)))
	if !ok {
		return &NumericalError{Op: "update", Reason: "corrected quaternion is degenerate"}
	}

	ikh := matrix.Difference(matrix.Eye(4), matrix.Product(kk, h))
	var p *matrix.DenseMatrix
	switch s.form {
	case CovarianceJoseph:
		p = matrix.Sum(
			matrix.Product(ikh, matrix.Product(s.p, ikh.Transpose())),
			matrix.Product(kk, matrix.Product(s.r, kk.Transpose())),
		)
	default:
		p = matrix.Product(ikh, s.p)
	}

	s.q, s.p = q, p
	return nil
}

// AngleUncertainty returns the first-order standard deviations of roll, pitch
// and yaw (radians) implied by the current covariance.
func (s *Estimator) AngleUncertainty() (droll, dpitch, dyaw float64) {
	const d = 1e-7
	base := s.q.Array()
	r0, p0, y0 := s.q.RollPitchYaw()

	var jac [3][4]float64
	for i := 0; i < 4; i++ {
		a := base
		a[i] += d
		r, p, y := Quaternion{a[0], a[1], a[2], a[3]}.RollPitchYaw()
		jac[0][i] = wrapAngle(r-r0) / d
		jac[1][i] = (p - p0) / d
		jac[2][i] = wrapAngle(y-y0) / d
	}

	var v [3]float64
	for k := 0; k < 3; k++ {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				v[k] += jac[k][i] * s.p.Get(i, j) * jac[k][j]
			}
		}
	}
	return math.Sqrt(math.Max(v[0], 0)), math.Sqrt(math.Max(v[1], 0)), math.Sqrt(math.Max(v[2], 0))
}

func wrapAngle(a float64) float64 {
	for a > Pi {
		a -= 2 * Pi
	}
	for a <= -Pi {
		a += 2 * Pi
	}
	return a
}
