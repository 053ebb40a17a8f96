package ekf

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is an orientation, rotating the body frame to the reference frame.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the orientation with body and reference frames aligned.
var Identity = Quaternion{W: 1}

// Norm returns the Euclidean norm of the four components.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit norm, or false if q is too close to zero
// (or not finite) to be scaled.
func (q Quaternion) Normalized() (Quaternion, bool) {
	n := q.Norm()
	if !(n > NormTolerance) || math.IsInf(n, 0) {
		return Quaternion{}, false
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}, true
}

// Array returns the components in (w, x, y, z) order.
func (q Quaternion) Array() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

// Number converts q to a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// FromNumber converts a gonum quaternion.
func FromNumber(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Rotate expresses the body-frame vector v in the reference frame.
func (q Quaternion) Rotate(v [3]float64) [3]float64 {
	n := q.Number()
	p := quat.Mul(quat.Mul(n, quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}), quat.Conj(n))
	return [3]float64{p.Imag, p.Jmag, p.Kmag}
}

// RotationMatrix returns the matrix rotating body-frame vectors into the
// reference frame; q is assumed to be of unit norm.
func (q Quaternion) RotationMatrix() [3][3]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// FromRollPitchYaw calculates the quaternion corresponding to the Tait-Bryan
// (z-y'-x'') angles roll, pitch, yaw, in radians.
func FromRollPitchYaw(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// RollPitchYaw calculates the Tait-Bryan angles corresponding to q, in radians.
// Roll and yaw are in (-Pi, Pi], pitch in [-Pi/2, Pi/2].
func (q Quaternion) RollPitchYaw() (roll, pitch, yaw float64) {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	roll = math.Atan2(2*(w*x+y*z), w*w-x*x-y*y+z*z)
	sp := 2 * (w*y - z*x) / (w*w + x*x + y*y + z*z)
	pitch = math.Asin(math.Max(-1, math.Min(1, sp)))
	yaw = math.Atan2(2*(w*z+x*y), w*w+x*x-y*y-z*z)
	return
}

// omegaMatrix returns the 4x4 skew-symmetric operator Omega(w) such that
// dq/dt = 0.5*Omega(w)*q for body rates w.
func omegaMatrix(w [3]float64) [4][4]float64 {
	return [4][4]float64{
		{0, -w[0], -w[1], -w[2]},
		{w[0], 0, w[2], -w[1]},
		{w[1], -w[2], 0, w[0]},
		{w[2], w[1], -w[0], 0},
	}
}

// ObservationModel returns h(q), the "up" direction of the reference frame
// expressed in the body frame. MeasurementJacobian is its derivative.
func ObservationModel(q Quaternion) [3]float64 {
	return [3]float64{
		2 * (q.X*q.Z - q.W*q.Y),
		2 * (q.W*q.X + q.Y*q.Z),
		q.W*q.W - q.X*q.X - q.Y*q.Y + q.Z*q.Z,
	}
}

// MeasurementJacobian returns H, the 3x4 derivative of ObservationModel with
// respect to (w, x, y, z), evaluated at q.
func MeasurementJacobian(q Quaternion) [3][4]float64 {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	return [3][4]float64{
		{-2 * q2, +2 * q3, -2 * q0, +2 * q1}, // z0/q
		{+2 * q1, +2 * q0, +2 * q3, +2 * q2}, // z1/q
		{+2 * q0, -2 * q1, -2 * q2, +2 * q3}, // z2/q
	}
}
