package ekf

// Conversions between the fixed-size arrays of the public API and the dense
// matrices used internally, plus the numerical guards on them.

import (
	"math"

	"github.com/skelterjohn/go.matrix"
	"gonum.org/v1/gonum/mat"
)

func column(v []float64) *matrix.DenseMatrix {
	x := matrix.Zeros(len(v), 1)
	for i, vi := range v {
		x.Set(i, 0, vi)
	}
	return x
}

func fromRows(rows ...[]float64) *matrix.DenseMatrix {
	x := matrix.Zeros(len(rows), len(rows[0]))
	for i, r := range rows {
		for j, v := range r {
			x.Set(i, j, v)
		}
	}
	return x
}

func quaternionColumn(q Quaternion) *matrix.DenseMatrix {
	a := q.Array()
	return column(a[:])
}

func omegaDense(w [3]float64) *matrix.DenseMatrix {
	o := omegaMatrix(w)
	return fromRows(o[0][:], o[1][:], o[2][:], o[3][:])
}

func jacobianDense(q Quaternion) *matrix.DenseMatrix {
	h := MeasurementJacobian(q)
	return fromRows(h[0][:], h[1][:], h[2][:])
}

// toQuaternion reads a 4x1 column and renormalizes it.
func toQuaternion(x *matrix.DenseMatrix) (Quaternion, bool) {
	return Quaternion{x.Get(0, 0), x.Get(1, 0), x.Get(2, 0), x.Get(3, 0)}.Normalized()
}

func toArray4(m *matrix.DenseMatrix) (a [4][4]float64) {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = m.Get(i, j)
		}
	}
	return
}

func toGonum(m *matrix.DenseMatrix) *mat.Dense {
	r, c := m.GetSize()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, m.Get(i, j))
		}
	}
	return d
}

// conditionNumber returns the 2-norm condition number of m; NaN or +Inf
// for a singular matrix.
func conditionNumber(m *matrix.DenseMatrix) float64 {
	return mat.Cond(toGonum(m), 2)
}

// invertInnovation inverts the innovation covariance, refusing matrices
// that are singular, ill-conditioned or not finite.
func invertInnovation(ss *matrix.DenseMatrix) (*matrix.DenseMatrix, error) {
	r, c := ss.GetSize()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := ss.Get(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &NumericalError{Op: "update", Reason: "innovation covariance is not finite"}
			}
		}
	}
	if k := conditionNumber(ss); !(k < ConditionLimit) {
		return nil, &NumericalError{Op: "update", Reason: "innovation covariance is singular or ill-conditioned"}
	}
	inv, err := ss.Inverse()
	if err != nil {
		return nil, &NumericalError{Op: "update", Reason: "can't invert innovation covariance: " + err.Error()}
	}
	return inv, nil
}

func trace(m *matrix.DenseMatrix) (t float64) {
	r, _ := m.GetSize()
	for i := 0; i < r; i++ {
		t += m.Get(i, i)
	}
	return
}

// symmetryError is the largest |m[i][j]-m[j][i]|.
func symmetryError(m *matrix.DenseMatrix) (e float64) {
	r, _ := m.GetSize()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			e = math.Max(e, math.Abs(m.Get(i, j)-m.Get(j, i)))
		}
	}
	return
}
