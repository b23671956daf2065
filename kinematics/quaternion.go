package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Normalize returns q scaled to unit norm.
func Normalize(q quat.Number) quat.Number {
	return quat.Scale(1/quat.Abs(q), q)
}

// Rotate rotates v by the unit quaternion q.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotationMatrix returns the 3x3 rotation matrix of the unit quaternion q.
func RotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// PlusMatrix returns the 4x4 left multiplication matrix of p: for any q,
// the coefficient vector of p*q equals PlusMatrix(p) times the coefficient
// vector of q, in x, y, z, w order.
func PlusMatrix(p quat.Number) *mat.Dense {
	w, x, y, z := p.Real, p.Imag, p.Jmag, p.Kmag
	return mat.NewDense(4, 4, []float64{
		w, -z, y, x,
		z, w, -x, y,
		-y, x, w, z,
		-x, -y, -z, w,
	})
}

// OplusMatrix returns the 4x4 right multiplication matrix of q: for any p,
// the coefficient vector of p*q equals OplusMatrix(q) times the coefficient
// vector of p, in x, y, z, w order.
func OplusMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(4, 4, []float64{
		w, z, -y, x,
		-z, w, x, y,
		y, -x, w, z,
		-x, -y, -z, w,
	})
}

// Skew returns the 3x3 cross product matrix of v, so Skew(v) * u = v x u.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// QuatExp returns the unit quaternion rotating by |aa| radians about the axis
// aa. Small angles are handled with a series expansion of sinc.
func QuatExp(aa r3.Vector) quat.Number {
	halfAngle := 0.5 * aa.Norm()
	s := 0.5 * sinc(halfAngle)
	return quat.Number{
		Real: math.Cos(halfAngle),
		Imag: s * aa.X,
		Jmag: s * aa.Y,
		Kmag: s * aa.Z,
	}
}

// sinc is sin(x)/x, continued through zero.
func sinc(x float64) float64 {
	if math.Abs(x) > 1e-6 {
		return math.Sin(x) / x
	}
	return 1 - x*x/6
}
