// Package kinematics provides rigid body transformations and the quaternion
// algebra the estimator is built on. Rotations are unit quaternions in gonum's
// quat.Number convention (Real is the scalar part); parameter slices use the
// coefficient order x, y, z, w.
package kinematics

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// TransformationParameterDim is the length of a transformation parameter slice:
// three for translation followed by four quaternion coefficients.
const TransformationParameterDim = 7

// Transformation is a rigid body transform T_AB, composed of a translation
// r_AB (the origin of frame B expressed in frame A) and a unit quaternion q_AB
// rotating vectors from frame B into frame A.
type Transformation struct {
	r r3.Vector
	q quat.Number
}

// NewTransformation returns the identity transformation.
func NewTransformation() Transformation {
	return Transformation{q: quat.Number{Real: 1}}
}

// NewTransformationFromRQ builds a transformation from a translation and a
// quaternion. The quaternion is normalized.
func NewTransformationFromRQ(r r3.Vector, q quat.Number) Transformation {
	return Transformation{r: r, q: Normalize(q)}
}

// NewTransformationFromParameters builds a transformation from a 7-parameter
// slice laid out as [x y z qx qy qz qw]. The quaternion part is normalized.
func NewTransformationFromParameters(p []float64) Transformation {
	return Transformation{
		r: r3.Vector{X: p[0], Y: p[1], Z: p[2]},
		q: Normalize(quat.Number{Real: p[6], Imag: p[3], Jmag: p[4], Kmag: p[5]}),
	}
}

// NewRandomTransformation samples a transformation with translation uniform in
// [-maxTranslation, maxTranslation] per axis and a rotation of at most
// maxRotation radians about a uniformly random axis. Intended for tests.
func NewRandomTransformation(rnd *rand.Rand, maxTranslation, maxRotation float64) Transformation {
	r := r3.Vector{
		X: (2*rnd.Float64() - 1) * maxTranslation,
		Y: (2*rnd.Float64() - 1) * maxTranslation,
		Z: (2*rnd.Float64() - 1) * maxTranslation,
	}
	axis := r3.Vector{
		X: 2*rnd.Float64() - 1,
		Y: 2*rnd.Float64() - 1,
		Z: 2*rnd.Float64() - 1,
	}
	if axis.Norm() < 1e-12 {
		axis = r3.Vector{X: 1}
	}
	angle := rnd.Float64() * maxRotation
	return Transformation{r: r, q: QuatExp(axis.Normalize().Mul(angle))}
}

// R returns the translation part.
func (t Transformation) R() r3.Vector {
	return t.r
}

// Q returns the unit quaternion part.
func (t Transformation) Q() quat.Number {
	return t.q
}

// C returns the 3x3 rotation matrix of the quaternion part.
func (t Transformation) C() *mat.Dense {
	return RotationMatrix(t.q)
}

// Parameters returns the transform as a 7-parameter slice [x y z qx qy qz qw].
func (t Transformation) Parameters() []float64 {
	return []float64{t.r.X, t.r.Y, t.r.Z, t.q.Imag, t.q.Jmag, t.q.Kmag, t.q.Real}
}

// Inverse returns T_BA given T_AB.
func (t Transformation) Inverse() Transformation {
	qInv := quat.Conj(t.q)
	return Transformation{r: Rotate(qInv, t.r).Mul(-1), q: qInv}
}

// Mul composes two transformations, T_AC = T_AB * T_BC.
func (t Transformation) Mul(other Transformation) Transformation {
	return Transformation{
		r: t.r.Add(Rotate(t.q, other.r)),
		q: Normalize(quat.Mul(t.q, other.q)),
	}
}

// Oplus applies a 6-dof tangent space perturbation [dr dalpha]: the
// translation moves by dr and the rotation is left-multiplied by the
// exponential of dalpha.
func (t Transformation) Oplus(delta []float64) Transformation {
	dq := QuatExp(r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]})
	return Transformation{
		r: t.r.Add(r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}),
		q: Normalize(quat.Mul(dq, t.q)),
	}
}

// AlmostEqual reports whether two transformations agree within tol on every
// parameter, treating q and -q as the same rotation.
func AlmostEqual(a, b Transformation, tol float64) bool {
	if math.Abs(a.r.X-b.r.X) > tol || math.Abs(a.r.Y-b.r.Y) > tol || math.Abs(a.r.Z-b.r.Z) > tol {
		return false
	}
	qa, qb := a.q, b.q
	if qa.Real*qb.Real+qa.Imag*qb.Imag+qa.Jmag*qb.Jmag+qa.Kmag*qb.Kmag < 0 {
		qb = quat.Scale(-1, qb)
	}
	return math.Abs(qa.Real-qb.Real) <= tol &&
		math.Abs(qa.Imag-qb.Imag) <= tol &&
		math.Abs(qa.Jmag-qb.Jmag) <= tol &&
		math.Abs(qa.Kmag-qb.Kmag) <= tol
}
