package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func randomUnitQuat(rnd *rand.Rand) quat.Number {
	q := quat.Number{
		Real: rnd.NormFloat64(),
		Imag: rnd.NormFloat64(),
		Jmag: rnd.NormFloat64(),
		Kmag: rnd.NormFloat64(),
	}
	return Normalize(q)
}

func quatCoeffs(q quat.Number) *mat.VecDense {
	return mat.NewVecDense(4, []float64{q.Imag, q.Jmag, q.Kmag, q.Real})
}

func TestPlusAndOplusMatrices(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		p := randomUnitQuat(rnd)
		q := randomUnitQuat(rnd)
		want := quatCoeffs(quat.Mul(p, q))

		var viaPlus mat.VecDense
		viaPlus.MulVec(PlusMatrix(p), quatCoeffs(q))
		var viaOplus mat.VecDense
		viaOplus.MulVec(OplusMatrix(q), quatCoeffs(p))

		for j := 0; j < 4; j++ {
			test.That(t, viaPlus.AtVec(j), test.ShouldAlmostEqual, want.AtVec(j), 1e-12)
			test.That(t, viaOplus.AtVec(j), test.ShouldAlmostEqual, want.AtVec(j), 1e-12)
		}
	}
}

func TestRotateMatchesRotationMatrix(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	q := randomUnitQuat(rnd)
	v := r3.Vector{X: 0.3, Y: -1.2, Z: 2.5}

	got := Rotate(q, v)
	c := RotationMatrix(q)
	test.That(t, got.X, test.ShouldAlmostEqual, c.At(0, 0)*v.X+c.At(0, 1)*v.Y+c.At(0, 2)*v.Z, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, c.At(1, 0)*v.X+c.At(1, 1)*v.Y+c.At(1, 2)*v.Z, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, c.At(2, 0)*v.X+c.At(2, 1)*v.Y+c.At(2, 2)*v.Z, 1e-12)
}

func TestRotationMatrixIsOrthonormal(t *testing.T) {
	rnd := rand.New(rand.NewSource(6))
	c := RotationMatrix(randomUnitQuat(rnd))

	var shouldBeIdentity mat.Dense
	shouldBeIdentity.Mul(c.T(), c)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, shouldBeIdentity.At(i, j), test.ShouldAlmostEqual, want, 1e-12)
		}
	}
	test.That(t, mat.Det(c), test.ShouldAlmostEqual, 1, 1e-12)
}

func TestSkew(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	u := r3.Vector{X: -0.5, Y: 0.25, Z: 4}
	want := v.Cross(u)

	var got mat.VecDense
	got.MulVec(Skew(v), mat.NewVecDense(3, []float64{u.X, u.Y, u.Z}))
	test.That(t, got.AtVec(0), test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, got.AtVec(1), test.ShouldAlmostEqual, want.Y, 1e-12)
	test.That(t, got.AtVec(2), test.ShouldAlmostEqual, want.Z, 1e-12)
}

func TestQuatExp(t *testing.T) {
	test.That(t, QuatExp(r3.Vector{}), test.ShouldResemble, quat.Number{Real: 1})

	angle := 0.7
	q := QuatExp(r3.Vector{Z: angle})
	test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, q.Real, test.ShouldAlmostEqual, math.Cos(angle/2), 1e-12)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, math.Sin(angle/2), 1e-12)

	// tiny angles stay unit norm through the series branch
	tiny := QuatExp(r3.Vector{X: 1e-9})
	test.That(t, quat.Abs(tiny), test.ShouldAlmostEqual, 1, 1e-15)
	test.That(t, tiny.Imag, test.ShouldAlmostEqual, 5e-10, 1e-15)
}
