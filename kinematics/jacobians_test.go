package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestLiftTimesPlusIsIdentity(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		params := NewRandomTransformation(rnd, 3, math.Pi).Parameters()

		var product mat.Dense
		product.Mul(PoseLiftJacobian(params), PosePlusJacobian(params))
		for r := 0; r < 6; r++ {
			for c := 0; c < 6; c++ {
				want := 0.0
				if r == c {
					want = 1.0
				}
				test.That(t, product.At(r, c), test.ShouldAlmostEqual, want, 1e-12)
			}
		}
	}
}

func TestPlusJacobianMatchesFiniteDifference(t *testing.T) {
	rnd := rand.New(rand.NewSource(13))
	tf := NewRandomTransformation(rnd, 2, math.Pi)
	params := tf.Parameters()
	plus := PosePlusJacobian(params)

	const delta = 1e-7
	for k := 0; k < 6; k++ {
		step := make([]float64, 6)
		step[k] = delta
		perturbed := tf.Oplus(step).Parameters()
		for j := 0; j < 7; j++ {
			numeric := (perturbed[j] - params[j]) / delta
			test.That(t, plus.At(j, k), test.ShouldAlmostEqual, numeric, 1e-6)
		}
	}
}
