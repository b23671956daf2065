package kinematics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// PoseLiftJacobian maps gradients on the 7-parameter ambient pose
// representation down to the 6-dof tangent space. Given the parameters
// [x y z qx qy qz qw] of a pose it returns the 6x7 matrix with identity in the
// translation block and twice the top three rows of OplusMatrix of the inverse
// quaternion in the rotation block. It is the pseudo inverse of
// PosePlusJacobian evaluated at the same pose.
func PoseLiftJacobian(params []float64) *mat.Dense {
	q := Normalize(quat.Number{Real: params[6], Imag: params[3], Jmag: params[4], Kmag: params[5]})
	qInv := quat.Conj(q)
	oplus := OplusMatrix(qInv)

	lift := mat.NewDense(6, 7, nil)
	for i := 0; i < 3; i++ {
		lift.Set(i, i, 1)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			lift.Set(3+i, 3+j, 2*oplus.At(i, j))
		}
	}
	return lift
}

// PosePlusJacobian is the 7x6 Jacobian of the boxplus operation with respect
// to the tangent space perturbation, evaluated at delta zero: identity in the
// translation block and half the first three columns of OplusMatrix of the
// quaternion in the rotation block.
func PosePlusJacobian(params []float64) *mat.Dense {
	q := Normalize(quat.Number{Real: params[6], Imag: params[3], Jmag: params[4], Kmag: params[5]})
	oplus := OplusMatrix(q)

	plus := mat.NewDense(7, 6, nil)
	for i := 0; i < 3; i++ {
		plus.Set(i, i, 1)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			plus.Set(3+i, 3+j, 0.5*oplus.At(i, j))
		}
	}
	return plus
}
