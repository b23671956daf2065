package estimation

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// RelativePoseError constrains the relative transform between two poses T_WA
// and T_WB against a measured T_AB. The translation part of the error lives
// in frame A; the rotation part is twice the vector part of the quaternion
// mismatch.
type RelativePoseError struct {
	informationBlock
	tAB kinematics.Transformation
}

var _ = ErrorTerm(&RelativePoseError{})

// NewRelativePoseError builds the term from a measured relative pose and its
// 6x6 information matrix. A matrix that is not positive definite fails with
// ErrNotPositiveDefinite.
func NewRelativePoseError(information *mat.SymDense, tAB kinematics.Transformation) (*RelativePoseError, error) {
	e := &RelativePoseError{tAB: tAB}
	if err := e.SetInformation(information); err != nil {
		return nil, err
	}
	return e, nil
}

// NewRelativePoseErrorFromVariances builds the term from independent
// translation and rotation variances.
func NewRelativePoseErrorFromVariances(translationVariance, rotationVariance float64,
	tAB kinematics.Transformation,
) (*RelativePoseError, error) {
	information, err := varianceInformation(translationVariance, rotationVariance)
	if err != nil {
		return nil, err
	}
	return NewRelativePoseError(information, tAB)
}

// Measurement returns the measured relative pose T_AB.
func (e *RelativePoseError) Measurement() kinematics.Transformation {
	return e.tAB
}

// Dimension returns the number of residuals.
func (e *RelativePoseError) Dimension() int {
	return 6
}

// ParameterBlockSizes returns the ambient size of the two pose blocks.
func (e *RelativePoseError) ParameterBlockSizes() []int {
	return []int{kinematics.TransformationParameterDim, kinematics.TransformationParameterDim}
}

// Evaluate computes residuals and, when requested, ambient Jacobians.
func (e *RelativePoseError) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) bool {
	return e.EvaluateWithMinimalJacobians(parameters, residuals, jacobians, nil)
}

// EvaluateWithMinimalJacobians computes residuals plus ambient and tangent
// space Jacobians. parameters[0] is T_WA, parameters[1] is T_WB.
func (e *RelativePoseError) EvaluateWithMinimalJacobians(parameters [][]float64, residuals []float64,
	jacobians [][]float64, minimalJacobians [][]float64,
) bool {
	tWA := kinematics.NewTransformationFromParameters(parameters[0])
	tWB := kinematics.NewTransformationFromParameters(parameters[1])
	tAB := tWA.Inverse().Mul(tWB)

	errVec := mat.NewVecDense(6, nil)
	dr := e.tAB.R().Sub(tAB.R())
	errVec.SetVec(0, dr.X)
	errVec.SetVec(1, dr.Y)
	errVec.SetVec(2, dr.Z)
	dq := quat.Mul(e.tAB.Q(), quat.Conj(tAB.Q()))
	errVec.SetVec(3, 2*dq.Imag)
	errVec.SetVec(4, 2*dq.Jmag)
	errVec.SetVec(5, 2*dq.Kmag)

	e.whitenResiduals(errVec, residuals)

	if jacobians == nil {
		return true
	}

	tAW := tWA.Inverse()
	tBW := tWB.Inverse()
	cAW := tAW.C()

	// rotation block shared by both poses, with opposite signs:
	// the top left 3x3 of plus(q_AB_measured * q_BW) * oplus(q_WA)
	var rot mat.Dense
	rot.Mul(kinematics.PlusMatrix(quat.Mul(e.tAB.Q(), tBW.Q())), kinematics.OplusMatrix(tWA.Q()))
	rotBlock := rot.Slice(0, 3, 0, 3)

	if jacobians[0] != nil {
		j0 := mat.NewDense(6, 6, nil)
		setBlock(j0, 0, 0, cAW)
		var translationCross mat.Dense
		translationCross.Mul(cAW, kinematics.Skew(tWB.R().Sub(tWA.R())))
		translationCross.Scale(-1, &translationCross)
		setBlock(j0, 0, 3, &translationCross)
		setBlock(j0, 3, 3, rotBlock)

		e.whitenAndLift(j0, parameters[0], jacobians[0], minimalAt(minimalJacobians, 0))
	}
	if jacobians[1] != nil {
		j1 := mat.NewDense(6, 6, nil)
		var negCAW mat.Dense
		negCAW.Scale(-1, cAW)
		setBlock(j1, 0, 0, &negCAW)
		var negRot mat.Dense
		negRot.Scale(-1, rotBlock)
		setBlock(j1, 3, 3, &negRot)

		e.whitenAndLift(j1, parameters[1], jacobians[1], minimalAt(minimalJacobians, 1))
	}
	return true
}

// minimalAt fetches the i-th minimal Jacobian buffer, tolerating a nil slice.
func minimalAt(minimalJacobians [][]float64, i int) []float64 {
	if minimalJacobians == nil {
		return nil
	}
	return minimalJacobians[i]
}
