package estimation

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// PoseError is a prior anchoring a single pose T_WS to a measured value. It
// shares the 6-dof error convention of RelativePoseError with the translation
// part expressed in the world frame.
type PoseError struct {
	informationBlock
	tWS kinematics.Transformation
}

var _ = ErrorTerm(&PoseError{})

// NewPoseError builds the prior from a measured pose and its 6x6 information
// matrix. A matrix that is not positive definite fails with
// ErrNotPositiveDefinite.
func NewPoseError(information *mat.SymDense, tWS kinematics.Transformation) (*PoseError, error) {
	e := &PoseError{tWS: tWS}
	if err := e.SetInformation(information); err != nil {
		return nil, err
	}
	return e, nil
}

// NewPoseErrorFromVariances builds the prior from independent translation and
// rotation variances.
func NewPoseErrorFromVariances(translationVariance, rotationVariance float64,
	tWS kinematics.Transformation,
) (*PoseError, error) {
	information, err := varianceInformation(translationVariance, rotationVariance)
	if err != nil {
		return nil, err
	}
	return NewPoseError(information, tWS)
}

// Measurement returns the measured pose T_WS.
func (e *PoseError) Measurement() kinematics.Transformation {
	return e.tWS
}

// Dimension returns the number of residuals.
func (e *PoseError) Dimension() int {
	return 6
}

// ParameterBlockSizes returns the ambient size of the single pose block.
func (e *PoseError) ParameterBlockSizes() []int {
	return []int{kinematics.TransformationParameterDim}
}

// Evaluate computes residuals and, when requested, the ambient Jacobian.
func (e *PoseError) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) bool {
	return e.EvaluateWithMinimalJacobians(parameters, residuals, jacobians, nil)
}

// EvaluateWithMinimalJacobians computes residuals plus ambient and tangent
// space Jacobians. parameters[0] is T_WS.
func (e *PoseError) EvaluateWithMinimalJacobians(parameters [][]float64, residuals []float64,
	jacobians [][]float64, minimalJacobians [][]float64,
) bool {
	tWS := kinematics.NewTransformationFromParameters(parameters[0])

	errVec := mat.NewVecDense(6, nil)
	dr := e.tWS.R().Sub(tWS.R())
	errVec.SetVec(0, dr.X)
	errVec.SetVec(1, dr.Y)
	errVec.SetVec(2, dr.Z)
	dq := quat.Mul(e.tWS.Q(), quat.Conj(tWS.Q()))
	errVec.SetVec(3, 2*dq.Imag)
	errVec.SetVec(4, 2*dq.Jmag)
	errVec.SetVec(5, 2*dq.Kmag)

	e.whitenResiduals(errVec, residuals)

	if jacobians == nil || jacobians[0] == nil {
		return true
	}

	j0 := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		j0.Set(i, i, -1)
	}
	plusDq := kinematics.PlusMatrix(dq)
	var negRot mat.Dense
	negRot.Scale(-1, plusDq.Slice(0, 3, 0, 3))
	setBlock(j0, 3, 3, &negRot)

	e.whitenAndLift(j0, parameters[0], jacobians[0], minimalAt(minimalJacobians, 0))
	return true
}
