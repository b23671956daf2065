package estimation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// informationBlock carries the weighting state shared by the pose error
// terms: the 6x6 information matrix, its inverse, and the upper Cholesky
// factor whitening residuals and Jacobians. The matrices are never written
// during evaluation, which keeps concurrent evaluation safe.
type informationBlock struct {
	information     *mat.SymDense
	covariance      *mat.SymDense
	sqrtInformation *mat.TriDense
}

// SetInformation stores the 6x6 information matrix along with its inverse and
// upper Cholesky factor. A matrix that is not positive definite fails with
// ErrNotPositiveDefinite and leaves the previous state in place.
func (ib *informationBlock) SetInformation(information *mat.SymDense) error {
	if r, _ := information.Dims(); r != 6 {
		return errors.Errorf("information matrix must be 6x6, got %dx%d", r, r)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(information); !ok {
		return errors.Wrap(ErrNotPositiveDefinite, "cannot factorize information matrix")
	}
	covariance := mat.NewSymDense(6, nil)
	if err := chol.InverseTo(covariance); err != nil {
		return errors.Wrap(err, "cannot invert information matrix")
	}
	sqrtInformation := mat.NewTriDense(6, mat.Upper, nil)
	chol.UTo(sqrtInformation)

	stored := mat.NewSymDense(6, nil)
	stored.CopySym(information)
	ib.information = stored
	ib.covariance = covariance
	ib.sqrtInformation = sqrtInformation
	return nil
}

// Information returns the information matrix. Callers must treat it as read only.
func (ib *informationBlock) Information() *mat.SymDense {
	return ib.information
}

// Covariance returns the inverse of the information matrix. Read only.
func (ib *informationBlock) Covariance() *mat.SymDense {
	return ib.covariance
}

// SquareRootInformation returns the upper triangular factor U with
// U^T * U equal to the information matrix. Read only.
func (ib *informationBlock) SquareRootInformation() *mat.TriDense {
	return ib.sqrtInformation
}

// whitenResiduals writes the square root information times the error vector
// into the solver's residual buffer.
func (ib *informationBlock) whitenResiduals(errVec *mat.VecDense, residuals []float64) {
	weighted := mat.NewVecDense(6, residuals)
	weighted.MulVec(ib.sqrtInformation, errVec)
}

// whitenAndLift applies the square root information to a minimal Jacobian and
// writes the requested outputs into the solver's row major buffers, lifting
// onto the ambient pose parameters for the full Jacobian.
func (ib *informationBlock) whitenAndLift(jMinimal *mat.Dense, poseParams, fullDst, minimalDst []float64) {
	var whitened mat.Dense
	whitened.Mul(ib.sqrtInformation, jMinimal)
	if fullDst != nil {
		full := mat.NewDense(6, 7, fullDst)
		full.Mul(&whitened, kinematics.PoseLiftJacobian(poseParams))
	}
	if minimalDst != nil {
		mat.NewDense(6, 6, minimalDst).Copy(&whitened)
	}
}

// varianceInformation builds the block diagonal information matrix of
// independent translation and rotation variances.
func varianceInformation(translationVariance, rotationVariance float64) (*mat.SymDense, error) {
	if translationVariance <= 0 || rotationVariance <= 0 {
		return nil, errors.Errorf("variances must be positive, got %v and %v",
			translationVariance, rotationVariance)
	}
	information := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		information.SetSym(i, i, 1/translationVariance)
		information.SetSym(i+3, i+3, 1/rotationVariance)
	}
	return information, nil
}

// setBlock copies src into dst starting at (row, col).
func setBlock(dst *mat.Dense, row, col int, src mat.Matrix) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(row+i, col+j, src.At(i, j))
		}
	}
}
