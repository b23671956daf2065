// Package estimation provides the residual terms evaluated by the nonlinear
// least squares solver and the pose/landmark graph they constrain. Poses enter
// evaluation as 7-parameter ambient blocks [x y z qx qy qz qw]; Jacobians are
// produced in the 6-dof tangent space and lifted onto the ambient parameters.
package estimation

import "github.com/pkg/errors"

// ErrNotPositiveDefinite is returned when an information matrix cannot be
// Cholesky factorized. Residual weighting would be meaningless, so the error
// term refuses construction instead of carrying on.
var ErrNotPositiveDefinite = errors.New("matrix is not positive definite")
