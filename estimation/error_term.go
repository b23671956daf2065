package estimation

// ErrorTerm is the callback contract between a residual and the nonlinear
// least squares solver. The solver owns all buffers: parameters[i] holds the
// ambient parameters of block i, residuals receives Dimension values, and the
// optional jacobians[i] receives the Dimension x ambient-size Jacobian of
// block i in row major order. A nil jacobians slice, or a nil entry, skips
// that output. Evaluation must not retain or mutate solver buffers beyond the
// call and must be safe to invoke concurrently.
type ErrorTerm interface {
	// Dimension returns the number of residuals.
	Dimension() int
	// ParameterBlockSizes returns the ambient size of every parameter block.
	ParameterBlockSizes() []int
	// Evaluate computes residuals and, when requested, ambient Jacobians.
	Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) bool
	// EvaluateWithMinimalJacobians additionally exposes the tangent space
	// Jacobians. minimalJacobians[i], when requested alongside jacobians[i],
	// receives the Dimension x tangent-size block in row major order.
	EvaluateWithMinimalJacobians(parameters [][]float64, residuals []float64,
		jacobians [][]float64, minimalJacobians [][]float64) bool
}
