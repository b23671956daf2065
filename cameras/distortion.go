// Package cameras models the calibrated camera rig: pinhole projection,
// the supported lens distortion families, and body-frame extrinsics.
package cameras

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// RadialTangentialDistortionType is the plain Brown-Conrady model with two
	// radial and two tangential coefficients.
	RadialTangentialDistortionType = DistortionType("radial_tangential")
	// RadialTangential8DistortionType is the rational Brown-Conrady model with
	// six radial and two tangential coefficients.
	RadialTangential8DistortionType = DistortionType("radial_tangential8")
	// EquidistantDistortionType is the Kannala-Brandt model for wide-angle and
	// fisheye lenses.
	EquidistantDistortionType = DistortionType("equidistant")
)

// ErrUnsupportedDistortionModel is returned when a distortion model name is
// not one of the supported families.
var ErrUnsupportedDistortionModel = errors.New("unsupported distortion model")

var errInvalidDistortionParameters = errors.New("invalid distortion parameters")

// InvalidDistortionError is used when distortion parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errInvalidDistortionParameters, msg)
}

// Distorter maps between ideal and distorted normalized image coordinates
// according to a lens model.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	// Distort applies the forward model to an ideal point.
	Distort(x, y float64) (float64, float64)
	// Undistort inverts the model iteratively. The returned bool reports
	// whether the iteration converged; the point is returned either way.
	Undistort(x, y float64) (float64, float64, bool)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case RadialTangentialDistortionType:
		return NewRadialTangential(parameters)
	case RadialTangential8DistortionType:
		return NewRadialTangential8(parameters)
	case EquidistantDistortionType:
		return NewEquidistant(parameters)
	default:
		return nil, errors.Wrapf(ErrUnsupportedDistortionModel, "do not know how to parse %q", distortionType)
	}
}

// undistortMaxIterations and undistortTolerance bound the Newton-Raphson
// inversion shared by all models.
const (
	undistortMaxIterations = 20
	undistortTolerance     = 1e-10
)
