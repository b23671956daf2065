package cameras

import (
	"github.com/pkg/errors"

	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// Rig is an ordered set of cameras rigidly attached to the sensor body, each
// with its camera-to-body extrinsics T_SC.
type Rig struct {
	cameras    []CameraModel
	extrinsics []kinematics.Transformation
}

// NewRig validates the camera models and pairs them with their extrinsics.
func NewRig(models []CameraModel, extrinsics []kinematics.Transformation) (*Rig, error) {
	if len(models) == 0 {
		return nil, errors.New("rig needs at least one camera")
	}
	if len(models) != len(extrinsics) {
		return nil, errors.Errorf("got %d cameras but %d extrinsics", len(models), len(extrinsics))
	}
	for i := range models {
		if err := models[i].CheckValid(); err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
	}
	return &Rig{cameras: models, extrinsics: extrinsics}, nil
}

// NumCameras returns the number of cameras in the rig.
func (r *Rig) NumCameras() int {
	return len(r.cameras)
}

// Camera returns the camera model at index i.
func (r *Rig) Camera(i int) *CameraModel {
	return &r.cameras[i]
}

// TSC returns the camera-to-body transformation of camera i.
func (r *Rig) TSC(i int) kinematics.Transformation {
	return r.extrinsics[i]
}

// DistortionType returns the distortion family of camera i.
func (r *Rig) DistortionType(i int) DistortionType {
	return r.cameras[i].Distortion.ModelType()
}
