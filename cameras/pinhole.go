package cameras

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCamera holds the parameters for a perspective projection of a 3D
// scene onto the 2D image plane.
type PinholeCamera struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCamera have valid inputs.
func (params *PinholeCamera) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCamera) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// CameraModel is a pinhole camera together with its lens distortion.
type CameraModel struct {
	*PinholeCamera `json:"intrinsic_parameters"`
	Distortion     Distorter `json:"-"`
}

// CheckValid checks the intrinsics and the distortion model.
func (model *CameraModel) CheckValid() error {
	if err := model.PinholeCamera.CheckValid(); err != nil {
		return err
	}
	if model.Distortion == nil {
		return InvalidDistortionError("camera model has no distortion")
	}
	return model.Distortion.CheckValid()
}

// BackProject maps an image point to the ray direction (x, y, 1) in the camera
// frame, undistorting along the way. The direction is not normalized. The bool
// reports whether undistortion converged.
func (model *CameraModel) BackProject(u, v float64) (r3.Vector, bool) {
	x := (u - model.Ppx) / model.Fx
	y := (v - model.Ppy) / model.Fy
	xu, yu, ok := model.Distortion.Undistort(x, y)
	return r3.Vector{X: xu, Y: yu, Z: 1}, ok
}

// Project maps a camera frame point to distorted image coordinates. Points on
// or behind the image plane report false.
func (model *CameraModel) Project(p r3.Vector) (float64, float64, bool) {
	if p.Z <= 0 {
		return -1, -1, false
	}
	xd, yd := model.Distortion.Distort(p.X/p.Z, p.Y/p.Z)
	return xd*model.Fx + model.Ppx, yd*model.Fy + model.Ppy, true
}
