package frame

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/GoodFridayRobotics/okvis2/cameras"
)

// Multiframe bundles the detections of all cameras of the rig at one time
// instant. Keypoint getters expect indices established through NumKeypoints;
// setters validate the camera index.
type Multiframe struct {
	id     uint64
	rig    *cameras.Rig
	frames []cameraFrame
}

type cameraFrame struct {
	keypoints   []Keypoint
	descriptors []Descriptor
	landmarkIDs []uint64
	rays        []r3.Vector
	raysOK      []bool
	raysCached  bool
}

// NewMultiframe creates an empty frame bundle for the given rig.
func NewMultiframe(id uint64, rig *cameras.Rig) *Multiframe {
	return &Multiframe{
		id:     id,
		rig:    rig,
		frames: make([]cameraFrame, rig.NumCameras()),
	}
}

// ID returns the frame id.
func (mf *Multiframe) ID() uint64 {
	return mf.id
}

// Rig returns the camera rig the detections refer to.
func (mf *Multiframe) Rig() *cameras.Rig {
	return mf.rig
}

// NumCameras returns the number of cameras in the underlying rig.
func (mf *Multiframe) NumCameras() int {
	return mf.rig.NumCameras()
}

func (mf *Multiframe) checkCamera(cam int) error {
	if cam < 0 || cam >= len(mf.frames) {
		return errors.Errorf("camera index %d out of range, rig has %d cameras", cam, len(mf.frames))
	}
	return nil
}

// SetKeypoints replaces the detections of one camera. Landmark associations
// reset to unassociated and any cached rays and descriptors are dropped.
func (mf *Multiframe) SetKeypoints(cam int, kps []Keypoint) error {
	if err := mf.checkCamera(cam); err != nil {
		return err
	}
	mf.frames[cam] = cameraFrame{
		keypoints:   kps,
		landmarkIDs: make([]uint64, len(kps)),
	}
	return nil
}

// SetDescriptors attaches one descriptor per keypoint of one camera.
func (mf *Multiframe) SetDescriptors(cam int, descs []Descriptor) error {
	if err := mf.checkCamera(cam); err != nil {
		return err
	}
	if len(descs) != len(mf.frames[cam].keypoints) {
		return errors.Errorf("got %d descriptors for %d keypoints", len(descs), len(mf.frames[cam].keypoints))
	}
	mf.frames[cam].descriptors = descs
	return nil
}

// NumKeypoints returns the number of keypoints detected in camera cam.
func (mf *Multiframe) NumKeypoints(cam int) int {
	return len(mf.frames[cam].keypoints)
}

// Keypoint returns keypoint k of camera cam.
func (mf *Multiframe) Keypoint(cam, k int) Keypoint {
	return mf.frames[cam].keypoints[k]
}

// Descriptor returns the descriptor of keypoint k of camera cam, or nil when
// no descriptors were set.
func (mf *Multiframe) Descriptor(cam, k int) Descriptor {
	if mf.frames[cam].descriptors == nil {
		return nil
	}
	return mf.frames[cam].descriptors[k]
}

// LandmarkID returns the associated landmark id of keypoint k of camera cam.
// Zero means unassociated.
func (mf *Multiframe) LandmarkID(cam, k int) uint64 {
	return mf.frames[cam].landmarkIDs[k]
}

// SetLandmarkID associates keypoint k of camera cam with a landmark.
func (mf *Multiframe) SetLandmarkID(cam, k int, id uint64) error {
	if err := mf.checkCamera(cam); err != nil {
		return err
	}
	if k < 0 || k >= len(mf.frames[cam].landmarkIDs) {
		return errors.Errorf("keypoint index %d out of range, camera %d has %d keypoints",
			k, cam, len(mf.frames[cam].landmarkIDs))
	}
	mf.frames[cam].landmarkIDs[k] = id
	return nil
}

// ComputeBackProjections precomputes the back-projected ray of every keypoint
// of camera cam, so later BackProjection calls are lookups.
func (mf *Multiframe) ComputeBackProjections(cam int) error {
	if err := mf.checkCamera(cam); err != nil {
		return err
	}
	f := &mf.frames[cam]
	model := mf.rig.Camera(cam)
	f.rays = make([]r3.Vector, len(f.keypoints))
	f.raysOK = make([]bool, len(f.keypoints))
	for k, kp := range f.keypoints {
		f.rays[k], f.raysOK[k] = model.BackProject(kp.X, kp.Y)
	}
	f.raysCached = true
	return nil
}

// BackProjection returns the camera frame ray of keypoint k of camera cam,
// cached when ComputeBackProjections ran, computed on the spot otherwise. The
// bool reports whether undistortion converged.
func (mf *Multiframe) BackProjection(cam, k int) (r3.Vector, bool) {
	f := &mf.frames[cam]
	if f.raysCached {
		return f.rays[k], f.raysOK[k]
	}
	kp := f.keypoints[k]
	return mf.rig.Camera(cam).BackProject(kp.X, kp.Y)
}
