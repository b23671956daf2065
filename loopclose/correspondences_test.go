package loopclose

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/GoodFridayRobotics/okvis2/cameras"
	"github.com/GoodFridayRobotics/okvis2/frame"
	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

func zeroDistortionModel(t *testing.T, family cameras.DistortionType) cameras.CameraModel {
	t.Helper()
	dist, err := cameras.NewDistorter(family, []float64{0, 0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	return cameras.CameraModel{
		PinholeCamera: &cameras.PinholeCamera{Width: 320, Height: 320, Fx: 100, Fy: 100, Ppx: 160, Ppy: 160},
		Distortion:    dist,
	}
}

// stereoRig has an identity camera 0 and a camera 1 offset in x and rotated
// 90 degrees about z.
func stereoRig(t *testing.T) *cameras.Rig {
	t.Helper()
	tSC1 := kinematics.NewTransformationFromRQ(
		r3.Vector{X: 0.1},
		quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)},
	)
	rig, err := cameras.NewRig(
		[]cameras.CameraModel{
			zeroDistortionModel(t, cameras.RadialTangentialDistortionType),
			zeroDistortionModel(t, cameras.RadialTangentialDistortionType),
		},
		[]kinematics.Transformation{kinematics.NewTransformation(), tSC1},
	)
	test.That(t, err, test.ShouldBeNil)
	return rig
}

func TestCorrespondencesAssembly(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rig := stereoRig(t)
	frm := frame.NewMultiframe(7, rig)
	test.That(t, frm.SetKeypoints(0, []frame.Keypoint{
		{X: 160, Y: 160, Size: 12},
		{X: 260, Y: 160, Size: 24},
		{X: 10, Y: 10, Size: 12},
		{X: 100, Y: 100, Size: 12},
	}), test.ShouldBeNil)
	test.That(t, frm.SetKeypoints(1, []frame.Keypoint{
		{X: 160, Y: 160, Size: 12},
		{X: 160, Y: 260, Size: 12},
		{X: 60, Y: 160, Size: 12},
	}), test.ShouldBeNil)

	points := Points{
		2: kinematics.NewHomogeneousPoint(r3.Vector{X: 1, Y: 2, Z: 3}),
		3: {X: 0.5, Y: 1, Z: 1.5, W: 0.5},
		5: {X: 4, Y: 4, Z: 4, W: 2},
		9: {X: 0, Y: 0, Z: 1, W: 1e-9},
	}
	kid := func(cam, k int) frame.KeypointIdentifier {
		return frame.KeypointIdentifier{FrameID: 7, CameraIndex: cam, KeypointIndex: k}
	}
	matches := Matches{
		kid(0, 0): 2,
		kid(0, 1): 3,
		kid(0, 3): 0,  // reserved id, no landmark
		kid(1, 0): 9,  // at infinity
		kid(1, 1): 5,
		kid(1, 2): 77, // missing from the table
	}

	c, err := NewCorrespondences(points, matches, rig, frm, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NumCorrespondences(), test.ShouldEqual, 3)

	// camera major order, keypoint order within a camera
	test.That(t, c.CameraIndex(0), test.ShouldEqual, 0)
	test.That(t, c.KeypointIndex(0), test.ShouldEqual, 0)
	test.That(t, c.CameraIndex(1), test.ShouldEqual, 0)
	test.That(t, c.KeypointIndex(1), test.ShouldEqual, 1)
	test.That(t, c.CameraIndex(2), test.ShouldEqual, 1)
	test.That(t, c.KeypointIndex(2), test.ShouldEqual, 1)

	// the principal point looks straight down the optical axis
	test.That(t, c.BearingVector(0).X, test.ShouldAlmostEqual, 0)
	test.That(t, c.BearingVector(0).Y, test.ShouldAlmostEqual, 0)
	test.That(t, c.BearingVector(0).Z, test.ShouldAlmostEqual, 1)
	// 45 degrees off axis in x
	test.That(t, c.BearingVector(1).X, test.ShouldAlmostEqual, math.Sqrt2/2, 1e-12)
	test.That(t, c.BearingVector(1).Y, test.ShouldAlmostEqual, 0)
	test.That(t, c.BearingVector(1).Z, test.ShouldAlmostEqual, math.Sqrt2/2, 1e-12)

	test.That(t, c.Point(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, c.Point(1), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, c.Point(2), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 2})

	sigma12 := math.Sqrt2 * 0.8 * 0.8 / (100.0 * 100.0)
	sigma24 := math.Sqrt2 * 1.6 * 1.6 / (100.0 * 100.0)
	test.That(t, c.SigmaAngle(0), test.ShouldAlmostEqual, sigma12, 1e-15)
	test.That(t, c.SigmaAngle(1), test.ShouldAlmostEqual, sigma24, 1e-15)
	test.That(t, c.SigmaAngle(2), test.ShouldAlmostEqual, sigma12, 1e-15)

	// extrinsics resolved through each record's camera index
	test.That(t, c.CamOffset(0), test.ShouldResemble, r3.Vector{})
	test.That(t, c.CamOffset(1), test.ShouldResemble, r3.Vector{})
	test.That(t, c.CamOffset(2), test.ShouldResemble, r3.Vector{X: 0.1})
	rot := c.CamRotation(2)
	test.That(t, rot.At(0, 1), test.ShouldAlmostEqual, -1, 1e-12)
	test.That(t, rot.At(1, 0), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, rot.At(2, 2), test.ShouldAlmostEqual, 1, 1e-12)
}

func TestCorrespondencesPointAtInfinityExcluded(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rig := stereoRig(t)
	frm := frame.NewMultiframe(3, rig)
	test.That(t, frm.SetKeypoints(0, []frame.Keypoint{
		{X: 160, Y: 160, Size: 12},
		{X: 161, Y: 160, Size: 12},
		{X: 162, Y: 160, Size: 12},
		{X: 163, Y: 160, Size: 12},
	}), test.ShouldBeNil)

	// w magnitudes straddling the 1e-8 cutoff, x y z irrelevant
	points := Points{
		1: {X: 1e6, Y: -1e6, Z: 42, W: 9.9e-9},
		2: {X: 1, Y: 1, Z: 1, W: -9.9e-9},
		3: {X: 1, Y: 1, Z: 1, W: 1e-8},
		4: {X: 1, Y: 1, Z: 1, W: -1e-8},
	}
	matches := Matches{}
	for k, id := range []uint64{1, 2, 3, 4} {
		matches[frame.KeypointIdentifier{FrameID: 3, CameraIndex: 0, KeypointIndex: k}] = id
	}

	c, err := NewCorrespondences(points, matches, rig, frm, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NumCorrespondences(), test.ShouldEqual, 2)
	test.That(t, c.KeypointIndex(0), test.ShouldEqual, 2)
	test.That(t, c.Point(0).X, test.ShouldAlmostEqual, 1e8, 1)
	test.That(t, c.KeypointIndex(1), test.ShouldEqual, 3)
	test.That(t, c.Point(1).X, test.ShouldAlmostEqual, -1e8, 1)
}

func TestCorrespondencesBackProjectionFallback(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rig, err := cameras.NewRig(
		[]cameras.CameraModel{zeroDistortionModel(t, cameras.EquidistantDistortionType)},
		[]kinematics.Transformation{kinematics.NewTransformation()},
	)
	test.That(t, err, test.ShouldBeNil)
	frm := frame.NewMultiframe(4, rig)
	test.That(t, frm.SetKeypoints(0, []frame.Keypoint{
		// the first keypoint is outside the model's domain, undistortion
		// cannot converge
		{X: 319, Y: 160, Size: 12},
		{X: 200, Y: 180, Size: 12},
	}), test.ShouldBeNil)

	points := Points{
		6: kinematics.NewHomogeneousPoint(r3.Vector{Z: 5}),
		8: kinematics.NewHomogeneousPoint(r3.Vector{X: 1, Z: 5}),
	}
	matches := Matches{
		{FrameID: 4, CameraIndex: 0, KeypointIndex: 0}: 6,
		{FrameID: 4, CameraIndex: 0, KeypointIndex: 1}: 8,
	}

	c, err := NewCorrespondences(points, matches, rig, frm, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NumCorrespondences(), test.ShouldEqual, 2)
	// the fallback direction, still counted
	test.That(t, c.BearingVector(0), test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, c.BearingVector(1).Z, test.ShouldBeGreaterThan, 0.85)
	test.That(t, c.BearingVector(1).Norm(), test.ShouldAlmostEqual, 1, 1e-12)
}

func TestCorrespondencesMixedRigFails(t *testing.T) {
	logger := golog.NewTestLogger(t)
	rig, err := cameras.NewRig(
		[]cameras.CameraModel{
			zeroDistortionModel(t, cameras.RadialTangentialDistortionType),
			zeroDistortionModel(t, cameras.EquidistantDistortionType),
		},
		[]kinematics.Transformation{kinematics.NewTransformation(), kinematics.NewTransformation()},
	)
	test.That(t, err, test.ShouldBeNil)
	frm := frame.NewMultiframe(1, rig)
	test.That(t, frm.SetKeypoints(0, []frame.Keypoint{{X: 160, Y: 160, Size: 12}}), test.ShouldBeNil)
	points := Points{2: kinematics.NewHomogeneousPoint(r3.Vector{Z: 1})}
	matches := Matches{{FrameID: 1, CameraIndex: 0, KeypointIndex: 0}: 2}

	for i := 0; i < 3; i++ {
		c, err := NewCorrespondences(points, matches, rig, frm, logger)
		test.That(t, c, test.ShouldBeNil)
		test.That(t, errors.Is(err, ErrMixedDistortionModels), test.ShouldBeTrue)
	}
}

type fakeDistorter struct{}

func (fakeDistorter) ModelType() cameras.DistortionType { return "bogus" }

func (fakeDistorter) CheckValid() error { return nil }

func (fakeDistorter) Parameters() []float64 { return nil }

func (fakeDistorter) Distort(x, y float64) (float64, float64) { return x, y }

func (fakeDistorter) Undistort(x, y float64) (float64, float64, bool) { return x, y, true }

func TestCorrespondencesUnsupportedFamilyFails(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := zeroDistortionModel(t, cameras.RadialTangentialDistortionType)
	model.Distortion = fakeDistorter{}
	rig, err := cameras.NewRig(
		[]cameras.CameraModel{model},
		[]kinematics.Transformation{kinematics.NewTransformation()},
	)
	test.That(t, err, test.ShouldBeNil)
	frm := frame.NewMultiframe(1, rig)

	c, err := NewCorrespondences(Points{}, Matches{}, rig, frm, logger)
	test.That(t, c, test.ShouldBeNil)
	test.That(t, errors.Is(err, cameras.ErrUnsupportedDistortionModel), test.ShouldBeTrue)
}

func TestCorrespondencesCameraCountMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mono, err := cameras.NewRig(
		[]cameras.CameraModel{zeroDistortionModel(t, cameras.RadialTangentialDistortionType)},
		[]kinematics.Transformation{kinematics.NewTransformation()},
	)
	test.That(t, err, test.ShouldBeNil)
	frm := frame.NewMultiframe(1, mono)

	c, err := NewCorrespondences(Points{}, Matches{}, stereoRig(t), frm, logger)
	test.That(t, c, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
}
