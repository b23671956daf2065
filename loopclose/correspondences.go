// Package loopclose prepares loop closure queries: descriptor matching of a
// query frame against mapped landmarks, and assembly of the 2D-3D
// correspondence set consumed by an external non central absolute pose
// solver.
package loopclose

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/GoodFridayRobotics/okvis2/cameras"
	"github.com/GoodFridayRobotics/okvis2/frame"
	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// Points is a slice of the landmark table, keyed by landmark id.
type Points map[uint64]kinematics.HomogeneousPoint

// Matches associates keypoints of one frame with landmark ids.
type Matches map[frame.KeypointIdentifier]uint64

// ErrMixedDistortionModels is returned when the cameras of a rig do not share
// one distortion family. The focal length normalization assumes a single
// family, so this cannot be recovered from.
var ErrMixedDistortionModels = errors.New("mixed distortion models are not supported")

// correspondence pairs one observed keypoint with one landmark. cameraIndex
// is always a valid index into the rig the set was built over.
type correspondence struct {
	bearing       r3.Vector
	point         r3.Vector
	sigmaAngle    float64
	cameraIndex   int
	keypointIndex int
}

// Correspondences is the assembled 2D-3D correspondence set of one query
// frame, the input of a non central absolute pose solve. Camera extrinsics
// are frozen at construction time and shared between the correspondences of
// one camera. All accessors are read only.
type Correspondences struct {
	camOffsets   []r3.Vector
	camRotations []*mat.Dense
	records      []correspondence
}

// NewCorrespondences collects every usable keypoint to landmark
// correspondence of the query frame frm. matches associates frm's keypoints
// with ids into the points table; associations that are missing, refer to the
// reserved id 0 or hit a point at infinity are skipped. A rig mixing
// distortion families fails with ErrMixedDistortionModels before any keypoint
// is touched.
func NewCorrespondences(points Points, matches Matches, rig *cameras.Rig,
	frm *frame.Multiframe, logger golog.Logger,
) (*Correspondences, error) {
	family := rig.DistortionType(0)
	for i := 1; i < rig.NumCameras(); i++ {
		if rig.DistortionType(i) != family {
			return nil, errors.Wrapf(ErrMixedDistortionModels,
				"camera 0 uses %q, camera %d uses %q", family, i, rig.DistortionType(i))
		}
	}
	switch family {
	case cameras.RadialTangentialDistortionType,
		cameras.RadialTangential8DistortionType,
		cameras.EquidistantDistortionType:
	default:
		return nil, errors.Wrapf(cameras.ErrUnsupportedDistortionModel, "%q", family)
	}
	if frm.NumCameras() != rig.NumCameras() {
		return nil, errors.Errorf("frame has %d cameras, rig has %d", frm.NumCameras(), rig.NumCameras())
	}

	c := &Correspondences{
		camOffsets:   make([]r3.Vector, rig.NumCameras()),
		camRotations: make([]*mat.Dense, rig.NumCameras()),
	}
	for im := 0; im < rig.NumCameras(); im++ {
		// the extrinsics estimates may drift later, this snapshot is not
		// re-sampled
		tSC := rig.TSC(im)
		c.camOffsets[im] = tSC.R()
		c.camRotations[im] = tSC.C()
		fu := rig.Camera(im).Fx

		for k := 0; k < frm.NumKeypoints(im); k++ {
			kid := frame.KeypointIdentifier{FrameID: frm.ID(), CameraIndex: im, KeypointIndex: k}
			lmID, ok := matches[kid]
			if !ok || lmID == 0 {
				continue
			}
			hp, ok := points[lmID]
			if !ok {
				logger.Debugw("match refers to a landmark missing from the table",
					"landmark", lmID, "camera", im, "keypoint", k)
				continue
			}
			if !hp.Finite() {
				continue
			}

			bearing, ok := frm.BackProjection(im, k)
			if !ok {
				bearing = r3.Vector{X: 1}
			}
			stdDev := frm.Keypoint(im, k).StdDev()

			c.records = append(c.records, correspondence{
				bearing:       bearing.Normalize(),
				point:         hp.Dehomogenized(),
				sigmaAngle:    math.Sqrt2 * stdDev * stdDev / (fu * fu),
				cameraIndex:   im,
				keypointIndex: k,
			})
		}
	}
	return c, nil
}

// NumCorrespondences returns the number of assembled correspondences.
func (c *Correspondences) NumCorrespondences() int {
	return len(c.records)
}

// BearingVector returns the unit direction toward correspondence i in its
// camera's frame.
func (c *Correspondences) BearingVector(i int) r3.Vector {
	return c.records[i].bearing
}

// Point returns the dehomogenized world point of correspondence i.
func (c *Correspondences) Point(i int) r3.Vector {
	return c.records[i].point
}

// CamOffset returns the body frame position of the camera that observed
// correspondence i.
func (c *Correspondences) CamOffset(i int) r3.Vector {
	return c.camOffsets[c.records[i].cameraIndex]
}

// CamRotation returns the body frame rotation of the camera that observed
// correspondence i. Callers must treat it as read only.
func (c *Correspondences) CamRotation(i int) *mat.Dense {
	return c.camRotations[c.records[i].cameraIndex]
}

// SigmaAngle returns the angular standard deviation of correspondence i in
// radians.
func (c *Correspondences) SigmaAngle(i int) float64 {
	return c.records[i].sigmaAngle
}

// CameraIndex returns the camera that observed correspondence i.
func (c *Correspondences) CameraIndex(i int) int {
	return c.records[i].cameraIndex
}

// KeypointIndex returns the keypoint index of correspondence i within its
// camera.
func (c *Correspondences) KeypointIndex(i int) int {
	return c.records[i].keypointIndex
}
