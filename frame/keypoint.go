// Package frame holds per-frame detection data: keypoints, descriptors and
// their landmark associations, grouped by camera, plus cached back-projected
// rays used by loop closure.
package frame

// Keypoint is a detected image feature with its detector scale.
type Keypoint struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// StdDev returns the detection standard deviation in pixels derived from the
// detector scale.
func (kp Keypoint) StdDev() float64 {
	return 0.8 * kp.Size / 12.0
}

// KeypointIdentifier addresses one keypoint in one camera of one frame. It is
// the key of keypoint to landmark association maps.
type KeypointIdentifier struct {
	FrameID       uint64
	CameraIndex   int
	KeypointIndex int
}
