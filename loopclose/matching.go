package loopclose

import (
	"math"
	"slices"

	"github.com/edaniels/golog"

	"github.com/GoodFridayRobotics/okvis2/frame"
	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// DefaultMatchingThreshold is the BRISK descriptor Hamming distance below
// which a match is accepted.
const DefaultMatchingThreshold = 60

// MatchingConfig holds the parameters of descriptor matching against the map.
type MatchingConfig struct {
	// MatchingThreshold is the maximum accepted descriptor distance. Zero
	// selects DefaultMatchingThreshold.
	MatchingThreshold int `json:"matching_threshold"`
}

func (c MatchingConfig) threshold() int {
	if c.MatchingThreshold <= 0 {
		return DefaultMatchingThreshold
	}
	return c.MatchingThreshold
}

// MatchToLandmarks matches the query frame's descriptors against the
// landmarks observed in an old keyframe, returning the matched slice of the
// landmark table and the keypoint associations ready for NewCorrespondences,
// plus the raw match count for the caller's inlier gate.
//
// A landmark of the old frame is a candidate when it has a nonzero id, is
// present in landmarks and is not the near zero placeholder of a missing
// triangulation. Per candidate and per query camera, the best match over all
// of the candidate's descriptors is kept when it beats the threshold. A
// query keypoint can end up associated with the last of several candidates
// matching it; the count still reflects every accepted match.
func MatchToLandmarks(old, query *frame.Multiframe,
	landmarks map[uint64]kinematics.HomogeneousPoint,
	cfg MatchingConfig, logger golog.Logger,
) (Points, Matches, int) {
	// candidate landmarks seen in the old frame, with their descriptors
	groups := map[uint64][]frame.Descriptor{}
	candidates := map[uint64]kinematics.HomogeneousPoint{}
	for im := 0; im < old.NumCameras(); im++ {
		for k := 0; k < old.NumKeypoints(im); k++ {
			lmID := old.LandmarkID(im, k)
			if lmID == 0 {
				continue
			}
			desc := old.Descriptor(im, k)
			if desc == nil {
				continue
			}
			hp, ok := landmarks[lmID]
			if !ok {
				continue
			}
			if norm4(hp) < 1e-12 {
				// signals there is no associated 3d point
				continue
			}
			groups[lmID] = append(groups[lmID], desc)
			candidates[lmID] = hp
		}
	}

	ids := make([]uint64, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	threshold := cfg.threshold()
	points := Points{}
	matches := Matches{}
	count := 0
	for _, lmID := range ids {
		for im := 0; im < query.NumCameras(); im++ {
			numK := query.NumKeypoints(im)
			if numK == 0 || query.Descriptor(im, 0) == nil {
				continue
			}
			distMin := threshold
			kMin := 0
			for _, oldDesc := range groups[lmID] {
				for k := 0; k < numK; k++ {
					dist, err := frame.HammingDistance(query.Descriptor(im, k), oldDesc)
					if err != nil {
						continue
					}
					if dist < distMin {
						distMin = dist
						kMin = k
					}
				}
			}
			if distMin < threshold {
				count++
				points[lmID] = candidates[lmID]
				matches[frame.KeypointIdentifier{
					FrameID:       query.ID(),
					CameraIndex:   im,
					KeypointIndex: kMin,
				}] = lmID
			}
		}
	}
	logger.Debugw("descriptor matching against map done",
		"candidates", len(candidates), "matches", count, "landmarks", len(points))
	return points, matches, count
}

func norm4(hp kinematics.HomogeneousPoint) float64 {
	return math.Sqrt(hp.X*hp.X + hp.Y*hp.Y + hp.Z*hp.Z + hp.W*hp.W)
}
