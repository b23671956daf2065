package estimation

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// StateID identifies a pose state in the graph.
type StateID uint64

// LandmarkID identifies a landmark. Id 0 is reserved for unassociated
// keypoints and is never stored.
type LandmarkID uint64

// RelativePoseConstraint links two states through a RelativePoseError term.
type RelativePoseConstraint struct {
	A    StateID
	B    StateID
	Term *RelativePoseError
}

// PosePrior anchors one state through a PoseError term.
type PosePrior struct {
	State StateID
	Term  *PoseError
}

// Graph holds pose states, landmarks and the error terms connecting them.
// Mutation is not synchronized internally; the caller serializes access.
type Graph struct {
	states    map[StateID]kinematics.Transformation
	landmarks map[LandmarkID]kinematics.HomogeneousPoint
	relative  []RelativePoseConstraint
	priors    []PosePrior
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		states:    map[StateID]kinematics.Transformation{},
		landmarks: map[LandmarkID]kinematics.HomogeneousPoint{},
	}
}

// AddState inserts a new pose state.
func (g *Graph) AddState(id StateID, tWS kinematics.Transformation) error {
	if _, ok := g.states[id]; ok {
		return errors.Errorf("state %d already exists", id)
	}
	g.states[id] = tWS
	return nil
}

// SetPose updates an existing pose state.
func (g *Graph) SetPose(id StateID, tWS kinematics.Transformation) error {
	if _, ok := g.states[id]; !ok {
		return errors.Errorf("state %d does not exist", id)
	}
	g.states[id] = tWS
	return nil
}

// Pose looks up a pose state.
func (g *Graph) Pose(id StateID) (kinematics.Transformation, bool) {
	tWS, ok := g.states[id]
	return tWS, ok
}

// AddLandmark inserts a new landmark.
func (g *Graph) AddLandmark(id LandmarkID, point kinematics.HomogeneousPoint) error {
	if id == 0 {
		return errors.New("landmark id 0 is reserved")
	}
	if _, ok := g.landmarks[id]; ok {
		return errors.Errorf("landmark %d already exists", id)
	}
	g.landmarks[id] = point
	return nil
}

// SetLandmark updates an existing landmark.
func (g *Graph) SetLandmark(id LandmarkID, point kinematics.HomogeneousPoint) error {
	if _, ok := g.landmarks[id]; !ok {
		return errors.Errorf("landmark %d does not exist", id)
	}
	g.landmarks[id] = point
	return nil
}

// Landmark looks up a landmark.
func (g *Graph) Landmark(id LandmarkID) (kinematics.HomogeneousPoint, bool) {
	point, ok := g.landmarks[id]
	return point, ok
}

// Landmarks copies the landmark table, keyed by raw id for the loop closure
// correspondence builder.
func (g *Graph) Landmarks() map[uint64]kinematics.HomogeneousPoint {
	out := make(map[uint64]kinematics.HomogeneousPoint, len(g.landmarks))
	for id, point := range g.landmarks {
		out[uint64(id)] = point
	}
	return out
}

// AddRelativePoseConstraint links states a and b, both of which must exist.
func (g *Graph) AddRelativePoseConstraint(a, b StateID, term *RelativePoseError) error {
	if _, ok := g.states[a]; !ok {
		return errors.Errorf("state %d does not exist", a)
	}
	if _, ok := g.states[b]; !ok {
		return errors.Errorf("state %d does not exist", b)
	}
	g.relative = append(g.relative, RelativePoseConstraint{A: a, B: b, Term: term})
	return nil
}

// AddPosePrior anchors state id, which must exist.
func (g *Graph) AddPosePrior(id StateID, term *PoseError) error {
	if _, ok := g.states[id]; !ok {
		return errors.Errorf("state %d does not exist", id)
	}
	g.priors = append(g.priors, PosePrior{State: id, Term: term})
	return nil
}

// NumStates returns the number of pose states.
func (g *Graph) NumStates() int {
	return len(g.states)
}

// NumLandmarks returns the number of landmarks.
func (g *Graph) NumLandmarks() int {
	return len(g.landmarks)
}

// NumConstraints returns the total number of error terms.
func (g *Graph) NumConstraints() int {
	return len(g.relative) + len(g.priors)
}

// StateIDs returns all state ids in ascending order.
func (g *Graph) StateIDs() []StateID {
	ids := make([]StateID, 0, len(g.states))
	for id := range g.states {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LandmarkIDs returns all landmark ids in ascending order.
func (g *Graph) LandmarkIDs() []LandmarkID {
	ids := make([]LandmarkID, 0, len(g.landmarks))
	for id := range g.landmarks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RelativePoseConstraints returns the relative pose constraints in insertion
// order.
func (g *Graph) RelativePoseConstraints() []RelativePoseConstraint {
	return slices.Clone(g.relative)
}

// PosePriors returns the pose priors in insertion order.
func (g *Graph) PosePriors() []PosePrior {
	return slices.Clone(g.priors)
}

// ReplaceContents adopts the contents of other, discarding the current ones.
// Used to swap in a fully validated graph after a load.
func (g *Graph) ReplaceContents(other *Graph) {
	g.states = other.states
	g.landmarks = other.landmarks
	g.relative = other.relative
	g.priors = other.priors
}

// Reset restores the graph to its empty state.
func (g *Graph) Reset() {
	g.states = map[StateID]kinematics.Transformation{}
	g.landmarks = map[LandmarkID]kinematics.HomogeneousPoint{}
	g.relative = nil
	g.priors = nil
}
