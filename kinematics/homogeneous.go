package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
)

// minHomogeneousW is the smallest homogeneous scale still treated as a finite
// point. Anything below is a direction (a point at infinity).
const minHomogeneousW = 1e-8

// HomogeneousPoint is a landmark in homogeneous coordinates.
type HomogeneousPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// NewHomogeneousPoint lifts a Euclidean point to homogeneous coordinates with
// unit scale.
func NewHomogeneousPoint(p r3.Vector) HomogeneousPoint {
	return HomogeneousPoint{X: p.X, Y: p.Y, Z: p.Z, W: 1}
}

// Finite reports whether the point has a usable homogeneous scale. Points at
// infinity return false.
func (hp HomogeneousPoint) Finite() bool {
	return math.Abs(hp.W) >= minHomogeneousW
}

// Dehomogenized returns the Euclidean point. Only valid when Finite is true.
func (hp HomogeneousPoint) Dehomogenized() r3.Vector {
	return r3.Vector{X: hp.X / hp.W, Y: hp.Y / hp.W, Z: hp.Z / hp.W}
}
