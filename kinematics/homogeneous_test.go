package kinematics

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestHomogeneousPointFinite(t *testing.T) {
	test.That(t, NewHomogeneousPoint(r3.Vector{X: 1, Y: 2, Z: 3}).Finite(), test.ShouldBeTrue)
	test.That(t, HomogeneousPoint{X: 1, Y: 2, Z: 3, W: 1e-8}.Finite(), test.ShouldBeTrue)
	test.That(t, HomogeneousPoint{X: 1, Y: 2, Z: 3, W: -1e-8}.Finite(), test.ShouldBeTrue)
	test.That(t, HomogeneousPoint{X: 1, Y: 2, Z: 3, W: 9.9e-9}.Finite(), test.ShouldBeFalse)
	test.That(t, HomogeneousPoint{X: 1, Y: 2, Z: 3}.Finite(), test.ShouldBeFalse)
}

func TestHomogeneousPointDehomogenized(t *testing.T) {
	hp := HomogeneousPoint{X: 2, Y: -4, Z: 6, W: 2}
	test.That(t, hp.Dehomogenized(), test.ShouldResemble, r3.Vector{X: 1, Y: -2, Z: 3})

	lifted := NewHomogeneousPoint(r3.Vector{X: 0.5, Y: 1.5, Z: -2.5})
	test.That(t, lifted.Dehomogenized(), test.ShouldResemble, r3.Vector{X: 0.5, Y: 1.5, Z: -2.5})
}
