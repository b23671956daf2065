package cameras

import (
	"math"

	"github.com/pkg/errors"
)

// Equidistant is the four parameter Kannala-Brandt distortion model.
type Equidistant struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewEquidistant takes a slice of four floats k1, k2, k3, k4.
func NewEquidistant(inp []float64) (*Equidistant, error) {
	if len(inp) != 4 {
		return nil, errors.Errorf("expected 4 parameters for %s, got %d", EquidistantDistortionType, len(inp))
	}
	return &Equidistant{inp[0], inp[1], inp[2], inp[3]}, nil
}

// ModelType returns the type of distortion model.
func (eq *Equidistant) ModelType() DistortionType {
	return EquidistantDistortionType
}

// CheckValid checks if the fields for Equidistant have valid inputs.
func (eq *Equidistant) CheckValid() error {
	if eq == nil {
		return InvalidDistortionError("Equidistant shaped parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (eq *Equidistant) Parameters() []float64 {
	return []float64{eq.K1, eq.K2, eq.K3, eq.K4}
}

// Distort applies the forward model:
//
//	θ = atan(r), θ_d = θ*(1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸)
//	x_d = x*θ_d/r, y_d = y*θ_d/r
func (eq *Equidistant) Distort(x, y float64) (float64, float64) {
	r := math.Hypot(x, y)
	if r < 1e-10 {
		return x, y
	}
	theta := math.Atan(r)
	t2 := theta * theta
	thetaD := theta * (1.0 + t2*(eq.K1+t2*(eq.K2+t2*(eq.K3+t2*eq.K4))))
	scale := thetaD / r
	return x * scale, y * scale
}

// Undistort inverts the forward model with Newton-Raphson iterations starting
// from the distorted point. Points whose distorted radius exceeds the image of
// the forward model cannot converge and report false.
func (eq *Equidistant) Undistort(xd, yd float64) (float64, float64, bool) {
	xu, yu := xd, yd
	for i := 0; i < undistortMaxIterations; i++ {
		xdEst, ydEst := eq.Distort(xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < undistortTolerance*undistortTolerance {
			return xu, yu, true
		}

		r := math.Hypot(xu, yu)
		var j00, j01, j10, j11 float64
		if r < 1e-10 {
			j00, j11 = 1.0, 1.0
		} else {
			theta := math.Atan(r)
			t2 := theta * theta
			thetaD := theta * (1.0 + t2*(eq.K1+t2*(eq.K2+t2*(eq.K3+t2*eq.K4))))
			dThetaD := 1.0 + t2*(3.0*eq.K1+t2*(5.0*eq.K2+t2*(7.0*eq.K3+t2*9.0*eq.K4)))
			scale := thetaD / r
			// derivative of the radial scale with respect to r
			dScale := (dThetaD*r/(1.0+r*r) - thetaD) / (r * r)

			j00 = scale + xu*xu/r*dScale
			j01 = xu * yu / r * dScale
			j10 = j01
			j11 = scale + yu*yu/r*dScale
		}

		det := j00*j11 - j01*j10
		if det == 0 {
			return xu, yu, false
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}

	xdEst, ydEst := eq.Distort(xu, yu)
	ex, ey := xdEst-xd, ydEst-yd
	return xu, yu, ex*ex+ey*ey < undistortTolerance*undistortTolerance
}
