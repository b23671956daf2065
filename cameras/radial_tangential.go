package cameras

import "github.com/pkg/errors"

// RadialTangential is the four parameter Brown-Conrady distortion model.
type RadialTangential struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
}

// NewRadialTangential takes a slice of four floats k1, k2, p1, p2.
func NewRadialTangential(inp []float64) (*RadialTangential, error) {
	if len(inp) != 4 {
		return nil, errors.Errorf("expected 4 parameters for %s, got %d", RadialTangentialDistortionType, len(inp))
	}
	return &RadialTangential{inp[0], inp[1], inp[2], inp[3]}, nil
}

// ModelType returns the type of distortion model.
func (rt *RadialTangential) ModelType() DistortionType {
	return RadialTangentialDistortionType
}

// CheckValid checks if the fields for RadialTangential have valid inputs.
func (rt *RadialTangential) CheckValid() error {
	if rt == nil {
		return InvalidDistortionError("RadialTangential shaped parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (rt *RadialTangential) Parameters() []float64 {
	return []float64{rt.K1, rt.K2, rt.P1, rt.P2}
}

// Distort applies the forward model:
//
//	x_d = x*(1 + k1*r² + k2*r⁴) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y*(1 + k1*r² + k2*r⁴) + p1*(r² + 2*y²) + 2*p2*x*y
func (rt *RadialTangential) Distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	rad := 1.0 + rt.K1*r2 + rt.K2*r2*r2
	xd := x*rad + 2.0*rt.P1*x*y + rt.P2*(r2+2.0*x*x)
	yd := y*rad + rt.P1*(r2+2.0*y*y) + 2.0*rt.P2*x*y
	return xd, yd
}

// Undistort inverts the forward model with Newton-Raphson iterations starting
// from the distorted point.
func (rt *RadialTangential) Undistort(xd, yd float64) (float64, float64, bool) {
	xu, yu := xd, yd
	for i := 0; i < undistortMaxIterations; i++ {
		r2 := xu*xu + yu*yu
		rad := 1.0 + rt.K1*r2 + rt.K2*r2*r2

		errX := xu*rad + 2.0*rt.P1*xu*yu + rt.P2*(r2+2.0*xu*xu) - xd
		errY := yu*rad + rt.P1*(r2+2.0*yu*yu) + 2.0*rt.P2*xu*yu - yd
		if errX*errX+errY*errY < undistortTolerance*undistortTolerance {
			return xu, yu, true
		}

		// Jacobian of the forward model at the current estimate
		dRad := rt.K1 + 2.0*rt.K2*r2
		j00 := rad + 2.0*xu*xu*dRad + 2.0*rt.P1*yu + 6.0*rt.P2*xu
		j01 := 2.0*xu*yu*dRad + 2.0*rt.P1*xu + 2.0*rt.P2*yu
		j10 := 2.0*xu*yu*dRad + 2.0*rt.P1*xu + 2.0*rt.P2*yu
		j11 := rad + 2.0*yu*yu*dRad + 6.0*rt.P1*yu + 2.0*rt.P2*xu

		det := j00*j11 - j01*j10
		if det == 0 {
			return xu, yu, false
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}

	xdEst, ydEst := rt.Distort(xu, yu)
	ex, ey := xdEst-xd, ydEst-yd
	return xu, yu, ex*ex+ey*ey < undistortTolerance*undistortTolerance
}
