package cameras

import "github.com/pkg/errors"

// RadialTangential8 is the rational Brown-Conrady distortion model with a
// cubic rational radial factor and two tangential coefficients.
type RadialTangential8 struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
	K5 float64 `json:"k5"`
	K6 float64 `json:"k6"`
}

// NewRadialTangential8 takes a slice of eight floats k1, k2, p1, p2, k3, k4, k5, k6.
func NewRadialTangential8(inp []float64) (*RadialTangential8, error) {
	if len(inp) != 8 {
		return nil, errors.Errorf("expected 8 parameters for %s, got %d", RadialTangential8DistortionType, len(inp))
	}
	return &RadialTangential8{inp[0], inp[1], inp[2], inp[3], inp[4], inp[5], inp[6], inp[7]}, nil
}

// ModelType returns the type of distortion model.
func (rt *RadialTangential8) ModelType() DistortionType {
	return RadialTangential8DistortionType
}

// CheckValid checks if the fields for RadialTangential8 have valid inputs.
func (rt *RadialTangential8) CheckValid() error {
	if rt == nil {
		return InvalidDistortionError("RadialTangential8 shaped parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (rt *RadialTangential8) Parameters() []float64 {
	return []float64{rt.K1, rt.K2, rt.P1, rt.P2, rt.K3, rt.K4, rt.K5, rt.K6}
}

// Distort applies the forward model:
//
//	rad = (1 + k1*r² + k2*r⁴ + k3*r⁶) / (1 + k4*r² + k5*r⁴ + k6*r⁶)
//	x_d = x*rad + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y*rad + p1*(r² + 2*y²) + 2*p2*x*y
func (rt *RadialTangential8) Distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	rad := (1.0 + rt.K1*r2 + rt.K2*r4 + rt.K3*r6) / (1.0 + rt.K4*r2 + rt.K5*r4 + rt.K6*r6)
	xd := x*rad + 2.0*rt.P1*x*y + rt.P2*(r2+2.0*x*x)
	yd := y*rad + rt.P1*(r2+2.0*y*y) + 2.0*rt.P2*x*y
	return xd, yd
}

// Undistort inverts the forward model with Newton-Raphson iterations starting
// from the distorted point.
func (rt *RadialTangential8) Undistort(xd, yd float64) (float64, float64, bool) {
	xu, yu := xd, yd
	for i := 0; i < undistortMaxIterations; i++ {
		r2 := xu*xu + yu*yu
		r4 := r2 * r2
		r6 := r4 * r2
		num := 1.0 + rt.K1*r2 + rt.K2*r4 + rt.K3*r6
		den := 1.0 + rt.K4*r2 + rt.K5*r4 + rt.K6*r6
		rad := num / den

		errX := xu*rad + 2.0*rt.P1*xu*yu + rt.P2*(r2+2.0*xu*xu) - xd
		errY := yu*rad + rt.P1*(r2+2.0*yu*yu) + 2.0*rt.P2*xu*yu - yd
		if errX*errX+errY*errY < undistortTolerance*undistortTolerance {
			return xu, yu, true
		}

		// derivative of the rational radial factor with respect to r²
		dNum := rt.K1 + 2.0*rt.K2*r2 + 3.0*rt.K3*r4
		dDen := rt.K4 + 2.0*rt.K5*r2 + 3.0*rt.K6*r4
		dRad := (dNum*den - num*dDen) / (den * den)

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
