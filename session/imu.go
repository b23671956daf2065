// Package session bundles one SLAM run: IMU parameters, the camera rig
// calibration, the pose and landmark graph, and per frame keypoint data, with
// atomic save and load of the whole bundle.
package session

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ImuParameters are the continuous time IMU noise densities, bias priors and
// saturation limits.
type ImuParameters struct {
	// Rate is the sampling rate in Hz.
	Rate int `json:"rate"`
	// SigmaGC is the gyroscope noise density in rad/s/sqrt(Hz).
	SigmaGC float64 `json:"sigma_g_c"`
	// SigmaAC is the accelerometer noise density in m/s^2/sqrt(Hz).
	SigmaAC float64 `json:"sigma_a_c"`
	// SigmaGwC is the gyroscope drift noise density in rad/s^2/sqrt(Hz).
	SigmaGwC float64 `json:"sigma_gw_c"`
	// SigmaAwC is the accelerometer drift noise density in m/s^3/sqrt(Hz).
	SigmaAwC float64 `json:"sigma_aw_c"`
	// SigmaBg is the initial gyroscope bias uncertainty in rad/s.
	SigmaBg float64 `json:"sigma_bg"`
	// SigmaBa is the initial accelerometer bias uncertainty in m/s^2.
	SigmaBa float64 `json:"sigma_ba"`
	// GMax is the gyroscope saturation in rad/s.
	GMax float64 `json:"g_max"`
	// AMax is the accelerometer saturation in m/s^2.
	AMax float64 `json:"a_max"`
	// G is the magnitude of gravity in m/s^2.
	G float64 `json:"g"`
}

// CheckValid checks that the rate, noise densities and limits are usable.
func (p *ImuParameters) CheckValid() error {
	var err error
	if p.Rate <= 0 {
		err = multierr.Combine(err, errors.Errorf("imu rate must be positive, got %d", p.Rate))
	}
	for _, sigma := range []struct {
		name  string
		value float64
	}{
		{"sigma_g_c", p.SigmaGC},
		{"sigma_a_c", p.SigmaAC},
		{"sigma_gw_c", p.SigmaGwC},
		{"sigma_aw_c", p.SigmaAwC},
	} {
		if sigma.value <= 0 {
			err = multierr.Combine(err, errors.Errorf("%s must be positive, got %v", sigma.name, sigma.value))
		}
	}
	if p.SigmaBg < 0 || p.SigmaBa < 0 {
		err = multierr.Combine(err, errors.New("initial bias uncertainties cannot be negative"))
	}
	if p.GMax <= 0 || p.AMax <= 0 {
		err = multierr.Combine(err, errors.New("saturation limits must be positive"))
	}
	if p.G <= 0 {
		err = multierr.Combine(err, errors.Errorf("gravity must be positive, got %v", p.G))
	}
	return err
}
