package dclk

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrCalibrationFailed is returned when the descending search walks below
// MinClockM without finding an accepted, non-disabled frequency.
var ErrCalibrationFailed = errors.New("dclk: calibration search exhausted clock range")

// Prober is the device-facing half of calibration: set a candidate clock
// and ask whether the FPGA came back disabled at it.
type Prober interface {
	SetClock(freqM byte) (accepted bool, err error)
	CheckDisabled() (disabled bool, err error)
}

// Calibrate runs the descending frequency search: starting one step above
// MaxClockM, it walks down until SET_CLOCK is accepted and the FPGA is not
// reporting disabled at that frequency. If the discovered ceiling exceeds
// DefClockM, it steps back down to DefClockM for normal operation,
// recording the discovered ceiling in FreqMaxMaxM regardless.
func Calibrate(log logrus.FieldLogger, p Prober) (*Governor, error) {
	freqM := MaxClockM + 1
	for {
		freqM--
		if freqM < MinClockM {
			return nil, ErrCalibrationFailed
		}
		accepted, err := p.SetClock(byte(freqM))
		if err != nil {
			return nil, err
		}
		if !accepted {
			continue
		}
		disabled, err := p.CheckDisabled()
		if err != nil {
			return nil, err
		}
		if disabled {
			continue
		}
		break
	}

	g := NewGovernor(byte(freqM))
	g.FreqM = byte(freqM)
	g.FreqMDefault = byte(freqM)
	if log != nil {
		log.WithField("freqMaxMaxM", freqM).Info("dclk: calibration found ceiling")
	}

	if freqM > DefClockM {
		accepted, err := p.SetClock(DefClockM)
		if err != nil {
			return nil, err
		}
		if accepted {
			g.FreqM = DefClockM
			g.FreqMDefault = DefClockM
		}
	}
	return g, nil
}
