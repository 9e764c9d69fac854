// Package dclk implements the dynamic-clock adaptive controller: a pure
// calibration search and a pure per-cycle frequency update. Nothing here
// touches a transport; the driver layer supplies an ApplyFunc that issues
// the actual SET_CLOCK and reports back whether the device accepted it.
package dclk

import "github.com/sirupsen/logrus"

// Clock limits from the device's command set, stored halved throughout
// this package because the wire value is always an even MHz figure.
const (
	MinClockM = 1   // MIN_CLOCK(2) / 2
	DefClockM = 100 // DEF_CLOCK(200) / 2
	MaxClockM = 115 // MAX_CLOCK(230) / 2
)

// cleanCycleStreak is how many consecutive error-free cycles at the
// current ceiling earn a 1-step raise.
const cleanCycleStreak = 3

// errorRatioThreshold is the bad/total ratio past which a cycle counts as
// dirty and triggers a 1-step reduction.
const errorRatioThreshold = 0.05

// ApplyFunc issues SET_CLOCK for the requested halved frequency and
// reports whether the device accepted it. A rejection must not mutate any
// state the governor depends on; Governor treats it as a no-op.
type ApplyFunc func(freqM byte) (accepted bool, err error)

// Governor holds one FPGA's adaptive-clock state.
type Governor struct {
	FreqM        byte // current, halved
	FreqMaxM     byte // current ceiling, halved; mutable by thermal supervisor
	FreqMaxMaxM  byte // hard ceiling from calibration, halved
	FreqMDefault byte // halved

	cleanRun  int
	lastDirty bool
}

// NewGovernor seeds a governor at freqMaxMax with no headroom yet claimed;
// the caller sets FreqM/FreqMDefault once calibration (Calibrate) completes.
func NewGovernor(freqMaxMaxM byte) *Governor {
	return &Governor{FreqMaxMaxM: freqMaxMaxM, FreqMaxM: freqMaxMaxM}
}

// GotNonces records that a work cycle completed, clearing the previous
// cycle's dirty mark; call once per cycle before
// ErrorCount/PreUpdate/UpdateFreq.
func (g *Governor) GotNonces() {
	g.lastDirty = false
}

// ErrorCount records a cycle's bad/total nonce ratio. A ratio above
// errorRatioThreshold marks the cycle dirty, resetting the clean-run
// streak.
func (g *Governor) ErrorCount(ratio float64) {
	g.lastDirty = ratio > errorRatioThreshold
	if g.lastDirty {
		g.cleanRun = 0
	}
}

// PreUpdate is a hook point before UpdateFreq; currently a no-op, kept
// because the original control loop calls out to it separately from
// ErrorCount and update proper.
func (g *Governor) PreUpdate() {}

// UpdateFreq asks apply to step the clock by at most one halved unit
// (2 MHz) based on the most recent cycle's error state, never exceeding
// FreqMaxM and never stepping more than once per call.
func (g *Governor) UpdateFreq(log logrus.FieldLogger, apply ApplyFunc) error {
	switch {
	case g.lastDirty && g.FreqM > MinClockM:
		return g.step(log, apply, g.FreqM-1)
	case !g.lastDirty:
		g.cleanRun++
		if g.cleanRun >= cleanCycleStreak && g.FreqM < g.FreqMaxM {
			g.cleanRun = 0
			return g.step(log, apply, g.FreqM+1)
		}
	}
	return nil
}

func (g *Governor) step(log logrus.FieldLogger, apply ApplyFunc, target byte) error {
	accepted, err := apply(target)
	if err != nil {
		return err
	}
	if !accepted {
		if log != nil {
			log.WithField("freqM", target).Debug("dclk: device rejected clock step")
		}
		return nil
	}
	g.FreqM = target
	if log != nil {
		log.WithField("freqM", target).Debug("dclk: clock stepped")
	}
	return nil
}

// ReduceClock is the Thermal Supervisor's direct override: drop one step
// immediately and clamp the ceiling so UpdateFreq does not re-raise on the
// next clean cycle. Refuses at the floor.
func (g *Governor) ReduceClock(apply ApplyFunc) (bool, error) {
	if g.FreqM <= MinClockM {
		return false, nil
	}
	target := g.FreqM - 1
	accepted, err := apply(target)
	if err != nil || !accepted {
		return false, err
	}
	g.FreqM = target
	g.FreqMaxM = target
	g.cleanRun = 0
	return true, nil
}

// RelaxCeiling restores the ceiling towards FreqMaxMaxM by one step, or
// fully if full is true (used when the reading is comfortably below
// target minus hysteresis).
func (g *Governor) RelaxCeiling(full bool) {
	if full {
		g.FreqMaxM = g.FreqMaxMaxM
		return
	}
	if g.FreqMaxM < g.FreqMaxMaxM {
		g.FreqMaxM++
	}
}
