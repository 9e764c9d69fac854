package dclk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProber struct {
	accepted map[byte]bool
	disabled map[byte]bool
	last     byte
}

func (s *scriptedProber) SetClock(freqM byte) (bool, error) {
	s.last = freqM
	return s.accepted[freqM], nil
}

func (s *scriptedProber) CheckDisabled() (bool, error) {
	return s.disabled[s.last], nil
}

func TestCalibrateSkipsRejectedAndDisabledFrequencies(t *testing.T) {
	p := &scriptedProber{accepted: map[byte]bool{}, disabled: map[byte]bool{}}
	// 115 (max) rejected, 114 accepted but disabled, 113 accepted and clean.
	p.accepted[115] = false
	p.accepted[114] = true
	p.disabled[114] = true
	p.accepted[113] = true

	g, err := Calibrate(nil, p)
	require.NoError(t, err)
	assert.EqualValues(t, 113, g.FreqMaxMaxM)
	assert.EqualValues(t, 113, g.FreqM)
}

func TestCalibrateStepsDownToDefault(t *testing.T) {
	p := &scriptedProber{accepted: map[byte]bool{114: true, DefClockM: true}, disabled: map[byte]bool{}}
	g, err := Calibrate(nil, p)
	require.NoError(t, err)
	assert.EqualValues(t, 114, g.FreqMaxMaxM)
	assert.EqualValues(t, DefClockM, g.FreqM)
	assert.EqualValues(t, DefClockM, g.FreqMDefault)
}

func TestCalibrateFailsBelowFloor(t *testing.T) {
	p := &scriptedProber{accepted: map[byte]bool{}, disabled: map[byte]bool{}}
	_, err := Calibrate(nil, p)
	assert.ErrorIs(t, err, ErrCalibrationFailed)
}

func TestUpdateFreqStepsDownOnDirtyCycle(t *testing.T) {
	g := &Governor{FreqM: 100, FreqMaxM: 110, FreqMaxMaxM: 115}
	var applied byte
	apply := func(freqM byte) (bool, error) {
		applied = freqM
		return true, nil
	}
	g.ErrorCount(0.5)
	require.NoError(t, g.UpdateFreq(nil, apply))
	assert.EqualValues(t, 99, applied)
	assert.EqualValues(t, 99, g.FreqM)
}

func TestUpdateFreqNeverExceedsCeiling(t *testing.T) {
	g := &Governor{FreqM: 110, FreqMaxM: 110, FreqMaxMaxM: 115}
	calls := 0
	apply := func(freqM byte) (bool, error) {
		calls++
		return true, nil
	}
	for i := 0; i < 10; i++ {
		g.ErrorCount(0)
		require.NoError(t, g.UpdateFreq(nil, apply))
	}
	assert.Equal(t, 0, calls, "governor must not raise above its ceiling")
	assert.EqualValues(t, 110, g.FreqM)
}

func TestUpdateFreqRaisesAfterCleanStreak(t *testing.T) {
	g := &Governor{FreqM: 100, FreqMaxM: 110, FreqMaxMaxM: 115}
	var applied byte
	apply := func(freqM byte) (bool, error) {
		applied = freqM
		return true, nil
	}
	for i := 0; i < cleanCycleStreak-1; i++ {
		g.ErrorCount(0)
		require.NoError(t, g.UpdateFreq(nil, apply))
		assert.EqualValues(t, 100, g.FreqM, "must not raise before the streak completes")
	}
	g.ErrorCount(0)
	require.NoError(t, g.UpdateFreq(nil, apply))
	assert.EqualValues(t, 101, applied)
	assert.EqualValues(t, 101, g.FreqM)
}

func TestReduceClockRefusesAtFloor(t *testing.T) {
	g := &Governor{FreqM: MinClockM, FreqMaxM: MinClockM, FreqMaxMaxM: 115}
	called := false
	apply := func(freqM byte) (bool, error) {
		called = true
		return true, nil
	}
	ok, err := g.ReduceClock(apply)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestReduceClockClampsCeiling(t *testing.T) {
	g := &Governor{FreqM: 100, FreqMaxM: 110, FreqMaxMaxM: 115}
	apply := func(freqM byte) (bool, error) { return true, nil }
	ok, err := g.ReduceClock(apply)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 99, g.FreqM)
	assert.EqualValues(t, 99, g.FreqMaxM)
}

func TestRelaxCeiling(t *testing.T) {
	g := &Governor{FreqM: 90, FreqMaxM: 90, FreqMaxMaxM: 115}
	g.RelaxCeiling(false)
	assert.EqualValues(t, 91, g.FreqMaxM)
	g.RelaxCeiling(true)
	assert.EqualValues(t, 115, g.FreqMaxM)
}
