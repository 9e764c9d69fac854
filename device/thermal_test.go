package device

import (
	"testing"
	"time"

	"github.com/modminer/core/dclk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollTemperatureThrottlesAboveHysteresis(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(90)   // TEMP1: well above target+hysteresis (80+3)
	ft.queue(0x01) // SET_CLOCK accepted
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]
	fpga.Governor = dclk.NewGovernor(100)
	fpga.Governor.FreqM = 50

	now := time.Unix(1000, 0)
	err := d.pollTemperature(fpga, now)
	require.NoError(t, err)

	assert.Equal(t, byte(49), fpga.Governor.FreqM)
	assert.Equal(t, byte(49), fpga.Governor.FreqMaxM)
	assert.Equal(t, now.Unix(), fpga.LastCutoffReduced)
}

func TestPollTemperatureThrottleRateLimitedPerSecond(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(90)   // first call: throttles
	ft.queue(0x01) // accepted
	ft.queue(90)   // second call, same second: no SET_CLOCK issued
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]
	fpga.Governor = dclk.NewGovernor(100)
	fpga.Governor.FreqM = 50

	now := time.Unix(2000, 0)
	require.NoError(t, d.pollTemperature(fpga, now))
	freqAfterFirst := fpga.Governor.FreqM

	require.NoError(t, d.pollTemperature(fpga, now))
	assert.Equal(t, freqAfterFirst, fpga.Governor.FreqM, "second throttle in the same second must be a no-op")
}

func TestPollTemperatureRelaxesCeilingBelowTarget(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(70) // well below target(80)-hysteresis(3)
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]
	fpga.Governor = dclk.NewGovernor(100)
	fpga.Governor.FreqM = 50
	fpga.Governor.FreqMaxM = 49

	require.NoError(t, d.pollTemperature(fpga, time.Unix(3000, 0)))
	assert.Equal(t, byte(100), fpga.Governor.FreqMaxM, "comfortably cool reading should fully relax the ceiling")
}

func TestPollTemperatureIgnoresZeroReading(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0)
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]
	fpga.Governor = dclk.NewGovernor(100)
	fpga.Governor.FreqM = 50

	require.NoError(t, d.pollTemperature(fpga, time.Unix(4000, 0)))
	assert.Equal(t, byte(0), fpga.Temp)
	assert.Equal(t, byte(50), fpga.Governor.FreqM)
}
