package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueCalibrationAcceptingCeiling(ft *fakeTransport) {
	ft.queue(0x01)                   // SET_CLOCK(115) accepted
	ft.queue(0xFF, 0xFF, 0xFF, 0xFF) // CHECK_WORK: not disabled
	ft.queue(0x01)                   // SET_CLOCK(100) accepted (step down to default)
}

func TestInitSkipsProgrammingWhenUsercodeMatches(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x02, 0x04, 0x24, 0x42) // GET_USER_CODE matches signature
	queueCalibrationAcceptingCeiling(ft)
	d := newTestDevice(ft)

	err := d.Init(0, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 101, d.FPGAs[0].PDone)
	assert.NotNil(t, d.FPGAs[0].Governor)
	assert.Equal(t, byte(100), d.FPGAs[0].Governor.FreqM)
}

func TestInitProgramsWhenUsercodeMismatches(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x00, 0x00, 0x00, 0x00) // GET_USER_CODE: unprogrammed
	ft.queue(0x01)                   // PROGRAM header ack
	ft.queue(0x01)                   // chunk ack
	queueCalibrationAcceptingCeiling(ft)
	d := newTestDevice(ft)

	err := d.Init(0, bytes.NewReader([]byte{0xAA, 0xBB}), 2)
	require.NoError(t, err)
	assert.Equal(t, 101, d.FPGAs[0].PDone)
}

func TestInitFailsWithoutBitstreamWhenUnprogrammed(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x00, 0x00, 0x00, 0x00)
	d := newTestDevice(ft)

	err := d.Init(0, nil, 0)
	require.Error(t, err)
}

func TestInitForcesReprogramOnFirstLifecycleInitWhenConfigured(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x02, 0x04, 0x24, 0x42) // matches, but ForceDevInit overrides
	ft.queue(0x01)                   // PROGRAM header ack
	ft.queue(0x01)                   // chunk ack
	queueCalibrationAcceptingCeiling(ft)
	d := newTestDevice(ft)
	d.cfg.ForceDevInit = true
	d.lifecycleInit = true

	err := d.Init(0, bytes.NewReader([]byte{0xAA, 0xBB}), 2)
	require.NoError(t, err)
	assert.False(t, d.lifecycleInit)
}
