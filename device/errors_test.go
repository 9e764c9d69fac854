package device

import (
	"errors"
	"testing"

	"github.com/modminer/core/serial"
	"github.com/modminer/core/wire"
	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsToUnderlying(t *testing.T) {
	underlying := errors.New("boom")
	err := wrapErr("/dev/fake", "op", underlying)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "/dev/fake")
	assert.Contains(t, err.Error(), "op")
}

func TestWrapErrNilPassthrough(t *testing.T) {
	assert.NoError(t, wrapErr("/dev/fake", "op", nil))
}

func TestIsTransportFaultDetectsSerialError(t *testing.T) {
	assert.True(t, isTransportFault(serial.ErrTimeout))
	assert.False(t, isTransportFault(ErrProtocolViolation))
	assert.False(t, isTransportFault(nil))
}

func TestIsTransportFaultDegradesBadAckDuringRunning(t *testing.T) {
	// A bad ack observed mid-run is treated the same as a transport fault
	// (reopen) rather than left to propagate as a hard failure, per the
	// running-vs-bring-up distinction in the error-handling design.
	assert.True(t, isTransportFault(wire.ErrBadAck))
}
