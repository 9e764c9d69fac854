package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareValidatesFPGARange(t *testing.T) {
	ft := &fakeTransport{}
	d := newTestDevice(ft)

	assert.NoError(t, d.Prepare(0))
	assert.Error(t, d.Prepare(1))
	assert.Error(t, d.Prepare(-1))
}
