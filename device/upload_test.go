package device

import (
	"bytes"
	"testing"

	"github.com/modminer/core/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBitstreamCompletesMultiChunkUpload(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x01) // PROGRAM header ack
	ft.queue(0x01) // chunk 1 ack (32 bytes)
	ft.queue(0x01) // chunk 2 ack (16 bytes)
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]

	bitstream := bytes.Repeat([]byte{0x5A}, 48)
	err := d.uploadBitstream(fpga, bytes.NewReader(bitstream), 48)
	require.NoError(t, err)

	assert.Equal(t, 101, fpga.PDone)
	// header (6) + chunk1 (32) + chunk2 (16)
	assert.Equal(t, byte(wire.OpProgram), ft.Written[0])
	assert.Len(t, ft.Written, 6+32+16)
}

func TestUploadBitstreamFailsOnShortRead(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue(0x01) // header ack
	d := newTestDevice(ft)
	fpga := d.FPGAs[0]

	err := d.uploadBitstream(fpga, bytes.NewReader([]byte{0x01, 0x02}), 48)
	require.Error(t, err)
}
