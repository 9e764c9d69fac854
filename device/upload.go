package device

import (
	"io"

	"github.com/modminer/core/wire"
)

// uploadBitstream streams length bytes from r to FPGAIDAll in
// wire.ProgramChunkSize chunks, acking every chunk, and updates pdone on
// fpga as it goes. Any failure aborts the upload and is returned to the
// caller (Init); when it is a transport error or a bad ack, the
// coordinator's withLock reopens the port before returning it.
func (d *Device) uploadBitstream(fpga *FPGAState, r io.Reader, length uint32) error {
	if err := d.codec.ProgramHeader(wire.FPGAIDAll, length); err != nil {
		return err
	}
	fpga.PDone = 0
	lastLogged := -1

	remaining := length
	buf := make([]byte, wire.ProgramChunkSize)
	for remaining > 0 {
		chunkLen := uint32(wire.ProgramChunkSize)
		if remaining < chunkLen {
			chunkLen = remaining
		}
		if _, err := io.ReadFull(r, buf[:chunkLen]); err != nil {
			return wrapErr(d.Path, "read bitstream", err)
		}
		if err := d.codec.ProgramChunk(buf[:chunkLen]); err != nil {
			return err
		}
		// pdone reflects how much was still outstanding going into this
		// chunk, matching the order of operations in the original driver:
		// the percentage is computed before remaining is decremented.
		fpga.PDone = int(100 - (remaining * 100 / length))
		if tens := fpga.PDone / 10; tens != lastLogged {
			lastLogged = tens
			d.log.WithField("pdone", fpga.PDone).Debug("programming progress")
		}
		remaining -= chunkLen
	}
	fpga.PDone = 101
	return nil
}
