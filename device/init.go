package device

import (
	"io"

	"github.com/modminer/core/dclk"
	"github.com/modminer/core/wire"
)

// fpgaProber adapts one FPGA's codec access to dclk.Prober for the
// duration of a calibration search.
type fpgaProber struct {
	d      *Device
	fpgaid byte
}

func (p fpgaProber) SetClock(freqM byte) (bool, error) {
	return p.d.applyClock(p.fpgaid, freqM)
}

func (p fpgaProber) CheckDisabled() (bool, error) {
	n, err := p.d.codec.CheckWork(p.fpgaid)
	if err != nil {
		return false, err
	}
	return n == wire.DisabledNonce, nil
}

// Init ensures fpgaID is programmed with a known-good bitstream and has
// completed frequency calibration. bitstream/length are only consulted if
// programming turns out to be necessary; passing a nil reader when the
// board is already programmed is fine.
func (d *Device) Init(fpgaID int, bitstream io.Reader, length uint32) error {
	if fpgaID < 0 || fpgaID >= len(d.FPGAs) {
		return wrapErr(d.Path, "init", ErrProtocolViolation)
	}
	fpga := d.FPGAs[fpgaID]
	id := fpga.ID

	return d.withLock(func() error {
		code, err := d.codec.GetUserCode(id)
		if err != nil {
			return err
		}
		needsProgram := code != wire.UserCodeSignature
		if !needsProgram && d.cfg.ForceDevInit && d.lifecycleInit {
			needsProgram = true
		}
		if needsProgram {
			if bitstream == nil {
				return wrapErr(d.Path, "init: fpga unprogrammed and no bitstream supplied", ErrProtocolViolation)
			}
			if err := d.uploadBitstream(fpga, bitstream, length); err != nil {
				return err
			}
		} else {
			fpga.PDone = 101
		}

		gov, err := dclk.Calibrate(d.log, fpgaProber{d: d, fpgaid: id})
		if err != nil {
			return wrapErr(d.Path, "calibration", err)
		}
		fpga.Governor = gov
		d.lifecycleInit = false
		return nil
	})
}
