package device

import (
	"time"

	"github.com/modminer/core/serial"
	"github.com/modminer/core/wire"
	"github.com/sirupsen/logrus"
)

const defaultReadTimeout = time.Second

// Open opens path, flushes any stuck firmware state, and reads enough to
// confirm this is a ModMiner-class device: GET_VERSION and FPGA_COUNT. It
// does not program or calibrate any FPGA; call Prepare and Init for each.
func Open(path string, cfg Config, log logrus.FieldLogger) (*Device, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("device", path)

	port, err := serial.Open(path, serial.NewOptions().SetReadTimeout(defaultReadTimeout))
	if err != nil {
		return nil, wrapErr(path, "open", err)
	}
	codec := wire.New(port, defaultReadTimeout)

	d := &Device{
		Path:          path,
		cfg:           cfg,
		log:           log,
		readMax:       defaultReadTimeout,
		port:          port,
		codec:         codec,
		lifecycleInit: true,
	}

	if err := d.bringUp(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) bringUp() error {
	if err := d.codec.Flush(); err != nil {
		return wrapErr(d.Path, "attach flush", err)
	}
	name, err := d.codec.GetVersion()
	if err != nil {
		return wrapErr(d.Path, "get version", err)
	}
	if name == "" {
		return wrapErr(d.Path, "get version", ErrProtocolViolation)
	}
	d.Name = name

	n, err := d.codec.FPGACount()
	if err != nil {
		return wrapErr(d.Path, "fpga count", err)
	}
	if n < 1 || n > wire.MaxFPGAs {
		return wrapErr(d.Path, "fpga count out of range", ErrProtocolViolation)
	}

	d.FPGAs = make([]*FPGAState, n)
	for i := range d.FPGAs {
		d.FPGAs[i] = newFPGAState(byte(i))
	}
	d.log.WithField("fpgas", n).WithField("version", name).Info("device attached")
	return nil
}

// withLock serializes one wire transaction (or a bounded sequence of them,
// for calibration/programming) behind the device's single mutex. A
// transport fault observed inside fn triggers a reopen before returning,
// so the next caller finds a usable port.
func (d *Device) withLock(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := fn()
	if isTransportFault(err) {
		if rerr := d.reopenLocked(); rerr != nil {
			return wrapErr(d.Path, "reopen after fault", rerr)
		}
	}
	return err
}

// reopenLocked closes and reopens the port without touching any FPGAState
// field; calibration and in-flight work survive because they are never
// stored on the transport.
func (d *Device) reopenLocked() error {
	d.log.Warn("reopening port after transient fault")
	if err := d.port.Reopen(); err != nil {
		return err
	}
	d.codec = wire.New(d.port, d.readMax)
	return nil
}

// Close releases the device's serial port. FPGA state is discarded with
// it; there is no cross-restart persistence of calibration.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port.Close()
}

// Prepare checks that fpgaID names one of the FPGAs Open allocated and
// takes the device lock once. Open already allocates every FPGAState up
// front, so this is a cheap idempotent check. It does not open or reopen
// the port: the only reopen is the one withLock performs after a transport
// fault inside a transaction.
func (d *Device) Prepare(fpgaID int) error {
	if fpgaID < 0 || fpgaID >= len(d.FPGAs) {
		return wrapErr(d.Path, "prepare", ErrProtocolViolation)
	}
	return d.withLock(func() error {
		return nil
	})
}

// Detect attempts Open on each candidate path and returns the devices
// that answered the protocol correctly. Paths are the host's
// responsibility to enumerate; Detect never touches udev or scans a bus.
func Detect(paths []string, cfg Config, log logrus.FieldLogger) []*Device {
	var out []*Device
	for _, p := range paths {
		d, err := Open(p, cfg, log)
		if err != nil {
			if log != nil {
				log.WithField("device", p).WithError(err).Warn("detect: device did not respond")
			}
			continue
		}
		out = append(out, d)
	}
	return out
}
