// Package device implements the per-board driver core: bitstream upload,
// per-FPGA calibration and state, the thermal supervisor, the work
// pipeline, and the device coordinator that serializes all of it behind
// one lock per device.
package device

import (
	"sync"
	"time"

	"github.com/modminer/core/dclk"
	"github.com/modminer/core/serial"
	"github.com/modminer/core/wire"
	"github.com/sirupsen/logrus"
)

// WorkUnit is the host-owned hashing job. The core only ever reads
// Midstate and the 12 tail bytes at Data[64:76]; Nonce is filled in by the
// host's own verification, never by this package.
type WorkUnit struct {
	Midstate [32]byte
	Data     [80]byte
	Nonce    uint32
}

func (w *WorkUnit) tail() (t [12]byte) {
	copy(t[:], w.Data[64:76])
	return t
}

func (w *WorkUnit) sameJob(other *WorkUnit) bool {
	if other == nil {
		return false
	}
	return w.Midstate == other.Midstate && w.tail() == other.tail()
}

// FPGAState is everything the driver tracks for one FPGA on a device. It
// is owned by Device, not by the transport, so a port Reopen never
// invalidates it.
type FPGAState struct {
	ID byte

	WorkRunning bool
	RunningWork *WorkUnit
	LastWork    *WorkUnit
	WorkStart   time.Time
	Hashes      uint32
	NextWorkCmd [46]byte

	Governor *dclk.Governor

	GoodShares        uint64
	BadShares         uint64
	LastCutoffReduced int64 // unix seconds of the last thermal throttle

	Temp  byte // 0 == unknown
	PDone int  // 0..100 while programming, 101 once ready
}

func newFPGAState(id byte) *FPGAState {
	return &FPGAState{ID: id, PDone: 0}
}

// Config is the subset of ambient configuration the device layer consumes
// directly; the rest (paths, default clock) lives one layer up in
// package config.
type Config struct {
	TargetTemp              byte
	Hysteresis              byte
	CutoffTemp              byte
	ForceDevInit            bool
	WindowsReopenWorkaround bool
}

// DefaultConfig matches the original driver's defaults: 80C target with 3C
// hysteresis and an 85C informational cutoff.
func DefaultConfig() Config {
	return Config{TargetTemp: 80, Hysteresis: 3, CutoffTemp: 85}
}

// Device represents one physical board: one serial port shared by up to
// wire.MaxFPGAs independent FPGAs.
type Device struct {
	Path    string
	Name    string
	cfg     Config
	log     logrus.FieldLogger
	readMax time.Duration

	mu    sync.Mutex
	port  *serial.Port
	codec *wire.Codec

	FPGAs []*FPGAState

	HWErrors      uint64
	lifecycleInit bool // true until the first FPGA on this device finishes Init
}
