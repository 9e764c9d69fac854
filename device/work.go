package device

import (
	"time"

	"github.com/modminer/core/wire"
)

// maxPollIterations bounds the CHECK_WORK poll loop in processResults; it
// self-terminates here or on a work-restart signal, never on an explicit
// cancellation token.
const maxPollIterations = 200

// pollSleep is the backpressure yield between CHECK_WORK polls, short
// enough to keep throughput high but long enough to let a peer FPGA's
// worker get the lock.
const pollSleep = time.Millisecond

// Callbacks are the host-owned operations ScanHash calls out to. None of
// them are implemented by this package: hash verification and share
// accounting belong to the host's scheduler.
type Callbacks struct {
	TestNonce   func(work *WorkUnit, nonce uint32) bool
	SubmitNonce func(work *WorkUnit, nonce uint32)
	WorkRestart func() bool
}

// ScanHash is the per-FPGA worker's single-entry operation, called
// repeatedly by the host scheduler with a (possibly repeated) work unit.
// It returns the hashes newly credited this call, or -1 on a soft
// transport failure that aborted the in-flight job.
func (d *Device) ScanHash(fpgaID int, work *WorkUnit, cb Callbacks) (int64, error) {
	if fpgaID < 0 || fpgaID >= len(d.FPGAs) {
		return -1, wrapErr(d.Path, "scanhash", ErrProtocolViolation)
	}
	fpga := d.FPGAs[fpgaID]

	startwork := !work.sameJob(stagedWork(fpga))
	if !startwork {
		if fpga.WorkRunning {
			hashes, err := d.processResults(fpga, cb)
			if err != nil {
				fpga.WorkRunning = false
				return -1, err
			}
			if cb.WorkRestart != nil && cb.WorkRestart() {
				fpga.WorkRunning = false
			}
			return hashes, nil
		}
		fpga.WorkRunning = true
		return 0, nil
	}

	fpga.LastWork = fpga.RunningWork
	fpga.RunningWork = work
	fpga.NextWorkCmd[0] = byte(wire.OpSendWork)
	fpga.NextWorkCmd[1] = fpga.ID
	copy(fpga.NextWorkCmd[2:34], work.Midstate[:])
	tail := work.tail()
	copy(fpga.NextWorkCmd[34:46], tail[:])

	err := d.withLock(func() error {
		return d.codec.SendWork(fpga.ID, work.Midstate, tail)
	})
	if err != nil {
		fpga.WorkRunning = false
		return -1, err
	}
	fpga.WorkStart = time.Now()
	fpga.Hashes = 0
	fpga.WorkRunning = true
	return 0, nil
}

func stagedWork(fpga *FPGAState) *WorkUnit {
	if fpga.NextWorkCmd[0] == 0 && fpga.NextWorkCmd[1] == 0 {
		return nil // never staged anything yet
	}
	w := &WorkUnit{}
	copy(w.Midstate[:], fpga.NextWorkCmd[2:34])
	copy(w.Data[64:76], fpga.NextWorkCmd[34:46])
	return w
}

// processResults reads temperature once, then polls CHECK_WORK up to
// maxPollIterations times, crediting nonces against RunningWork first and
// LastWork second. It intentionally does not drain RunningWork's trailing
// nonces before ScanHash starts the next job in the same cycle: those
// nonces are left for this same loop to pick up against LastWork on a
// later call, exactly as the original firmware-paced driver does. A
// disabled-FPGA reply (wire.DisabledNonce) is not idle like wire.NoNonce —
// it is run through the same credit path and, failing both tests, counts
// as a hardware error. The cycle ends by feeding its bad/total ratio to
// the clock governor and letting it step the frequency.
func (d *Device) processResults(fpga *FPGAState, cb Callbacks) (int64, error) {
	if err := d.withLock(func() error {
		return d.pollTemperature(fpga, time.Now())
	}); err != nil {
		return 0, err
	}

	var total, bad int
	for i := 0; i < maxPollIterations; i++ {
		var nonce uint32
		err := d.withLock(func() error {
			n, err := d.codec.CheckWork(fpga.ID)
			nonce = n
			return err
		})
		if err != nil {
			return 0, err
		}

		if nonce != wire.NoNonce {
			total++
			if !d.creditNonce(fpga, cb, nonce) {
				bad++
			}
		}

		if cb.WorkRestart != nil && cb.WorkRestart() {
			break
		}
		time.Sleep(pollSleep)
		if cb.WorkRestart != nil && cb.WorkRestart() {
			break
		}
	}

	if gov := fpga.Governor; gov != nil {
		gov.GotNonces()
		if bad > 0 {
			gov.ErrorCount(float64(bad) / float64(total))
		}
		gov.PreUpdate()
		if err := gov.UpdateFreq(d.log, func(freqM byte) (bool, error) {
			var accepted bool
			err := d.withLock(func() error {
				a, err := d.applyClock(fpga.ID, freqM)
				accepted = a
				return err
			})
			return accepted, err
		}); err != nil {
			return 0, err
		}
	}

	return d.creditHashes(fpga), nil
}

// creditNonce tests nonce against RunningWork then LastWork, reporting
// whether either accepted it.
func (d *Device) creditNonce(fpga *FPGAState, cb Callbacks, nonce uint32) bool {
	candidate := fpga.RunningWork
	if candidate != nil && cb.TestNonce != nil && cb.TestNonce(candidate, nonce) {
		fpga.GoodShares++
		if cb.SubmitNonce != nil {
			cb.SubmitNonce(candidate, nonce)
		}
		return true
	}
	candidate = fpga.LastWork
	if candidate != nil && cb.TestNonce != nil && cb.TestNonce(candidate, nonce) {
		fpga.GoodShares++
		if cb.SubmitNonce != nil {
			cb.SubmitNonce(candidate, nonce)
		}
		return true
	}
	fpga.BadShares++
	d.HWErrors++
	return false
}

// creditHashes estimates hashes produced since WorkStart from elapsed
// time and the current clock, since the FPGA reports no exact count. The
// total is capped and kept monotonic within one job.
func (d *Device) creditHashes(fpga *FPGAState) int64 {
	if fpga.Governor == nil {
		return 0
	}
	elapsedUS := time.Since(fpga.WorkStart).Microseconds()
	mhz := int64(fpga.Governor.FreqM) * 2
	estimate := elapsedUS * mhz
	if estimate > 0xffffffff {
		estimate = 0xffffffff
	}
	credited := estimate - int64(fpga.Hashes)
	if credited < 1 {
		credited = 1
	}
	fpga.Hashes = uint32(estimate)
	return credited
}
