package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/modminer/core/dclk"
)

func dclkMinMHz() int { return int(dclk.MinClockM) * 2 }
func dclkMaxMHz() int { return int(dclk.MaxClockM) * 2 }

// TempStats is get_stats' per-board reply: the last known temperature of
// every FPGA plus the hottest one.
type TempStats struct {
	Temps   []byte
	Hottest byte
}

// GetStats returns cached temperatures: what pollTemperature last
// observed for each FPGA. It never issues TEMP1 itself, whatever the
// device's state, so an FPGA that has not been polled reports 0.
func (d *Device) GetStats() TempStats {
	stats := TempStats{Temps: make([]byte, len(d.FPGAs))}
	for i, fpga := range d.FPGAs {
		stats.Temps[i] = fpga.Temp
		if fpga.Temp > stats.Hottest {
			stats.Hottest = fpga.Temp
		}
	}
	return stats
}

// StatusExtra is the per-board record exposed beyond the core status
// fields; frequencies are reported in Hz as freqM*2*1_000_000, matching
// the wire unit (freqM is the halved MHz value SET_CLOCK uses).
type StatusExtra struct {
	Temperature        byte
	FrequencyHz        uint64
	CoolMaxFrequencyHz uint64
	MaxFrequencyHz     uint64
	HardwareErrors     uint64
	ValidNonces        uint64
}

func (d *Device) StatusExtra(fpgaID int) (StatusExtra, error) {
	if fpgaID < 0 || fpgaID >= len(d.FPGAs) {
		return StatusExtra{}, wrapErr(d.Path, "status_extra", ErrProtocolViolation)
	}
	fpga := d.FPGAs[fpgaID]
	se := StatusExtra{
		Temperature:    fpga.Temp,
		HardwareErrors: d.HWErrors,
		ValidNonces:    fpga.GoodShares,
	}
	if fpga.Governor != nil {
		se.FrequencyHz = freqHz(fpga.Governor.FreqM)
		se.CoolMaxFrequencyHz = freqHz(fpga.Governor.FreqMaxM)
		se.MaxFrequencyHz = freqHz(fpga.Governor.FreqMaxMaxM)
	}
	return se, nil
}

func freqHz(freqM byte) uint64 {
	return uint64(freqM) * 2 * 1_000_000
}

// StatusLine formats a one-line operator summary: programming percentage
// while any FPGA is still below pdone 101, otherwise a per-FPGA
// temperature strip. This mirrors the original driver's CLI status line;
// it is not part of the wire protocol or any host data contract.
func (d *Device) StatusLine() string {
	for _, fpga := range d.FPGAs {
		if fpga.PDone != 101 {
			return fmt.Sprintf("%3d%%", fpga.PDone)
		}
	}
	parts := make([]string, len(d.FPGAs))
	for i, fpga := range d.FPGAs {
		parts[i] = fmt.Sprintf("%2dC", fpga.Temp)
	}
	return strings.Join(parts, " ")
}

// SetDevice implements the "clock[N]"/"clock" runtime override plus the
// "help" introspection option. It bypasses the adaptive loop entirely: a
// well-formed override still updates FreqMDefault even when the device
// rejects the requested value, matching the original driver's behavior of
// remembering the user's intent for the next calibration. It issues
// SET_CLOCK even for an FPGA whose Governor hasn't been seeded by
// Init/Calibrate yet, since an operator overriding the clock by hand has no
// reason to run calibration first.
func (d *Device) SetDevice(option, value string) (string, error) {
	if option == "help" {
		return fmt.Sprintf("clock: range %d-%d MHz, even only", dclkMinMHz(), dclkMaxMHz()), nil
	}

	target := -1
	if option != "clock" {
		if !strings.HasPrefix(option, "clock") {
			return "", fmt.Errorf("unknown option %q", option)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(option, "clock"))
		if err != nil || n < 0 || n >= len(d.FPGAs) {
			return "", fmt.Errorf("invalid fpga index in %q", option)
		}
		target = n
	}

	mhz, err := strconv.Atoi(value)
	if err != nil || mhz%2 != 0 || mhz < dclkMinMHz() || mhz > dclkMaxMHz() {
		return "", fmt.Errorf("invalid clock value %q: must be even, %d-%d", value, dclkMinMHz(), dclkMaxMHz())
	}
	freqM := byte(mhz / 2)

	var rejected bool
	var lastErr error
	for i, fpga := range d.FPGAs {
		if target != -1 && i != target {
			continue
		}
		if fpga.Governor != nil {
			fpga.Governor.FreqMDefault = freqM
		}
		err := d.withLock(func() error {
			accepted, err := d.applyClock(fpga.ID, freqM)
			if err != nil {
				return err
			}
			if accepted {
				if fpga.Governor != nil {
					fpga.Governor.FreqM = freqM
				}
			} else {
				rejected = true
			}
			return nil
		})
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	if rejected {
		return "", fmt.Errorf("device rejected clock=%d", mhz)
	}
	return fmt.Sprintf("clock set to %d", mhz), nil
}
