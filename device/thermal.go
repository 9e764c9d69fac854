package device

import "time"

// pollTemperature reads TEMP1 for fpga and applies the throttle/cool-down
// rule. Must be called with the device lock held; callers are expected to
// invoke it once per poll cycle per the Thermal Supervisor's cadence.
func (d *Device) pollTemperature(fpga *FPGAState, now time.Time) error {
	if d.cfg.WindowsReopenWorkaround {
		if err := d.port.Reopen(); err != nil {
			return err
		}
	}

	temp, err := d.codec.Temp1(fpga.ID)
	if err != nil {
		return err
	}
	fpga.Temp = temp
	if temp == 0 {
		return nil // unknown reading, no throttling
	}
	if temp >= d.cfg.CutoffTemp {
		d.log.WithField("fpga", fpga.ID).WithField("temp", temp).Warn("temperature at or above cutoff")
	}

	target := d.cfg.TargetTemp
	hysteresis := d.cfg.Hysteresis
	gov := fpga.Governor
	if gov == nil {
		return nil
	}

	nowSec := now.Unix()
	switch {
	case temp > target+hysteresis:
		if fpga.LastCutoffReduced == nowSec {
			return nil // at most once per wallclock second
		}
		ok, err := gov.ReduceClock(func(freqM byte) (bool, error) {
			return d.applyClock(fpga.ID, freqM)
		})
		if err != nil {
			return err
		}
		if ok {
			fpga.LastCutoffReduced = nowSec
			d.log.WithField("fpga", fpga.ID).WithField("freqM", gov.FreqM).Warn("thermal throttle")
		}
	case gov.FreqMaxM < gov.FreqMaxMaxM && temp < target:
		gov.RelaxCeiling(temp < target-hysteresis)
	}
	return nil
}

// applyClock is the ApplyFunc every dclk.Governor call site on this device
// shares: issue SET_CLOCK at freqM*2 MHz and report acceptance.
func (d *Device) applyClock(fpgaid byte, freqM byte) (bool, error) {
	return d.codec.SetClock(fpgaid, freqM*2)
}
