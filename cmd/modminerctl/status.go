package main

import (
	"fmt"

	"github.com/modminer/core/config"
	"github.com/modminer/core/device"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "print one device's status line and per-FPGA detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--path is required")
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			d, err := device.Open(path, cfg.ToDeviceConfig(), newLogger())
			if err != nil {
				return err
			}
			defer d.Close()

			fmt.Println(d.StatusLine())
			for i := range d.FPGAs {
				se, err := d.StatusExtra(i)
				if err != nil {
					return err
				}
				fmt.Printf("fpga %d: temp=%dC freq=%.0fMHz ceiling=%.0fMHz errors=%d valid=%d\n",
					i, se.Temperature,
					float64(se.FrequencyHz)/1e6, float64(se.CoolMaxFrequencyHz)/1e6,
					se.HardwareErrors, se.ValidNonces)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "serial device path")
	return cmd
}
