package main

import (
	"fmt"
	"strconv"

	"github.com/modminer/core/config"
	"github.com/modminer/core/device"
	"github.com/spf13/cobra"
)

func newSetClockCmd() *cobra.Command {
	var path, fpga string
	var mhz int
	var help bool

	cmd := &cobra.Command{
		Use:   "set-clock",
		Short: "override a board's (or one FPGA's) clock by hand",
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

			option := "clock"
			if fpga != "" {
				option = "clock" + fpga
			}
			if help {
				msg, err := d.SetDevice("help", "")
				if err != nil {
					return err
				}
				fmt.Println(msg)
				return nil
			}
			msg, err := d.SetDevice(option, strconv.Itoa(mhz))
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "serial device path")
	cmd.Flags().StringVar(&fpga, "fpga", "", "FPGA index; empty applies to all")
	cmd.Flags().IntVar(&mhz, "mhz", 0, "requested clock in MHz (even)")
	cmd.Flags().BoolVar(&help, "help-range", false, "print the accepted clock range instead of setting it")
	return cmd
}
