package main

import (
	"fmt"

	"github.com/modminer/core/config"
	"github.com/modminer/core/device"
	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "probe candidate serial paths and report which answer as ModMiner boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if len(cfg.DevicePaths) == 0 {
				return fmt.Errorf("no device_paths configured")
			}

			log := newLogger()
			devices := device.Detect(cfg.DevicePaths, cfg.ToDeviceConfig(), log)
			defer func() {
				for _, d := range devices {
					_ = d.Close()
				}
			}()

			if len(devices) == 0 {
				fmt.Println("no devices responded")
				return nil
			}
			for _, d := range devices {
				fmt.Printf("%s\t%s\t%d fpga(s)\n", d.Path, d.Name, len(d.FPGAs))
			}
			return nil
		},
	}
}
