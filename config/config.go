// Package config loads the operator-facing settings that sit above the
// driver core: which serial paths to probe and the defaults device.Config
// needs before the first Init. Nothing here touches the wire protocol.
package config

import (
	"fmt"

	"github.com/modminer/core/device"
	"github.com/spf13/viper"
)

// Config is the on-disk/environment shape; ToDeviceConfig projects the
// subset the driver core consumes.
type Config struct {
	DevicePaths  []string `mapstructure:"device_paths"`
	TargetTemp   byte     `mapstructure:"target_temp"`
	Hysteresis   byte     `mapstructure:"hysteresis"`
	CutoffTemp   byte     `mapstructure:"cutoff_temp"`
	ForceDevInit bool     `mapstructure:"force_dev_init"`
	DefaultClock int      `mapstructure:"default_clock"`

	WindowsReopenWorkaround bool `mapstructure:"windows_reopen_workaround"`
}

// Defaults mirrors device.DefaultConfig so a config file only needs to
// override what differs from the original driver's defaults.
func Defaults() Config {
	d := device.DefaultConfig()
	return Config{
		TargetTemp:   d.TargetTemp,
		Hysteresis:   d.Hysteresis,
		CutoffTemp:   d.CutoffTemp,
		DefaultClock: 200,
	}
}

// Load reads configuration from path (if non-empty), then MODMINER_-prefixed
// environment variables, layered over Defaults(). path may name a YAML,
// TOML, or JSON file; viper infers the format from its extension.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("MODMINER")
	v.AutomaticEnv()
	v.SetDefault("target_temp", cfg.TargetTemp)
	v.SetDefault("hysteresis", cfg.Hysteresis)
	v.SetDefault("cutoff_temp", cfg.CutoffTemp)
	v.SetDefault("default_clock", cfg.DefaultClock)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// ToDeviceConfig projects the fields device.Open/Init consume.
func (c Config) ToDeviceConfig() device.Config {
	return device.Config{
		TargetTemp:              c.TargetTemp,
		Hysteresis:              c.Hysteresis,
		CutoffTemp:              c.CutoffTemp,
		ForceDevInit:            c.ForceDevInit,
		WindowsReopenWorkaround: c.WindowsReopenWorkaround,
	}
}
