// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ffutop/flash-gateway/flash"
)

// Config defines the global configuration structure
type Config struct {
	Gateways []GatewayConfig `mapstructure:"gateways"`
	Log      LogConfig       `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// GatewayConfig defines a single served flash region
type GatewayConfig struct {
	Name      string           `mapstructure:"name"`
	Region    RegionConfig     `mapstructure:"region"`
	Device    DeviceConfig     `mapstructure:"device"`
	Upstreams []UpstreamConfig `mapstructure:"upstreams"`
}

// RegionConfig defines the flash geometry. Addresses accept decimal or
// 0x-prefixed hex strings, matching how geometry is written in datasheets.
type RegionConfig struct {
	BaseAddr       string `mapstructure:"base_addr"`
	Size           string `mapstructure:"size"`
	WriteBlockSize uint32 `mapstructure:"write_block_size"`
	EraseBlockSize uint32 `mapstructure:"erase_block_size"`
}

// Region resolves the configured geometry into a validated flash.Region.
func (rc RegionConfig) Region() (flash.Region, error) {
	base, err := parseAddr(rc.BaseAddr)
	if err != nil {
		return flash.Region{}, fmt.Errorf("invalid base_addr %q: %w", rc.BaseAddr, err)
	}
	size, err := parseAddr(rc.Size)
	if err != nil {
		return flash.Region{}, fmt.Errorf("invalid size %q: %w", rc.Size, err)
	}
	if size == 0 || uint64(base)+uint64(size) > 0xFFFF_FFFF {
		return flash.Region{}, fmt.Errorf("region [0x%08X, +0x%X) does not fit the 32-bit address space", base, size)
	}

	region := flash.Region{
		BaseAddr:       base,
		MaxAddr:        base + size,
		WriteBlockSize: rc.WriteBlockSize,
		EraseBlockSize: rc.EraseBlockSize,
	}
	if err := region.Validate(); err != nil {
		return flash.Region{}, err
	}
	return region, nil
}

func parseAddr(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	// base 0 accepts 0x-prefixed hex as well as plain decimal
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// DeviceConfig defines the backing for a flash part
type DeviceConfig struct {
	Type string `mapstructure:"type"` // "mem", "file", "mmap"
	Path string `mapstructure:"path"` // Backing file path for "file"/"mmap"
}

// UpstreamConfig defines a listener serving the region to remote tooling
type UpstreamConfig struct {
	Type   string       `mapstructure:"type"`   // "tcp", "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:9450"
}

// SerialConfig defines serial line settings
type SerialConfig struct {
	Device    string        `mapstructure:"device"`
	BaudRate  int           `mapstructure:"baud_rate"`
	DataBits  int           `mapstructure:"data_bits"`
	Parity    string        `mapstructure:"parity"`
	StopBits  int           `mapstructure:"stop_bits"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RqstPause time.Duration `mapstructure:"rqst_pause"` // Pause between requests
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/flashgw/")
		v.AddConfigPath("$HOME/.flashgw")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to found config file: %w", err)
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	for i := range config.Gateways {
		gw := &config.Gateways[i]

		fixupRegion(&gw.Region)
		if _, err := gw.Region.Region(); err != nil {
			return nil, fmt.Errorf("gateway %q: %w", gw.Name, err)
		}

		switch gw.Device.Type {
		case "", "mem":
			gw.Device.Type = "mem"
		case "file", "mmap":
			if gw.Device.Path == "" {
				return nil, fmt.Errorf("gateway %q: device type %q requires a path", gw.Name, gw.Device.Type)
			}
		default:
			return nil, fmt.Errorf("gateway %q: unknown device type %q", gw.Name, gw.Device.Type)
		}

		for j := range gw.Upstreams {
			fixupSerial(&gw.Upstreams[j].Serial)
		}
	}

	return &config, nil
}

func fixupRegion(rc *RegionConfig) {
	if rc.EraseBlockSize == 0 {
		// Parts of this family erase at row granularity.
		rc.EraseBlockSize = rc.WriteBlockSize
	}
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.BaudRate == 0 {
		s.BaudRate = 115200
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
	if s.RqstPause == 0 {
		s.RqstPause = 100 * time.Millisecond
	}
}
