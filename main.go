// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ffutop/flash-gateway/device"
	"github.com/ffutop/flash-gateway/flash"
	"github.com/ffutop/flash-gateway/internal/config"
	"github.com/ffutop/flash-gateway/internal/gateway"
	localdevice "github.com/ffutop/flash-gateway/internal/local-device"
	"github.com/ffutop/flash-gateway/transport"
	"github.com/ffutop/flash-gateway/transport/serial"
	"github.com/ffutop/flash-gateway/transport/tcp"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Flash Gateway...")

	// Create Gateways
	var gateways []*gateway.Gateway
	var devices []device.Device

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, gwCfg := range cfg.Gateways {
		region, err := gwCfg.Region.Region()
		if err != nil {
			slog.Error("Invalid region", "gateway", gwCfg.Name, "err", err)
			continue
		}

		dev, err := openDevice(gwCfg.Device, region)
		if err != nil {
			slog.Error("Failed to open device", "gateway", gwCfg.Name, "err", err)
			continue
		}

		drv, err := flash.NewDriver(region, dev)
		if err != nil {
			slog.Error("Failed to build driver", "gateway", gwCfg.Name, "err", err)
			dev.Close()
			continue
		}

		// Create Upstreams
		var upstreams []transport.Upstream
		for _, usCfg := range gwCfg.Upstreams {
			var us transport.Upstream
			switch usCfg.Type {
			case "tcp":
				us = tcp.NewServer(usCfg.Tcp.Address)
			case "serial":
				us = serial.NewServer(usCfg.Serial)
			default:
				slog.Error("Unknown upstream type", "type", usCfg.Type, "gateway", gwCfg.Name)
				continue
			}
			upstreams = append(upstreams, us)
		}

		devices = append(devices, dev)
		gw := gateway.NewGateway(gwCfg.Name, upstreams, localdevice.New(drv))
		gateways = append(gateways, gw)
	}

	if len(gateways) == 0 {
		slog.Error("No valid gateways configured. Exiting.")
		os.Exit(1)
	}

	// Start Gateways
	var wg sync.WaitGroup
	for _, gw := range gateways {
		wg.Add(1)
		go func(g *gateway.Gateway) {
			defer wg.Done()
			if err := g.Start(ctx); err != nil {
				slog.Error("Gateway stopped with error", "name", g.Name, "err", err)
			}
		}(gw)
	}

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()
	wg.Wait()

	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			slog.Error("Failed to close device", "err", err)
		}
	}
	slog.Info("Goodbye.")
}

// openDevice builds the configured backing for a region.
func openDevice(cfg config.DeviceConfig, region flash.Region) (device.Device, error) {
	switch cfg.Type {
	case "mem":
		slog.Info("Initializing simulated part (non-persistent)")
		return device.NewMem(region.BaseAddr, region.Size(), region.WriteBlockSize)
	case "file":
		slog.Info("Initializing file-backed part", "path", cfg.Path)
		return device.OpenFile(cfg.Path, region.BaseAddr, region.Size(), region.WriteBlockSize)
	case "mmap":
		slog.Info("Initializing mmap-backed part", "path", cfg.Path)
		return device.OpenMmap(cfg.Path, region.BaseAddr, region.Size(), region.WriteBlockSize)
	default:
		return nil, fmt.Errorf("unknown device type %q", cfg.Type)
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
