// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/flash-gateway/internal/config"
	"github.com/ffutop/flash-gateway/wire"
)

// Client implements Downstream (row protocol over a serial line), e.g. a
// flash part sitting behind an external programmer on a UART.
type Client struct {
	frameSerialTransporter
}

// NewClient allocates and initializes a serial Client.
func NewClient(cfg config.SerialConfig) *Client {
	client := &Client{}

	// Map internal config to serial.Config
	client.serialPort.Config.Address = cfg.Device
	client.serialPort.Config.BaudRate = cfg.BaudRate
	client.serialPort.Config.DataBits = cfg.DataBits
	client.serialPort.Config.StopBits = cfg.StopBits
	client.serialPort.Config.Parity = cfg.Parity
	client.serialPort.Config.Timeout = cfg.Timeout

	client.IdleTimeout = serialIdleTimeout
	return client
}

// Exchange sends one request frame and reads the response frame.
func (mb *Client) Exchange(ctx context.Context, req wire.Frame) (wire.Frame, error) {
	raw, err := req.Encode()
	if err != nil {
		return wire.Frame{}, fmt.Errorf("failed to encode request: %w", err)
	}

	respRaw, err := mb.frameSerialTransporter.Send(ctx, raw)
	if err != nil {
		return wire.Frame{}, err
	}

	resp, err := wire.Decode(respRaw)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("failed to decode response frame: %w", err)
	}
	return resp, nil
}

// frameSerialTransporter implements underlying serial comms.
type frameSerialTransporter struct {
	serialPort
}

func (mb *frameSerialTransporter) Send(ctx context.Context, request []byte) (response []byte, err error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if err = mb.connect(ctx); err != nil {
		return
	}
	mb.lastActivity = time.Now()
	mb.startCloseTimer()

	slog.Debug("send to flash device", "request", hex.EncodeToString(request))
	if _, err = mb.port.Write(request); err != nil {
		return
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(mb.calculateDelay(len(request))):
	}

	frame, err := readFrame(mb.port, time.Now().Add(mb.Config.Timeout))
	if err != nil {
		return nil, err
	}
	slog.Debug("recv from flash device", "response", hex.EncodeToString(frame))
	response = frame
	return
}

// calculateDelay calculates the needed delay to separate frames.
func (mb *frameSerialTransporter) calculateDelay(chars int) time.Duration {
	var characterDelay, frameDelay int

	if mb.BaudRate <= 0 || mb.BaudRate > 19200 {
		characterDelay = 750
		frameDelay = 1750
	} else {
		characterDelay = 15000000 / mb.BaudRate
		frameDelay = 35000000 / mb.BaudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}
