// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/flash-gateway/internal/config"
	"github.com/ffutop/flash-gateway/transport"
	"github.com/ffutop/flash-gateway/wire"
)

// Server serves a flash region on a serial line, answering row protocol
// requests from an external host, e.g. programming tooling on a bench UART.
type Server struct {
	Config config.SerialConfig
}

// NewServer creates a new serial Server.
func NewServer(cfg config.SerialConfig) *Server {
	return &Server{
		Config: cfg,
	}
}

// Start opens the port and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	spConfig := &serial.Config{
		Address:  s.Config.Device,
		BaudRate: s.Config.BaudRate,
		DataBits: s.Config.DataBits,
		StopBits: s.Config.StopBits,
		Parity:   s.Config.Parity,
		Timeout:  s.Config.Timeout, // Read timeout
	}

	port, err := serial.Open(spConfig)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.Config.Device, err)
	}
	defer port.Close()
	slog.Info("Flash serial server listening", "device", s.Config.Device)

	// handle close
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return s.scanLoop(ctx, port, handler)
}

// Close is a no-op; Start owns the port and closes it on context cancel.
func (s *Server) Close() error {
	return nil
}

func (s *Server) scanLoop(ctx context.Context, port io.ReadWriteCloser, handler transport.RequestHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		raw, err := readFrame(port, time.Now().Add(s.Config.Timeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Timeouts are the idle state of the line; keep scanning.
			continue
		}

		req, err := wire.Decode(raw)
		if err != nil {
			if errors.Is(err, wire.ErrCRCMismatch) {
				// A framed but corrupt request; tell the host to resend.
				s.respond(port, wire.Status(wire.StatusBadRequest))
			}
			continue
		}

		resp, err := handler(ctx, req)
		if err != nil {
			slog.Error("Upstream handler failed", "err", err)
			resp = wire.Status(wire.StatusIOError)
		}
		s.respond(port, resp)
	}
}

func (s *Server) respond(port io.Writer, resp wire.Frame) {
	raw, err := resp.Encode()
	if err != nil {
		slog.Error("Failed to encode serial response", "err", err)
		return
	}
	if _, err := port.Write(raw); err != nil {
		slog.Error("Failed to write response to serial port", "err", err)
	}
}
