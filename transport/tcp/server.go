// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/ffutop/flash-gateway/transport"
	"github.com/ffutop/flash-gateway/wire"
)

// Server serves a flash region over TCP.
type Server struct {
	Address string
	Handler transport.RequestHandler

	listener net.Listener
}

// NewServer creates a new TCP Server.
func NewServer(address string) *Server {
	return &Server{
		Address: address,
	}
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	s.Handler = handler
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	slog.Info("Flash TCP server listening", "addr", s.Address)

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if closed
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("Failed to accept connection", "err", err)
				continue
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	slog.Info("New TCP client connected", "addr", conn.RemoteAddr())

	for {
		// Check context
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := wire.ReadFrame(conn)
		if err != nil {
			if err == io.EOF {
				slog.Info("TCP client disconnected gracefully", "addr", conn.RemoteAddr())
				return
			}
			if errors.Is(err, wire.ErrCRCMismatch) {
				// Frame arrived intact but corrupt; the stream is still in sync.
				slog.Error("Corrupt request frame", "addr", conn.RemoteAddr(), "err", err)
				s.respond(conn, wire.Status(wire.StatusBadRequest))
				continue
			}
			// Framing lost; the connection cannot be trusted any more.
			slog.Error("Failed to read request frame", "addr", conn.RemoteAddr(), "err", err)
			return
		}

		if s.Handler == nil {
			slog.Error("No handler defined for TCP server")
			return
		}

		resp, err := s.Handler(ctx, req)
		if err != nil {
			slog.Error("Handler failed", "err", err)
			resp = wire.Status(wire.StatusIOError)
		}

		if !s.respond(conn, resp) {
			return
		}
	}
}

func (s *Server) respond(conn net.Conn, resp wire.Frame) bool {
	raw, err := resp.Encode()
	if err != nil {
		slog.Error("Failed to encode TCP response", "err", err)
		return false
	}
	if _, err := conn.Write(raw); err != nil {
		slog.Error("Failed to write response to connection", "err", err)
		return false
	}
	return true
}
