// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultSocketPath is where the control command listens by default
const DefaultSocketPath = "/tmp/aquaheat.sock"

// Greeting is sent to every client when it connects
const Greeting = "aquastat socket interface.\n"

// Server exposes a Controller's text commands to socket clients
type Server struct {
	ctl *Controller
	log logrus.FieldLogger
}

// NewServer creates a command server for ctl
func NewServer(ctl *Controller, log logrus.FieldLogger) *Server {
	return &Server{ctl: ctl, log: log}
}

// Serve accepts clients on ln until ctx is cancelled. Each client gets its own
// session; a failing session never affects the others. Serve closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		wg.Go(func() { s.session(ctx, conn) })
	}
}

func (s *Server) session(ctx context.Context, conn net.Conn) {
	log := s.log.WithField("session", uuid.NewString())
	log.Info("client connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	if _, err := io.WriteString(conn, Greeting); err != nil {
		log.WithError(err).Warn("failed to send greeting")
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		log.WithField("line", line).Debug("command")

		reply, err := s.ctl.Exec(ctx, line)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			reply = err.Error() + "\n"
		}
		if reply == "" {
			continue
		}
		if _, err := io.WriteString(conn, reply); err != nil {
			log.WithError(err).Warn("write failed")
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("read failed")
	}
	log.Info("client disconnected")
}
