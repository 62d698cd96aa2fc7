// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/aquastat/pkg/capture"
	"github.com/Thermoquad/aquastat/pkg/heater"
	"github.com/Thermoquad/aquastat/pkg/statesink"
	"github.com/spf13/cobra"
)

var (
	controlSocket      string
	controlMonitorOnly bool
	controlCapture     string
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control a JXi heater and serve the command socket",
	Long: `Drive a JXi heater over the Aqualink bus.

The controller cycles probe, ping and status requests to the heater, decodes
the replies and logs every state change. The ping carries the requested mode,
setpoints and heater enable flag.

Clients talk to the controller over a UNIX socket with line based commands:
  setpoint pool|spa <temp>F|C   change a setpoint (77F, 25C)
  heater pool|spa|on|off...     select mode and switch the heater
  status                        dump the decoded heater state
  stats                         link statistics
  help                          list commands

"heater on" only lasts for the keepalive window (5 minutes by default); send it
again periodically to keep the heater running.

Example:
  echo status | nc -U /tmp/aquaheat.sock

With --monitor-only nothing is transmitted and no socket is opened.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().StringVarP(&controlSocket, "socket", "s", "", "Command socket path (default from config, "+heater.DefaultSocketPath+")")
	controlCmd.Flags().BoolVar(&controlMonitorOnly, "monitor-only", false, "Only monitor the bus, do not send packets")
	controlCmd.Flags().StringVar(&controlCapture, "capture", "", "Record raw traffic to this file")
}

func runControl(cmd *cobra.Command, args []string) error {
	if controlSocket != "" {
		cfg.Socket = controlSocket
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := controllerOptions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	ctl, err := heater.New(conn, cfg.HeaterConfig(controlMonitorOnly), logger, opts...)
	if err != nil {
		conn.Close()
		return err
	}
	logger.WithField("connection", connInfo).Info("connected")

	serveErr := make(chan error, 1)
	if !controlMonitorOnly {
		ln, err := listenSocket(cfg.Socket)
		if err != nil {
			conn.Close()
			return err
		}
		logger.Infof("command socket at %q, try: echo status | nc -U %s", cfg.Socket, cfg.Socket)

		go func() {
			serveErr <- heater.NewServer(ctl, logger).Serve(ctx, ln)
		}()
	}

	runErr := ctl.Run(ctx)
	stop()

	if !controlMonitorOnly {
		if err := <-serveErr; err != nil {
			logger.WithError(err).Warn("command socket failed")
		}
		os.Remove(cfg.Socket)
	}

	if runErr != nil {
		return fmt.Errorf("controller stopped: %w", runErr)
	}
	return nil
}

// controllerOptions wires the optional capture file and Redis publisher
func controllerOptions(ctx context.Context) ([]heater.Option, func(), error) {
	var opts []heater.Option
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if controlCapture != "" {
		f, err := os.Create(controlCapture)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create capture file: %w", err)
		}
		closers = append(closers, func() { f.Close() })
		opts = append(opts, heater.WithRecorder(capture.NewWriter(f)))
		logger.WithField("file", controlCapture).Info("capturing traffic")
	}

	if cfg.Redis.Addr != "" {
		sink, err := statesink.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Prefix, logger)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { sink.Close() })
		opts = append(opts, heater.WithSink(sink))
		logger.WithField("addr", cfg.Redis.Addr).Info("publishing state to redis")
	}

	return opts, cleanup, nil
}

// listenSocket listens on a UNIX socket, replacing a stale one left behind by
// an earlier run
func listenSocket(path string) (net.Listener, error) {
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return nil, fmt.Errorf("another controller is listening on %s", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	return ln, nil
}
