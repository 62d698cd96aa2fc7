// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/aquastat/pkg/heater"
	"github.com/Thermoquad/aquastat/pkg/jxi"
	"github.com/spf13/cobra"
)

var monitorChanges bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode and print bus traffic without transmitting",
	Long: `Continuously decode and display Aqualink packets as they arrive.

Each packet is printed with timestamp, command and field values. Nothing is
sent on the bus, so this is safe to run next to another controller.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorChanges, "changes", false, "Print state changes below each packet")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	fmt.Printf("Aquastat - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	printPacket := func(r jxi.Result) {
		fmt.Println(jxi.FormatResult(r))
		if monitorChanges {
			for _, c := range r.Changes {
				fmt.Println("  " + jxi.FormatChange(c))
			}
		}
	}

	ctl, err := heater.New(conn, cfg.HeaterConfig(true), logger, heater.WithPacketHook(printPacket))
	if err != nil {
		conn.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctl.Run(ctx); err != nil {
		return fmt.Errorf("monitor stopped: %w", err)
	}
	return nil
}
