// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/aquastat/pkg/aqualink"
	"github.com/Thermoquad/aquastat/pkg/jxi"
	"github.com/spf13/cobra"
)

var (
	probeTimeout int
	probeCount   int
	probeListen  bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe the heater and wait for its ACK",
	Long: `Send probe packets to the heater and wait for an ACK to each.

This is useful for verifying:
  - The RS-485 adapter or WebSocket bridge works in both directions
  - The heater answers on its bus address
  - Round trip time on the bus

With --listen nothing is sent; the command waits for any valid frame instead.

Exit codes:
  0 - All probes answered
  1 - One or more probes failed/timed out
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 2, "Timeout in seconds for each probe")
	probeCmd.Flags().IntVar(&probeCount, "count", 3, "Number of probes to send")
	probeCmd.Flags().BoolVar(&probeListen, "listen", false, "Only wait for a valid frame, do not transmit")
}

// readPayloads frames everything read from r onto a channel. The channel is
// closed when r fails.
func readPayloads(r io.Reader, errc chan<- error) <-chan []byte {
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		framer := aqualink.NewFramer(logger)
		buf := make([]byte, 128)
		for {
			n, err := r.Read(buf)
			framer.Feed(buf[:n])
			for p := range framer.Packets() {
				out <- p
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()
	return out
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	address := byte(cfg.Heater.Address)
	timeout := time.Duration(probeTimeout) * time.Second

	fmt.Printf("Aquastat - Heater Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Heater: %s\n", aqualink.FormatByte(address))
	fmt.Printf("Timeout: %d seconds per probe\n\n", probeTimeout)

	errc := make(chan error, 1)
	payloads := readPayloads(conn, errc)

	if probeListen {
		return listenForFrame(payloads, errc, timeout)
	}

	successCount := 0
	failCount := 0
	frame := aqualink.Encode(jxi.NewRequest(address, jxi.CmdProbe))

	for i := 1; i <= probeCount; i++ {
		fmt.Printf("Probe %d/%d: ", i, probeCount)

		startTime := time.Now()
		if _, err := conn.Write(frame); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		if waitForAck(payloads, errc, timeout, startTime) {
			successCount++
		} else {
			failCount++
		}

		if i < probeCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Probe statistics ---\n")
	fmt.Printf("%d probes sent, %d ACKs received, %.0f%% loss\n",
		probeCount, successCount, float64(failCount)/float64(probeCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// waitForAck skips everything but an ACK, which the heater sends to address 0
func waitForAck(payloads <-chan []byte, errc <-chan error, timeout time.Duration, start time.Time) bool {
	deadline := time.After(timeout)
	for {
		select {
		case p, ok := <-payloads:
			if !ok {
				fmt.Printf("READ FAILED: %v\n", <-errc)
				return false
			}
			if len(p) >= 2 && jxi.Command(p[1]) == jxi.CmdAck {
				fmt.Printf("ACK from heater, rtt=%v\n", time.Since(start).Round(time.Millisecond))
				return true
			}
		case <-deadline:
			fmt.Printf("TIMEOUT (no ACK in %v)\n", timeout)
			return false
		}
	}
}

func listenForFrame(payloads <-chan []byte, errc <-chan error, timeout time.Duration) error {
	fmt.Printf("Waiting for a valid frame...\n")
	select {
	case p, ok := <-payloads:
		if !ok {
			fmt.Printf("READ FAILED: %v\n", <-errc)
			os.Exit(1)
		}
		fmt.Printf("Received: %s\n", aqualink.FormatHex(p))
		return nil
	case <-time.After(timeout):
		fmt.Printf("TIMEOUT (no frame in %v)\n", timeout)
		os.Exit(1)
	}
	return nil
}
