// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/aquastat/pkg/aqualink"
	"github.com/Thermoquad/aquastat/pkg/capture"
	"github.com/Thermoquad/aquastat/pkg/jxi"
	"github.com/spf13/cobra"
)

var replayTx bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a capture file offline",
	Long: `Decode traffic recorded with "control --capture".

Received chunks are run through the same framer and decoder as on the live bus.
With --tx the controller's own requests are decoded too. The final device
state and link statistics are printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayTx, "tx", false, "Also decode transmitted frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	return replay(f, os.Stdout, replayTx)
}

// replay decodes every record in r and writes the packets, changes and the
// final summary to w
func replay(r io.Reader, w io.Writer, includeTx bool) error {
	framers := map[capture.Direction]*aqualink.Framer{
		capture.Rx: aqualink.NewFramer(logger),
		capture.Tx: aqualink.NewFramer(logger),
	}
	decoder := jxi.NewDecoder(jxi.NewState())
	stats := framers[capture.Rx].Stats()

	reader := capture.NewReader(r)
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if rec.Direction == capture.Tx && !includeTx {
			continue
		}

		framer, ok := framers[rec.Direction]
		if !ok {
			return fmt.Errorf("unknown direction %s in capture", rec.Direction)
		}
		framer.Feed(rec.Data)
		for payload := range framer.Packets() {
			res, err := decoder.Decode(payload)
			if err != nil {
				if errors.Is(err, jxi.ErrUnknownCommand) {
					stats.UnknownCommands++
				}
				fmt.Fprintf(w, "%s %v: %s\n", rec.Direction, err, aqualink.FormatHex(payload))
				continue
			}
			stats.BitAnomalies += uint64(len(res.Anomalies))

			// Replay timestamps come from the capture, not the wall clock
			res.Time = rec.At()
			fmt.Fprintf(w, "%s %s\n", rec.Direction, jxi.FormatResult(res))
			for _, c := range res.Changes {
				c.At = res.Time
				fmt.Fprintf(w, "   %s\n", jxi.FormatChange(c))
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n%s", decoder.State().Format(), stats)
	return nil
}
