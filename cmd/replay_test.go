// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/Thermoquad/aquastat/pkg/aqualink"
	"github.com/Thermoquad/aquastat/pkg/capture"
	"github.com/Thermoquad/aquastat/pkg/jxi"
	"github.com/sirupsen/logrus"
)

func TestReplay(t *testing.T) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	logger = quiet

	var file bytes.Buffer
	w := capture.NewWriter(&file)

	in, _ := jxi.NewIntent(20, 35)
	w.Record(capture.Tx, aqualink.Encode(jxi.NewPing(jxi.DeviceAddress, in)))

	// A status frame split across two reads
	status := aqualink.Encode([]byte{0x00, byte(jxi.CmdStatus), 0x15, 0x00, 0x56, 0x01, 0xf5, 0x00, 0x23})
	w.Record(capture.Rx, status[:5])
	w.Record(capture.Rx, status[5:])
	w.Record(capture.Rx, aqualink.Encode([]byte{0x00, 0x77}))

	var out bytes.Buffer
	if err := replay(bytes.NewReader(file.Bytes()), &out, false); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"rx [", "status (0x25)", "cycles=0x156", "water_temp", "unknown command 0x77", "Unknown Cmds:"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ping (0x0c)") {
		t.Error("Transmitted frames should be skipped without --tx")
	}

	out.Reset()
	if err := replay(bytes.NewReader(file.Bytes()), &out, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "tx [") {
		t.Errorf("Expected tx packets with --tx:\n%s", out.String())
	}
}
