// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package aqualink implements the RS-485 framing used by Jandy pool equipment,
// commonly marketed as "Aqualink".
//
// A frame on the wire is:
//
//	10 02 | payload... | checksum | 10 03
//
// Every literal 0x10 inside the payload or checksum is sent as 10 00. The
// checksum is the 8-bit sum of the header and the unescaped payload.
package aqualink

// Framing bytes
const (
	DLE = 0x10 // data link escape, first byte of every marker
	STX = 0x02
	ETX = 0x03
	NUL = 0x00
)

var (
	header    = []byte{DLE, STX}
	footer    = []byte{DLE, ETX}
	escapeSeq = []byte{DLE, NUL}
	dle       = []byte{DLE}
)

// Frame size limits
const (
	// header + checksum + footer
	FrameOverhead = 5
	// Frames are never this long on a real bus; anything longer is junk.
	MaxFrameSize = 256
)
