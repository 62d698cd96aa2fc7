// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

// Packet builders return unframed payloads, ready for aqualink.Encode.

// NewRequest builds a bare request: destination and command only. Used for
// probes and status requests.
func NewRequest(dest byte, cmd Command) []byte {
	return []byte{dest, byte(cmd)}
}

// NewPing builds the ping that asserts intent onto the bus. Field order
// follows the catalog entry for CmdPing.
func NewPing(dest byte, in Intent) []byte {
	return []byte{
		dest,
		byte(CmdPing),
		in.Flags,
		in.SetpointSpa,
		in.SetpointPool,
		ExternalTempUnset,
	}
}
