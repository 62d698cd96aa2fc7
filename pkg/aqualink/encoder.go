// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

// Encode builds a complete wire frame for payload.
//
// The checksum covers the header and the raw payload. Payload and checksum are
// escaped together, then wrapped in header and footer. The result is meant to
// be handed to the transport in a single write.
func Encode(payload []byte) []byte {
	sum := Checksum(header) + Checksum(payload)

	data := make([]byte, 0, len(payload)+1)
	data = append(data, payload...)
	data = append(data, sum)

	stuffed := Escape(data)

	frame := make([]byte, 0, len(stuffed)+len(header)+len(footer))
	frame = append(frame, header...)
	frame = append(frame, stuffed...)
	frame = append(frame, footer...)

	return frame
}
