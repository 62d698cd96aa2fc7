// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

// Checksum computes the additive 8-bit checksum over data
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Escape replaces every literal DLE with the two byte sequence DLE NUL.
func Escape(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)

	for _, b := range data {
		result = append(result, b)
		if b == DLE {
			result = append(result, NUL)
		}
	}

	return result
}

// Unescape reverses Escape. A DLE that is not followed by NUL is kept as is,
// so header and footer markers survive when a whole frame is unescaped.
func Unescape(data []byte) []byte {
	result := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		result = append(result, data[i])
		if data[i] == DLE && i+1 < len(data) && data[i+1] == NUL {
			i++
		}
	}

	return result
}
