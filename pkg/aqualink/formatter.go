// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"fmt"
	"strings"
)

// FormatHex renders bytes as space separated lowercase hex, "68 0c 04"
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// FormatByte renders a single byte as 0xNN
func FormatByte(b byte) string {
	return fmt.Sprintf("0x%02x", b)
}
