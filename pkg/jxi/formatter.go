// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import (
	"fmt"
	"strings"
)

// FormatResult formats a decoded packet into a single human-readable line
func FormatResult(r Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s (0x%02x) dest=0x%02x", r.Time.Format("15:04:05.000"), r.Name(), byte(r.Command), r.Dest)
	for _, f := range r.Fields {
		fmt.Fprintf(&sb, " %s=0x%x", f.Name, f.Value)
	}
	if r.Truncated {
		sb.WriteString(" (truncated)")
	}

	return sb.String()
}

// FormatChange formats a state change
func FormatChange(c Change) string {
	return fmt.Sprintf("[%s] %q changed from %d to %d", c.At.Format("15:04:05.000"), c.Name, c.Old, c.New)
}
