// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Aquastat - Aqualink RS-485 monitor and JXi heater controller
//
// A CLI tool for driving Jandy JXi pool heaters and decoding the Aqualink
// traffic they exchange.

package main

import (
	"os"

	"github.com/Thermoquad/aquastat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
