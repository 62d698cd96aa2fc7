// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Representable setpoint range in degrees Celsius. Negative values are sent
// as two's complement bytes (0xe0-0xff).
const (
	MinCelsius = -32
	MaxCelsius = 191
)

// ErrTemperatureRange is returned for temperatures outside MinCelsius..MaxCelsius
var ErrTemperatureRange = errors.New("cannot represent temperature")

// EncodeTemperature converts whole degrees Celsius to the wire byte
func EncodeTemperature(celsius int) (byte, error) {
	if celsius < MinCelsius || celsius > MaxCelsius {
		return 0, fmt.Errorf("%w %d°C (range %d..%d)", ErrTemperatureRange, celsius, MinCelsius, MaxCelsius)
	}
	if celsius < 0 {
		return byte(celsius + 0x100), nil
	}
	return byte(celsius), nil
}

// DecodeTemperature converts a wire byte back to degrees Celsius
func DecodeTemperature(b byte) int {
	if b >= 0xe0 {
		return int(b) - 0x100
	}
	return int(b)
}

// ParseTemperature parses "<number><F|C>" and returns whole degrees Celsius.
// Fahrenheit is converted and rounded to the nearest degree.
func ParseTemperature(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("need a temperature like 77F or 25C, got %q", s)
	}

	unit := strings.ToUpper(s[len(s)-1:])
	value, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid temperature %q", s)
	}

	switch unit {
	case "F":
		value = (value - 32) * 5 / 9
	case "C":
	default:
		return 0, fmt.Errorf(`need to specify "F" or "C" scale with temperature`)
	}

	rounded := math.Round(value)
	if rounded < MinCelsius || rounded > MaxCelsius {
		return 0, fmt.Errorf("%w %s (range %d..%d°C)", ErrTemperatureRange, s, MinCelsius, MaxCelsius)
	}
	return int(rounded), nil
}
