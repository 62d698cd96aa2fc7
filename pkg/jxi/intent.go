// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import "fmt"

// Mode selects which body of water the heater serves
type Mode int

// Heater modes
const (
	ModeNone Mode = iota
	ModePool
	ModeSpa
)

func (m Mode) String() string {
	switch m {
	case ModePool:
		return "pool"
	case ModeSpa:
		return "spa"
	default:
		return "none"
	}
}

// Intent is what the controller asserts onto the bus in every ping
type Intent struct {
	Flags        byte
	SetpointPool byte
	SetpointSpa  byte
}

// NewIntent creates an intent in Celsius with the heater off
func NewIntent(poolCelsius, spaCelsius int) (Intent, error) {
	pool, err := EncodeTemperature(poolCelsius)
	if err != nil {
		return Intent{}, fmt.Errorf("pool setpoint: %w", err)
	}
	spa, err := EncodeTemperature(spaCelsius)
	if err != nil {
		return Intent{}, fmt.Errorf("spa setpoint: %w", err)
	}
	return Intent{
		Flags:        CtlCelsius,
		SetpointPool: pool,
		SetpointSpa:  spa,
	}, nil
}

// SetMode switches between pool and spa. The two are mutually exclusive.
func (in *Intent) SetMode(m Mode) {
	in.Flags &^= CtlPool | CtlSpa
	switch m {
	case ModePool:
		in.Flags |= CtlPool
	case ModeSpa:
		in.Flags |= CtlSpa
	}
}

// Mode returns the selected body of water
func (in Intent) Mode() Mode {
	switch {
	case in.Flags&CtlPool != 0:
		return ModePool
	case in.Flags&CtlSpa != 0:
		return ModeSpa
	default:
		return ModeNone
	}
}

// SetHeater sets or clears the heater enable flag
func (in *Intent) SetHeater(on bool) {
	if on {
		in.Flags |= CtlHeaterOn
	} else {
		in.Flags &^= CtlHeaterOn
	}
}

// HeaterOn reports whether the heater enable flag is set
func (in Intent) HeaterOn() bool {
	return in.Flags&CtlHeaterOn != 0
}

// SetSetpoint stores a setpoint for pool or spa
func (in *Intent) SetSetpoint(m Mode, celsius int) error {
	b, err := EncodeTemperature(celsius)
	if err != nil {
		return err
	}
	switch m {
	case ModePool:
		in.SetpointPool = b
	case ModeSpa:
		in.SetpointSpa = b
	default:
		return fmt.Errorf("no setpoint for mode %s", m)
	}
	return nil
}

// String summarises the intent for status output
func (in Intent) String() string {
	heater := "off"
	if in.HeaterOn() {
		heater = "on"
	}
	return fmt.Sprintf("mode=%s heater=%s pool=%d°C spa=%d°C flags=0x%02x",
		in.Mode(), heater, DecodeTemperature(in.SetpointPool), DecodeTemperature(in.SetpointSpa), in.Flags)
}
