// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import (
	"fmt"
	"strings"
)

// Field is one fixed-width integer in a packet
type Field struct {
	Name  string
	Width int // bytes
}

// Reserved reports whether the field is decoded for bookkeeping only
func (f Field) Reserved() bool {
	return strings.HasPrefix(f.Name, reservedPrefix)
}

// Bit names a flag inside a field
type Bit struct {
	Field string
	Name  string
	Mask  int
}

// PacketDef describes the layout of one command
type PacketDef struct {
	Command Command
	Name    string
	Fields  []Field
	Bits    []Bit
}

// bitsOf returns the flags declared for field, in declaration order
func (d PacketDef) bitsOf(field string) []Bit {
	var bits []Bit
	for _, b := range d.Bits {
		if b.Field == field {
			bits = append(bits, b)
		}
	}
	return bits
}

var catalog = map[Command]PacketDef{
	CmdProbe: {
		Command: CmdProbe,
		Name:    "probe",
	},
	CmdAck: {
		Command: CmdAck,
		Name:    "ACK",
		Fields: []Field{
			{"?_ack1", 1},
			{"?_ack2", 1},
		},
	},
	CmdPing: {
		Command: CmdPing,
		Name:    "ping",
		Fields: []Field{
			{"control_flags", 1},
			{"setpoint_spa", 1},
			{"setpoint_pool", 1},
			{"external_temp_reading", 1},
		},
		Bits: []Bit{
			{"control_flags", "pool", CtlPool},
			{"control_flags", "spa", CtlSpa},
			{"control_flags", "celsius", CtlCelsius},
			{"control_flags", "heater_on", CtlHeaterOn},
			{"control_flags", "ext_temp_valid", CtlExtTempValid},
		},
	},
	CmdControl: {
		Command: CmdControl,
		Name:    "control",
		Fields: []Field{
			{"status_flags", 1},
			{"?_ctl2", 1},
			{"error_flags", 1},
		},
		Bits: []Bit{
			{"status_flags", "heater_on", StatusHeaterOn},
			{"status_flags", "remote_rs485_disabled", StatusRemoteRS485Disabled},
			{"error_flags", "heater_error", ErrorHeaterFault},
		},
	},
	CmdStatus: {
		Command: CmdStatus,
		Name:    "status",
		Fields: []Field{
			{"gv_on_time", 2},
			{"cycles", 2},
			{"last_fault", 1},
			{"prev_fault", 1},
			{"temp_raw", 1},
		},
	},
}

// Lookup returns the packet definition for cmd
func Lookup(cmd Command) (PacketDef, bool) {
	def, ok := catalog[cmd]
	return def, ok
}

// String returns the packet name, or UNKNOWN(0xNN)
func (c Command) String() string {
	if def, ok := catalog[c]; ok {
		return def.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(c))
}
