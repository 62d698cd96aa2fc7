// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package jxi decodes and builds packets for Jandy JXi pool heaters on an
// Aqualink RS-485 bus.
//
// Payloads handed to this package are already unframed (see package
// aqualink): byte 0 is the destination address, byte 1 the command, the rest
// are command specific fields.
package jxi

// DeviceAddress is the bus address a JXi heater answers on
const DeviceAddress = 0x68

// Command identifies a JXi packet kind
type Command byte

// Packet kinds
const (
	CmdProbe   Command = 0x00
	CmdAck     Command = 0x01
	CmdPing    Command = 0x0c
	CmdControl Command = 0x0d
	CmdStatus  Command = 0x25
)

// Ping control_flags bits
const (
	CtlPool         = 0x01
	CtlSpa          = 0x02
	CtlCelsius      = 0x04
	CtlHeaterOn     = 0x08
	CtlExtTempValid = 0x10
)

// Control reply status_flags and error_flags bits
const (
	StatusHeaterOn            = 0x08
	StatusRemoteRS485Disabled = 0x10
	ErrorHeaterFault          = 0x08
)

// ExternalTempUnset is sent in place of an external temperature reading
const ExternalTempUnset = 0xff

// TempRawOffset converts a status packet's temp_raw to degrees
const TempRawOffset = 20

// reservedPrefix marks schema fields whose meaning is unknown
const reservedPrefix = "?"
