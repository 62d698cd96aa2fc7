// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrShortPacket is returned for payloads without destination and command bytes
	ErrShortPacket = errors.New("packet too short")
	// ErrUnknownCommand is returned for command bytes missing from the catalog
	ErrUnknownCommand = errors.New("unknown command")
)

// FieldValue is one decoded field, reserved ones included
type FieldValue struct {
	Name  string
	Value int
}

// Change records a field whose value differs from the previous observation
type Change struct {
	Name string
	Old  int
	New  int
	At   time.Time
}

// BitAnomaly records bits set in a bitfield that the schema does not name
type BitAnomaly struct {
	Field string
	Bits  int
}

// Result describes one decoded packet
type Result struct {
	Dest      byte
	Command   Command
	Time      time.Time
	Fields    []FieldValue
	Changes   []Change
	Anomalies []BitAnomaly
	Truncated bool
}

// Decoder applies the packet catalog to payloads and merges the values into
// a State
type Decoder struct {
	state *State
	now   func() time.Time
}

// NewDecoder creates a decoder writing into state
func NewDecoder(state *State) *Decoder {
	return &Decoder{state: state, now: time.Now}
}

// State returns the state the decoder writes into
func (d *Decoder) State() *State {
	return d.state
}

// Decode decodes payload and updates the device state. Short packets and
// unknown commands return an error and leave the state untouched.
func (d *Decoder) Decode(payload []byte) (Result, error) {
	if len(payload) < 2 {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(payload))
	}

	res := Result{
		Dest:    payload[0],
		Command: Command(payload[1]),
		Time:    d.now(),
	}

	def, ok := Lookup(res.Command)
	if !ok {
		return res, fmt.Errorf("%w 0x%02x", ErrUnknownCommand, payload[1])
	}

	offset := 2
	for _, field := range def.Fields {
		if offset+field.Width > len(payload) {
			res.Truncated = true
			break
		}

		// Last byte of the span is the most significant
		value := 0
		for i := offset + field.Width - 1; i >= offset; i-- {
			value = value<<8 | int(payload[i])
		}
		offset += field.Width

		res.Fields = append(res.Fields, FieldValue{Name: field.Name, Value: value})
		if field.Reserved() {
			continue
		}

		bits := def.bitsOf(field.Name)
		for _, bit := range bits {
			flag := 0
			if value&bit.Mask != 0 {
				flag = 1
			}
			value &^= bit.Mask
			d.record(&res, bit.Name, flag)
		}
		if len(bits) > 0 && value != 0 {
			res.Anomalies = append(res.Anomalies, BitAnomaly{Field: field.Name, Bits: value})
		}

		d.record(&res, field.Name, value)
	}

	if res.Command == CmdStatus {
		if raw, ok := res.value("temp_raw"); ok {
			d.record(&res, "water_temp", raw-TempRawOffset)
		}
	}

	return res, nil
}

func (d *Decoder) record(res *Result, name string, value int) {
	old, had := d.state.set(name, value)
	if had && old != value {
		res.Changes = append(res.Changes, Change{Name: name, Old: old, New: value, At: res.Time})
	}
}

// value returns a field decoded in this packet
func (r Result) value(name string) (int, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Name returns the packet name
func (r Result) Name() string {
	return r.Command.String()
}
