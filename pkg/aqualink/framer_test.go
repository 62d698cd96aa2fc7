// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"bytes"
	"slices"
	"testing"
)

// Reference frames captured from a JXi heater bus
var (
	frameEscaped   = []byte{0x10, 0x02, 0x68, 0x10, 0x00, 0xbe, 0x10, 0x00, 0x58, 0x10, 0x03}
	payloadEscaped = []byte{0x68, 0x10, 0xbe, 0x10}

	frameStatus   = []byte{0x10, 0x02, 0x00, 0x25, 0x15, 0x00, 0x56, 0x01, 0xf5, 0x00, 0x23, 0xbb, 0x10, 0x03}
	payloadStatus = []byte{0x00, 0x25, 0x15, 0x00, 0x56, 0x01, 0xf5, 0x00, 0x23}
)

func collect(f *Framer) [][]byte {
	return slices.Collect(f.Packets())
}

// ============================================================
// Checksum and Escaping Tests
// ============================================================

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{"empty", nil, 0x00},
		{"header only", []byte{0x10, 0x02}, 0x12},
		{"wraps", []byte{0xff, 0x02}, 0x01},
		{"status frame", append([]byte{0x10, 0x02}, payloadStatus...), 0xbb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum = 0x%02x, want 0x%02x", got, tt.expected)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	message := []byte{0x68, 0x10, 0xbe, 0x10, 0x9f}
	expected := []byte{0x68, 0x10, 0x00, 0xbe, 0x10, 0x00, 0x9f}

	if got := Escape(message); !bytes.Equal(got, expected) {
		t.Errorf("Escape = % x, want % x", got, expected)
	}
}

func TestUnescape(t *testing.T) {
	packet := []byte{0x10, 0x02, 0x68, 0x10, 0x00, 0xbe, 0x10, 0x00, 0x9f, 0x10, 0x03}
	expected := []byte{0x10, 0x02, 0x68, 0x10, 0xbe, 0x10, 0x9f, 0x10, 0x03}

	if got := Unescape(packet); !bytes.Equal(got, expected) {
		t.Errorf("Unescape = % x, want % x", got, expected)
	}
}

func TestUnescape_LiteralNulAfterEscape(t *testing.T) {
	// 0x10 0x00 in the payload is sent as 10 00 00
	wire := Escape([]byte{0x10, 0x00})
	if !bytes.Equal(wire, []byte{0x10, 0x00, 0x00}) {
		t.Fatalf("Escape = % x", wire)
	}
	if got := Unescape(wire); !bytes.Equal(got, []byte{0x10, 0x00}) {
		t.Errorf("Unescape = % x, want 10 00", got)
	}
}

// ============================================================
// Encoder Tests
// ============================================================

func TestEncode_ReferenceFrames(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		frame   []byte
	}{
		{"escaped payload and checksum", payloadEscaped, frameEscaped},
		{"status reply", payloadStatus, frameStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.payload); !bytes.Equal(got, tt.frame) {
				t.Errorf("Encode = % x, want % x", got, tt.frame)
			}
		})
	}
}

func TestEncode_EscapesChecksum(t *testing.T) {
	// header sum is 0x12, so a payload summing to 0xfe yields checksum 0x10
	frame := Encode([]byte{0xfe})
	expected := []byte{0x10, 0x02, 0xfe, 0x10, 0x00, 0x10, 0x03}
	if !bytes.Equal(frame, expected) {
		t.Errorf("Encode = % x, want % x", frame, expected)
	}
}

// ============================================================
// Framer Tests
// ============================================================

func TestFramer_ReferenceFrames(t *testing.T) {
	f := NewFramer(nil)
	f.Feed(frameEscaped)
	f.Feed(frameStatus)

	packets := collect(f)
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets, got %d", len(packets))
	}
	if !bytes.Equal(packets[0], payloadEscaped) {
		t.Errorf("packet 0 = % x, want % x", packets[0], payloadEscaped)
	}
	if !bytes.Equal(packets[1], payloadStatus) {
		t.Errorf("packet 1 = % x, want % x", packets[1], payloadStatus)
	}
	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer, %d bytes left", f.Buffered())
	}
	if f.Stats().ValidFrames != 2 {
		t.Errorf("ValidFrames = %d, want 2", f.Stats().ValidFrames)
	}
}

func TestFramer_ByteAtATime(t *testing.T) {
	f := NewFramer(nil)
	var packets [][]byte

	for _, b := range frameStatus {
		f.Feed([]byte{b})
		packets = append(packets, collect(f)...)
	}

	if len(packets) != 1 || !bytes.Equal(packets[0], payloadStatus) {
		t.Fatalf("Expected status payload, got %v", packets)
	}
}

func TestFramer_LeadingGarbage(t *testing.T) {
	f := NewFramer(nil)
	garbage := []byte{0xff, 0xfe, 0x01}
	f.Feed(append(garbage, frameStatus...))

	packets := collect(f)
	if len(packets) != 1 || !bytes.Equal(packets[0], payloadStatus) {
		t.Fatalf("Expected exactly the status payload, got %v", packets)
	}
	if f.Stats().JunkBytes != uint64(len(garbage)) {
		t.Errorf("JunkBytes = %d, want %d", f.Stats().JunkBytes, len(garbage))
	}
}

func TestFramer_NoHeaderDropsEverything(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte{0x01, 0x02, 0x03, 0x04})

	if packets := collect(f); len(packets) != 0 {
		t.Fatalf("Expected no packets, got %v", packets)
	}
	if f.Buffered() != 0 {
		t.Errorf("Expected buffer to be cleared, %d bytes left", f.Buffered())
	}
	if f.Stats().JunkBytes != 4 {
		t.Errorf("JunkBytes = %d, want 4", f.Stats().JunkBytes)
	}
}

func TestFramer_HeaderSplitAcrossReads(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte{0xaa, 0xbb, 0x10})

	if packets := collect(f); len(packets) != 0 {
		t.Fatalf("Expected no packets, got %v", packets)
	}
	if f.Buffered() != 1 {
		t.Fatalf("Expected trailing DLE to be kept, %d bytes buffered", f.Buffered())
	}

	f.Feed(frameStatus[1:])
	packets := collect(f)
	if len(packets) != 1 || !bytes.Equal(packets[0], payloadStatus) {
		t.Fatalf("Expected status payload, got %v", packets)
	}
}

func TestFramer_UnterminatedFrameWaits(t *testing.T) {
	f := NewFramer(nil)
	split := len(frameStatus) - 2
	f.Feed(frameStatus[:split])

	if packets := collect(f); len(packets) != 0 {
		t.Fatalf("Expected no packets before footer, got %v", packets)
	}
	if f.Buffered() != split {
		t.Fatalf("Buffered = %d, want %d", f.Buffered(), split)
	}

	f.Feed(frameStatus[split:])
	if packets := collect(f); len(packets) != 1 {
		t.Fatalf("Expected 1 packet after footer, got %d", len(packets))
	}
}

func TestFramer_ChecksumErrorResynchronizes(t *testing.T) {
	corrupt := slices.Clone(frameStatus)
	corrupt[len(corrupt)-3] ^= 0x01

	f := NewFramer(nil)
	f.Feed(corrupt)
	f.Feed(frameEscaped)
	f.Feed(frameStatus)

	packets := collect(f)
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets after corrupt frame, got %d", len(packets))
	}
	if !bytes.Equal(packets[0], payloadEscaped) || !bytes.Equal(packets[1], payloadStatus) {
		t.Errorf("Unexpected packets: %v", packets)
	}
	if f.Stats().ChecksumErrors != 1 {
		t.Errorf("ChecksumErrors = %d, want 1", f.Stats().ChecksumErrors)
	}
}

func TestFramer_UnescapedHeaderMisframes(t *testing.T) {
	// A stray header inside a frame is taken as part of that frame. The
	// merged frame fails its checksum and is dropped.
	f := NewFramer(nil)
	f.Feed([]byte{0x10, 0x02, 0x68})
	f.Feed(frameStatus)

	if packets := collect(f); len(packets) != 0 {
		t.Fatalf("Expected no packets, got %v", packets)
	}
	if f.Stats().ChecksumErrors != 1 {
		t.Errorf("ChecksumErrors = %d, want 1", f.Stats().ChecksumErrors)
	}
}

func TestFramer_ShortFrame(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte{0x10, 0x02, 0x10, 0x03})
	f.Feed(frameStatus)

	packets := collect(f)
	if len(packets) != 1 {
		t.Fatalf("Expected 1 packet, got %d", len(packets))
	}
	if f.Stats().MalformedFrames != 1 {
		t.Errorf("MalformedFrames = %d, want 1", f.Stats().MalformedFrames)
	}
}

func TestFramer_OversizedUnterminatedFrame(t *testing.T) {
	f := NewFramer(nil)
	f.Feed([]byte{0x10, 0x02})
	f.Feed(bytes.Repeat([]byte{0x55}, MaxFrameSize))
	f.Feed(frameStatus)

	packets := collect(f)
	if len(packets) != 1 || !bytes.Equal(packets[0], payloadStatus) {
		t.Fatalf("Expected status payload after resync, got %v", packets)
	}
	if f.Stats().MalformedFrames != 1 {
		t.Errorf("MalformedFrames = %d, want 1", f.Stats().MalformedFrames)
	}
}

func TestFramer_PacketsIsRestartable(t *testing.T) {
	f := NewFramer(nil)
	f.Feed(frameEscaped)
	f.Feed(frameStatus)

	for p := range f.Packets() {
		if !bytes.Equal(p, payloadEscaped) {
			t.Fatalf("first packet = % x", p)
		}
		break
	}

	rest := collect(f)
	if len(rest) != 1 || !bytes.Equal(rest[0], payloadStatus) {
		t.Fatalf("Expected the second packet on restart, got %v", rest)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.TotalFrames = 4
	s.ValidFrames = 3
	s.ChecksumErrors = 1

	out := s.String()
	for _, want := range []string{"Total Frames:", "Checksum Errors:", "75.0%"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
