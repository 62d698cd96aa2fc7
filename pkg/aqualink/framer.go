// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"bytes"
	"io"
	"iter"
	"time"

	"github.com/sirupsen/logrus"
)

// Framer chunks an Aqualink byte stream into verified payloads.
//
// Parsing is pull based: Feed only buffers, Packets and Next do the work. A
// Framer is not safe for concurrent use.
type Framer struct {
	buf   []byte
	log   logrus.FieldLogger
	stats *Statistics
}

// NewFramer creates a framer that reports dropped bytes and bad frames to log.
// A nil logger discards the reports.
func NewFramer(log logrus.FieldLogger) *Framer {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Framer{
		log:   log,
		stats: NewStatistics(),
	}
}

// Stats returns the framer's counters
func (f *Framer) Stats() *Statistics {
	return f.stats
}

// Buffered returns the number of bytes waiting for a complete frame
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Feed appends raw bytes from the transport. Input may be chunked arbitrarily.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Packets returns the payloads that can be extracted from the bytes fed so
// far. The sequence consumes the buffer as it goes, so ranging over it again
// later resumes where the last run stopped.
func (f *Framer) Packets() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			payload, ok := f.Next()
			if !ok || !yield(payload) {
				return
			}
		}
	}
}

// Next extracts the next verified payload. It returns false when the buffer
// holds no further complete frame.
func (f *Framer) Next() ([]byte, bool) {
	for len(f.buf) > len(header) {
		start := bytes.Index(f.buf, header)
		if start < 0 {
			// A trailing DLE may be half of a header split across reads.
			keep := 0
			if f.buf[len(f.buf)-1] == DLE {
				keep = 1
			}
			f.dropJunk(len(f.buf) - keep)
			return nil, false
		}
		if start > 0 {
			f.dropJunk(start)
		}

		end := bytes.Index(f.buf[len(header):], footer)
		if end < 0 && len(f.buf) <= MaxFrameSize {
			return nil, false
		}
		frameLen := len(header) + end + len(footer)
		if end < 0 || frameLen > MaxFrameSize {
			f.stats.MalformedFrames++
			f.log.WithField("buffered", len(f.buf)).Warn("frame exceeds max size, resynchronizing")
			f.dropJunk(len(header))
			continue
		}

		raw := f.consume(frameLen)
		f.stats.TotalFrames++

		frame := Unescape(raw)
		if len(frame) < FrameOverhead {
			f.stats.MalformedFrames++
			f.log.WithField("raw", FormatHex(raw)).Warn("frame too short")
			continue
		}

		n := len(frame) - len(footer) - 1
		expected := Checksum(frame[:n])
		actual := frame[n]
		if expected != actual {
			f.stats.ChecksumErrors++
			f.log.WithFields(logrus.Fields{
				"expected": FormatByte(expected),
				"actual":   FormatByte(actual),
				"raw":      FormatHex(frame),
			}).Warn("invalid checksum")
			continue
		}

		f.stats.ValidFrames++
		f.stats.LastFrameTime = time.Now()
		return frame[len(header):n], true
	}

	return nil, false
}

// consume removes n bytes from the front of the buffer and returns them
func (f *Framer) consume(n int) []byte {
	out := make([]byte, n)
	copy(out, f.buf[:n])
	f.buf = append(f.buf[:0], f.buf[n:]...)
	return out
}

func (f *Framer) dropJunk(n int) {
	junk := f.consume(n)
	f.stats.JunkBytes += uint64(n)
	f.log.WithField("bytes", FormatHex(junk)).Warn("dropping bytes")
}
