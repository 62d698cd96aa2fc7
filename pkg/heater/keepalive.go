// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import "time"

// Keepalive tracks the deadline after which an enabled heater is switched off
// unless "on" is sent again.
//
// Keepalive only does the bookkeeping. The owner schedules a single check at
// the time returned by Arm or Fire and calls Fire when it runs. At most one
// check is pending at any time; a check that runs before the current deadline
// asks to be rescheduled instead of expiring.
type Keepalive struct {
	window   time.Duration
	deadline time.Time
	armed    bool
	pending  bool
}

// NewKeepalive creates a disarmed keepalive with the given window
func NewKeepalive(window time.Duration) *Keepalive {
	return &Keepalive{window: window}
}

// Window returns the keepalive window
func (k *Keepalive) Window() time.Duration {
	return k.window
}

// Arm moves the deadline to now+window. When no check is pending it returns
// the time to schedule one for and true.
func (k *Keepalive) Arm(now time.Time) (time.Time, bool) {
	k.deadline = now.Add(k.window)
	k.armed = true
	if k.pending {
		return time.Time{}, false
	}
	k.pending = true
	return k.deadline, true
}

// Disarm cancels the deadline. A pending check becomes a no-op.
func (k *Keepalive) Disarm() {
	k.armed = false
	k.deadline = time.Time{}
}

// Fire runs a scheduled check. It reports whether the heater must be switched
// off, and when the deadline has moved, the time of the next check.
func (k *Keepalive) Fire(now time.Time) (expired bool, next time.Time, reschedule bool) {
	k.pending = false
	if !k.armed {
		return false, time.Time{}, false
	}
	if !now.Before(k.deadline) {
		k.Disarm()
		return true, time.Time{}, false
	}
	k.pending = true
	return false, k.deadline, true
}

// Deadline returns the current deadline, if armed
func (k *Keepalive) Deadline() (time.Time, bool) {
	return k.deadline, k.armed
}

// Pending reports whether a check is scheduled
func (k *Keepalive) Pending() bool {
	return k.pending
}
