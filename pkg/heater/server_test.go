// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T) (string, *harness) {
	t.Helper()
	h := startController(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(h.ctl, quietLogger()).Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ln.Addr().String(), h
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	c := &client{conn: conn, r: bufio.NewReader(conn)}
	if greeting := c.line(t); greeting+"\n" != Greeting {
		t.Fatalf("greeting = %q", greeting)
	}
	return c
}

func (c *client) send(t *testing.T, line string) string {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return c.line(t)
}

func (c *client) line(t *testing.T) string {
	t.Helper()
	s, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return strings.TrimSuffix(s, "\n")
}

func TestServer_Session(t *testing.T) {
	addr, h := startServer(t)
	c := dial(t, addr)

	if reply := c.send(t, "help"); !strings.HasPrefix(reply, "commands:") {
		t.Errorf("help reply = %q", reply)
	}
	if reply := c.send(t, "frobnicate"); reply != "unknown command frobnicate" {
		t.Errorf("unknown reply = %q", reply)
	}
	if reply := c.send(t, "heater spa"); reply != "ok" {
		t.Errorf("heater reply = %q", reply)
	}

	in, _ := h.ctl.Intent(context.Background())
	if in.Mode().String() != "spa" {
		t.Errorf("Intent mode = %s", in.Mode())
	}
}

func TestServer_SessionsIndependent(t *testing.T) {
	addr, _ := startServer(t)
	first := dial(t, addr)
	second := dial(t, addr)

	if reply := first.send(t, "setpoint pool 500C"); !strings.Contains(reply, "cannot represent") {
		t.Errorf("range error reply = %q", reply)
	}
	first.conn.Close()

	if reply := second.send(t, "help"); !strings.HasPrefix(reply, "commands:") {
		t.Errorf("second session broken: %q", reply)
	}
}
