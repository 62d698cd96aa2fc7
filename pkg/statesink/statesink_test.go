// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package statesink

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type fakeClient struct {
	mu     sync.Mutex
	values map[string]interface{}
	order  []string
	block  chan struct{}
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: make(map[string]interface{})}
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.order = append(f.order, key)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRedis_PublishesInOrder(t *testing.T) {
	client := newFakeClient()
	sink := newRedis(client, "", quietLogger())

	sink.Publish("heater_on", 1)
	sink.Publish("setpoint_pool", 28)
	sink.Publish("heater_on", 0)
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	if !client.closed {
		t.Error("Client should be closed")
	}
	if got := client.values[DefaultPrefix+"heater_on"]; got != "0" {
		t.Errorf("heater_on = %v, want last value 0", got)
	}
	if got := client.values[DefaultPrefix+"setpoint_pool"]; got != "28" {
		t.Errorf("setpoint_pool = %v", got)
	}
	if len(client.order) != 3 {
		t.Errorf("Expected 3 writes, got %v", client.order)
	}
}

func TestRedis_DropsWhenFull(t *testing.T) {
	client := newFakeClient()
	client.block = make(chan struct{})
	sink := newRedis(client, "pool:", quietLogger())

	// One update is held by the blocked writer, queueSize more fill the queue
	for i := 0; i < queueSize+10; i++ {
		sink.Publish("cycles", i)
	}
	if sink.Dropped() == 0 {
		t.Error("Expected dropped updates")
	}

	close(client.block)
	sink.Close()
	if _, ok := client.values["pool:cycles"]; !ok {
		t.Error("Custom prefix not applied")
	}
}

func TestRedis_PublishAfterClose(t *testing.T) {
	sink := newRedis(newFakeClient(), "", quietLogger())
	sink.Close()
	sink.Publish("spa", 1)
	if err := sink.Close(); err != nil {
		t.Errorf("Second Close: %v", err)
	}
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	s.Publish("spa", 1)
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
