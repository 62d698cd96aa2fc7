// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package statesink publishes heater state changes to external stores.
package statesink

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Sink receives device state updates. Publish must not block the caller.
type Sink interface {
	Publish(name string, value int)
	Close() error
}

// Nop discards every update
type Nop struct{}

func (Nop) Publish(string, int) {}
func (Nop) Close() error        { return nil }

// DefaultPrefix is prepended to Redis keys
const DefaultPrefix = "aquastat:"

// queueSize bounds updates waiting for Redis
const queueSize = 256

type update struct {
	name  string
	value int
}

// setter is the part of the Redis client the sink uses
type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis writes every update as "SET <prefix><name> <value>". Updates are
// queued and written by a background goroutine; when the queue is full new
// updates are dropped and counted.
type Redis struct {
	client  setter
	prefix  string
	log     logrus.FieldLogger
	queue   chan update
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewRedis connects to the Redis server at addr. The connection is verified
// with PING before returning.
func NewRedis(ctx context.Context, addr, prefix string, log logrus.FieldLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return newRedis(client, prefix, log), nil
}

func newRedis(client setter, prefix string, log logrus.FieldLogger) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r := &Redis{
		client: client,
		prefix: prefix,
		log:    log.WithField("sink", "redis"),
		queue:  make(chan update, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Publish queues an update without blocking. Updates after Close are ignored.
func (r *Redis) Publish(name string, value int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- update{name, value}:
	default:
		if r.dropped.Add(1) == 1 {
			r.log.Warn("redis queue full, dropping updates")
		}
	}
}

// Dropped returns the number of updates lost to a full queue
func (r *Redis) Dropped() uint64 {
	return r.dropped.Load()
}

// Close flushes queued updates and closes the client
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.client.Close()
}

func (r *Redis) run() {
	defer close(r.done)
	ctx := context.Background()
	for u := range r.queue {
		key := r.prefix + u.name
		if err := r.client.Set(ctx, key, strconv.Itoa(u.value), 0).Err(); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("failed to publish state")
		}
	}
}
