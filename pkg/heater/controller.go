// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package heater drives a JXi heater over an Aqualink RS-485 link.
//
// The Controller asserts the desired heater settings onto the bus by cycling
// probe, ping and status requests, decodes everything the heater sends back
// and switches the heater off when nobody has renewed the "on" request within
// the keepalive window.
package heater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/aquastat/pkg/aqualink"
	"github.com/Thermoquad/aquastat/pkg/capture"
	"github.com/Thermoquad/aquastat/pkg/jxi"
	"github.com/Thermoquad/aquastat/pkg/statesink"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by requests made after the controller stopped
var ErrClosed = errors.New("controller closed")

// Config holds the controller's timing and startup settings
type Config struct {
	Address         byte
	DecodeInterval  time.Duration
	ProbeGap        time.Duration
	LinkTimeout     time.Duration
	KeepaliveWindow time.Duration
	PoolSetpoint    int
	SpaSetpoint     int
	MonitorOnly     bool
	ReadBufferSize  int
}

// DefaultConfig returns the settings used by the control command
func DefaultConfig() Config {
	return Config{
		Address:         jxi.DeviceAddress,
		DecodeInterval:  300 * time.Millisecond,
		ProbeGap:        time.Second,
		LinkTimeout:     2 * time.Second,
		KeepaliveWindow: 300 * time.Second,
		PoolSetpoint:    20,
		SpaSetpoint:     35,
		ReadBufferSize:  128,
	}
}

// Recorder receives every chunk read from or written to the transport
type Recorder interface {
	Record(dir capture.Direction, data []byte) error
}

// Option configures a Controller
type Option func(*Controller)

// WithSink publishes every decoded state change to sink
func WithSink(sink statesink.Sink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithRecorder records the raw traffic to rec
func WithRecorder(rec Recorder) Option {
	return func(c *Controller) { c.recorder = rec }
}

// WithPacketHook calls fn with every packet decoded from the bus. fn runs on
// the controller goroutine and must not block.
func WithPacketHook(fn func(jxi.Result)) Option {
	return func(c *Controller) { c.onPacket = fn }
}

type linkState int

const (
	linkUnknown linkState = iota
	linkUp
	linkLost
)

func (l linkState) String() string {
	switch l {
	case linkUp:
		return "up"
	case linkLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Controller owns the link to one heater.
//
// Fields from framer on belong to the goroutine running Run. Other goroutines
// reach them through do, which queues a closure on the inbox.
type Controller struct {
	cfg      Config
	conn     io.ReadWriteCloser
	log      logrus.FieldLogger
	sink     statesink.Sink
	recorder Recorder
	onPacket func(jxi.Result)

	inbox     chan func()
	fatal     chan error
	stopped   chan struct{}
	closeOnce sync.Once
	closing   chan struct{}

	framer    *aqualink.Framer
	decoder   *jxi.Decoder
	intent    jxi.Intent
	keepalive *Keepalive
	timer     *time.Timer
	link      linkState
	waiting   time.Time
}

// New creates a controller on conn. Run must be called to start it.
func New(conn io.ReadWriteCloser, cfg Config, log logrus.FieldLogger, opts ...Option) (*Controller, error) {
	intent, err := jxi.NewIntent(cfg.PoolSetpoint, cfg.SpaSetpoint)
	if err != nil {
		return nil, err
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultConfig().ReadBufferSize
	}

	c := &Controller{
		cfg:       cfg,
		conn:      conn,
		log:       log,
		sink:      statesink.Nop{},
		inbox:     make(chan func()),
		fatal:     make(chan error, 1),
		stopped:   make(chan struct{}),
		closing:   make(chan struct{}),
		framer:    aqualink.NewFramer(log),
		decoder:   jxi.NewDecoder(jxi.NewState()),
		intent:    intent,
		keepalive: NewKeepalive(cfg.KeepaliveWindow),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.timer = time.NewTimer(time.Hour)
	c.timer.Stop()
	return c, nil
}

// Run drives the link until ctx is cancelled, Close is called or the
// transport fails. Transport errors are returned; a clean shutdown returns nil.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() { c.readLoop(ctx) })
	wg.Go(func() { c.decodeLoop(ctx) })
	if !c.cfg.MonitorOnly {
		wg.Go(func() { c.probeLoop(ctx) })
	}

	c.log.WithFields(logrus.Fields{
		"address":      aqualink.FormatByte(c.cfg.Address),
		"monitor_only": c.cfg.MonitorOnly,
	}).Info("controller started")

	err := c.loop(ctx)

	cancel()
	c.Close()
	wg.Wait()

	// The loops have exited, so the state is ours again
	c.drain()
	c.log.Infof("final device state:\n%s", c.decoder.State().Format())
	c.log.Infof("link statistics:\n%s", c.framer.Stats())

	return err
}

// Close stops the controller and closes the transport so blocked reads
// return. It is safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		err = c.conn.Close()
	})
	return err
}

func (c *Controller) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closing:
			return nil
		case err := <-c.fatal:
			return err
		case fn := <-c.inbox:
			fn()
		case now := <-c.timer.C:
			c.checkKeepalive(now)
		}
	}
}

// do runs fn on the controller goroutine and waits for it to finish
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		fn()
		close(done)
	}

	select {
	case c.inbox <- job:
	case <-c.stopped:
		return ErrClosed
	case <-c.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once queued the job runs before the controller looks at anything else
	<-done
	return nil
}

// fail reports a transport error to Run unless we are shutting down
func (c *Controller) fail(err error) {
	select {
	case <-c.closing:
		return
	default:
	}
	select {
	case c.fatal <- err:
	default:
	}
}

func (c *Controller) readLoop(ctx context.Context) {
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			c.record(capture.Rx, chunk)
			if c.do(ctx, func() { c.framer.Feed(chunk) }) != nil {
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				c.fail(fmt.Errorf("read failed: %w", err))
			}
			return
		}
	}
}

func (c *Controller) decodeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.DecodeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.do(ctx, c.decodeBuffered) != nil {
				return
			}
		}
	}
}

func (c *Controller) probeLoop(ctx context.Context) {
	requests := []jxi.Command{jxi.CmdProbe, jxi.CmdPing, jxi.CmdStatus}
	for {
		for _, cmd := range requests {
			var payload []byte
			err := c.do(ctx, func() {
				payload = c.request(cmd)
			})
			if err != nil {
				return
			}

			if err := c.send(payload); err != nil {
				c.fail(err)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ProbeGap):
			}
		}
	}
}

// request builds the next outgoing payload. Pings carry the current intent
// and are decoded into the device state as if the heater had seen them.
func (c *Controller) request(cmd jxi.Command) []byte {
	c.framer.Stats().SentFrames++
	if c.link != linkLost && c.waiting.IsZero() {
		c.waiting = time.Now()
	}
	if cmd != jxi.CmdPing {
		return jxi.NewRequest(c.cfg.Address, cmd)
	}

	payload := jxi.NewPing(c.cfg.Address, c.intent)
	c.decode(payload)
	return payload
}

func (c *Controller) send(payload []byte) error {
	frame := aqualink.Encode(payload)
	c.record(capture.Tx, frame)
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	c.log.WithField("payload", aqualink.FormatHex(payload)).Debug("sent")
	return nil
}

func (c *Controller) record(dir capture.Direction, data []byte) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(dir, data); err != nil {
		c.log.WithError(err).Warn("capture failed")
	}
}

// decodeBuffered decodes every complete frame received so far
func (c *Controller) decodeBuffered() {
	for payload := range c.framer.Packets() {
		c.markAlive()
		c.decode(payload)
	}
	c.superviseLink(time.Now())
}

// drain decodes what is left in the framer after shutdown
func (c *Controller) drain() {
	for payload := range c.framer.Packets() {
		c.decode(payload)
	}
}

func (c *Controller) decode(payload []byte) {
	res, err := c.decoder.Decode(payload)
	if err != nil {
		if errors.Is(err, jxi.ErrUnknownCommand) {
			c.framer.Stats().UnknownCommands++
		}
		c.log.WithError(err).WithField("payload", aqualink.FormatHex(payload)).Warn("unexplained packet")
		return
	}

	c.log.Debug(jxi.FormatResult(res))
	for _, a := range res.Anomalies {
		c.framer.Stats().BitAnomalies++
		c.log.WithFields(logrus.Fields{
			"dest":  aqualink.FormatByte(res.Dest),
			"field": a.Field,
			"bits":  aqualink.FormatByte(byte(a.Bits)),
		}).Warn("bitfield has unknown bits set")
	}
	for _, ch := range res.Changes {
		c.log.WithFields(logrus.Fields{
			"field": ch.Name,
			"old":   ch.Old,
			"new":   ch.New,
		}).Info("state changed")
		c.sink.Publish(ch.Name, ch.New)
	}
	if c.onPacket != nil {
		c.onPacket(res)
	}
}

func (c *Controller) markAlive() {
	c.waiting = time.Time{}
	if c.link != linkUp {
		c.link = linkUp
		c.log.Info("communication established")
	}
}

func (c *Controller) superviseLink(now time.Time) {
	if c.waiting.IsZero() || now.Sub(c.waiting) < c.cfg.LinkTimeout {
		return
	}
	c.waiting = time.Time{}
	if c.link != linkLost {
		c.link = linkLost
		c.log.WithField("timeout", c.cfg.LinkTimeout).Warn("communication lost")
	}
}

// heaterOn enables the heater and (re)arms the keepalive
func (c *Controller) heaterOn(now time.Time) {
	if at, schedule := c.keepalive.Arm(now); schedule {
		c.timer.Reset(at.Sub(now))
	}
	c.intent.SetHeater(true)
}

func (c *Controller) heaterOff() {
	c.keepalive.Disarm()
	c.intent.SetHeater(false)
}

func (c *Controller) checkKeepalive(now time.Time) {
	expired, next, reschedule := c.keepalive.Fire(now)
	if expired {
		c.log.Warn("heater keepalive timed out, shutting off")
		c.intent.SetHeater(false)
		return
	}
	if reschedule {
		c.timer.Reset(next.Sub(now))
	}
}

// Power is the requested heater enable state
type Power int

// Power requests
const (
	PowerUnchanged Power = iota
	PowerOn
	PowerOff
)

// SetSetpoint changes the pool or spa setpoint sent in pings
func (c *Controller) SetSetpoint(ctx context.Context, mode jxi.Mode, celsius int) error {
	var err error
	if doErr := c.do(ctx, func() {
		err = c.intent.SetSetpoint(mode, celsius)
	}); doErr != nil {
		return doErr
	}
	if err == nil {
		c.log.WithFields(logrus.Fields{"mode": mode, "celsius": celsius}).Info("setpoint changed")
	}
	return err
}

// SetHeater selects pool or spa and switches the heater on or off. ModeNone
// and PowerUnchanged leave the respective setting alone. Switching on renews
// the keepalive.
func (c *Controller) SetHeater(ctx context.Context, mode jxi.Mode, power Power) error {
	return c.do(ctx, func() {
		if mode != jxi.ModeNone {
			c.intent.SetMode(mode)
		}
		switch power {
		case PowerOn:
			c.heaterOn(time.Now())
		case PowerOff:
			c.heaterOff()
		}
		c.log.WithField("intent", c.intent).Info("heater intent changed")
	})
}

// Intent returns the settings currently sent to the heater
func (c *Controller) Intent(ctx context.Context) (jxi.Intent, error) {
	var in jxi.Intent
	err := c.do(ctx, func() { in = c.intent })
	return in, err
}

// Snapshot returns a copy of the decoded device state
func (c *Controller) Snapshot(ctx context.Context) (map[string]int, error) {
	var snap map[string]int
	err := c.do(ctx, func() { snap = c.decoder.State().Snapshot() })
	return snap, err
}

// Status renders the device state followed by the intent and link summary
func (c *Controller) Status(ctx context.Context) (string, error) {
	var out string
	err := c.do(ctx, func() {
		keepalive := "off"
		if deadline, armed := c.keepalive.Deadline(); armed {
			keepalive = time.Until(deadline).Round(time.Second).String() + " left"
		}
		out = c.decoder.State().Format() +
			fmt.Sprintf("intent: %s\n", c.intent) +
			fmt.Sprintf("link: %s, keepalive: %s\n", c.link, keepalive)
	})
	return out, err
}

// Stats returns the link statistics summary
func (c *Controller) Stats(ctx context.Context) (string, error) {
	var out string
	err := c.do(ctx, func() { out = c.framer.Stats().String() })
	return out, err
}
