package fdtest

/*
 * Flurdisplay Test Rig in Go
 *
 * This file is part of the Flurdisplay test rig, a Go implementation of the
 * LR serial protocol used by hallway display units.
 *
 * Features:
 * - LR commands 0x26, 0x27 and 0x28 with CRC, blink and sliding text
 * - Framing Protocol with STX/ETX envelopes and ACK/NACK responses
 * - Test pattern scheduling with command rotation and relay echo
 * - Designed for serial communication
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Rig core
const (
	LoopQueueSize = 64
	MaxRetries    = 10
	RetryDelay    = 2 * time.Second
)

// Rig wires the event loop, transport, scheduler and serial port together.
// Its methods may be called from any goroutine.
type Rig struct {
	// Loop serializes transport and scheduler work.
	Loop *Loop
	// Transport frames and queues outgoing messages.
	Transport *Transport
	// Scheduler cycles through the test patterns.
	Scheduler *Scheduler

	mu     sync.Mutex
	config *Config
	link   Link
	cancel context.CancelFunc
	ctx    context.Context
}

// RigStatus is a snapshot for the operator console.
type RigStatus struct {
	State     State
	RunID     string
	Command   Command
	Current   DisplayEvent
	AckCount  int
	Pending   int
	Port      string
	PortOpen  bool
	Transport TransportStats
}

// NewRig creates a rig for cfg. The scheduler is configured immediately; a
// configuration error is returned together with the rig, which then refuses
// to start until Reconfigure succeeds.
func NewRig(cfg *Config) (*Rig, error) {
	loop := NewLoop(LoopQueueSize)
	transport := NewTransport(nil, loop)
	r := &Rig{
		Loop:      loop,
		Transport: transport,
		Scheduler: NewScheduler(transport, loop),
		config:    cfg,
	}
	r.Transport.SetLineParams(cfg.Host.Params)
	// Runs on the loop, so the port is closed before any Start queued
	// behind the stop can see it.
	r.Scheduler.Subscribe(SignalStopped, func(Notification) {
		r.Close()
	})

	err := r.Scheduler.Init(cfg.Settings, cfg.Events)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot init test manager")
	}
	return r, err
}

// Run processes loop tasks until ctx is cancelled.
func (r *Rig) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	runCtx := r.ctx
	r.mu.Unlock()

	log.Info().Msg("Test rig initialized")
	err := r.Loop.Run(runCtx)
	r.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown stops Run.
func (r *Rig) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Open opens the host serial port unless a link is already attached.
func (r *Rig) Open() error {
	r.mu.Lock()
	host := r.config.Host
	attached := r.link != nil && r.link.IsOpen()
	r.mu.Unlock()
	if attached {
		return nil
	}

	link, err := OpenSerialLink(host.Name, host.Params)
	if err != nil {
		return err
	}
	r.Attach(link, host.Params)
	go r.readLoop(link)
	return nil
}

// Attach hands link to the transport.
func (r *Rig) Attach(link Link, params LineParams) {
	r.mu.Lock()
	r.link = link
	r.mu.Unlock()
	r.Loop.Do(func() {
		r.Transport.SetLink(link)
		r.Transport.SetLineParams(params)
	})
}

// Close closes the serial port, if any.
func (r *Rig) Close() {
	r.mu.Lock()
	link := r.link
	r.link = nil
	r.mu.Unlock()

	if closer, ok := link.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close serial port")
		}
	}
}

func (r *Rig) readLoop(link *SerialLink) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	err := link.ReadLoop(ctx, func(chunk []byte) {
		r.Loop.Post(func() {
			r.Transport.OnBytesReceived(chunk)
		})
	})
	if err == nil || errors.Is(err, ErrLinkClosed) || errors.Is(err, context.Canceled) {
		return
	}
	r.reconnect(ctx, link)
}

// reconnect attempts to re-open the serial port after a read failure.
func (r *Rig) reconnect(ctx context.Context, old *SerialLink) {
	_ = old.Close()
	log.Info().Str("port", old.Name()).Msg("Attempting to reconnect...")
	for i := 0; i < MaxRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(RetryDelay):
		}
		link, err := OpenSerialLink(old.Name(), old.Params())
		if err == nil {
			r.Attach(link, old.Params())
			log.Info().Str("port", link.Name()).Msg("Reconnected to serial port")
			go r.readLoop(link)
			return
		}
		log.Warn().Int("attempt", i+1).Int("max", MaxRetries).Msg("Retrying to reconnect")
	}
	log.Error().Msg("Failed to reconnect after maximum retries.")
}

// Start opens the port if needed and starts the scheduler.
func (r *Rig) Start() error {
	if err := r.Open(); err != nil {
		return err
	}
	var err error
	r.Loop.Do(func() {
		err = r.Scheduler.Start()
	})
	return err
}

// Stop blanks the display and stops the scheduler. The port closes once the
// blank frame went out.
func (r *Rig) Stop() error {
	var err error
	r.Loop.Do(func() {
		err = r.Scheduler.Stop()
	})
	return err
}

// Reconfigure applies a new configuration while the scheduler is stopped.
func (r *Rig) Reconfigure(cfg *Config) error {
	var err error
	r.Loop.Do(func() {
		if err = r.Scheduler.Init(cfg.Settings, cfg.Events); err != nil {
			return
		}
		r.Transport.SetLineParams(cfg.Host.Params)
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
	return nil
}

// Config returns the active configuration.
func (r *Rig) Config() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// Send queues a raw LR message outside the pattern cycle.
func (r *Rig) Send(payload []byte) error {
	if err := r.Open(); err != nil {
		return err
	}
	var err error
	r.Loop.Do(func() {
		err = r.Transport.Enqueue(payload)
	})
	return err
}

// Subscribe registers fn for transport and scheduler notifications. fn runs
// on the loop goroutine.
func (r *Rig) Subscribe(sig Signal, fn func(Notification)) {
	r.Transport.Subscribe(sig, fn)
	r.Scheduler.Subscribe(sig, fn)
}

func (r *Rig) Status() RigStatus {
	var st RigStatus
	r.Loop.Do(func() {
		st = RigStatus{
			State:    r.Scheduler.State(),
			RunID:    r.Scheduler.RunID(),
			Command:  r.Scheduler.Header().Command,
			Current:  r.Scheduler.Current(),
			AckCount: r.Scheduler.AckCount(),
			Pending:  r.Transport.Pending(),
		}
	})
	r.mu.Lock()
	st.Port = r.config.Host.Name
	st.PortOpen = r.link != nil && r.link.IsOpen()
	r.mu.Unlock()
	st.Transport = r.Transport.Stats()
	return st
}
