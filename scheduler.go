package fdtest

/*
 * Flurdisplay Test Rig in Go
 *
 * This file is part of the Flurdisplay test rig, a Go implementation of the
 * LR serial protocol used by hallway display units.
 *
 * Features:
 * - Cycles through configured test patterns on a display timer
 * - Rotates the LR command variant after every full cycle
 * - Counts acknowledgements and echoes frames through Seriobus relays
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FrameSender queues LR messages and reports link events.
type FrameSender interface {
	Enqueue(payload []byte) error
	Subscribe(sig Signal, fn func(Notification))
}

type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Scheduler shows the configured patterns one after another. Like the
// transport, it must only be driven from the goroutine delivering its Clock
// callbacks.
type Scheduler struct {
	notifier

	sender FrameSender
	clock  Clock

	settings   Settings
	catalog    Catalog
	configured bool

	header  Header
	current DisplayEvent
	state   State
	halting bool
	tick    Timer
	runID   string

	lastFrame   []byte
	relayPacket []byte
	dummyFrame  []byte
	ackCount    int
	delivered   bool
}

// NewScheduler creates a stopped scheduler and subscribes it to sender.
func NewScheduler(sender FrameSender, clock Clock) *Scheduler {
	s := &Scheduler{
		sender:   sender,
		clock:    clock,
		settings: DefaultSettings(),
	}
	s.header, _ = NewHeader(DefaultCommand)
	sender.Subscribe(SignalACK, s.onACK)
	sender.Subscribe(SignalSent, s.onSent)
	return s
}

// Init applies settings and patterns. Invalid settings leave the scheduler
// unconfigured so that Start refuses to run.
func (s *Scheduler) Init(settings Settings, events []DisplayEvent) error {
	if s.state == StateRunning {
		return ErrRunning
	}
	if err := settings.Validate(); err != nil {
		s.configured = false
		return err
	}

	s.settings = settings
	s.catalog = NewCatalog(events)
	s.header, _ = NewHeader(DefaultCommand)
	s.current = DisplayEvent{}
	s.configured = true

	log.Info().
		Int("max_char", settings.MaxChar).
		Str("interface", settings.InterfaceName).
		Interface("commands", commandNames(settings.Commands)).
		Int("patterns", len(s.catalog)).
		Msg("Scheduler configured")
	for _, ev := range s.catalog {
		log.Debug().
			Int("id", ev.ID).
			Str("event", ev.Name).
			Str("type", ev.Type).
			Str("text", ev.Text).
			Str("location", ev.Location).
			Int("priority", ev.Priority).
			Str("blink", ev.Blink.String()).
			Str("tone", ev.Tone.String()).
			Msg("Test pattern")
	}
	return nil
}

// Start selects the last pattern as current and arms the display timer, so
// the first tick shows the first pattern.
func (s *Scheduler) Start() error {
	if !s.configured {
		return ErrNotConfigured
	}
	if s.state == StateRunning {
		return ErrRunning
	}
	if len(s.catalog) == 0 {
		log.Warn().Msg("Test patterns are not defined in config file")
		return ErrNoPatterns
	}

	s.runID = uuid.NewString()
	s.current = s.catalog.Last()
	s.lastFrame = nil
	s.dummyFrame = nil
	s.ackCount = 0
	s.state = StateRunning
	s.tick = s.clock.AfterFunc(FirstTickDelay, s.advance)

	log.Info().Str("run", s.runID).Msg("Test started")
	s.emit(SignalStarted, nil)
	return nil
}

// Stop cancels the display timer and blanks the display. The scheduler
// reports stopped once the blank frame went out.
func (s *Scheduler) Stop() error {
	if s.state != StateRunning || s.halting {
		return nil
	}
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	s.halting = true

	enc, err := Encode(DisplayEvent{}, s.header, s.settings, false)
	if err != nil {
		log.Error().Err(err).Str("run", s.runID).Msg("Cannot build blank frame")
		s.finishStop()
		return err
	}
	s.dummyFrame = enc.Frame

	if s.settings.Relayed() {
		packet := append([]byte{RelayControl}, enc.Frame...)
		s.ackCount = 0
		for i := 0; i < ValidAckCount; i++ {
			if err = s.sender.Enqueue(packet); err != nil {
				break
			}
		}
	} else {
		s.ackCount = ValidAckCount
		err = s.sender.Enqueue(enc.Frame)
	}
	if err != nil {
		log.Warn().Err(err).Str("run", s.runID).Msg("Blank frame not sent")
		s.finishStop()
	}
	return nil
}

func (s *Scheduler) finishStop() {
	s.state = StateStopped
	s.halting = false
	s.dummyFrame = nil
	s.lastFrame = nil
	log.Info().Str("run", s.runID).Msg("Test stopped")
	s.emit(SignalStopped, nil)
}

// advance shows the pattern after the current one. Wrapping around the
// pattern list also moves on to the next supported command.
func (s *Scheduler) advance() {
	s.tick = nil
	if s.state != StateRunning || s.halting {
		return
	}

	next, wrapped := s.catalog.Next(s.current)
	if wrapped {
		s.rotateCommand()
	}

	interval := s.display(next)

	if len(s.catalog) > 1 {
		s.tick = s.clock.AfterFunc(interval, s.advance)
	}
}

func (s *Scheduler) rotateCommand() {
	cmd := s.settings.NextCommand(s.header.Command)
	h, err := NewHeader(cmd)
	if err != nil {
		log.Error().Err(err).Msg("Cannot build protocol header")
		return
	}
	if cmd != s.header.Command {
		log.Info().Str("run", s.runID).Str("command", cmd.String()).Msg("Protocol command changed")
	}
	s.header = h
	s.emit(SignalCommand, []byte{byte(cmd)})
}

// display sends ev and returns how long it should stay on screen.
func (s *Scheduler) display(ev DisplayEvent) time.Duration {
	if !s.settings.Supports(s.header.Command) {
		log.Debug().Str("command", s.header.Command.String()).Msg("Command not supported by interface, pattern skipped")
		s.current = ev
		return PeriodText
	}

	if ev.Name == EventTime {
		ev.Location = FormatClock(s.clock.Now(), s.settings.TimeFormat)
	}

	multiple := s.current.ID != ev.ID && s.catalog.HasEqualPriority(ev)
	enc, err := Encode(ev, s.header, s.settings, multiple)
	if err != nil {
		log.Error().Err(err).Int("id", ev.ID).Msg("Cannot encode test pattern")
		return PeriodText
	}

	if s.settings.Relayed() {
		s.relayPacket = append([]byte{RelayControl}, enc.Frame...)
		s.ackCount = 0
		err = s.sender.Enqueue(s.relayPacket)
	} else {
		s.relayPacket = nil
		s.ackCount = ValidAckCount
		err = s.sender.Enqueue(enc.Frame)
	}
	if err != nil {
		log.Warn().Err(err).Int("id", ev.ID).Msg("Test pattern not sent")
	}

	s.lastFrame = enc.Frame
	s.delivered = false
	s.current = ev

	log.Debug().
		Str("run", s.runID).
		Int("id", ev.ID).
		Str("command", s.header.Command.String()).
		Dur("interval", enc.Interval).
		Msg("Test pattern displayed")
	return enc.Interval
}

func (s *Scheduler) onACK(Notification) {
	if s.lastFrame == nil || s.state != StateRunning || s.halting {
		return
	}
	if s.ackCount < ValidAckCount {
		s.ackCount++
	}
	if !s.settings.Relayed() {
		return
	}
	if s.ackCount < ValidAckCount {
		if err := s.sender.Enqueue(s.relayPacket); err != nil {
			log.Warn().Err(err).Msg("Relay echo not sent")
		}
		return
	}
	s.markDelivered()
}

func (s *Scheduler) onSent(n Notification) {
	if s.dummyFrame != nil && bytes.Equal(n.Data, s.dummyFrame) {
		if s.ackCount < ValidAckCount {
			s.ackCount++
		}
		if s.ackCount >= ValidAckCount {
			log.Debug().Str("run", s.runID).Msg("Blank frame sent")
			s.emit(SignalDummyDelivered, s.dummyFrame)
			s.finishStop()
		}
		return
	}
	if s.lastFrame != nil && s.ackCount >= ValidAckCount && bytes.Equal(n.Data, s.lastFrame) {
		s.markDelivered()
	}
}

func (s *Scheduler) markDelivered() {
	if s.delivered {
		return
	}
	s.delivered = true
	s.emit(SignalDelivered, s.lastFrame)
}

func (s *Scheduler) State() State {
	return s.state
}

func (s *Scheduler) IsRunning() bool {
	return s.state == StateRunning
}

func (s *Scheduler) Header() Header {
	return s.header
}

func (s *Scheduler) Current() DisplayEvent {
	return s.current
}

func (s *Scheduler) Catalog() Catalog {
	return s.catalog
}

func (s *Scheduler) Settings() Settings {
	return s.settings
}

// AckCount is the number of acknowledgements counted for the frame in flight.
func (s *Scheduler) AckCount() int {
	return s.ackCount
}

func (s *Scheduler) RunID() string {
	return s.runID
}

func commandNames(cmds []Command) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.String()
	}
	return names
}
