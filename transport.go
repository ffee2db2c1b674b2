package fdtest

/*
 * Flurdisplay Test Rig in Go
 *
 * This file is part of the Flurdisplay test rig, a Go implementation of the
 * LR serial protocol used by hallway display units.
 *
 * Features:
 * - STX/ETX framing with hex encoded payloads and Seriobus relay prefix
 * - FIFO send queue advanced by an estimated transmit duration
 * - ACK/NACK/STX/ETX/EOT demultiplexing of the receive stream
 * - Designed for serial communication
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

import (
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Transport owns the send queue and the transmit watchdog. All methods must
// be called from the goroutine that delivers the Clock callbacks.
type Transport struct {
	notifier

	// Frame builds envelopes and classifies received bytes.
	Frame *Frame

	link     Link
	clock    Clock
	params   LineParams
	queue    [][]byte
	watchdog Timer

	sent    *atomic.Uint64
	acks    *atomic.Uint64
	nacks   *atomic.Uint64
	dropped *atomic.Uint64
}

// TransportStats is a snapshot of the transport counters.
type TransportStats struct {
	Sent    uint64
	ACK     uint64
	NACK    uint64
	Dropped uint64
}

// NewTransport creates a transport writing to link. link may be nil until a
// port is opened.
func NewTransport(link Link, clock Clock) *Transport {
	t := &Transport{
		Frame:   NewFrame(),
		link:    link,
		clock:   clock,
		params:  DefaultLineParams(),
		sent:    atomic.NewUint64(0),
		acks:    atomic.NewUint64(0),
		nacks:   atomic.NewUint64(0),
		dropped: atomic.NewUint64(0),
	}
	t.Frame.OnControl = t.onControl
	t.Frame.OnData = func(b byte) {
		t.emit(SignalData, []byte{b})
	}
	return t
}

// SetLink replaces the underlying link and discards whatever was queued for
// the previous one.
func (t *Transport) SetLink(link Link) {
	t.Reset()
	t.link = link
}

// SetLineParams updates the character frame used for the watchdog estimate.
func (t *Transport) SetLineParams(p LineParams) {
	t.params = p
	log.Debug().
		Str("params", p.String()).
		Int("bits_per_byte", p.BitsPerByte()).
		Msg("Transport line parameters changed")
}

func (t *Transport) LineParams() LineParams {
	return t.params
}

func (t *Transport) linkOpen() bool {
	return t.link != nil && t.link.IsOpen()
}

// Enqueue appends payload to the send queue and starts sending if the
// transport is idle. With a closed link nothing is queued and ErrLinkClosed
// is returned.
func (t *Transport) Enqueue(payload []byte) error {
	if !t.linkOpen() {
		t.dropped.Inc()
		log.Warn().Hex("payload", payload).Msg("Tried to send protocol while disconnected")
		return ErrLinkClosed
	}

	entry := make([]byte, len(payload))
	copy(entry, payload)
	t.queue = append(t.queue, entry)
	return t.startSend()
}

// startSend writes the queue head unless a transmission is in progress.
func (t *Transport) startSend() error {
	if !t.linkOpen() {
		log.Warn().Msg("Tried to send protocol while disconnected")
		return ErrLinkClosed
	}
	if t.watchdog != nil || len(t.queue) == 0 {
		return nil
	}

	out := t.Frame.Build(t.queue[0])
	if _, err := t.link.Write(out); err != nil {
		log.Error().Err(err).Msg("Failed to write frame")
	}

	t.watchdog = t.clock.AfterFunc(t.params.TransmitDuration(len(out)), t.onSendTick)
	return nil
}

// onSendTick completes the head transmission once its estimated duration has
// elapsed, whether or not the display answered.
func (t *Transport) onSendTick() {
	t.watchdog = nil
	if len(t.queue) == 0 {
		t.emit(SignalDrained, nil)
		return
	}

	ctrl, payload := SplitRelay(t.queue[0])
	t.queue = t.queue[1:]

	if e := log.Debug(); e.Enabled() {
		if ctrl != 0 {
			e.Str("hex", upperHex(payload)).Msg("serial protocol")
		} else {
			e.Hex("hex", payload).Msg("serial protocol")
		}
	}

	t.sent.Inc()
	t.emit(SignalSent, payload)

	if len(t.queue) == 0 {
		t.emit(SignalDrained, nil)
		return
	}
	if err := t.startSend(); err != nil {
		t.Reset()
	}
}

// OnBytesReceived feeds raw link input through the frame classifier.
func (t *Transport) OnBytesReceived(data []byte) {
	for _, b := range data {
		t.Frame.FeedByte(b)
	}
}

func (t *Transport) onControl(b byte) {
	switch b {
	case ACK:
		t.acks.Inc()
		t.emit(SignalACK, nil)
	case NACK:
		t.nacks.Inc()
		t.emit(SignalNACK, nil)
	case STX:
		t.emit(SignalSTX, nil)
	case ETX:
		t.emit(SignalETX, nil)
	case EOT:
		t.emit(SignalEOT, nil)
	}
}

// Received returns the non-control bytes collected so far.
func (t *Transport) Received() []byte {
	out := make([]byte, len(t.Frame.IncomingBuffer))
	copy(out, t.Frame.IncomingBuffer)
	return out
}

func (t *Transport) ResetReceived() {
	t.Frame.IncomingBuffer = t.Frame.IncomingBuffer[:0]
}

// Pending returns the number of queued entries, including one in flight.
func (t *Transport) Pending() int {
	return len(t.queue)
}

// Busy reports whether the watchdog is running.
func (t *Transport) Busy() bool {
	return t.watchdog != nil
}

// Reset stops the watchdog and drops queued entries.
func (t *Transport) Reset() {
	if t.watchdog != nil {
		t.watchdog.Stop()
		t.watchdog = nil
	}
	if n := len(t.queue); n > 0 {
		t.dropped.Add(uint64(n))
		log.Debug().Int("entries", n).Msg("Send queue discarded")
	}
	t.queue = nil
}

// Stats is safe to call from any goroutine.
func (t *Transport) Stats() TransportStats {
	return TransportStats{
		Sent:    t.sent.Load(),
		ACK:     t.acks.Load(),
		NACK:    t.nacks.Load(),
		Dropped: t.dropped.Load(),
	}
}
