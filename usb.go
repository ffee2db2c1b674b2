package fdtest

/*
 * Flurdisplay Test Rig in Go
 *
 * This file is part of the Flurdisplay test rig, a Go implementation of the
 * LR serial protocol used by hallway display units.
 *
 * Features:
 * - Serial port discovery and configuration from line parameters
 * - Background reader handing received chunks to the event loop
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/albenik/go-serial/v2"
	"github.com/albenik/go-serial/v2/enumerator"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

const (
	// ReadTimeout bounds a single port read so the reader notices Close.
	ReadTimeout    = 100 // ms
	ReadBufferSize = 128
)

// SerialLink is a Link backed by a serial port.
type SerialLink struct {
	port   *serial.Port
	name   string
	params LineParams
	open   *atomic.Bool
	mu     sync.Mutex
}

// OpenSerialLink opens name with the given line parameters and discards
// stale input.
func OpenSerialLink(name string, params LineParams) (*SerialLink, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: no serial port name", ErrNoPort)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.Open(name,
		serial.WithBaudrate(params.BaudRate),
		serial.WithDataBits(params.DataBits),
		serial.WithParity(serialParity(params.Parity)),
		serial.WithStopBits(serialStopBits(params.StopBits)),
		serial.WithReadTimeout(ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Warn().Err(err).Str("port", name).Msg("Cannot flush input buffer")
	}

	log.Info().Str("port", name).Str("params", params.String()).Msg("Serial port opened")
	return &SerialLink{
		port:   port,
		name:   name,
		params: params,
		open:   atomic.NewBool(true),
	}, nil
}

func serialParity(p Parity) serial.Parity {
	switch p {
	case ParityOdd:
		return serial.OddParity
	case ParityEven:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func serialStopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

func (l *SerialLink) Name() string {
	return l.name
}

func (l *SerialLink) Params() LineParams {
	return l.params
}

func (l *SerialLink) IsOpen() bool {
	return l.open.Load()
}

func (l *SerialLink) Write(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, ErrLinkClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Write(p)
}

func (l *SerialLink) Close() error {
	if !l.open.CompareAndSwap(true, false) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	log.Info().Str("port", l.name).Msg("Serial port closed")
	return l.port.Close()
}

// ReadLoop reads until ctx is done or the port is closed, passing every
// chunk to onBytes. onBytes receives its own copy.
func (l *SerialLink) ReadLoop(ctx context.Context, onBytes func([]byte)) error {
	buffer := make([]byte, ReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !l.IsOpen() {
			return ErrLinkClosed
		}

		n, err := l.port.Read(buffer)
		if err != nil {
			if !l.IsOpen() {
				return ErrLinkClosed
			}
			log.Error().Err(err).Str("port", l.name).Msg("Error reading from serial port")
			return err
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			onBytes(chunk)
		}
	}
}

// ListPorts returns the serial ports present on this host.
func ListPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}
	return ports, nil
}

// FindUSBPort returns the first USB serial port, or the first one matching
// vid/pid when they are given.
func FindUSBPort(vid, pid string) (*enumerator.PortDetails, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if (vid == "" || port.VID == vid) && (pid == "" || port.PID == pid) {
			return port, nil
		}
	}
	return nil, ErrNoPort
}
