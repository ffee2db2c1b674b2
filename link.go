package fdtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Link is the byte channel a Transport writes frames to.
type Link interface {
	Write(p []byte) (int, error)
	IsOpen() bool
}

type Parity byte

const (
	ParityNone Parity = 'n'
	ParityOdd  Parity = 'o'
	ParityEven Parity = 'e'
)

// LineParams describes the serial character frame and rate.
type LineParams struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits int
}

// DefaultLineParams matches the RS485 device interface: 38400,n,8,2.
func DefaultLineParams() LineParams {
	return LineParams{BaudRate: 38400, DataBits: 8, Parity: ParityNone, StopBits: 2}
}

// ParseLineParams parses "<baud>,<n|o|e>,<data bits>,<stop bits>".
func ParseLineParams(s string) (LineParams, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return LineParams{}, fmt.Errorf("%w: %q", ErrBadLineParams, s)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	baud, err := strconv.Atoi(fields[0])
	if err != nil {
		return LineParams{}, fmt.Errorf("%w: baud rate %q", ErrBadLineParams, fields[0])
	}
	data, err := strconv.Atoi(fields[2])
	if err != nil {
		return LineParams{}, fmt.Errorf("%w: data bits %q", ErrBadLineParams, fields[2])
	}
	stop, err := strconv.Atoi(fields[3])
	if err != nil {
		return LineParams{}, fmt.Errorf("%w: stop bits %q", ErrBadLineParams, fields[3])
	}

	parity := strings.ToLower(fields[1])
	if len(parity) != 1 {
		return LineParams{}, fmt.Errorf("%w: parity %q", ErrBadLineParams, fields[1])
	}

	p := LineParams{
		BaudRate: baud,
		DataBits: data,
		Parity:   Parity(parity[0]),
		StopBits: stop,
	}
	if err := p.Validate(); err != nil {
		return LineParams{}, err
	}
	return p, nil
}

func (p LineParams) Validate() error {
	switch {
	case p.BaudRate <= 0:
		return fmt.Errorf("%w: baud rate must be positive, got %d", ErrBadLineParams, p.BaudRate)
	case p.DataBits < 5 || p.DataBits > 8:
		return fmt.Errorf("%w: data bits must be 5-8, got %d", ErrBadLineParams, p.DataBits)
	case p.StopBits != 1 && p.StopBits != 2:
		return fmt.Errorf("%w: stop bits must be 1 or 2, got %d", ErrBadLineParams, p.StopBits)
	}
	switch p.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("%w: parity should be n or o or e", ErrBadLineParams)
	}
	return nil
}

// BitsPerByte counts the start bit, data bits, the parity bit if any and the stop bits.
func (p LineParams) BitsPerByte() int {
	bits := 1 + p.DataBits + p.StopBits
	if p.Parity != ParityNone {
		bits++
	}
	return bits
}

// TransmitDuration estimates how long n bytes occupy the line, plus one millisecond.
func (p LineParams) TransmitDuration(n int) time.Duration {
	if p.BaudRate <= 0 {
		return time.Millisecond
	}
	bitMillis := n * p.BitsPerByte() * 1000
	ms := (bitMillis + p.BaudRate - 1) / p.BaudRate
	return time.Duration(ms+1) * time.Millisecond
}

func (p LineParams) String() string {
	return fmt.Sprintf("%d,%c,%d,%d", p.BaudRate, p.Parity, p.DataBits, p.StopBits)
}
