package fdtest

import (
	"bytes"
	"fmt"
	"time"
)

// Encoded is a built LR message and how long its text should stay on screen.
type Encoded struct {
	Frame    []byte
	Interval time.Duration
}

// Encode builds the LR message that shows ev on a display, using header h
// for addressing and the command variant. multiple sets the "multiple text"
// indicator of 0x28 messages.
func Encode(ev DisplayEvent, h Header, s Settings, multiple bool) (Encoded, error) {
	switch h.Command {
	case Cmd28:
		return encode28(ev, h, s, multiple)
	case Cmd26, Cmd27:
		return encodeCompact(ev, h), nil
	default:
		return Encoded{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, h.Command)
	}
}

func encode28(ev DisplayEvent, h Header, s Settings, multiple bool) (Encoded, error) {
	var data []byte

	event := []byte(ev.Text)
	if ev.Blink.Has(BlinkEvent) {
		setBlink(event)
	}
	data = append(data, event...)

	if len(event) > 0 {
		delimiter := byte(' ')
		if ev.Blink.Has(BlinkDelimiter) {
			delimiter |= BlinkChar
		}
		data = append(data, delimiter)
	}

	location := []byte(ev.Location)
	switch {
	case ev.Name == "":
		// blank: right align in the free width
		if free := s.MaxChar - len(location) - len(data); free >= 0 {
			location = append(spaces(free), location...)
		}
	case ev.Name == EventTime:
		colon := bytes.IndexByte(location, ':')
		for i, b := range location {
			if b == ':' {
				location[i] = b | BlinkChar
			}
		}
		if colon > 0 {
			// colon sits just right of the display center
			if free := s.MaxChar/2 - (colon + 1) - len(data); free > 0 {
				location = append(spaces(free), location...)
			}
		}
	case ev.Blink.Has(BlinkLocation):
		setBlink(location)
	}
	data = append(data, location...)

	if len(data) > 0xff {
		return Encoded{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(data))
	}

	format := AlignLeft
	if ev.Blink == BlinkAll {
		format |= BlinkAllText
	}

	length := len(data)
	interval := PeriodText
	if len(data) > s.MaxChar {
		if s.LongText.Mode == LongTextSliding {
			format |= SlidingText
			interval = time.Duration(len(data))*s.LongText.CharRate + s.LongText.HoldTime
		} else {
			length = s.MaxChar
		}
	}
	if multiple {
		format |= MultipleText
	}

	h.Length = byte(length)
	h.TextFormat = format
	h.Tone = ev.Tone

	frame := append(h.Bytes(), data...)
	frame = append(frame, CRC8(data))
	return Encoded{Frame: frame, Interval: interval}, nil
}

func encodeCompact(ev DisplayEvent, h Header) Encoded {
	frame := h.Bytes()

	var valence byte
	switch ev.Tone {
	case ToneCall:
		valence = ValenceCall
	case ToneAlarm:
		valence = ValenceAlarm
	}
	frame = append(frame, valence)

	var data []byte
	if h.Command == Cmd26 {
		event := clipRunes(ev.Text, 3)
		if ev.Blink.Has(BlinkEvent) {
			setBlink(event)
		}
		data = append(data, event...)

		if len(event) > 0 {
			delimiter := byte(' ')
			if ev.Blink.Has(BlinkDelimiter) {
				delimiter |= BlinkChar
			}
			data = append(data, delimiter)
		}
		data = append(data, fixedField(ev.Location, Payload26Len-len(data))...)
	} else {
		event := clipRunes(ev.Text, 1)
		if len(event) > 0 {
			if ev.Blink.Has(BlinkEvent) {
				event[0] |= BlinkChar
			}
			data = append(data, event...)
			data = append(data, fixedField(ev.Location, Payload27Len-len(data))...)

			// 0x27 displays keep a gap between call type and address
			n := len(event)
			data = append(data[:n], append([]byte{' '}, data[n:]...)...)
		}
	}

	if len(data) == 0 {
		data = spaces(Payload26Len)
	}
	frame = append(frame, data...)
	return Encoded{Frame: frame, Interval: PeriodText}
}
