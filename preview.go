package fdtest

import (
	"fmt"
	"unicode/utf8"
)

// Preview is what a display shows for a message: Front is the steady text,
// Back the blink phase in which blinking characters are blank.
type Preview struct {
	Command      Command
	Front        string
	Back         string
	Blinking     bool
	MultipleText bool
	Sliding      bool
	Tone         ToneMode
}

// DecodePreview derives the display content from a clear-text LR message as
// reported by the transport's sent notification.
func DecodePreview(frame []byte) (Preview, error) {
	if len(frame) <= offCommand {
		return Preview{}, ErrShortFrame
	}
	p := Preview{Command: Command(frame[offCommand])}

	var front, back []byte
	switch p.Command {
	case Cmd28:
		if len(frame) <= off28Length {
			return p, ErrShortFrame
		}
		length := int(frame[off28Length])
		if len(frame) > off28Payload+length {
			front = append([]byte{}, frame[off28Payload:off28Payload+length]...)
			back = append([]byte{}, front...)
		}
		for i, b := range front {
			if b&BlinkChar != 0 {
				front[i] = b &^ BlinkChar
				back[i] = ' '
				p.Blinking = true
			}
		}

		format := TextFormat(frame[off28TextFormat])
		p.MultipleText = format&MultipleText != 0
		p.Sliding = format&SlidingText != 0

		tone := ToneMode(frame[off28Tone])
		switch {
		case tone&ToneCall != 0:
			p.Tone = ToneCall
		case tone&ToneAlarm != 0:
			p.Tone = ToneAlarm
		}

	case Cmd26, Cmd27:
		if len(frame) < offCompactPayload+Payload26Len {
			return p, ErrShortFrame
		}
		front = append([]byte{}, frame[offCompactPayload:offCompactPayload+Payload26Len]...)
		back = append([]byte{}, front...)

		if p.Command == Cmd26 {
			for i, b := range front {
				if b&BlinkChar != 0 {
					front[i] = b &^ BlinkChar
					back[i] = ' '
					p.Blinking = true
				}
			}
		} else if front[0]&BlinkChar != 0 {
			// 0x27 blinks the whole field or nothing
			p.Blinking = true
			for i, b := range front {
				front[i] = b &^ BlinkChar
				back[i] = ' '
			}
		}

		switch valence := frame[offCompactValence]; {
		case valence == ValenceCall:
			p.Tone = ToneCall
		case valence > ValenceCall:
			p.Tone = ToneAlarm
		}

	default:
		return p, fmt.Errorf("%w: %s", ErrUnsupportedCommand, p.Command)
	}

	p.Front = string(front)
	p.Back = string(back)
	return p, nil
}

// BlinkPhases lists the texts a display alternates between every
// PeriodBlink.
func (p Preview) BlinkPhases() []string {
	if !p.Blinking {
		return []string{p.Front}
	}
	return []string{p.Front, p.Back}
}

// SlidingFrames lists the texts of one sliding pass: the full text, then the
// text with one more leading character dropped per SlidingCharRate step,
// back to the full text.
func (p Preview) SlidingFrames() []string {
	frames := []string{p.Front}
	if !p.Sliding {
		return frames
	}
	rest := p.Front
	for utf8.RuneCountInString(rest) > 1 {
		_, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		frames = append(frames, rest)
	}
	return append(frames, p.Front)
}

func (p Preview) String() string {
	indicator := " "
	if p.MultipleText {
		indicator = ":"
	}
	return fmt.Sprintf("[%s]%s tone=%s", p.Front, indicator, p.Tone)
}
