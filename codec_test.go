package fdtest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(maxChar int) Settings {
	s := DefaultSettings()
	s.MaxChar = maxChar
	return s
}

func header(t *testing.T, cmd Command) Header {
	t.Helper()
	h, err := NewHeader(cmd)
	require.NoError(t, err)
	return h
}

func blinked(s string) []byte {
	b := []byte(s)
	setBlink(b)
	return b
}

func payload28(frame []byte) []byte {
	return frame[off28Payload : len(frame)-1]
}

func TestEncodeAlarm(t *testing.T) {
	ev := DisplayEvent{Name: "alarm", Text: "Alarm", Location: "3", Blink: BlinkEvent, Tone: ToneAlarm}

	enc, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
	require.NoError(t, err)

	want := append(blinked("Alarm"), ' ', '3')
	frame := enc.Frame
	require.Len(t, frame, off28Payload+len(want)+1)

	assert.Equal(t, []byte{
		SenderASW, 0x28,
		0x00, 0x00, // destination 0.0
		0x09, 0x09, // source 9.9
		DeviceTypeDisplay,
		0x00, 0x00,
		0x01,
		byte(ToneAlarm),
		byte(AlignLeft),
		0x00, 0x00,
		7,
	}, frame[:off28Payload])
	assert.Equal(t, want, payload28(frame))
	assert.Equal(t, CRC8(want), frame[len(frame)-1])
	assert.Equal(t, PeriodText, enc.Interval)
}

func TestEncodeCRCRoundTrip(t *testing.T) {
	events := []DisplayEvent{
		{Name: "alarm", Text: "Alarm", Location: "3", Blink: BlinkEvent},
		{Name: "presence", Text: "Anw", Location: "Zimmer 12", Blink: BlinkAll},
		{Name: "", Location: "4"},
		{Name: "reminder", Text: "Merk", Location: "officer", Blink: BlinkLocation | BlinkDelimiter},
	}
	for _, ev := range events {
		enc, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
		require.NoError(t, err)

		var crc byte
		for _, b := range enc.Frame[off28Payload:] {
			crc ^= b
		}
		assert.Zero(t, crc, ev.Text)
	}
}

func TestEncodeBlankEventRightAligns(t *testing.T) {
	tests := []struct {
		ev   DisplayEvent
		want string
	}{
		{DisplayEvent{Location: "AB"}, "        AB"},
		{DisplayEvent{Text: "Ruf", Location: "12"}, "Ruf     12"},
		{DisplayEvent{}, "          "},
		// too long to pad
		{DisplayEvent{Location: "ABCDEFGHIJK"}, "ABCDEFGHIJK"},
	}
	s := testSettings(10)
	s.LongText = LongText{Mode: LongTextTruncate}
	for _, tt := range tests {
		enc, err := Encode(tt.ev, header(t, Cmd28), s, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(payload28(enc.Frame)))
	}
}

func TestEncodeTimeEvent(t *testing.T) {
	ev := DisplayEvent{Name: EventTime, Location: "14:05"}
	enc, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
	require.NoError(t, err)

	// the colon lands on column 5 of 10
	assert.Equal(t, []byte{' ', ' ', '1', '4', ':' | BlinkChar, '0', '5'}, payload28(enc.Frame))
	assert.Equal(t, byte(7), enc.Frame[off28Length])
}

func TestEncodeBlinkFlagsCombine(t *testing.T) {
	ev := DisplayEvent{Name: "alarm", Text: "Ruf", Location: "12", Blink: BlinkEvent | BlinkDelimiter | BlinkLocation}
	enc, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
	require.NoError(t, err)
	assert.Equal(t, blinked("Ruf 12"), payload28(enc.Frame))
	assert.Equal(t, byte(AlignLeft), enc.Frame[off28TextFormat])

	ev.Blink = BlinkAll
	enc, err = Encode(ev, header(t, Cmd28), testSettings(10), true)
	require.NoError(t, err)
	assert.Equal(t, []byte("Ruf 12"), payload28(enc.Frame))
	assert.Equal(t, byte(AlignLeft|BlinkAllText|MultipleText), enc.Frame[off28TextFormat])
}

func TestEncodeSlidingText(t *testing.T) {
	ev := DisplayEvent{Name: "alarm", Text: "Zellenruf", Location: "Zimmer 12"}
	enc, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
	require.NoError(t, err)

	assert.Equal(t, byte(19), enc.Frame[off28Length])
	assert.Equal(t, byte(AlignLeft|SlidingText), enc.Frame[off28TextFormat])
	assert.Equal(t, 19*SlidingCharRate+SlidingHoldTime, enc.Interval)
	assert.Equal(t, 8303*time.Millisecond, enc.Interval)
}

func TestEncodeTruncatedText(t *testing.T) {
	s := testSettings(10)
	s.LongText = LongText{Mode: LongTextTruncate}
	ev := DisplayEvent{Name: "alarm", Text: "Zellenruf", Location: "Zimmer 12"}

	enc, err := Encode(ev, header(t, Cmd28), s, false)
	require.NoError(t, err)

	assert.Equal(t, byte(10), enc.Frame[off28Length])
	assert.Equal(t, byte(AlignLeft), enc.Frame[off28TextFormat])
	assert.Equal(t, PeriodText, enc.Interval)
}

func TestEncodeTooLong(t *testing.T) {
	ev := DisplayEvent{Name: "alarm", Location: string(bytes.Repeat([]byte{'x'}, 300))}
	_, err := Encode(ev, header(t, Cmd28), testSettings(10), false)
	assert.ErrorIs(t, err, ErrPayloadTooLong)
}

func TestEncode26FixedWidth(t *testing.T) {
	tests := []struct {
		ev   DisplayEvent
		want string
	}{
		{DisplayEvent{Text: "Alarm", Location: "123456789"}, "Ala 1234"},
		{DisplayEvent{Text: "R", Location: ""}, "R ??????"},
		{DisplayEvent{Location: "ab"}, "ab      "},
		{DisplayEvent{}, "????????"},
		{DisplayEvent{Text: "Ruf", Location: "12"}, "Ruf 12  "},
		{DisplayEvent{Text: "Prüf", Location: "12"}, "Prü 12 "},
	}
	for _, tt := range tests {
		enc, err := Encode(tt.ev, header(t, Cmd26), testSettings(10), false)
		require.NoError(t, err)

		frame := enc.Frame
		assert.Len(t, frame[offCompactValence:], Payload26Len+1)
		assert.Equal(t, tt.want, string(frame[offCompactPayload:]))
	}
}

func TestEncode26ValenceAndBlink(t *testing.T) {
	ev := DisplayEvent{Text: "Ruf", Location: "12", Blink: BlinkEvent, Tone: ToneCall}
	enc, err := Encode(ev, header(t, Cmd26), testSettings(10), false)
	require.NoError(t, err)

	assert.Equal(t, []byte{SenderASW, 0x26, 0x00}, enc.Frame[:offCompactValence])
	assert.Equal(t, byte(ValenceCall), enc.Frame[offCompactValence])
	assert.Equal(t, append(blinked("Ruf"), []byte(" 12  ")...), enc.Frame[offCompactPayload:])

	ev.Tone = ToneAlarm
	enc, err = Encode(ev, header(t, Cmd26), testSettings(10), false)
	require.NoError(t, err)
	assert.Equal(t, byte(ValenceAlarm), enc.Frame[offCompactValence])
}

func TestEncode27InsertsSpace(t *testing.T) {
	tests := []struct {
		ev   DisplayEvent
		want string
	}{
		{DisplayEvent{Text: "Ruf", Location: "123"}, "R 123   "},
		{DisplayEvent{Text: "Alarm", Location: "1234567"}, "A 123456"},
		{DisplayEvent{Text: "M"}, "M ??????"},
		{DisplayEvent{Location: "12"}, "        "},
		{DisplayEvent{Text: "Übung", Location: "12"}, "Ü 12   "},
	}
	for _, tt := range tests {
		enc, err := Encode(tt.ev, header(t, Cmd27), testSettings(10), false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(enc.Frame[offCompactPayload:]))
	}
}

func TestEncodeUnsupportedCommand(t *testing.T) {
	_, err := Encode(DisplayEvent{}, Header{Command: 0x30}, testSettings(10), false)
	assert.ErrorIs(t, err, ErrUnsupportedCommand)

	_, err = NewHeader(0x30)
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}
