package fdtest

import (
	"fmt"
	"strconv"
	"strings"
)

// Command selects one of the three LR message variants.
type Command byte

const (
	Cmd26 Command = 0x26
	Cmd27 Command = 0x27
	Cmd28 Command = 0x28
)

// DefaultCommand is the header a freshly configured scheduler starts with.
const DefaultCommand = Cmd28

func (c Command) Valid() bool {
	return c == Cmd26 || c == Cmd27 || c == Cmd28
}

func (c Command) String() string {
	return fmt.Sprintf("0x%x", byte(c))
}

// ParseCommand parses a hex command such as "0x28".
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCommand, s)
	}
	c := Command(v)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCommand, c)
	}
	return c, nil
}

// ParseCommands parses a comma separated command list, keeping its order.
func ParseCommands(s string) ([]Command, error) {
	var cmds []Command
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCommand(part)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// Header field offsets.
const (
	offSendASW = 0
	offCommand = 1

	off28DstStation   = 2
	off28DstRoom      = 3
	off28SrcStation   = 4
	off28SrcRoom      = 5
	off28DeviceType   = 6
	off28StationGroup = 7
	off28RoomGroup    = 8
	off28MessageID    = 9
	off28Tone         = 10
	off28TextFormat   = 11
	off28TextColor    = 12
	off28Priority     = 13
	off28Length       = 14
	off28Payload      = 15

	offCompactGroup   = 2
	offCompactValence = 3
	offCompactPayload = 4
)

// Payload widths of the compact commands.
const (
	Payload26Len = 8
	Payload27Len = 7
)

// Valence codes of the compact commands.
const (
	ValenceCall  = 10
	ValenceAlarm = 0x80 | 0x40 | 0x0B
)

// SenderASW is the sender address of the test rig.
const SenderASW = 0x81

// DeviceTypeDisplay addresses hallway displays.
const DeviceTypeDisplay = 0x01

// TextFormat is the 0x28 text format byte.
type TextFormat byte

const (
	AlignCenter  TextFormat = 0x00
	MultipleText TextFormat = 0x04
	AlignRight   TextFormat = 0x10
	AlignLeft    TextFormat = 0x20
	SlidingText  TextFormat = 0x40
	BlinkAllText TextFormat = 0x80
)

// Header is the message header of the active command. Fields after Command
// apply to 0x28 only, except Group which belongs to 0x26 and 0x27.
type Header struct {
	SendASW byte
	Command Command

	DstStation   byte
	DstRoom      byte
	SrcStation   byte
	SrcRoom      byte
	DeviceType   byte
	StationGroup byte
	RoomGroup    byte
	MessageID    byte
	Tone         ToneMode
	TextFormat   TextFormat
	TextColor    byte
	Priority     byte
	Length       byte

	Group byte
}

// NewHeader builds the default header for cmd: broadcast to station 0.0
// from 9.9 for 0x28, group 0 for 0x26 and 0x27.
func NewHeader(cmd Command) (Header, error) {
	switch cmd {
	case Cmd28:
		return Header{
			SendASW:    SenderASW,
			Command:    cmd,
			SrcStation: 0x09,
			SrcRoom:    0x09,
			DeviceType: DeviceTypeDisplay,
			MessageID:  0x01,
		}, nil
	case Cmd26, Cmd27:
		return Header{SendASW: SenderASW, Command: cmd}, nil
	default:
		return Header{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
}

// Len is the encoded header size.
func (h Header) Len() int {
	if h.Command == Cmd28 {
		return off28Payload
	}
	return offCompactValence
}

func (h Header) Bytes() []byte {
	b := make([]byte, h.Len())
	b[offSendASW] = h.SendASW
	b[offCommand] = byte(h.Command)
	if h.Command != Cmd28 {
		b[offCompactGroup] = h.Group
		return b
	}
	b[off28DstStation] = h.DstStation
	b[off28DstRoom] = h.DstRoom
	b[off28SrcStation] = h.SrcStation
	b[off28SrcRoom] = h.SrcRoom
	b[off28DeviceType] = h.DeviceType
	b[off28StationGroup] = h.StationGroup
	b[off28RoomGroup] = h.RoomGroup
	b[off28MessageID] = h.MessageID
	b[off28Tone] = byte(h.Tone)
	b[off28TextFormat] = byte(h.TextFormat)
	b[off28TextColor] = h.TextColor
	b[off28Priority] = h.Priority
	b[off28Length] = h.Length
	return b
}
