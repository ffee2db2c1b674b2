package fdtest

import (
	"fmt"
	"strconv"
	"strings"
)

// BlinkMode selects which parts of a display text blink. Flags combine.
type BlinkMode uint8

const (
	BlinkNone      BlinkMode = 0x00
	BlinkDelimiter BlinkMode = 0x10
	BlinkLocation  BlinkMode = 0x20
	BlinkEvent     BlinkMode = 0x40
	BlinkAll       BlinkMode = 0x80
)

func (b BlinkMode) Has(flag BlinkMode) bool {
	return b&flag != 0
}

func (b BlinkMode) String() string {
	if b == BlinkNone {
		return "none"
	}
	var parts []string
	if b.Has(BlinkAll) {
		parts = append(parts, "all")
	}
	if b.Has(BlinkEvent) {
		parts = append(parts, "event")
	}
	if b.Has(BlinkLocation) {
		parts = append(parts, "location")
	}
	if b.Has(BlinkDelimiter) {
		parts = append(parts, "delimiter")
	}
	return strings.Join(parts, ",")
}

// ParseBlinkMode parses a comma separated list of none, all, event, location
// and delimiter. "none" anywhere in the list disables blinking.
func ParseBlinkMode(s string) (BlinkMode, error) {
	var mode BlinkMode
	none := false
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(part)) {
		case "":
		case "none":
			none = true
		case "all":
			mode |= BlinkAll
		case "event":
			mode |= BlinkEvent
		case "location":
			mode |= BlinkLocation
		case "delimiter":
			mode |= BlinkDelimiter
		default:
			return BlinkNone, fmt.Errorf("unknown blink mode %q", part)
		}
	}
	if none {
		return BlinkNone, nil
	}
	return mode, nil
}

// ToneMode is the tone a display plays with a text. Exactly one applies.
type ToneMode uint8

const (
	ToneNone  ToneMode = 0x00
	ToneCall  ToneMode = 0x40
	ToneAlarm ToneMode = 0x80
)

func (t ToneMode) String() string {
	switch t {
	case ToneCall:
		return "call"
	case ToneAlarm:
		return "alarm"
	default:
		return "none"
	}
}

func ParseToneMode(s string) (ToneMode, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "none":
		return ToneNone, nil
	case "call":
		return ToneCall, nil
	case "alarm":
		return ToneAlarm, nil
	default:
		return ToneNone, fmt.Errorf("unknown tone %q", s)
	}
}

// EventTime is the event name of the clock pattern.
const EventTime = "time"

// DisplayEvent is one configured test pattern.
type DisplayEvent struct {
	ID       int
	Name     string
	Type     string
	Text     string
	Location string
	Priority int
	Blink    BlinkMode
	Tone     ToneMode
}

// Catalog is the ordered list of test patterns. IDs are 1..N in order.
type Catalog []DisplayEvent

// NewCatalog numbers the definitions and fills in missing location texts
// from the event type, or from the id when the type is empty too.
func NewCatalog(defs []DisplayEvent) Catalog {
	c := make(Catalog, len(defs))
	for i, ev := range defs {
		ev.ID = i + 1
		if ev.Location == "" {
			if ev.Type != "" {
				ev.Location = ev.Type
			} else {
				ev.Location = strconv.Itoa(ev.ID)
			}
		}
		c[i] = ev
	}
	return c
}

// HasEqualPriority reports whether another pattern shares ev's priority.
func (c Catalog) HasEqualPriority(ev DisplayEvent) bool {
	for _, other := range c {
		if other.ID != ev.ID && other.Priority == ev.Priority {
			return true
		}
	}
	return false
}

// Next returns the pattern after cur in declaration order and whether the
// list wrapped around to the first pattern.
func (c Catalog) Next(cur DisplayEvent) (DisplayEvent, bool) {
	if len(c) == 0 {
		return DisplayEvent{}, false
	}
	i := cur.ID
	if i < 0 || i >= len(c) {
		return c[0], true
	}
	return c[i], false
}

// Last returns the final pattern, or the zero event for an empty catalog.
func (c Catalog) Last() DisplayEvent {
	if len(c) == 0 {
		return DisplayEvent{}
	}
	return c[len(c)-1]
}
