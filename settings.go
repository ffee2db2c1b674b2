package fdtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Display timing.
const (
	PeriodBlink         = 500 * time.Millisecond
	PeriodText          = 10 * time.Second
	SlidingCharRate     = 237 * time.Millisecond
	SlidingStartDelay   = 2 * time.Second
	SlidingHoldTime     = 3800 * time.Millisecond
	FirstTickDelay      = 500 * time.Millisecond
	DefaultTimeFormat   = "H:mm"
	ValidAckCount       = 3
	RelayInterface      = "Seriobus"
	DefaultInterface    = "RS485"
	DefaultHostPortName = "COM4"
)

// DevicePresets maps display models to their character capacity.
var DevicePresets = map[string]int{
	"FD10": 10,
	"FD15": 15,
	"FD20": 20,
}

type LongTextMode int

const (
	LongTextTruncate LongTextMode = iota
	LongTextSliding
)

// LongText says what a display does with text longer than MaxChar.
type LongText struct {
	Mode     LongTextMode
	CharRate time.Duration
	HoldTime time.Duration
}

// ParseLongText parses "truncate" or "sliding[,charRateMs[,holdTimeMs]]".
func ParseLongText(s string) (LongText, error) {
	lt := LongText{Mode: LongTextTruncate, CharRate: SlidingCharRate, HoldTime: SlidingHoldTime}
	parts := strings.Split(s, ",")
	switch strings.TrimSpace(parts[0]) {
	case "", "truncate":
		return lt, nil
	case "sliding":
		lt.Mode = LongTextSliding
	default:
		return lt, fmt.Errorf("unknown long text mode %q", parts[0])
	}

	durations := []*time.Duration{&lt.CharRate, &lt.HoldTime}
	for i, d := range durations {
		if len(parts) <= i+1 || strings.TrimSpace(parts[i+1]) == "" {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(parts[i+1]))
		if err != nil || ms < 0 {
			return lt, fmt.Errorf("bad sliding parameter %q", parts[i+1])
		}
		*d = time.Duration(ms) * time.Millisecond
	}
	return lt, nil
}

func (lt LongText) String() string {
	if lt.Mode != LongTextSliding {
		return "truncate"
	}
	return fmt.Sprintf("sliding,%d,%d", lt.CharRate.Milliseconds(), lt.HoldTime.Milliseconds())
}

// Firmware identifies the display firmware under test.
type Firmware struct {
	Name  string
	Major int
}

// Settings is the resolved device configuration.
type Settings struct {
	DeviceName      string
	MaxChar         int
	TimeFormat      string
	LongText        LongText
	Commands        []Command
	InterfaceName   string
	InterfaceParams LineParams
	Firmware        Firmware
}

func DefaultSettings() Settings {
	return Settings{
		DeviceName:      "FD10",
		MaxChar:         DevicePresets["FD10"],
		TimeFormat:      DefaultTimeFormat,
		LongText:        LongText{Mode: LongTextSliding, CharRate: SlidingCharRate, HoldTime: SlidingHoldTime},
		Commands:        []Command{DefaultCommand},
		InterfaceName:   DefaultInterface,
		InterfaceParams: DefaultLineParams(),
		Firmware:        Firmware{Name: "FD-J-03 or later", Major: 3},
	}
}

// Validate reports every problem at once.
func (s Settings) Validate() error {
	var err error
	if s.MaxChar <= 0 {
		err = multierr.Append(err, fmt.Errorf("maxChar must be positive, got %d", s.MaxChar))
	}
	if len(s.Commands) == 0 {
		err = multierr.Append(err, fmt.Errorf("no supported command"))
	}
	for _, c := range s.Commands {
		if !c.Valid() {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrUnsupportedCommand, c))
		}
	}
	if s.InterfaceName == "" {
		err = multierr.Append(err, fmt.Errorf("device interface name is empty"))
	}
	if s.LongText.Mode == LongTextSliding && s.LongText.CharRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("sliding char rate must be positive"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

// Relayed reports whether frames go through a Seriobus relay.
func (s Settings) Relayed() bool {
	return strings.Contains(s.InterfaceName, RelayInterface)
}

func (s Settings) Supports(cmd Command) bool {
	for _, c := range s.Commands {
		if c == cmd {
			return true
		}
	}
	return false
}

// NextCommand returns the command following cur in the supported list,
// wrapping to the first. An unknown cur also yields the first.
func (s Settings) NextCommand(cur Command) Command {
	if len(s.Commands) == 0 {
		return DefaultCommand
	}
	for i, c := range s.Commands {
		if c == cur {
			return s.Commands[(i+1)%len(s.Commands)]
		}
	}
	return s.Commands[0]
}

// FormatClock renders t with a Qt style time format (H, HH, h, hh, m, mm,
// s, ss, AP, ap). Other characters are copied.
func FormatClock(t time.Time, format string) string {
	var sb strings.Builder
	for i := 0; i < len(format); {
		c := format[i]
		n := 1
		for i+n < len(format) && format[i+n] == c && n < 2 {
			n++
		}
		switch c {
		case 'H':
			sb.WriteString(pad(t.Hour(), n))
		case 'h':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			sb.WriteString(pad(h, n))
		case 'm':
			sb.WriteString(pad(t.Minute(), n))
		case 's':
			sb.WriteString(pad(t.Second(), n))
		case 'A', 'a':
			if i+1 < len(format) && (format[i+1] == 'P' || format[i+1] == 'p') {
				ampm := "AM"
				if t.Hour() >= 12 {
					ampm = "PM"
				}
				if c == 'a' {
					ampm = strings.ToLower(ampm)
				}
				sb.WriteString(ampm)
				n = 2
			} else {
				sb.WriteString(format[i : i+n])
			}
		default:
			sb.WriteString(format[i : i+n])
		}
		i += n
	}
	return sb.String()
}

func pad(v, width int) string {
	if width == 2 {
		return fmt.Sprintf("%02d", v)
	}
	return strconv.Itoa(v)
}
