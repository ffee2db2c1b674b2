package fdtest

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// HostInterface is the serial port on the rig side.
type HostInterface struct {
	Name   string
	Params LineParams
}

// Config is a loaded configuration file.
type Config struct {
	Settings Settings
	Host     HostInterface
	Events   []DisplayEvent
}

type fileConfig struct {
	Flurdisplay displaySection `yaml:"flurdisplay"`
	Rules       rulesSection   `yaml:"rules"`
}

type displaySection struct {
	Device        *deviceSection    `yaml:"device,omitempty"`
	Firmware      *firmwareSection  `yaml:"firmware,omitempty"`
	DevInterface  *interfaceSection `yaml:"devInterface,omitempty"`
	HostInterface *interfaceSection `yaml:"hostInterface,omitempty"`
}

type deviceSection struct {
	Name       string `yaml:"name,omitempty"`
	MaxChar    int    `yaml:"maxChar,omitempty"`
	Time       string `yaml:"time,omitempty"`
	OnLongText string `yaml:"onLongText,omitempty"`
}

type firmwareSection struct {
	Name  string `yaml:"name,omitempty"`
	Major int    `yaml:"major,omitempty"`
}

type interfaceSection struct {
	Name    string `yaml:"name,omitempty"`
	Param   string `yaml:"param,omitempty"`
	Command string `yaml:"command,omitempty"`
}

type rulesSection struct {
	Match []ruleSection `yaml:"match"`
}

type ruleSection struct {
	RuleName     string            `yaml:"_ruleName,omitempty"`
	Event        string            `yaml:"event,omitempty"`
	Type         string            `yaml:"type,omitempty"`
	Priority     int               `yaml:"priority,omitempty"`
	EventText    string            `yaml:"eventText,omitempty"`
	LocationText string            `yaml:"locationText,omitempty"`
	Blink        string            `yaml:"blink,omitempty"`
	Tone         string            `yaml:"tone,omitempty"`
	AddrList     map[string]string `yaml:"addrList,omitempty"`
}

// LoadConfig reads a YAML or JSON configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig resolves a configuration document. Every problem found is
// reported in the returned error.
func ParseConfig(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	cfg := &Config{
		Settings: DefaultSettings(),
		Host:     HostInterface{Name: DefaultHostPortName, Params: DefaultLineParams()},
	}
	var errs error

	if dev := fc.Flurdisplay.Device; dev == nil {
		errs = multierr.Append(errs, fmt.Errorf("device section is not defined"))
	} else {
		errs = multierr.Append(errs, applyDevice(&cfg.Settings, dev))
	}

	if fw := fc.Flurdisplay.Firmware; fw != nil {
		cfg.Settings.Firmware = Firmware{Name: fw.Name, Major: fw.Major}
	}

	if iface := fc.Flurdisplay.DevInterface; iface == nil {
		errs = multierr.Append(errs, fmt.Errorf("device interface section is not defined"))
	} else {
		errs = multierr.Append(errs, applyInterface(&cfg.Settings, iface))
	}

	if host := fc.Flurdisplay.HostInterface; host != nil {
		if host.Name != "" {
			cfg.Host.Name = host.Name
		}
		if host.Param != "" {
			p, err := ParseLineParams(host.Param)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("host interface: %w", err))
			} else {
				cfg.Host.Params = p
			}
		}
	}

	for i, rule := range fc.Rules.Match {
		ev, err := rule.event()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rule %d: %w", i+1, err))
			continue
		}
		cfg.Events = append(cfg.Events, ev)
	}

	errs = multierr.Append(errs, cfg.Settings.Validate())
	if errs != nil {
		if !errors.Is(errs, ErrInvalidSettings) {
			errs = fmt.Errorf("%w: %w", ErrInvalidSettings, errs)
		}
		return nil, errs
	}
	return cfg, nil
}

func applyDevice(s *Settings, dev *deviceSection) error {
	var errs error
	if dev.Name != "" {
		s.DeviceName = dev.Name
		if maxChar, ok := DevicePresets[dev.Name]; ok {
			s.MaxChar = maxChar
		}
	}
	if dev.MaxChar > 0 {
		s.MaxChar = dev.MaxChar
	}
	if dev.Time != "" {
		s.TimeFormat = dev.Time
	}
	lt, err := ParseLongText(dev.OnLongText)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("device: %w", err))
	} else {
		s.LongText = lt
	}
	return errs
}

func applyInterface(s *Settings, iface *interfaceSection) error {
	var errs error
	if iface.Name != "" {
		s.InterfaceName = iface.Name
	}
	if iface.Param != "" {
		p, err := ParseLineParams(iface.Param)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("device interface: %w", err))
		} else {
			s.InterfaceParams = p
		}
	}
	if iface.Command != "" {
		cmds, err := ParseCommands(iface.Command)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("device interface: %w", err))
		} else {
			s.Commands = cmds
		}
	}
	return errs
}

func (r ruleSection) event() (DisplayEvent, error) {
	blink, err := ParseBlinkMode(r.Blink)
	if err != nil {
		return DisplayEvent{}, err
	}
	tone, err := ParseToneMode(r.Tone)
	if err != nil {
		return DisplayEvent{}, err
	}
	return DisplayEvent{
		Name:     r.Event,
		Type:     r.Type,
		Text:     r.EventText,
		Location: r.LocationText,
		Priority: r.Priority,
		Blink:    blink,
		Tone:     tone,
	}, nil
}

// Priorities of the factory rules.
const (
	PriorityLowest   = 1
	PriorityTime     = 3
	PriorityPresence = 5
	PriorityReminder = 7
	PriorityCall     = 10
	PriorityCallWC   = 11
	PriorityAlarm    = 20
)

// DefaultConfig is the factory configuration: an FD10 on RS485 speaking
// 0x28, with one rule per standard event.
func DefaultConfig() *Config {
	rule := func(event, typ string, prio int, text string, blink BlinkMode, tone ToneMode) DisplayEvent {
		return DisplayEvent{Name: event, Type: typ, Priority: prio, Text: text, Blink: blink, Tone: tone}
	}
	return &Config{
		Settings: DefaultSettings(),
		Host:     HostInterface{Name: DefaultHostPortName, Params: DefaultLineParams()},
		Events: []DisplayEvent{
			rule("alarm", "officer", PriorityAlarm, "Alarm", BlinkEvent, ToneAlarm),     // Beamtenalarm
			rule("presence", "officer", PriorityPresence, "Anw", BlinkNone, ToneNone),   // Beamtenanwesenheit
			rule("alarm", "fire", PriorityAlarm, "Alarm", BlinkEvent, ToneAlarm),        // Brandalarm
			rule("alarm", "sabotage", PriorityAlarm, "Alarm", BlinkEvent, ToneAlarm),    // Deckelalarm
			rule("reminder", "officer", PriorityReminder, "Merk", BlinkEvent, ToneNone), // Merkschaltung
			rule("alarm", "bathroom", PriorityCallWC, "Ruf", BlinkNone, ToneCall),       // WC-Ruf
			rule("alarm", "prisoner", PriorityCall, "Ruf", BlinkNone, ToneCall),         // Zellenruf
		},
	}
}

// MarshalConfig renders cfg in the file format LoadConfig reads.
func MarshalConfig(cfg *Config) ([]byte, error) {
	s := cfg.Settings
	fc := fileConfig{
		Flurdisplay: displaySection{
			Device: &deviceSection{
				Name:       s.DeviceName,
				MaxChar:    s.MaxChar,
				Time:       s.TimeFormat,
				OnLongText: s.LongText.String(),
			},
			Firmware: &firmwareSection{Name: s.Firmware.Name, Major: s.Firmware.Major},
			DevInterface: &interfaceSection{
				Name:    s.InterfaceName,
				Param:   s.InterfaceParams.String(),
				Command: strings.Join(commandNames(s.Commands), ","),
			},
			HostInterface: &interfaceSection{
				Name:  cfg.Host.Name,
				Param: cfg.Host.Params.String(),
			},
		},
	}
	for _, ev := range cfg.Events {
		fc.Rules.Match = append(fc.Rules.Match, ruleSection{
			RuleName:     ruleName(ev),
			Event:        ev.Name,
			Type:         ev.Type,
			Priority:     ev.Priority,
			EventText:    ev.Text,
			LocationText: ev.Location,
			Blink:        ev.Blink.String(),
			Tone:         ev.Tone.String(),
		})
	}
	return yaml.Marshal(&fc)
}

// WriteConfig stores cfg at path, replacing an existing file.
func WriteConfig(path string, cfg *Config) error {
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ruleName(ev DisplayEvent) string {
	name := ev.Name
	if ev.Type != "" {
		name += "/" + ev.Type
	}
	if ev.ID > 0 {
		name += " #" + strconv.Itoa(ev.ID)
	}
	return name
}
