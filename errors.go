package fdtest

import "errors"

var (
	ErrLinkClosed         = errors.New("link is not open")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrNoPatterns         = errors.New("test patterns are not defined")
	ErrNotConfigured      = errors.New("scheduler is not configured")
	ErrRunning            = errors.New("scheduler is running")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrBadLineParams      = errors.New("bad line parameters")
	ErrPayloadTooLong     = errors.New("payload too long")
	ErrShortFrame         = errors.New("frame too short")
	ErrNoPort             = errors.New("no matching serial port found")
)
