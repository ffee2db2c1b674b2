package fdtest

import "sync"

// Signal identifies a notification raised by the transport or the scheduler.
type Signal int

const (
	// SignalAny subscribes to every signal.
	SignalAny Signal = iota
	SignalACK
	SignalNACK
	SignalSTX
	SignalETX
	SignalEOT
	SignalData
	SignalSent
	SignalDrained
	SignalDelivered
	SignalDummyDelivered
	SignalStarted
	SignalStopped
	SignalCommand
)

var signalNames = map[Signal]string{
	SignalAny:            "any",
	SignalACK:            "ACK",
	SignalNACK:           "NACK",
	SignalSTX:            "STX",
	SignalETX:            "ETX",
	SignalEOT:            "EOT",
	SignalData:           "data",
	SignalSent:           "sent",
	SignalDrained:        "drained",
	SignalDelivered:      "delivered",
	SignalDummyDelivered: "dummy-delivered",
	SignalStarted:        "started",
	SignalStopped:        "stopped",
	SignalCommand:        "command",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return "unknown"
}

// Notification is delivered to subscribers. Data carries the bytes the signal
// refers to: the clear-text payload for sent/delivered, the received byte
// for data, the new command for command.
type Notification struct {
	Signal Signal
	Data   []byte
}

type notifier struct {
	mu        sync.Mutex
	callbacks map[Signal][]func(Notification)
}

// Subscribe registers a callback for a signal. SignalAny receives everything.
func (n *notifier) Subscribe(sig Signal, fn func(Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.callbacks == nil {
		n.callbacks = make(map[Signal][]func(Notification))
	}
	n.callbacks[sig] = append(n.callbacks[sig], fn)
}

func (n *notifier) emit(sig Signal, data []byte) {
	n.mu.Lock()
	specific := append([]func(Notification){}, n.callbacks[sig]...)
	general := append([]func(Notification){}, n.callbacks[SignalAny]...)
	n.mu.Unlock()

	msg := Notification{Signal: sig, Data: data}
	for _, fn := range specific {
		fn(msg)
	}
	for _, fn := range general {
		fn(msg)
	}
}
