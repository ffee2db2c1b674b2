package fdtest

import (
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeClock fires timers only when the test advances it.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 14, 5, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Timers armed by a callback fire too if they fall due within d.
func (c *fakeClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		next := c.nextDue(end)
		if next == nil {
			break
		}
		c.now = next.at
		next.stopped = true
		next.fn()
	}
	c.now = end
}

func (c *fakeClock) nextDue(end time.Time) *fakeTimer {
	var due *fakeTimer
	live := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if !t.at.After(end) && (due == nil || t.at.Before(due.at)) {
			due = t
		}
	}
	c.timers = live
	return due
}

// Pending counts armed timers.
func (c *fakeClock) Pending() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type mockLink struct {
	mock.Mock
}

func (m *mockLink) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockLink) IsOpen() bool {
	return m.Called().Bool(0)
}

// recordLink keeps every written frame.
type recordLink struct {
	mu     sync.Mutex
	open   bool
	writes [][]byte
}

func newRecordLink() *recordLink {
	return &recordLink{open: true}
}

func (l *recordLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = append(l.writes, append([]byte{}, p...))
	return len(p), nil
}

func (l *recordLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *recordLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	return nil
}

func (l *recordLink) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte{}, l.writes...)
}

func (l *recordLink) Last() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.writes) == 0 {
		return nil
	}
	return l.writes[len(l.writes)-1]
}

// unwrapFrame returns the clear-text payload of a written envelope.
func unwrapFrame(t *testing.T, frame []byte) (relay bool, payload []byte) {
	t.Helper()
	require.GreaterOrEqual(t, len(frame), 2)
	require.Equal(t, byte(STX), frame[0])
	require.Equal(t, byte(ETX), frame[len(frame)-1])

	body := frame[1 : len(frame)-1]
	if len(body) > 0 && body[0] == RelayControl {
		relay = true
		body = body[1:]
	}
	payload, err := hex.DecodeString(string(body))
	require.NoError(t, err)
	return relay, payload
}

// signalLog counts notifications per signal.
type signalLog struct {
	counts map[Signal]int
	data   map[Signal][][]byte
}

func watchSignals(n interface {
	Subscribe(Signal, func(Notification))
}) *signalLog {
	l := &signalLog{counts: map[Signal]int{}, data: map[Signal][][]byte{}}
	n.Subscribe(SignalAny, func(msg Notification) {
		l.counts[msg.Signal]++
		l.data[msg.Signal] = append(l.data[msg.Signal], msg.Data)
	})
	return l
}
