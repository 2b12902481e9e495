package stats

import (
	"sync"
	"time"
)

// EventKind names what happened to a virtual user.
type EventKind string

const (
	EventConnectionOpen  EventKind = "connection_open"
	EventConnectionClose EventKind = "connection_close"
	EventConnectionError EventKind = "connection_error"
	EventRequestFailed   EventKind = "request_failed"
	EventProbeOK         EventKind = "probe_ok"
	EventProbeFailed     EventKind = "probe_failed"
)

// MaxEvents is how many events the log retains.
const MaxEvents = 1500

type Event struct {
	Time   time.Time `json:"ts"`
	UserID string    `json:"user"`
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// EventLog is a fixed-size ring that keeps the most recent events.
type EventLog struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	total uint64
}

func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = MaxEvents
	}
	return &EventLog{buf: make([]Event, size)}
}

// Append adds an event, overwriting the oldest once the ring is full.
func (l *EventLog) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = e
	l.next++
	l.total++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

// Tail returns retained events oldest first.
func (l *EventLog) Tail() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Event, l.next)
		copy(out, l.buf[:l.next])
		return out
	}
	out := make([]Event, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	out = append(out, l.buf[:l.next]...)
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.buf)
	}
	return l.next
}

// Total counts every event ever appended, including discarded ones.
func (l *EventLog) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
