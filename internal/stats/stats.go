package stats

import (
	"sync/atomic"
	"time"
)

// Counters is a point-in-time copy of the run counters.
type Counters struct {
	RequestsIssued     uint64 `json:"requests_issued"`
	RequestsFailed     uint64 `json:"requests_failed"`
	ConnectionAttempts uint64 `json:"connection_attempts"`
	ConnectionOpens    uint64 `json:"connection_opens"`
	ConnectionCloses   uint64 `json:"connection_closes"`
	ConnectionErrors   uint64 `json:"connection_errors"`
}

// FailureRate is failed/issued, 0 when nothing was issued.
func (c Counters) FailureRate() float64 {
	if c.RequestsIssued == 0 {
		return 0
	}
	return float64(c.RequestsFailed) / float64(c.RequestsIssued)
}

// Latency summarizes request round trips in milliseconds.
type Latency struct {
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
}

// Snapshot is sent to live views and metric scrapes.
type Snapshot struct {
	Counters
	Latency  Latency
	Inflight int64
	Events   uint64
}

// Aggregator holds the state shared by every virtual user of a run.
type Aggregator struct {
	requestsIssued     atomic.Uint64
	requestsFailed     atomic.Uint64
	connectionAttempts atomic.Uint64
	connectionOpens    atomic.Uint64
	connectionCloses   atomic.Uint64
	connectionErrors   atomic.Uint64
	inflight           atomic.Int64

	// Request latency (success and failure)
	RequestTime *SafeHistogram
	Events      *EventLog

	now func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		RequestTime: NewSafeHistogram(),
		Events:      NewEventLog(MaxEvents),
		now:         time.Now,
	}
}

func (a *Aggregator) Emit(userID string, kind EventKind, detail string) {
	a.Events.Append(Event{
		Time:   a.now().UTC(),
		UserID: userID,
		Kind:   kind,
		Detail: detail,
	})
}

func (a *Aggregator) ConnectionAttempt() { a.connectionAttempts.Add(1) }

func (a *Aggregator) ConnectionOpened(userID string) {
	a.connectionOpens.Add(1)
	a.Emit(userID, EventConnectionOpen, "")
}

func (a *Aggregator) ConnectionClosed(userID string) {
	a.connectionCloses.Add(1)
	a.Emit(userID, EventConnectionClose, "")
}

func (a *Aggregator) ConnectionFailed(userID string, err error) {
	a.connectionErrors.Add(1)
	a.Emit(userID, EventConnectionError, errString(err))
}

// RequestStarted must be paired with RequestDone or RequestCancelled.
func (a *Aggregator) RequestStarted() {
	a.inflight.Add(1)
}

// RequestDone records the outcome of a request; a nil err is a success.
// Only requests with an outcome count as issued.
func (a *Aggregator) RequestDone(userID string, elapsed time.Duration, err error) {
	a.inflight.Add(-1)
	a.requestsIssued.Add(1)
	a.RequestTime.Record(elapsed)
	if err != nil {
		a.requestsFailed.Add(1)
		a.Emit(userID, EventRequestFailed, err.Error())
	}
}

// RequestCancelled drops a request cut short by the run stopping. It is
// neither issued nor failed.
func (a *Aggregator) RequestCancelled() {
	a.inflight.Add(-1)
}

func (a *Aggregator) Counters() Counters {
	return Counters{
		RequestsIssued:     a.requestsIssued.Load(),
		RequestsFailed:     a.requestsFailed.Load(),
		ConnectionAttempts: a.connectionAttempts.Load(),
		ConnectionOpens:    a.connectionOpens.Load(),
		ConnectionCloses:   a.connectionCloses.Load(),
		ConnectionErrors:   a.connectionErrors.Load(),
	}
}

func (a *Aggregator) Latency() Latency {
	return Latency{
		P50Ms:  a.RequestTime.QuantileMs(50),
		P90Ms:  a.RequestTime.QuantileMs(90),
		P99Ms:  a.RequestTime.QuantileMs(99),
		MaxMs:  a.RequestTime.MaxMs(),
		MeanMs: a.RequestTime.MeanMs(),
	}
}

func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		Counters: a.Counters(),
		Latency:  a.Latency(),
		Inflight: a.inflight.Load(),
		Events:   a.Events.Total(),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
