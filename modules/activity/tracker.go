package activity

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Joins         int64            `json:"joins"`
	Leaves        int64            `json:"leaves"`
	Messages      int64            `json:"messages"`
	Deliveries    int64            `json:"deliveries"`
	RejectedJoins map[string]int64 `json:"rejected_joins"`
	LastEventAt   *time.Time       `json:"last_event_at,omitempty"`
}

// Tracker counts session activity observed on the event bus.
type Tracker struct {
	joins      atomic.Int64
	leaves     atomic.Int64
	messages   atomic.Int64
	deliveries atomic.Int64

	mu        sync.Mutex
	rejected  map[string]int64 // error code -> count
	lastEvent time.Time
}

// NewTracker creates a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{rejected: make(map[string]int64)}
}

// RecordJoin counts a successful join.
func (t *Tracker) RecordJoin(at time.Time) {
	t.joins.Add(1)
	t.touch(at)
}

// RecordLeave counts a departure from a room.
func (t *Tracker) RecordLeave(at time.Time) {
	t.leaves.Add(1)
	t.touch(at)
}

// RecordMessage counts a broadcast message and its recipients.
func (t *Tracker) RecordMessage(recipients int, at time.Time) {
	t.messages.Add(1)
	t.deliveries.Add(int64(recipients))
	t.touch(at)
}

// RecordRejectedJoin counts a failed join by error code.
func (t *Tracker) RecordRejectedJoin(code string, at time.Time) {
	t.mu.Lock()
	t.rejected[code]++
	t.mu.Unlock()
	t.touch(at)
}

func (t *Tracker) touch(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at.After(t.lastEvent) {
		t.lastEvent = at
	}
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Joins:      t.joins.Load(),
		Leaves:     t.leaves.Load(),
		Messages:   t.messages.Load(),
		Deliveries: t.deliveries.Load(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s.RejectedJoins = make(map[string]int64, len(t.rejected))
	for code, n := range t.rejected {
		s.RejectedJoins[code] = n
	}
	if !t.lastEvent.IsZero() {
		last := t.lastEvent
		s.LastEventAt = &last
	}
	return s
}
